package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfinance/internal/amqp"
	"smartfinance/internal/core"
	applog "smartfinance/internal/log"
)

type fakeReminderPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.BillReminderMessage
	err  error
}

func (f *fakeReminderPublisher) PublishBillReminder(_ context.Context, msg *amqp.BillReminderMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeReminderPublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func reminderLedger(t *testing.T, now time.Time) *Ledger {
	t.Helper()
	h := newHarness(t, core.PlanFree, now)
	ctx := context.Background()

	internet := NewTransaction{Description: "Internet", Amount: decimal.NewFromInt(100), Type: core.Expense, Date: day(2024, 1, 10), Recurrence: core.Monthly}
	_, err := h.ledger.Add(ctx, internet)
	require.NoError(t, err)

	luz := NewTransaction{Description: "Luz", Amount: decimal.NewFromInt(80), Type: core.Expense, Date: day(2024, 3, 9), Recurrence: core.Single}
	_, err = h.ledger.Add(ctx, luz)
	require.NoError(t, err)

	_, err = h.ledger.Add(ctx, salario(core.Monthly))
	require.NoError(t, err)
	return h.ledger
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		a, b time.Time
		want int
	}{
		{day(2024, 3, 8), day(2024, 3, 8), 0},
		{day(2024, 3, 8), day(2024, 3, 10), 2},
		{time.Date(2024, 3, 8, 23, 0, 0, 0, time.UTC), time.Date(2024, 3, 9, 1, 0, 0, 0, time.UTC), 1},
		{day(2024, 3, 8), day(2024, 3, 1), -7},
		{day(2024, 2, 28), day(2024, 3, 1), 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DaysBetween(tt.a, tt.b), "%s -> %s", tt.a, tt.b)
	}
}

func TestReminderProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	ledger := reminderLedger(t, day(2024, 3, 8))
	pub := &fakeReminderPublisher{}
	p := NewReminderProcessor(ledger, pub, ReminderConfig{WindowDays: 3}, applog.Discard())

	n, err := p.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.msgs, 2)

	luz := pub.msgs[0]
	assert.Equal(t, "Luz", luz.Description)
	assertDec(t, "80", luz.Amount)
	assert.Equal(t, 1, luz.DaysUntil)
	assert.False(t, luz.IsProjection)

	internet := pub.msgs[1]
	assert.Equal(t, "Internet", internet.Description)
	assert.Equal(t, 2, internet.DaysUntil)
	assert.True(t, internet.IsProjection)

	n, err = p.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "bills are announced once per due date")
}

func TestReminderProcessor_RetriesFailedPublishes(t *testing.T) {
	ctx := context.Background()
	ledger := reminderLedger(t, day(2024, 3, 8))
	pub := &fakeReminderPublisher{err: amqp.ErrCircuitOpen}
	p := NewReminderProcessor(ledger, pub, ReminderConfig{WindowDays: 3}, applog.Discard())

	n, err := p.ProcessDue(ctx)
	assert.ErrorIs(t, err, amqp.ErrCircuitOpen)
	assert.Zero(t, n)

	pub.err = nil
	n, err = p.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReminderProcessor_NotInitialized(t *testing.T) {
	p := NewReminderProcessor(nil, nil, ReminderConfig{}, applog.Discard())
	_, err := p.ProcessDue(context.Background())
	assert.Error(t, err)
	assert.Equal(t, DefaultReminderConfig(), p.config)
}

func TestReminderProcessor_Lifecycle(t *testing.T) {
	ledger := reminderLedger(t, day(2024, 3, 8))
	pub := &fakeReminderPublisher{}
	p := NewReminderProcessor(ledger, pub, ReminderConfig{Interval: time.Hour, WindowDays: 3}, applog.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(ctx))

	assert.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 10*time.Millisecond)

	p.Trigger()
	p.Trigger()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, p.Stop(stopCtx))
	assert.False(t, p.IsRunning())
	assert.Equal(t, 2, pub.count())
}

func TestReminderProcessor_ConcurrentStop(t *testing.T) {
	ledger := reminderLedger(t, day(2024, 3, 8))
	p := NewReminderProcessor(ledger, &fakeReminderPublisher{}, ReminderConfig{Interval: time.Hour}, applog.Discard())
	require.NoError(t, p.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Stop(stopCtx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.False(t, p.IsRunning())

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop(stopCtx))
}

func TestReminderProcessor_PublishErrorJoined(t *testing.T) {
	ledger := reminderLedger(t, day(2024, 3, 8))
	boom := errors.New("boom")
	pub := &fakeReminderPublisher{err: boom}
	p := NewReminderProcessor(ledger, pub, ReminderConfig{WindowDays: 3}, applog.Discard())

	n, err := p.ProcessDue(context.Background())
	assert.Zero(t, n)
	assert.ErrorIs(t, err, boom)
}
