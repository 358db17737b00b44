package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smartfinance/internal/amqp"
	"smartfinance/internal/core"
	applog "smartfinance/internal/log"
)

// BillSource is the part of the ledger the reminder processor reads.
type BillSource interface {
	UpcomingBills(days int) []core.Entry
	Now() time.Time
}

type ReminderPublisher interface {
	PublishBillReminder(ctx context.Context, msg *amqp.BillReminderMessage) error
}

type ReminderConfig struct {
	// Interval between scans (default: 1h).
	Interval time.Duration

	// WindowDays is how far ahead a bill is considered upcoming (default: 3).
	WindowDays int
}

func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Interval:   time.Hour,
		WindowDays: 3,
	}
}

// ReminderProcessor periodically publishes a reminder for each unpaid bill
// due within the window. A bill is announced once per due date.
type ReminderProcessor struct {
	bills     BillSource
	publisher ReminderPublisher
	config    ReminderConfig
	logger    *applog.Logger

	mu       sync.Mutex
	running  bool
	stopping bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	trigger  chan struct{}

	sentMu sync.Mutex
	sent   map[string]time.Time
}

func NewReminderProcessor(bills BillSource, publisher ReminderPublisher, config ReminderConfig, logger *applog.Logger) *ReminderProcessor {
	def := DefaultReminderConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.WindowDays <= 0 {
		config.WindowDays = def.WindowDays
	}
	return &ReminderProcessor{
		bills:     bills,
		publisher: publisher,
		config:    config,
		logger:    logger.WithComponent(applog.ComponentReminder),
		trigger:   make(chan struct{}, 1),
		sent:      make(map[string]time.Time),
	}
}

// Start begins the scan loop. Returns an error if already running.
func (p *ReminderProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("reminder processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Reminder processor started",
		"interval", p.config.Interval,
		"window_days", p.config.WindowDays)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
// Only the first of concurrent calls signals; the others just wait.
func (p *ReminderProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	if !p.stopping {
		p.stopping = true
		close(p.stopCh)
	}
	doneCh := p.doneCh
	p.mu.Unlock()

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Reminder processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Reminder processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	if p.doneCh == doneCh {
		p.running = false
		p.stopping = false
	}
	p.mu.Unlock()
	return nil
}

func (p *ReminderProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Trigger requests a scan ahead of the next tick. Calls made while a scan
// is already pending are coalesced.
func (p *ReminderProcessor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *ReminderProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.scan(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scan(ctx)
		case <-p.trigger:
			p.scan(ctx)
		}
	}
}

func (p *ReminderProcessor) scan(ctx context.Context) {
	n, err := p.ProcessDue(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Reminder scan failed", applog.FieldError, err.Error())
		return
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "Reminders published", applog.FieldCount, n)
	}
}

// ProcessDue publishes a reminder for every upcoming bill not announced yet
// and returns how many were published. Failed publishes are retried on the
// next scan.
func (p *ReminderProcessor) ProcessDue(ctx context.Context) (int, error) {
	if p.bills == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	now := p.bills.Now()
	bills := p.bills.UpcomingBills(p.config.WindowDays)

	p.sentMu.Lock()
	defer p.sentMu.Unlock()
	p.pruneLocked(now)

	published := 0
	var errs []error
	for _, e := range bills {
		t := e.Record()
		key := reminderKey(t)
		if _, done := p.sent[key]; done {
			continue
		}

		msg := &amqp.BillReminderMessage{
			TransactionID: t.ID,
			Description:   t.Description,
			Amount:        t.Amount.Abs(),
			DueDate:       t.CreatedAt.UTC(),
			DaysUntil:     DaysBetween(now, t.CreatedAt),
			IsProjection:  e.IsProjection(),
		}
		if err := p.publisher.PublishBillReminder(ctx, msg); err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish bill reminder",
				applog.FieldTransactionID, t.ID, applog.FieldError, err.Error())
			errs = append(errs, err)
			if errors.Is(err, amqp.ErrCircuitOpen) || ctx.Err() != nil {
				break
			}
			continue
		}
		p.sent[key] = t.CreatedAt
		published++
	}
	return published, errors.Join(errs...)
}

// pruneLocked forgets reminders whose due date has passed.
func (p *ReminderProcessor) pruneLocked(now time.Time) {
	for k, due := range p.sent {
		if DaysBetween(now, due) < 0 {
			delete(p.sent, k)
		}
	}
}

func reminderKey(t core.Transaction) string {
	return t.ID + "|" + t.CreatedAt.Format("2006-01-02")
}

// DaysBetween counts calendar days from a to b, negative when b is earlier.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
