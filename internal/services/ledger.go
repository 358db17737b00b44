// Package services holds the transaction store and the operations that
// mutate it. A Ledger owns the canonical in-memory state; every mutation
// builds a new slice, replaces the old one, writes the snapshot through and
// announces the change.
package services

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smartfinance/internal/amqp"
	"smartfinance/internal/core"
	applog "smartfinance/internal/log"
	"smartfinance/internal/snapshots"
)

// Notifier receives a message after every persisted mutation.
type Notifier interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator replaces the uuid generator used for new ids.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

func WithCapabilities(caps core.Capabilities) Option {
	return func(l *Ledger) { l.caps = caps }
}

type Ledger struct {
	mu        sync.Mutex
	repo      *snapshots.Repository
	txns      []core.Transaction
	goals     core.Goals
	cards     []core.Card
	envelopes []core.Envelope
	prefs     core.UserPrefs
	theme     core.Theme

	caps     core.Capabilities
	notifier Notifier
	now      func() time.Time
	newID    func() string
	logger   *applog.Logger
}

// NewLedger loads every snapshot from repo. Missing or unreadable keys
// start from their defaults.
func NewLedger(ctx context.Context, repo *snapshots.Repository, logger *applog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		repo:   repo,
		caps:   core.NewCapabilities(core.PlanFree),
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.WithComponent(applog.ComponentLedger),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Reload(ctx)
	return l
}

// Reload replaces the in-memory state with the persisted snapshots.
func (l *Ledger) Reload(ctx context.Context) {
	txns := l.repo.LoadTransactions(ctx)
	goals := l.repo.LoadGoals(ctx)
	cards := l.repo.LoadCards(ctx)
	envs := l.repo.LoadEnvelopes(ctx)
	prefs := l.repo.LoadUserPrefs(ctx)
	theme := l.repo.LoadTheme(ctx)

	l.mu.Lock()
	l.txns, l.goals, l.cards, l.envelopes, l.prefs, l.theme = txns, goals, cards, envs, prefs, theme
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Ledger loaded", applog.FieldCount, len(txns))
}

// Capabilities returns the feature set the ledger gates on.
func (l *Ledger) Capabilities() core.Capabilities { return l.caps }

// Now returns the ledger clock.
func (l *Ledger) Now() time.Time { return l.now() }

// Transactions returns a copy of the persisted list in insertion order.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Transaction(nil), l.txns...)
}

// Entries returns the persisted list extended with projections up to the
// horizon.
func (l *Ledger) Entries() []core.Entry {
	return core.Project(l.Transactions(), l.now())
}

// mutateTransactions applies fn to the current list under the lock. fn must
// return a new slice and leave its argument untouched. The result replaces
// the list, is saved and announced.
func (l *Ledger) mutateTransactions(ctx context.Context, op string, fn func([]core.Transaction) ([]core.Transaction, error)) error {
	l.mu.Lock()
	next, err := fn(l.txns)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.txns = next
	saved := l.repo.SaveTransactions(ctx, next)
	count := len(next)
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyTransactions, op, count, saved)
	return nil
}

func (l *Ledger) notify(ctx context.Context, key, op string, count int, saved bool) {
	if !saved || l.notifier == nil {
		return
	}
	msg := amqp.NewLedgerChangedMessage(key, op, count, l.now())
	if err := l.notifier.PublishLedgerChanged(ctx, msg); err != nil {
		l.logger.WarnContext(ctx, "Failed to publish ledger change",
			applog.NewFields().WithKey(key).WithOperation(op).WithError(err).ToSlice()...)
	}
}

// NewTransaction is the input of Add. Amount is a magnitude; the sign is
// derived from Type.
type NewTransaction struct {
	Description      string
	Amount           decimal.Decimal
	Type             core.TransactionType
	Date             time.Time
	Recurrence       core.Recurrence
	Installments     int
	PaidInstallments int
	Category         string
}

// Add records a single, monthly or installment transaction and returns the
// created records. Installment purchases create one record per installment
// sharing a fresh group id.
func (l *Ledger) Add(ctx context.Context, in NewTransaction) ([]core.Transaction, error) {
	created, err := l.build(in)
	if err != nil {
		return nil, err
	}
	err = l.mutateTransactions(ctx, applog.OpCreate, func(cur []core.Transaction) ([]core.Transaction, error) {
		next := make([]core.Transaction, 0, len(cur)+len(created))
		next = append(next, cur...)
		return append(next, created...), nil
	})
	if err != nil {
		return nil, err
	}

	first := created[0]
	fields := applog.NewFields().
		WithTransaction(first.ID, first.GroupID, string(first.Type), string(first.Recurrence), first.Amount.String()).
		WithOperation(applog.OpCreate)
	fields[applog.FieldCount] = len(created)
	l.logger.InfoContext(ctx, "Transaction added", fields.ToSlice()...)
	return created, nil
}

func (l *Ledger) build(in NewTransaction) ([]core.Transaction, error) {
	if !in.Type.Valid() {
		return nil, core.NewValidationError("type", "must be income or expense")
	}
	if !in.Recurrence.Valid() {
		return nil, core.NewValidationError("recurrence", "must be single, monthly or installment")
	}

	if in.Recurrence == core.Installment {
		if in.Type != core.Expense {
			return nil, core.NewValidationError("recurrence", "installments are only available for expenses")
		}
		req := core.InstallmentRequest{
			Description: in.Description,
			Total:       in.Amount,
			Count:       in.Installments,
			Start:       in.Date,
			Paid:        in.PaidInstallments,
			Category:    in.Category,
		}
		return core.ExpandInstallments(req, l.newID())
	}

	if !in.Amount.IsPositive() {
		return nil, core.NewValidationError("amount", "must be a positive number")
	}
	t := core.Transaction{
		ID:          l.newID(),
		Description: strings.TrimSpace(in.Description),
		Amount:      core.SignedAmount(in.Type, in.Amount),
		Type:        in.Type,
		CreatedAt:   in.Date,
		Recurrence:  in.Recurrence,
		Category:    strings.TrimSpace(in.Category),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return []core.Transaction{t}, nil
}

// TransactionEdit is the input of Edit.
type TransactionEdit struct {
	Description string
	Amount      decimal.Decimal
	Type        core.TransactionType
	Date        time.Time
	Recurrence  core.Recurrence
	Category    *string
}

var installmentSuffix = regexp.MustCompile(`\s\(\d+/\d+\)$`)

// Edit replaces the editable fields of one persisted transaction. The
// amount sign follows the new type. An installment keeps its "(i/N)"
// suffix when the new description drops it.
func (l *Ledger) Edit(ctx context.Context, id string, in TransactionEdit) (core.Transaction, error) {
	if !in.Amount.IsPositive() {
		return core.Transaction{}, core.NewValidationError("amount", "must be a positive number")
	}
	if !in.Type.Valid() {
		return core.Transaction{}, core.NewValidationError("type", "must be income or expense")
	}
	if !in.Recurrence.Valid() {
		return core.Transaction{}, core.NewValidationError("recurrence", "must be single, monthly or installment")
	}

	var updated core.Transaction
	err := l.mutateTransactions(ctx, applog.OpUpdate, func(cur []core.Transaction) ([]core.Transaction, error) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, core.NewNotFoundError("transaction", id)
		}
		t := cur[i]
		if in.Recurrence == core.Installment && t.GroupID == "" {
			return nil, core.NewValidationError("recurrence", "only members of an installment group can be installments")
		}
		if t.GroupID != "" {
			if in.Recurrence != core.Installment {
				return nil, core.NewValidationError("recurrence", "installment group members must stay installments")
			}
			if in.Type != core.Expense {
				return nil, core.NewValidationError("type", "installments are only available for expenses")
			}
		}

		desc := strings.TrimSpace(in.Description)
		if t.Recurrence == core.Installment && !installmentSuffix.MatchString(desc) {
			if suffix := installmentSuffix.FindString(t.Description); suffix != "" {
				desc += suffix
			}
		}
		t.Description = desc
		t.Type = in.Type
		t.Amount = core.SignedAmount(in.Type, in.Amount)
		t.CreatedAt = in.Date
		t.Recurrence = in.Recurrence
		if in.Category != nil {
			t.Category = strings.TrimSpace(*in.Category)
		}
		if t.Type == core.Income {
			t.PaymentMethod = ""
			t.CreditCardName = ""
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}

		next := append([]core.Transaction(nil), cur...)
		next[i] = t
		updated = t
		return next, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	l.logger.InfoContext(ctx, "Transaction updated", applog.FieldTransactionID, id)
	return updated, nil
}

// EditGroupAmount sets the amount of every unpaid member of an installment
// group to -|amount| and returns how many records changed.
func (l *Ledger) EditGroupAmount(ctx context.Context, groupID string, amount decimal.Decimal) (int, error) {
	if !amount.IsPositive() {
		return 0, core.NewValidationError("amount", "must be a positive number")
	}

	changed := 0
	err := l.mutateTransactions(ctx, applog.OpUpdate, func(cur []core.Transaction) ([]core.Transaction, error) {
		next := append([]core.Transaction(nil), cur...)
		found := false
		for i, t := range next {
			if groupID == "" || t.GroupID != groupID {
				continue
			}
			found = true
			if t.Paid {
				continue
			}
			t.Amount = amount.Abs().Neg()
			next[i] = t
			changed++
		}
		if !found {
			return nil, core.NewNotFoundError("group", groupID)
		}
		return next, nil
	})
	if err != nil {
		return 0, err
	}

	l.logger.InfoContext(ctx, "Group amount updated", applog.FieldGroupID, groupID, applog.FieldCount, changed)
	return changed, nil
}

// Delete removes one persisted transaction. Projection ids are not
// persisted and report NotFound.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	err := l.mutateTransactions(ctx, applog.OpDelete, func(cur []core.Transaction) ([]core.Transaction, error) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, core.NewNotFoundError("transaction", id)
		}
		next := make([]core.Transaction, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		return append(next, cur[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Transaction deleted", applog.FieldTransactionID, id)
	return nil
}

// DeleteGroup removes every member of an installment group and returns how
// many records were removed.
func (l *Ledger) DeleteGroup(ctx context.Context, groupID string) (int, error) {
	removed := 0
	err := l.mutateTransactions(ctx, applog.OpDelete, func(cur []core.Transaction) ([]core.Transaction, error) {
		next := make([]core.Transaction, 0, len(cur))
		for _, t := range cur {
			if groupID != "" && t.GroupID == groupID {
				removed++
				continue
			}
			next = append(next, t)
		}
		if removed == 0 {
			return nil, core.NewNotFoundError("group", groupID)
		}
		return next, nil
	})
	if err != nil {
		return 0, err
	}
	l.logger.InfoContext(ctx, "Group deleted", applog.FieldGroupID, groupID, applog.FieldCount, removed)
	return removed, nil
}

// MarkPaid marks a persisted transaction as paid. When id names a
// projection, a new paid record is materialized for that month instead and
// returned. Expenses require a payment method; income ignores it.
func (l *Ledger) MarkPaid(ctx context.Context, id string, method core.PaymentMethod, cardName string) (core.Transaction, error) {
	now := l.now()
	var paid core.Transaction
	materialized := false
	err := l.mutateTransactions(ctx, applog.OpPay, func(cur []core.Transaction) ([]core.Transaction, error) {
		if i := indexOf(cur, id); i >= 0 {
			if err := checkMethod(cur[i], method); err != nil {
				return nil, err
			}
			next := append([]core.Transaction(nil), cur...)
			next[i] = cur[i].WithPayment(method, cardName)
			paid = next[i]
			return next, nil
		}

		p, ok := core.FindProjection(core.Project(cur, now), id)
		if !ok {
			return nil, core.NewNotFoundError("transaction", id)
		}
		if err := checkMethod(p.Record(), method); err != nil {
			return nil, err
		}
		paid = p.Materialize(l.newID(), method, cardName)
		materialized = true
		next := make([]core.Transaction, 0, len(cur)+1)
		next = append(next, cur...)
		return append(next, paid), nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	op := applog.OpPay
	if materialized {
		op = applog.OpMaterialize
	}
	l.logger.InfoContext(ctx, "Transaction paid",
		applog.FieldTransactionID, paid.ID,
		applog.FieldOperation, op,
		applog.FieldPaymentMethod, string(paid.PaymentMethod))
	return paid, nil
}

func checkMethod(t core.Transaction, method core.PaymentMethod) error {
	if t.IsExpense() && !method.Valid() {
		return core.NewValidationError("paymentMethod", "must be pix, debit, credit or cash")
	}
	return nil
}

// MarkUnpaid clears the paid flag, method and card of a persisted
// transaction.
func (l *Ledger) MarkUnpaid(ctx context.Context, id string) (core.Transaction, error) {
	var unpaid core.Transaction
	err := l.mutateTransactions(ctx, applog.OpUnpay, func(cur []core.Transaction) ([]core.Transaction, error) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, core.NewNotFoundError("transaction", id)
		}
		next := append([]core.Transaction(nil), cur...)
		next[i] = cur[i].WithoutPayment()
		unpaid = next[i]
		return next, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	l.logger.InfoContext(ctx, "Transaction unpaid", applog.FieldTransactionID, id)
	return unpaid, nil
}

// ClearTransactions empties the transaction list.
func (l *Ledger) ClearTransactions(ctx context.Context) error {
	err := l.mutateTransactions(ctx, applog.OpClear, func([]core.Transaction) ([]core.Transaction, error) {
		return []core.Transaction{}, nil
	})
	if err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Transactions cleared")
	return nil
}

func indexOf(txns []core.Transaction, id string) int {
	if id == "" {
		return -1
	}
	for i, t := range txns {
		if t.ID == id {
			return i
		}
	}
	return -1
}
