package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"smartfinance/internal/core"
	applog "smartfinance/internal/log"
	"smartfinance/internal/snapshots"
)

// DefaultCardBrand is stored when a card is added without a brand.
const DefaultCardBrand = "Outros"

type CardInput struct {
	Name       string          `json:"name" validate:"required,max=100"`
	Brand      string          `json:"brand" validate:"max=50"`
	LimitTotal decimal.Decimal `json:"limitTotal"`
	ClosingDay int             `json:"closingDay" validate:"min=1,max=31"`
	DueDay     int             `json:"dueDay" validate:"min=1,max=31"`
}

// Cards returns every card with its current-month invoice.
func (l *Ledger) Cards() ([]core.CardSummary, error) {
	if err := l.caps.Require(core.FeatureCreditCards); err != nil {
		return nil, err
	}
	l.mu.Lock()
	cards := append([]core.Card(nil), l.cards...)
	l.mu.Unlock()

	now := l.now()
	entries := core.StoredEntries(l.Transactions())
	out := make([]core.CardSummary, 0, len(cards))
	for _, c := range cards {
		out = append(out, core.SummarizeCard(entries, c, now))
	}
	return out, nil
}

func (l *Ledger) AddCard(ctx context.Context, in CardInput) (core.Card, error) {
	if err := l.caps.Require(core.FeatureCreditCards); err != nil {
		return core.Card{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	if in.Brand == "" {
		in.Brand = DefaultCardBrand
	}
	if err := core.ValidateStruct(in); err != nil {
		return core.Card{}, err
	}

	card := core.Card{
		ID:         l.newID(),
		Name:       in.Name,
		Brand:      in.Brand,
		LimitTotal: in.LimitTotal,
		ClosingDay: in.ClosingDay,
		DueDay:     in.DueDay,
	}
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}

	l.mu.Lock()
	for _, c := range l.cards {
		if strings.EqualFold(c.Name, card.Name) {
			l.mu.Unlock()
			return core.Card{}, core.NewValidationError("name", "a card with this name already exists")
		}
	}
	next := append(append([]core.Card(nil), l.cards...), card)
	l.cards = next
	saved := l.repo.SaveCards(ctx, next)
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyCards, applog.OpCreate, len(next), saved)
	l.logger.InfoContext(ctx, "Card added", applog.FieldKey, card.ID, applog.FieldCount, len(next))
	return card, nil
}

func (l *Ledger) DeleteCard(ctx context.Context, id string) error {
	if err := l.caps.Require(core.FeatureCreditCards); err != nil {
		return err
	}
	l.mu.Lock()
	next, ok := without(l.cards, func(c core.Card) bool { return c.ID == id })
	if !ok {
		l.mu.Unlock()
		return core.NewNotFoundError("card", id)
	}
	l.cards = next
	saved := l.repo.SaveCards(ctx, next)
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyCards, applog.OpDelete, len(next), saved)
	return nil
}

type EnvelopeInput struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Category     string          `json:"category" validate:"max=100"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
}

// Envelopes returns every envelope with its spending this month.
func (l *Ledger) Envelopes() ([]core.EnvelopeStatus, error) {
	if err := l.caps.Require(core.FeatureEnvelopes); err != nil {
		return nil, err
	}
	l.mu.Lock()
	envs := append([]core.Envelope(nil), l.envelopes...)
	l.mu.Unlock()

	now := l.now()
	entries := core.StoredEntries(l.Transactions())
	out := make([]core.EnvelopeStatus, 0, len(envs))
	for _, e := range envs {
		out = append(out, core.EvaluateEnvelope(entries, e, now))
	}
	return out, nil
}

func (l *Ledger) AddEnvelope(ctx context.Context, in EnvelopeInput) (core.Envelope, error) {
	if err := l.caps.Require(core.FeatureEnvelopes); err != nil {
		return core.Envelope{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = in.Name
	}
	if err := core.ValidateStruct(in); err != nil {
		return core.Envelope{}, err
	}

	env := core.Envelope{
		ID:           l.newID(),
		Name:         in.Name,
		Category:     in.Category,
		MonthlyLimit: in.MonthlyLimit,
	}
	if err := env.Validate(); err != nil {
		return core.Envelope{}, err
	}

	l.mu.Lock()
	next := append(append([]core.Envelope(nil), l.envelopes...), env)
	l.envelopes = next
	saved := l.repo.SaveEnvelopes(ctx, next)
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyEnvelopes, applog.OpCreate, len(next), saved)
	l.logger.InfoContext(ctx, "Envelope added", applog.FieldKey, env.ID, applog.FieldCount, len(next))
	return env, nil
}

func (l *Ledger) DeleteEnvelope(ctx context.Context, id string) error {
	if err := l.caps.Require(core.FeatureEnvelopes); err != nil {
		return err
	}
	l.mu.Lock()
	next, ok := without(l.envelopes, func(e core.Envelope) bool { return e.ID == id })
	if !ok {
		l.mu.Unlock()
		return core.NewNotFoundError("envelope", id)
	}
	l.envelopes = next
	saved := l.repo.SaveEnvelopes(ctx, next)
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyEnvelopes, applog.OpDelete, len(next), saved)
	return nil
}

// without returns a copy of items minus the first match, and whether one
// was found.
func without[T any](items []T, match func(T) bool) ([]T, bool) {
	for i, it := range items {
		if match(it) {
			out := make([]T, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
	}
	return items, false
}
