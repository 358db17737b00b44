// Package snapshots maps the typed application state onto kv keys. Load
// failures fall back to documented defaults and save failures are logged
// and reported as false; the in-memory state of the caller stays
// authoritative either way.
package snapshots

import (
	"context"
	"encoding/json"
	"errors"

	"smartfinance/internal/core"
	"smartfinance/internal/kv"
	applog "smartfinance/internal/log"
)

const (
	KeyTransactions = "transactions"
	KeyGoals        = "goals"
	KeyEnvelopes    = "envelopes"
	KeyCards        = "cards"
	KeyUserPrefs    = "user_prefs"
	KeyTheme        = "theme"
)

// AllKeys lists every key the application writes.
var AllKeys = []string{KeyTransactions, KeyGoals, KeyEnvelopes, KeyCards, KeyUserPrefs, KeyTheme}

type Repository struct {
	store  kv.Store
	logger *applog.Logger
}

func New(store kv.Store, logger *applog.Logger) *Repository {
	return &Repository{store: store, logger: logger.WithComponent(applog.ComponentKV)}
}

// load decodes key into a value initialized from def. Missing keys are not
// logged; any other failure is.
func load[T any](ctx context.Context, r *Repository, key string, def func() T) T {
	raw, err := r.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			r.logError(ctx, "Error loading snapshot", key, applog.OpRead, err)
		}
		return def()
	}
	v := def()
	if err := json.Unmarshal(raw, &v); err != nil {
		r.logError(ctx, "Error decoding snapshot", key, applog.OpRead, err)
		return def()
	}
	return v
}

func save[T any](ctx context.Context, r *Repository, key string, v T) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		r.logError(ctx, "Error encoding snapshot", key, applog.OpUpdate, err)
		return false
	}
	if err := r.store.Save(ctx, key, raw); err != nil {
		r.logError(ctx, "Error saving snapshot", key, applog.OpUpdate, err)
		return false
	}
	return true
}

func (r *Repository) logError(ctx context.Context, msg, key, op string, err error) {
	perr := &core.PersistenceError{Key: key, Op: op, Err: err}
	r.logger.ErrorContext(ctx, msg, applog.NewFields().WithKey(key).WithOperation(op).WithError(perr).ToSlice()...)
}

func (r *Repository) LoadTransactions(ctx context.Context) []core.Transaction {
	return load(ctx, r, KeyTransactions, func() []core.Transaction { return []core.Transaction{} })
}

// SaveTransactions overwrites the stored list. It only accepts persisted
// records, so projected entries cannot reach storage.
func (r *Repository) SaveTransactions(ctx context.Context, txns []core.Transaction) bool {
	if txns == nil {
		txns = []core.Transaction{}
	}
	return save(ctx, r, KeyTransactions, txns)
}

func (r *Repository) LoadGoals(ctx context.Context) core.Goals {
	return load(ctx, r, KeyGoals, func() core.Goals { return core.Goals{} })
}

func (r *Repository) SaveGoals(ctx context.Context, g core.Goals) bool {
	return save(ctx, r, KeyGoals, g)
}

func (r *Repository) LoadEnvelopes(ctx context.Context) []core.Envelope {
	return load(ctx, r, KeyEnvelopes, func() []core.Envelope { return []core.Envelope{} })
}

func (r *Repository) SaveEnvelopes(ctx context.Context, envs []core.Envelope) bool {
	if envs == nil {
		envs = []core.Envelope{}
	}
	return save(ctx, r, KeyEnvelopes, envs)
}

func (r *Repository) LoadCards(ctx context.Context) []core.Card {
	return load(ctx, r, KeyCards, func() []core.Card { return []core.Card{} })
}

func (r *Repository) SaveCards(ctx context.Context, cards []core.Card) bool {
	if cards == nil {
		cards = []core.Card{}
	}
	return save(ctx, r, KeyCards, cards)
}

func (r *Repository) LoadUserPrefs(ctx context.Context) core.UserPrefs {
	return load(ctx, r, KeyUserPrefs, core.DefaultUserPrefs)
}

func (r *Repository) SaveUserPrefs(ctx context.Context, p core.UserPrefs) bool {
	return save(ctx, r, KeyUserPrefs, p)
}

// LoadTheme returns the stored theme, or light when unset or unknown.
func (r *Repository) LoadTheme(ctx context.Context) core.Theme {
	t := load(ctx, r, KeyTheme, func() core.Theme { return core.ThemeLight })
	if !t.Valid() {
		return core.ThemeLight
	}
	return t
}

func (r *Repository) SaveTheme(ctx context.Context, t core.Theme) bool {
	return save(ctx, r, KeyTheme, t)
}
