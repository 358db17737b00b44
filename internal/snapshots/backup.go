package snapshots

import (
	"context"
	"fmt"
	"time"

	"smartfinance/internal/core"
	applog "smartfinance/internal/log"
)

// BackupVersion is written into every export.
const BackupVersion = "2.0.0"

// Backup is the export document. Sections left nil on import are skipped.
type Backup struct {
	Transactions    []core.Transaction `json:"transactions"`
	Goals           *core.Goals        `json:"goals,omitempty"`
	Envelopes       []core.Envelope    `json:"envelopes"`
	Cards           []core.Card        `json:"cards"`
	UserPreferences *core.UserPrefs    `json:"userPreferences,omitempty"`
	ExportedAt      time.Time          `json:"exportedAt"`
	Version         string             `json:"version"`
}

// Validate checks every section of b. Import runs it first so a bad
// document changes nothing.
func (b Backup) Validate() error {
	seen := make(map[string]struct{}, len(b.Transactions))
	for i, t := range b.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("transaction %d: %w", i, core.NewValidationError("id", "duplicate "+t.ID))
		}
		seen[t.ID] = struct{}{}
	}
	if b.Goals != nil {
		if err := b.Goals.Validate(); err != nil {
			return err
		}
	}
	for i, c := range b.Cards {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("card %d: %w", i, err)
		}
	}
	for i, e := range b.Envelopes {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("envelope %d: %w", i, err)
		}
	}
	if b.UserPreferences != nil {
		if err := b.UserPreferences.Validate(); err != nil {
			return fmt.Errorf("user preferences: %w", err)
		}
	}
	return nil
}

// Import writes the present sections of b. It returns false when any save
// failed.
func (r *Repository) Import(ctx context.Context, b Backup) (bool, error) {
	if err := b.Validate(); err != nil {
		return false, err
	}

	ok := true
	if b.Transactions != nil {
		ok = r.SaveTransactions(ctx, b.Transactions) && ok
	}
	if b.Goals != nil {
		ok = r.SaveGoals(ctx, *b.Goals) && ok
	}
	if b.Envelopes != nil {
		ok = r.SaveEnvelopes(ctx, b.Envelopes) && ok
	}
	if b.Cards != nil {
		ok = r.SaveCards(ctx, b.Cards) && ok
	}
	if b.UserPreferences != nil {
		ok = r.SaveUserPrefs(ctx, *b.UserPreferences) && ok
	}
	r.logger.InfoContext(ctx, "Backup imported",
		applog.FieldOperation, applog.OpImport,
		applog.FieldCount, len(b.Transactions),
		"version", b.Version,
		applog.FieldSuccess, ok)
	return ok, nil
}

// ClearAll deletes every key. It keeps going after a failure and returns
// false if any delete failed.
func (r *Repository) ClearAll(ctx context.Context) bool {
	ok := true
	for _, key := range AllKeys {
		if err := r.store.Delete(ctx, key); err != nil {
			r.logError(ctx, "Error clearing snapshot", key, applog.OpClear, err)
			ok = false
		}
	}
	return ok
}
