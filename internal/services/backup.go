package services

import (
	"context"

	"smartfinance/internal/core"
	applog "smartfinance/internal/log"
	"smartfinance/internal/snapshots"
)

// Export returns a backup of the in-memory state.
func (l *Ledger) Export(ctx context.Context) (snapshots.Backup, error) {
	if err := l.caps.Require(core.FeatureExportData); err != nil {
		return snapshots.Backup{}, err
	}
	l.mu.Lock()
	goals := l.goals
	prefs := l.prefs
	b := snapshots.Backup{
		Transactions:    append([]core.Transaction{}, l.txns...),
		Goals:           &goals,
		Envelopes:       append([]core.Envelope{}, l.envelopes...),
		Cards:           append([]core.Card{}, l.cards...),
		UserPreferences: &prefs,
		ExportedAt:      l.now().UTC(),
		Version:         snapshots.BackupVersion,
	}
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Backup exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldCount, len(b.Transactions))
	return b, nil
}

// Import validates b and replaces every section it carries. Nothing
// changes when validation fails.
func (l *Ledger) Import(ctx context.Context, b snapshots.Backup) error {
	if err := l.caps.Require(core.FeatureExportData); err != nil {
		return err
	}

	l.mu.Lock()
	saved, err := l.repo.Import(ctx, b)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if b.Transactions != nil {
		l.txns = append([]core.Transaction{}, b.Transactions...)
	}
	if b.Goals != nil {
		l.goals = *b.Goals
	}
	if b.Envelopes != nil {
		l.envelopes = append([]core.Envelope{}, b.Envelopes...)
	}
	if b.Cards != nil {
		l.cards = append([]core.Card{}, b.Cards...)
	}
	if b.UserPreferences != nil {
		l.prefs = *b.UserPreferences
	}
	count := len(l.txns)
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyTransactions, applog.OpImport, count, saved)
	return nil
}

// Reset deletes every persisted key and restores the defaults.
func (l *Ledger) Reset(ctx context.Context) {
	l.mu.Lock()
	saved := l.repo.ClearAll(ctx)
	l.txns = []core.Transaction{}
	l.goals = core.Goals{}
	l.envelopes = []core.Envelope{}
	l.cards = []core.Card{}
	l.prefs = core.DefaultUserPrefs()
	l.theme = core.ThemeLight
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyTransactions, applog.OpClear, 0, saved)
	l.logger.WarnContext(ctx, "All data cleared", applog.FieldSuccess, saved)
}
