package services

import (
	"context"

	"smartfinance/internal/core"
	applog "smartfinance/internal/log"
	"smartfinance/internal/snapshots"
)

func (l *Ledger) UserPrefs() core.UserPrefs {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.prefs
	p.SummaryOrder = append([]string(nil), p.SummaryOrder...)
	return p
}

// SetUserPrefs replaces the preferences. The summary order must name each
// summary card at most once.
func (l *Ledger) SetUserPrefs(ctx context.Context, p core.UserPrefs) (core.UserPrefs, error) {
	if err := p.Validate(); err != nil {
		return core.UserPrefs{}, err
	}
	if p.SummaryOrder == nil {
		p.SummaryOrder = core.DefaultUserPrefs().SummaryOrder
	}

	l.mu.Lock()
	l.prefs = p
	saved := l.repo.SaveUserPrefs(ctx, p)
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyUserPrefs, applog.OpUpdate, len(p.SummaryOrder), saved)
	return p, nil
}

func (l *Ledger) Theme() core.Theme {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.theme
}

// SetTheme switches the color scheme. Dark mode is a plan feature.
func (l *Ledger) SetTheme(ctx context.Context, t core.Theme) (core.Theme, error) {
	if !t.Valid() {
		return "", core.NewValidationError("theme", "must be light or dark")
	}
	if t == core.ThemeDark {
		if err := l.caps.Require(core.FeatureDarkMode); err != nil {
			return "", err
		}
	}

	l.mu.Lock()
	l.theme = t
	saved := l.repo.SaveTheme(ctx, t)
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyTheme, applog.OpUpdate, 1, saved)
	return t, nil
}
