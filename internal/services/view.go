package services

import (
	"context"

	"smartfinance/internal/core"
	applog "smartfinance/internal/log"
	"smartfinance/internal/snapshots"
)

// ViewQuery selects the period of the summary and the payment method of
// the listed entries. Zero values mean "total" and "all".
type ViewQuery struct {
	Period core.Period
	Method core.PaymentMethod
}

func (q ViewQuery) normalize() (ViewQuery, error) {
	if q.Period == "" {
		q.Period = core.PeriodTotal
	}
	if q.Method == "" {
		q.Method = core.AllMethods
	}
	if !q.Period.Valid() {
		return q, core.NewValidationError("period", "must be total or month")
	}
	if q.Method != core.AllMethods && !q.Method.Valid() {
		return q, core.NewValidationError("method", "must be all, pix, debit, credit or cash")
	}
	return q, nil
}

// View is everything the main screen renders.
type View struct {
	Period   core.Period        `json:"period"`
	Method   core.PaymentMethod `json:"method"`
	Entries  []core.Entry       `json:"entries"`
	Summary  core.Summary       `json:"summary"`
	Goals    core.Goals         `json:"goals"`
	Progress core.GoalReport    `json:"progress"`
	Chart    core.ChartTotals   `json:"chart"`
	Plan     core.Plan          `json:"plan"`
	Features []core.Feature     `json:"features"`
}

// View projects the ledger, filters it by period and summarizes it. The
// payment method filter narrows the listed entries only; the summary and
// chart cover the whole period.
func (l *Ledger) View(q ViewQuery) (View, error) {
	q, err := q.normalize()
	if err != nil {
		return View{}, err
	}

	now := l.now()
	entries := core.FilterByPeriod(core.Project(l.Transactions(), now), q.Period, now)
	summary := core.Summarize(entries)
	goals := l.Goals()

	listed := entries
	if l.caps.Has(core.FeatureBasicFilters) {
		listed = core.FilterByPaymentMethod(entries, q.Method)
	}
	if listed == nil {
		listed = []core.Entry{}
	}

	return View{
		Period:   q.Period,
		Method:   q.Method,
		Entries:  listed,
		Summary:  summary,
		Goals:    goals,
		Progress: core.EvaluateGoals(summary, goals),
		Chart:    core.Chart(entries),
		Plan:     l.caps.Plan(),
		Features: l.caps.List(),
	}, nil
}

// MonthlySeries totals income and expense per month across the projected
// ledger.
func (l *Ledger) MonthlySeries() []core.MonthOverview {
	series := core.GroupByMonth(l.Entries())
	if series == nil {
		return []core.MonthOverview{}
	}
	return series
}

func (l *Ledger) Goals() core.Goals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.goals
}

// SetGoals replaces both goals. An unset goal is an invalid NullDecimal.
func (l *Ledger) SetGoals(ctx context.Context, g core.Goals) (core.Goals, error) {
	if err := g.Validate(); err != nil {
		return core.Goals{}, err
	}
	l.mu.Lock()
	l.goals = g
	saved := l.repo.SaveGoals(ctx, g)
	l.mu.Unlock()

	l.notify(ctx, snapshots.KeyGoals, applog.OpUpdate, 1, saved)
	l.logger.InfoContext(ctx, "Goals updated", applog.FieldSuccess, saved)
	return g, nil
}
