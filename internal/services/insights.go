package services

import (
	"time"

	"smartfinance/internal/core"
)

// DefaultUpcomingDays is the window of upcoming bills shown by Insights.
const DefaultUpcomingDays = 7

const topCategoryLimit = 5

type Insights struct {
	UpcomingBills []core.Entry          `json:"upcomingBills"`
	Comparison    core.MonthComparison  `json:"comparison"`
	TopCategories []core.CategoryAmount `json:"topCategories"`
	Envelopes     []core.EnvelopeStatus `json:"envelopes"`
	Cards         []core.CardSummary    `json:"cards"`
}

// Insights gathers the premium analysis of the ledger. Bills due within
// days are listed; a non-positive days uses DefaultUpcomingDays.
func (l *Ledger) Insights(days int) (Insights, error) {
	if err := l.caps.Require(core.FeatureInsights); err != nil {
		return Insights{}, err
	}
	if days <= 0 {
		days = DefaultUpcomingDays
	}

	now := l.now()
	entries := core.Project(l.Transactions(), now)
	out := Insights{
		UpcomingBills: upcomingExpenses(entries, now, days),
		Comparison:    core.CompareMonths(entries, now),
		TopCategories: []core.CategoryAmount{},
		Envelopes:     []core.EnvelopeStatus{},
		Cards:         []core.CardSummary{},
	}
	if l.caps.Has(core.FeatureCategoryRanking) {
		out.TopCategories = core.TopCategories(entries, topCategoryLimit)
	}
	if envs, err := l.Envelopes(); err == nil {
		out.Envelopes = envs
	}
	if cards, err := l.Cards(); err == nil {
		out.Cards = cards
	}
	return out, nil
}

// UpcomingBills lists unpaid expenses, projections included, due between
// now and now+days. The reminder worker reads it without a plan gate.
func (l *Ledger) UpcomingBills(days int) []core.Entry {
	now := l.now()
	return upcomingExpenses(core.Project(l.Transactions(), now), now, days)
}

func upcomingExpenses(entries []core.Entry, now time.Time, days int) []core.Entry {
	var out []core.Entry
	for _, e := range core.UpcomingBills(entries, now, days) {
		if e.Record().IsExpense() {
			out = append(out, e)
		}
	}
	return orEmpty(out)
}

func orEmpty(entries []core.Entry) []core.Entry {
	if entries == nil {
		return []core.Entry{}
	}
	return entries
}
