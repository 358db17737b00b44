package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Uncategorized labels expenses without a category.
const Uncategorized = "Sem categoria"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"category"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Month   string          `json:"month"` // YYYY-MM
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// ChartTotals feeds the income / paid / unpaid doughnut chart.
type ChartTotals struct {
	Income        decimal.Decimal `json:"income"`
	PaidExpense   decimal.Decimal `json:"paidExpense"`
	UnpaidExpense decimal.Decimal `json:"unpaidExpense"`
	HasData       bool            `json:"hasData"`
}

type MonthTotals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// MonthComparison compares the current calendar month with the previous one.
type MonthComparison struct {
	Current  MonthTotals `json:"current"`
	Previous MonthTotals `json:"previous"`
	Diff     MonthTotals `json:"diff"`
}

type EnvelopeStatus struct {
	Envelope
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   decimal.Decimal `json:"percent"`
	Status    GoalStatus      `json:"status"`
}

type CardSummary struct {
	Card
	CurrentInvoice decimal.Decimal `json:"currentInvoice"`
	LimitAvailable decimal.Decimal `json:"limitAvailable"`
}

var (
	envelopeWarning  = decimal.NewFromInt(80)
	envelopeCritical = decimal.NewFromInt(90)
)

func stored(entries []Entry) []Transaction {
	out := make([]Transaction, 0, len(entries))
	for _, e := range entries {
		if s, ok := e.(Stored); ok {
			out = append(out, s.Transaction)
		}
	}
	return out
}

func inMonth(t Transaction, k MonthKey) bool {
	return !t.CreatedAt.IsZero() && MonthOf(t.CreatedAt) == k
}

// Chart computes the doughnut totals; projections are excluded.
func Chart(entries []Entry) ChartTotals {
	var c ChartTotals
	for _, t := range stored(entries) {
		switch {
		case t.Type == Income:
			c.Income = c.Income.Add(t.Amount)
		case t.Paid:
			c.PaidExpense = c.PaidExpense.Add(t.Amount.Abs())
		default:
			c.UnpaidExpense = c.UnpaidExpense.Add(t.Amount.Abs())
		}
	}
	c.HasData = !c.Income.IsZero() || !c.PaidExpense.IsZero() || !c.UnpaidExpense.IsZero()
	return c
}

// GroupByMonth totals income and expense per calendar month, oldest first.
// Projections are included so the series previews upcoming months.
func GroupByMonth(entries []Entry) []MonthOverview {
	byMonth := make(map[MonthKey]*MonthOverview)
	var keys []MonthKey
	for _, e := range entries {
		t := e.Record()
		if t.CreatedAt.IsZero() {
			continue
		}
		k := MonthOf(t.CreatedAt)
		mo, ok := byMonth[k]
		if !ok {
			mo = &MonthOverview{Month: k.String()}
			byMonth[k] = mo
			keys = append(keys, k)
		}
		if t.Type == Income {
			mo.Income = mo.Income.Add(t.Amount.Abs())
		} else {
			mo.Expense = mo.Expense.Add(t.Amount.Abs())
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	out := make([]MonthOverview, len(keys))
	for i, k := range keys {
		out[i] = *byMonth[k]
	}
	return out
}

// ExpensesByCategory sums stored expenses per category, largest first.
func ExpensesByCategory(entries []Entry) []CategoryAmount {
	totals := make(map[string]decimal.Decimal)
	for _, t := range stored(entries) {
		if t.Type != Expense {
			continue
		}
		cat := t.Category
		if cat == "" {
			cat = Uncategorized
		}
		totals[cat] = totals[cat].Add(t.Amount.Abs())
	}

	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopCategories returns at most limit categories by spending.
func TopCategories(entries []Entry, limit int) []CategoryAmount {
	all := ExpensesByCategory(entries)
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// UpcomingBills returns unpaid entries, projections included, dated between
// now and now+days, soonest first.
func UpcomingBills(entries []Entry, now time.Time, days int) []Entry {
	until := now.AddDate(0, 0, days)
	var out []Entry
	for _, e := range entries {
		t := e.Record()
		if t.Paid || t.CreatedAt.IsZero() {
			continue
		}
		if t.CreatedAt.Before(now) || t.CreatedAt.After(until) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Record().CreatedAt.Before(out[j].Record().CreatedAt)
	})
	return out
}

// CompareMonths compares stored income and expense of the month of now with
// the previous month.
func CompareMonths(entries []Entry, now time.Time) MonthComparison {
	cur := MonthOf(now)
	prev := cur.Prev()

	var c MonthComparison
	for _, t := range stored(entries) {
		var bucket *MonthTotals
		switch {
		case inMonth(t, cur):
			bucket = &c.Current
		case inMonth(t, prev):
			bucket = &c.Previous
		default:
			continue
		}
		if t.Type == Income {
			bucket.Income = bucket.Income.Add(t.Amount.Abs())
		} else {
			bucket.Expense = bucket.Expense.Add(t.Amount.Abs())
		}
	}
	c.Diff = MonthTotals{
		Income:  c.Current.Income.Sub(c.Previous.Income),
		Expense: c.Current.Expense.Sub(c.Previous.Expense),
	}
	return c
}

// EvaluateEnvelope reports how much of an envelope's monthly limit was spent
// in the month of now by stored expenses of its category.
func EvaluateEnvelope(entries []Entry, env Envelope, now time.Time) EnvelopeStatus {
	k := MonthOf(now)
	category := env.Category
	if category == "" {
		category = env.Name
	}

	spent := decimal.Zero
	for _, t := range stored(entries) {
		if t.Type == Expense && t.Category == category && inMonth(t, k) {
			spent = spent.Add(t.Amount.Abs())
		}
	}

	st := EnvelopeStatus{
		Envelope:  env,
		Spent:     spent,
		Remaining: decimal.Max(env.MonthlyLimit.Sub(spent), decimal.Zero),
		Percent:   decimal.Zero,
		Status:    GoalOK,
	}
	if !env.MonthlyLimit.IsPositive() {
		return st
	}

	st.Percent = decimal.Min(spent.Div(env.MonthlyLimit).Mul(hundred), hundred)
	switch {
	case st.Percent.GreaterThanOrEqual(hundred):
		st.Status = GoalExceeded
	case st.Percent.GreaterThanOrEqual(envelopeCritical):
		st.Status = GoalCritical
	case st.Percent.GreaterThanOrEqual(envelopeWarning):
		st.Status = GoalWarning
	}
	return st
}

// SummarizeCard computes the current-month invoice of a credit card: the
// stored expenses of the month of now paid by credit with the card's name.
func SummarizeCard(entries []Entry, card Card, now time.Time) CardSummary {
	k := MonthOf(now)
	invoice := decimal.Zero
	for _, t := range stored(entries) {
		if t.Type == Expense && t.PaymentMethod == Credit && t.CreditCardName == card.Name && inMonth(t, k) {
			invoice = invoice.Add(t.Amount.Abs())
		}
	}
	return CardSummary{
		Card:           card,
		CurrentInvoice: invoice,
		LimitAvailable: card.LimitTotal.Sub(invoice),
	}
}
