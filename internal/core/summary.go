package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period selects which entries feed the summary cards.
type Period string

const (
	PeriodTotal Period = "total"
	PeriodMonth Period = "month"
)

func (p Period) Valid() bool {
	return p == PeriodTotal || p == PeriodMonth
}

// Summary holds the totals shown on the summary cards.
type Summary struct {
	Income       decimal.Decimal `json:"income"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	PaidExpense  decimal.Decimal `json:"paidExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

// FilterByMonth keeps the entries dated in the given calendar month.
func FilterByMonth(entries []Entry, year int, month time.Month) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		at := e.Record().CreatedAt
		if at.IsZero() {
			continue
		}
		if at.Year() == year && at.Month() == month {
			out = append(out, e)
		}
	}
	return out
}

// FilterByPeriod applies the summary period relative to now.
func FilterByPeriod(entries []Entry, period Period, now time.Time) []Entry {
	if period == PeriodMonth {
		return FilterByMonth(entries, now.Year(), now.Month())
	}
	return entries
}

// FilterByPaymentMethod keeps the entries paid with method. The AllMethods
// sentinel returns the input unchanged.
func FilterByPaymentMethod(entries []Entry, method PaymentMethod) []Entry {
	if method == AllMethods {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Record().PaymentMethod == method {
			out = append(out, e)
		}
	}
	return out
}

// Summarize computes the summary totals. Projected entries never
// contribute; they only preview upcoming items.
func Summarize(entries []Entry) Summary {
	income := decimal.Zero
	expense := decimal.Zero
	paid := decimal.Zero

	for _, e := range entries {
		s, ok := e.(Stored)
		if !ok {
			continue
		}
		switch s.Type {
		case Income:
			income = income.Add(s.Amount)
		case Expense:
			expense = expense.Add(s.Amount)
			if s.Paid {
				paid = paid.Add(s.Amount)
			}
		}
	}

	return Summary{
		Income:       income,
		TotalExpense: expense.Abs(),
		PaidExpense:  paid.Abs(),
		Balance:      income.Add(paid),
	}
}
