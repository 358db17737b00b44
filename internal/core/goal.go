package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction tells whether a larger current value is good or bad for a goal.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

type GoalStatus string

const (
	GoalNone       GoalStatus = "no_goal"
	GoalOK         GoalStatus = "ok"
	GoalWarning    GoalStatus = "warning"
	GoalCritical   GoalStatus = "critical"
	GoalExceeded   GoalStatus = "exceeded"
	GoalAchieved   GoalStatus = "achieved"
	GoalInProgress GoalStatus = "in_progress"
)

var (
	hundred = decimal.NewFromInt(100)

	// Upper bounds of each expense status, as a fraction of the goal.
	okRatio       = decimal.RequireFromString("0.6")
	warningRatio  = decimal.RequireFromString("0.9")
	criticalRatio = decimal.NewFromInt(1)
)

type GoalProgress struct {
	Percent   decimal.Decimal `json:"percent"`
	Remaining decimal.Decimal `json:"remaining"`
	Status    GoalStatus      `json:"status"`
}

// GoalReport is the progress of both goals against a summary.
type GoalReport struct {
	Income  GoalProgress `json:"income"`
	Expense GoalProgress `json:"expense"`
}

// EvaluateGoal maps a current value and a goal to a clamped progress
// percentage and a status. A zero or negative goal counts as unset.
func EvaluateGoal(current, goal decimal.Decimal, dir Direction) GoalProgress {
	if !goal.IsPositive() {
		return GoalProgress{Percent: decimal.Zero, Remaining: decimal.Zero, Status: GoalNone}
	}

	ratio := current.Div(goal)
	percent := decimal.Min(decimal.Max(ratio.Mul(hundred), decimal.Zero), hundred)
	remaining := decimal.Max(goal.Sub(current), decimal.Zero)

	var status GoalStatus
	switch dir {
	case HigherIsBetter:
		status = GoalInProgress
		if current.GreaterThanOrEqual(goal) {
			status = GoalAchieved
		}
	default:
		switch {
		case ratio.LessThanOrEqual(okRatio):
			status = GoalOK
		case ratio.LessThanOrEqual(warningRatio):
			status = GoalWarning
		case ratio.LessThanOrEqual(criticalRatio):
			status = GoalCritical
		default:
			status = GoalExceeded
		}
	}

	return GoalProgress{Percent: percent, Remaining: remaining, Status: status}
}

// EvaluateGoals evaluates the income goal against the income total and the
// expense goal against total expenses.
func EvaluateGoals(s Summary, g Goals) GoalReport {
	return GoalReport{
		Income:  EvaluateGoal(s.Income, goalValue(g.IncomeGoal), HigherIsBetter),
		Expense: EvaluateGoal(s.TotalExpense, goalValue(g.ExpenseGoal), LowerIsBetter),
	}
}

func goalValue(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

// Validate rejects negative targets.
func (g Goals) Validate() error {
	if g.IncomeGoal.Valid && g.IncomeGoal.Decimal.IsNegative() {
		return NewValidationError("incomeGoal", "must not be negative")
	}
	if g.ExpenseGoal.Valid && g.ExpenseGoal.Decimal.IsNegative() {
		return NewValidationError("expenseGoal", "must not be negative")
	}
	return nil
}

// UnmarshalJSON accepts numbers, numeric strings, null and the empty string,
// which older snapshots used for an unset goal.
func (g *Goals) UnmarshalJSON(b []byte) error {
	var raw struct {
		IncomeGoal  json.RawMessage `json:"incomeGoal"`
		ExpenseGoal json.RawMessage `json:"expenseGoal"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var err error
	if g.IncomeGoal, err = parseGoal(raw.IncomeGoal); err != nil {
		return fmt.Errorf("incomeGoal: %w", err)
	}
	if g.ExpenseGoal, err = parseGoal(raw.ExpenseGoal); err != nil {
		return fmt.Errorf("expenseGoal: %w", err)
	}
	return nil
}

func parseGoal(raw json.RawMessage) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == `""` {
		return decimal.NullDecimal{}, nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}
