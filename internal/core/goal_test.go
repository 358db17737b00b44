package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateGoal_Expense(t *testing.T) {
	tests := []struct {
		current string
		goal    string
		status  GoalStatus
		percent string
	}{
		{"0", "1000", GoalOK, "0"},
		{"600", "1000", GoalOK, "60"},
		{"601", "1000", GoalWarning, "60.1"},
		{"900", "1000", GoalWarning, "90"},
		{"950", "1000", GoalCritical, "95"},
		{"1000", "1000", GoalCritical, "100"},
		{"1100", "1000", GoalExceeded, "100"},
	}
	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			got := EvaluateGoal(dec(tt.current), dec(tt.goal), LowerIsBetter)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.percent, got.Percent.String())
		})
	}
}

func TestEvaluateGoal_Income(t *testing.T) {
	got := EvaluateGoal(dec("2500"), dec("5000"), HigherIsBetter)
	assert.Equal(t, GoalInProgress, got.Status)
	assert.Equal(t, "50", got.Percent.String())
	assert.Equal(t, "2500", got.Remaining.String())

	got = EvaluateGoal(dec("6000"), dec("5000"), HigherIsBetter)
	assert.Equal(t, GoalAchieved, got.Status)
	assert.Equal(t, "100", got.Percent.String())
	assert.True(t, got.Remaining.IsZero())
}

func TestEvaluateGoal_Unset(t *testing.T) {
	for _, dir := range []Direction{HigherIsBetter, LowerIsBetter} {
		got := EvaluateGoal(dec("123"), decimal.Zero, dir)
		assert.Equal(t, GoalNone, got.Status)
		assert.True(t, got.Percent.IsZero())
	}
}

func TestEvaluateGoal_MonotonicAndClamped(t *testing.T) {
	goal := dec("1000")
	for _, dir := range []Direction{HigherIsBetter, LowerIsBetter} {
		prev := decimal.NewFromInt(-1)
		for current := int64(-200); current <= 2500; current += 50 {
			p := EvaluateGoal(decimal.NewFromInt(current), goal, dir).Percent
			assert.True(t, p.GreaterThanOrEqual(decimal.Zero))
			assert.True(t, p.LessThanOrEqual(decimal.NewFromInt(100)))
			assert.True(t, p.GreaterThanOrEqual(prev), "progress decreased at %d", current)
			prev = p
		}
	}
}

func TestEvaluateGoals(t *testing.T) {
	s := Summary{Income: dec("5000"), TotalExpense: dec("950")}
	report := EvaluateGoals(s, Goals{
		IncomeGoal:  decimal.NullDecimal{Decimal: dec("4000"), Valid: true},
		ExpenseGoal: decimal.NullDecimal{Decimal: dec("1000"), Valid: true},
	})
	assert.Equal(t, GoalAchieved, report.Income.Status)
	assert.Equal(t, GoalCritical, report.Expense.Status)

	report = EvaluateGoals(s, Goals{})
	assert.Equal(t, GoalNone, report.Income.Status)
	assert.Equal(t, GoalNone, report.Expense.Status)
}

func TestGoalsValidate(t *testing.T) {
	assert.NoError(t, Goals{}.Validate())
	bad := Goals{ExpenseGoal: decimal.NullDecimal{Decimal: dec("-1"), Valid: true}}
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestGoalsUnmarshal(t *testing.T) {
	var g Goals
	assert.NoError(t, json.Unmarshal([]byte(`{"incomeGoal":"","expenseGoal":1500.5}`), &g))
	assert.False(t, g.IncomeGoal.Valid)
	assert.True(t, g.ExpenseGoal.Valid)
	assert.Equal(t, "1500.5", g.ExpenseGoal.Decimal.String())

	assert.NoError(t, json.Unmarshal([]byte(`{"incomeGoal":"3000"}`), &g))
	assert.True(t, g.IncomeGoal.Valid)
	assert.False(t, g.ExpenseGoal.Valid)

	assert.Error(t, json.Unmarshal([]byte(`{"incomeGoal":"abc"}`), &g))
}
