package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salary() Transaction {
	return Transaction{
		ID:          "sal",
		Description: "Salário",
		Amount:      dec("5000"),
		Type:        Income,
		CreatedAt:   at(2024, time.January, 5),
		Recurrence:  Monthly,
	}
}

func projectedMonths(entries []Entry) []MonthKey {
	var out []MonthKey
	for _, p := range Projections(entries) {
		out = append(out, MonthOf(p.CreatedAt()))
	}
	return out
}

func TestProject_MonthlySalary(t *testing.T) {
	now := at(2024, time.March, 20)
	entries := Project([]Transaction{salary()}, now)

	// Feb 2024 through Dec 2025.
	projections := Projections(entries)
	require.Len(t, projections, 23)
	assert.Len(t, entries, 24)
	assert.False(t, entries[0].IsProjection())

	feb, mar := projections[0], projections[1]
	assert.Equal(t, at(2024, time.February, 5), feb.CreatedAt())
	assert.Equal(t, at(2024, time.March, 5), mar.CreatedAt())
	assert.Equal(t, "proj_sal_2024-02", feb.ID())
	assert.Equal(t, "sal", feb.SourceID())
	assert.True(t, feb.IsProjection())

	rec := feb.Record()
	assert.False(t, rec.Paid)
	assert.Equal(t, "Salário", rec.Description)
	assert.Equal(t, "5000", rec.Amount.String())
	assert.Equal(t, Income, rec.Type)

	last := projections[len(projections)-1]
	assert.Equal(t, MonthKey{Year: 2025, Month: time.December}, MonthOf(last.CreatedAt()))
}

func TestProject_UpToCurrentMonth(t *testing.T) {
	now := at(2024, time.March, 20)
	entries := FilterByMonth(Project([]Transaction{salary()}, now), 2024, time.February)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsProjection())
}

func TestProject_Idempotent(t *testing.T) {
	txns := []Transaction{salary(), {
		ID: "rent", Description: "Aluguel", Amount: dec("-1500"), Type: Expense,
		CreatedAt: at(2023, time.November, 30), Recurrence: Monthly,
	}}
	now := at(2024, time.June, 1)

	first := Project(txns, now)
	second := Project(txns, now)
	assert.Equal(t, first, second)
}

func TestProject_NoDuplicateSignatures(t *testing.T) {
	txns := []Transaction{salary(), {
		ID: "rent", Description: "Aluguel", Amount: dec("-1500"), Type: Expense,
		CreatedAt: at(2023, time.January, 31), Recurrence: Monthly,
	}}
	entries := Project(txns, at(2024, time.June, 1))

	seen := Signatures(txns)
	for _, p := range Projections(entries) {
		sig := Signature{OriginID: p.SourceID(), Year: p.CreatedAt().Year(), Month: p.CreatedAt().Month()}
		_, dup := seen[sig]
		require.False(t, dup, "duplicate signature %+v", sig)
		seen[sig] = struct{}{}
	}
}

func TestProject_ClampsShortMonths(t *testing.T) {
	src := Transaction{
		ID: "r", Description: "Aluguel", Amount: dec("-1"), Type: Expense,
		CreatedAt: at(2024, time.January, 31), Recurrence: Monthly,
	}
	projections := Projections(Project([]Transaction{src}, at(2024, time.January, 31)))
	require.NotEmpty(t, projections)
	assert.Equal(t, at(2024, time.February, 29), projections[0].CreatedAt())
	assert.Equal(t, at(2024, time.March, 31), projections[1].CreatedAt())
}

func TestProject_MaterializedMonthDisappears(t *testing.T) {
	now := at(2024, time.March, 20)
	txns := []Transaction{salary()}

	feb, ok := FindProjection(Project(txns, now), "proj_sal_2024-02")
	require.True(t, ok)

	materialized := feb.Materialize("m1", Pix, "")
	assert.Equal(t, "sal", materialized.SourceOf)
	assert.Equal(t, at(2024, time.February, 5), materialized.CreatedAt)
	assert.True(t, materialized.Paid)
	assert.Equal(t, Single, materialized.Recurrence)
	require.NoError(t, materialized.Validate())

	txns = append(txns, materialized)
	entries := Project(txns, now)
	_, stillThere := FindProjection(entries, "proj_sal_2024-02")
	assert.False(t, stillThere)
	assert.NotContains(t, projectedMonths(entries), MonthKey{Year: 2024, Month: time.February})
	assert.Contains(t, projectedMonths(entries), MonthKey{Year: 2024, Month: time.March})
	assert.Len(t, Projections(entries), 22)
}

func TestProject_IgnoresNonMonthlyAndInvalidDates(t *testing.T) {
	txns := []Transaction{
		{ID: "a", Description: "a", Amount: dec("-1"), Type: Expense, CreatedAt: at(2024, time.January, 1), Recurrence: Single},
		{ID: "b", Description: "b", Amount: dec("-1"), Type: Expense, Recurrence: Monthly},
		{ID: "c", Description: "c", Amount: dec("-1"), Type: Expense, CreatedAt: at(2024, time.January, 1), Recurrence: Installment, GroupID: "g"},
	}
	entries := Project(txns, at(2024, time.February, 1))
	assert.Len(t, entries, 3)
	assert.Empty(t, Projections(entries))
}

func TestProject_BeyondHorizon(t *testing.T) {
	src := salary()
	src.CreatedAt = at(2030, time.January, 5)
	assert.Empty(t, Projections(Project([]Transaction{src}, at(2024, time.March, 1))))
}

func TestProject_ClearsPaymentOnProjection(t *testing.T) {
	src := Transaction{
		ID: "net", Description: "Internet", Amount: dec("-100"), Type: Expense,
		CreatedAt: at(2024, time.January, 10), Recurrence: Monthly,
	}.WithPayment(Credit, "Visa")

	projections := Projections(Project([]Transaction{src}, at(2024, time.January, 10)))
	require.NotEmpty(t, projections)
	rec := projections[0].Record()
	assert.False(t, rec.Paid)
	assert.Equal(t, PaymentMethod(""), rec.PaymentMethod)
	assert.Empty(t, rec.CreditCardName)
}

func TestEntryJSON(t *testing.T) {
	entries := Project([]Transaction{salary()}, at(2024, time.January, 20))
	out, err := json.Marshal(entries[:2])
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, false, decoded[0]["isProjection"])
	assert.Equal(t, true, decoded[1]["isProjection"])
	assert.Equal(t, "sal", decoded[1]["sourceOf"])
}
