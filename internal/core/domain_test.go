package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:          "1",
		Description: "Mercado",
		Amount:      dec("-50"),
		Type:        Expense,
		CreatedAt:   at(2024, time.January, 10),
		Recurrence:  Single,
	}
	require.NoError(t, good.Validate())

	paid := good.WithPayment(Credit, " Nubank ")
	require.NoError(t, paid.Validate())
	assert.Equal(t, "Nubank", paid.CreditCardName)

	bads := map[string]func(Transaction) Transaction{
		"empty id":          func(tx Transaction) Transaction { tx.ID = ""; return tx },
		"empty description": func(tx Transaction) Transaction { tx.Description = "  "; return tx },
		"bad type":          func(tx Transaction) Transaction { tx.Type = "transfer"; return tx },
		"bad recurrence":    func(tx Transaction) Transaction { tx.Recurrence = "weekly"; return tx },
		"zero date":         func(tx Transaction) Transaction { tx.CreatedAt = time.Time{}; return tx },
		"positive expense":  func(tx Transaction) Transaction { tx.Amount = dec("50"); return tx },
		"negative income": func(tx Transaction) Transaction {
			tx.Type = Income
			return tx
		},
		"method while unpaid": func(tx Transaction) Transaction { tx.PaymentMethod = Pix; return tx },
		"unknown method": func(tx Transaction) Transaction {
			tx.Paid = true
			tx.PaymentMethod = "boleto"
			return tx
		},
		"card without credit": func(tx Transaction) Transaction {
			tx = tx.WithPayment(Pix, "")
			tx.CreditCardName = "Nubank"
			return tx
		},
	}
	for name, mutate := range bads {
		t.Run(name, func(t *testing.T) {
			err := mutate(good).Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestDescriptionLengthCountsCharacters(t *testing.T) {
	tx := Transaction{
		ID:          "1",
		Amount:      dec("-50"),
		Type:        Expense,
		CreatedAt:   at(2024, time.January, 10),
		Recurrence:  Single,
		Description: strings.Repeat("ç", maxDescriptionLen),
	}
	require.NoError(t, tx.Validate())

	tx.Description += "ã"
	var verr *ValidationError
	require.ErrorAs(t, tx.Validate(), &verr)
	assert.Equal(t, "description", verr.Field)
}

func TestSettingsValidate(t *testing.T) {
	card := Card{ID: "c1", Name: "Nubank", Brand: "Visa", LimitTotal: dec("1000"), ClosingDay: 3, DueDay: 10}
	require.NoError(t, card.Validate())
	card.LimitTotal = decimal.Zero
	assert.ErrorIs(t, card.Validate(), ErrValidation)

	env := Envelope{ID: "e1", Name: "Mercado", Category: "Mercado", MonthlyLimit: dec("300")}
	require.NoError(t, env.Validate())
	env.Name = ""
	assert.ErrorIs(t, env.Validate(), ErrValidation)

	require.NoError(t, DefaultUserPrefs().Validate())
	assert.ErrorIs(t, UserPrefs{SummaryOrder: []string{"balance", "balance"}}.Validate(), ErrValidation)
}

func TestWithPaymentIncomeKeepsNoMethod(t *testing.T) {
	tx := Transaction{Type: Income, Amount: dec("100")}.WithPayment(Pix, "x")
	assert.True(t, tx.Paid)
	assert.Equal(t, PaymentMethod(""), tx.PaymentMethod)
	assert.Empty(t, tx.CreditCardName)
}

func TestWithoutPaymentClearsMethod(t *testing.T) {
	tx := Transaction{Type: Expense, Amount: dec("-1")}.WithPayment(Credit, "Visa").WithoutPayment()
	assert.False(t, tx.Paid)
	assert.Equal(t, PaymentMethod(""), tx.PaymentMethod)
	assert.Empty(t, tx.CreditCardName)
}

func TestSignedAmount(t *testing.T) {
	assert.Equal(t, "-10", SignedAmount(Expense, dec("10")).String())
	assert.Equal(t, "-10", SignedAmount(Expense, dec("-10")).String())
	assert.Equal(t, "10", SignedAmount(Income, dec("-10")).String())
}

func TestTransactionJSONSnapshot(t *testing.T) {
	raw := `{"id":"1","description":"Luz","amount":-120.5,"type":"expense",` +
		`"createdAt":"2024-01-10T12:00:00Z","recurrence":"monthly","paid":false,"paymentMethod":null}`

	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(raw), &tx))
	assert.Equal(t, "-120.5", tx.Amount.String())
	assert.Equal(t, PaymentMethod(""), tx.PaymentMethod)
	assert.Equal(t, Monthly, tx.Recurrence)

	out, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"paymentMethod":null`)
	assert.NotContains(t, string(out), `"groupId"`)

	tx = tx.WithPayment(Pix, "")
	out, err = json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"paymentMethod":"pix"`)
}

func TestErrorsUnwrap(t *testing.T) {
	var verr *ValidationError
	err := error(NewValidationError("amount", "must be positive"))
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "amount", verr.Field)

	nf := error(NewNotFoundError("transaction", "42"))
	assert.True(t, errors.Is(nf, ErrNotFound))
	assert.Equal(t, `transaction "42" not found`, nf.Error())

	cause := errors.New("disk full")
	perr := error(&PersistenceError{Key: "transactions", Op: "save", Err: cause})
	assert.True(t, errors.Is(perr, ErrPersistence))
	assert.True(t, errors.Is(perr, cause))
}
