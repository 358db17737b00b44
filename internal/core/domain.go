package core

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Single      Recurrence = "single"
	Monthly     Recurrence = "monthly"
	Installment Recurrence = "installment"
)

const (
	Pix    PaymentMethod = "pix"
	Debit  PaymentMethod = "debit"
	Credit PaymentMethod = "credit"
	Cash   PaymentMethod = "cash"

	// AllMethods is the filter sentinel that keeps every entry.
	AllMethods PaymentMethod = "all"
)

const maxDescriptionLen = 200

type (
	TransactionType string
	Recurrence      string

	// PaymentMethod is empty when no method is recorded; it serializes as null.
	PaymentMethod string

	Transaction struct {
		ID             string          `json:"id"`
		GroupID        string          `json:"groupId,omitempty"`
		SourceOf       string          `json:"sourceOf,omitempty"`
		Description    string          `json:"description"`
		Amount         decimal.Decimal `json:"amount"`
		Type           TransactionType `json:"type"`
		CreatedAt      time.Time       `json:"createdAt"`
		Recurrence     Recurrence      `json:"recurrence"`
		Paid           bool            `json:"paid"`
		PaymentMethod  PaymentMethod   `json:"paymentMethod"`
		CreditCardName string          `json:"creditCardName,omitempty"`
		Category       string          `json:"category,omitempty"`
	}

	// Goals holds the two monthly targets; an invalid NullDecimal means unset.
	Goals struct {
		IncomeGoal  decimal.NullDecimal `json:"incomeGoal"`
		ExpenseGoal decimal.NullDecimal `json:"expenseGoal"`
	}

	Card struct {
		ID         string          `json:"id"`
		Name       string          `json:"name" validate:"required,max=100"`
		Brand      string          `json:"brand" validate:"max=50"`
		LimitTotal decimal.Decimal `json:"limitTotal"`
		ClosingDay int             `json:"closingDay" validate:"min=1,max=31"`
		DueDay     int             `json:"dueDay" validate:"min=1,max=31"`
	}

	Envelope struct {
		ID           string          `json:"id"`
		Name         string          `json:"name" validate:"required,max=100"`
		Category     string          `json:"category" validate:"max=100"`
		MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
	}

	UserPrefs struct {
		SummaryOrder  []string `json:"summaryOrder" validate:"dive,oneof=income totalExpense paidExpense balance"`
		Notifications bool     `json:"notifications"`
	}
)

// Theme is the persisted color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

// DefaultUserPrefs mirrors the layout of the summary cards.
func DefaultUserPrefs() UserPrefs {
	return UserPrefs{
		SummaryOrder:  []string{"income", "totalExpense", "paidExpense", "balance"},
		Notifications: true,
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (r Recurrence) Valid() bool {
	switch r {
	case Single, Monthly, Installment:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case Pix, Debit, Credit, Cash:
		return true
	}
	return false
}

func (m PaymentMethod) MarshalJSON() ([]byte, error) {
	if m == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = PaymentMethod(s)
	return nil
}

// SignedAmount returns abs(amount) with the sign implied by the type.
func SignedAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == Expense
}

// OriginID is the id of the recurring transaction this record belongs to.
func (t Transaction) OriginID() string {
	if t.SourceOf != "" {
		return t.SourceOf
	}
	return t.ID
}

// WithPayment returns a copy marked as paid. Method and card name are kept
// only for expenses, and the card name only for credit.
func (t Transaction) WithPayment(method PaymentMethod, cardName string) Transaction {
	t.Paid = true
	t.PaymentMethod = ""
	t.CreditCardName = ""
	if t.IsExpense() {
		t.PaymentMethod = method
		if method == Credit {
			t.CreditCardName = strings.TrimSpace(cardName)
		}
	}
	return t
}

// WithoutPayment returns a copy marked as unpaid with no method recorded.
func (t Transaction) WithoutPayment() Transaction {
	t.Paid = false
	t.PaymentMethod = ""
	t.CreditCardName = ""
	return t
}

func validateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return NewValidationError("description", "must not be empty")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	return nil
}

func validatePositive(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError(field, "must be a positive number")
	}
	return nil
}

func validateDate(field string, d time.Time) error {
	if d.IsZero() {
		return NewValidationError(field, "must be a valid date")
	}
	return nil
}

// Validate checks the invariants of a persisted transaction.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return NewValidationError("id", "must not be empty")
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return NewValidationError("type", "must be income or expense")
	}
	if !t.Recurrence.Valid() {
		return NewValidationError("recurrence", "must be single, monthly or installment")
	}
	if err := validateDate("createdAt", t.CreatedAt); err != nil {
		return err
	}
	if t.Type == Expense && t.Amount.IsPositive() {
		return NewValidationError("amount", "expense amount must not be positive")
	}
	if t.Type == Income && t.Amount.IsNegative() {
		return NewValidationError("amount", "income amount must not be negative")
	}
	if t.PaymentMethod != "" {
		if !t.PaymentMethod.Valid() {
			return NewValidationError("paymentMethod", "unknown payment method")
		}
		if !t.Paid || t.Type != Expense {
			return NewValidationError("paymentMethod", "only paid expenses carry a payment method")
		}
	}
	if t.CreditCardName != "" && t.PaymentMethod != Credit {
		return NewValidationError("creditCardName", "only credit payments carry a card name")
	}
	return nil
}
