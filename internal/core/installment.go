package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentRequest describes one purchase split across monthly payments.
type InstallmentRequest struct {
	Description string
	Total       decimal.Decimal
	Count       int
	Start       time.Time
	Paid        int
	Category    string
}

func (r InstallmentRequest) Validate() error {
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if err := validatePositive("amount", r.Total); err != nil {
		return err
	}
	if r.Count < 2 {
		return NewValidationError("installments", "must be at least 2")
	}
	if r.Paid < 0 {
		return NewValidationError("paidInstallments", "must not be negative")
	}
	if r.Paid > r.Count {
		return NewValidationError("paidInstallments", "cannot exceed the number of installments")
	}
	return validateDate("startDate", r.Start)
}

// ExpandInstallments synthesizes the records of an installment purchase.
// Every record carries total/Count as a negative amount, the i-th record is
// dated i calendar months after the start, and the first Paid records are
// marked as paid in cash. groupID is shared by all records.
func ExpandInstallments(req InstallmentRequest, groupID string) ([]Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(groupID) == "" {
		return nil, NewValidationError("groupId", "must not be empty")
	}

	desc := strings.TrimSpace(req.Description)
	amount := req.Total.Abs().Div(decimal.NewFromInt(int64(req.Count))).Neg()

	out := make([]Transaction, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		t := Transaction{
			ID:          fmt.Sprintf("%s-%d", groupID, i),
			GroupID:     groupID,
			Description: fmt.Sprintf("%s (%d/%d)", desc, i+1, req.Count),
			Amount:      amount,
			Type:        Expense,
			CreatedAt:   AddMonths(req.Start, i),
			Recurrence:  Installment,
			Category:    strings.TrimSpace(req.Category),
		}
		if i < req.Paid {
			t = t.WithPayment(Cash, "")
		}
		out = append(out, t)
	}
	return out, nil
}
