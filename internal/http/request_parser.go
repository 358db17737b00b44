// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.
// Bodies are decoded into request structs and converted into service inputs
// so handlers stay free of parsing details.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartfinance/internal/core"
	"smartfinance/internal/services"
)

// maxBodyBytes bounds every request body; backups are the largest payload.
const maxBodyBytes = 4 << 20

const dateLayout = "2006-01-02"

// DecodeJSON reads the request body into v. Malformed or oversized bodies
// are reported as validation errors on the "body" field.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.NewValidationError("body", "request body too large")
		}
		return core.NewValidationError("body", "could not read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return core.NewValidationError("body", "must not be empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return core.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// Amount accepts a JSON number or a user-typed string such as "1.234,56".
// Signs are rejected; the sign of a ledger amount comes from its type.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return core.NewValidationError("amount", "must not be empty")
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return core.NewValidationError("amount", "must be numeric")
		}
		d, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return core.NewValidationError("amount", "must be numeric")
	}
	if !d.IsPositive() {
		return core.NewValidationError("amount", "must be a positive number")
	}
	a.Decimal = d
	return nil
}

// ParseDate parses a YYYY-MM-DD date as noon UTC so that the calendar day
// survives any timezone shift on display.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.NewValidationError(field, "must not be empty")
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, core.NewValidationError(field, "must be a date formatted as YYYY-MM-DD")
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC), nil
}

// TransactionRequest is the body of add and edit requests.
type TransactionRequest struct {
	Description      string               `json:"description"`
	Amount           Amount               `json:"amount"`
	Type             core.TransactionType `json:"type"`
	Date             string               `json:"date"`
	Recurrence       core.Recurrence      `json:"recurrence"`
	Installments     int                  `json:"installments"`
	PaidInstallments int                  `json:"paidInstallments"`
	Category         *string              `json:"category"`
}

func (r TransactionRequest) recurrence() core.Recurrence {
	if r.Recurrence == "" {
		return core.Single
	}
	return r.Recurrence
}

// ToNewTransaction converts the request into the input of an add.
func (r TransactionRequest) ToNewTransaction() (services.NewTransaction, error) {
	date, err := ParseDate("date", r.Date)
	if err != nil {
		return services.NewTransaction{}, err
	}
	in := services.NewTransaction{
		Description:      sanitizeInput(r.Description),
		Amount:           r.Amount.Decimal,
		Type:             r.Type,
		Date:             date,
		Recurrence:       r.recurrence(),
		Installments:     r.Installments,
		PaidInstallments: r.PaidInstallments,
	}
	if r.Category != nil {
		in.Category = sanitizeInput(*r.Category)
	}
	return in, nil
}

// ToTransactionEdit converts the request into the input of an edit.
func (r TransactionRequest) ToTransactionEdit() (services.TransactionEdit, error) {
	date, err := ParseDate("date", r.Date)
	if err != nil {
		return services.TransactionEdit{}, err
	}
	in := services.TransactionEdit{
		Description: sanitizeInput(r.Description),
		Amount:      r.Amount.Decimal,
		Type:        r.Type,
		Date:        date,
		Recurrence:  r.recurrence(),
	}
	if r.Category != nil {
		c := sanitizeInput(*r.Category)
		in.Category = &c
	}
	return in, nil
}

// PaymentRequest is the body of a pay request.
type PaymentRequest struct {
	PaymentMethod  core.PaymentMethod `json:"paymentMethod"`
	CreditCardName string             `json:"creditCardName"`
}

type AmountRequest struct {
	Amount Amount `json:"amount"`
}

type ThemeRequest struct {
	Theme core.Theme `json:"theme"`
}

type CardRequest struct {
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	LimitTotal Amount `json:"limitTotal"`
	ClosingDay int    `json:"closingDay"`
	DueDay     int    `json:"dueDay"`
}

func (r CardRequest) ToInput() services.CardInput {
	return services.CardInput{
		Name:       sanitizeInput(r.Name),
		Brand:      sanitizeInput(r.Brand),
		LimitTotal: r.LimitTotal.Decimal,
		ClosingDay: r.ClosingDay,
		DueDay:     r.DueDay,
	}
}

type EnvelopeRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	MonthlyLimit Amount `json:"monthlyLimit"`
}

func (r EnvelopeRequest) ToInput() services.EnvelopeInput {
	return services.EnvelopeInput{
		Name:         sanitizeInput(r.Name),
		Category:     sanitizeInput(r.Category),
		MonthlyLimit: r.MonthlyLimit.Decimal,
	}
}

// ParseViewQuery reads the period and method filters. Missing values fall
// back to the service defaults; invalid ones are rejected by the service.
func ParseViewQuery(query url.Values) services.ViewQuery {
	return services.ViewQuery{
		Period: core.Period(strings.ToLower(strings.TrimSpace(query.Get("period")))),
		Method: core.PaymentMethod(strings.ToLower(strings.TrimSpace(query.Get("method")))),
	}
}

// ParseDays reads the "days" query parameter used by the insights window.
func ParseDays(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("days"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 366 {
		return 0, core.NewValidationError("days", "must be a whole number between 1 and 366")
	}
	return n, nil
}
