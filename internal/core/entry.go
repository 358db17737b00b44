package core

import (
	"encoding/json"
	"time"
)

// Entry is a row of the derived transaction view. It is either a Stored
// transaction or a Projected future occurrence of a monthly transaction.
// Only Stored entries can be turned back into persisted records.
type Entry interface {
	// Record returns a copy of the underlying fields.
	Record() Transaction
	IsProjection() bool
	entry()
}

// Stored wraps a persisted transaction.
type Stored struct {
	Transaction
}

// Projected is a synthetic, never-persisted occurrence derived from a
// monthly transaction. SourceOf always points at the recurring origin.
type Projected struct {
	fields Transaction
}

func (s Stored) Record() Transaction { return s.Transaction }
func (Stored) IsProjection() bool    { return false }
func (Stored) entry()                {}

func (p Projected) Record() Transaction { return p.fields }
func (Projected) IsProjection() bool    { return true }
func (Projected) entry()                {}

func (p Projected) ID() string           { return p.fields.ID }
func (p Projected) SourceID() string     { return p.fields.SourceOf }
func (p Projected) CreatedAt() time.Time { return p.fields.CreatedAt }

// Materialize converts a confirmed projection into a new persisted
// transaction that keeps pointing at the recurring origin.
func (p Projected) Materialize(id string, method PaymentMethod, cardName string) Transaction {
	t := p.fields
	t.ID = id
	t.Recurrence = Single
	return t.WithPayment(method, cardName)
}

type entryJSON struct {
	Transaction
	IsProjection bool `json:"isProjection"`
}

func (s Stored) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{Transaction: s.Transaction})
}

func (p Projected) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{Transaction: p.fields, IsProjection: true})
}

// StoredEntries wraps persisted transactions as entries.
func StoredEntries(txns []Transaction) []Entry {
	out := make([]Entry, len(txns))
	for i, t := range txns {
		out[i] = Stored{Transaction: t}
	}
	return out
}
