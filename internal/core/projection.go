package core

import (
	"fmt"
	"time"
)

// Signature identifies the occurrence of a recurring transaction in a month.
type Signature struct {
	OriginID string
	Year     int
	Month    time.Month
}

func signatureOf(t Transaction) Signature {
	return Signature{OriginID: t.OriginID(), Year: t.CreatedAt.Year(), Month: t.CreatedAt.Month()}
}

// ProjectionID is the deterministic id of a projected occurrence.
func ProjectionID(sourceID string, k MonthKey) string {
	return fmt.Sprintf("proj_%s_%d-%02d", sourceID, k.Year, int(k.Month))
}

// Signatures returns the set of occurrences already present in txns.
func Signatures(txns []Transaction) map[Signature]struct{} {
	set := make(map[Signature]struct{}, len(txns))
	for _, t := range txns {
		if t.CreatedAt.IsZero() {
			continue
		}
		set[signatureOf(t)] = struct{}{}
	}
	return set
}

// Project returns the stored transactions followed by one projected entry
// per monthly transaction and month, from the month after its creation up
// to the projection horizon of now, skipping months that already have a
// materialized occurrence. The result is recomputed from scratch on every
// call and never mutates txns.
func Project(txns []Transaction, now time.Time) []Entry {
	out := StoredEntries(txns)
	seen := Signatures(txns)
	horizon := ProjectionHorizon(now)

	for _, src := range txns {
		if src.Recurrence != Monthly || src.CreatedAt.IsZero() {
			continue
		}
		for k := 1; ; k++ {
			at := AddMonths(src.CreatedAt, k)
			month := MonthOf(at)
			if horizon.Before(month) {
				break
			}
			sig := Signature{OriginID: src.ID, Year: month.Year, Month: month.Month}
			if _, ok := seen[sig]; ok {
				continue
			}
			seen[sig] = struct{}{}

			p := src.WithoutPayment()
			p.ID = ProjectionID(src.ID, month)
			p.CreatedAt = at
			p.SourceOf = src.ID
			out = append(out, Projected{fields: p})
		}
	}
	return out
}

// FindProjection looks up a projected entry by id in a projected view.
func FindProjection(entries []Entry, id string) (Projected, bool) {
	for _, e := range entries {
		if p, ok := e.(Projected); ok && p.ID() == id {
			return p, true
		}
	}
	return Projected{}, false
}

// Projections returns only the projected entries of a view.
func Projections(entries []Entry) []Projected {
	var out []Projected
	for _, e := range entries {
		if p, ok := e.(Projected); ok {
			out = append(out, p)
		}
	}
	return out
}
