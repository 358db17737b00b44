package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys on the direct exchange.
const (
	RoutingLedgerChanged = "ledger.changed"
	RoutingBillReminder  = "bill.reminder"
)

// LedgerChangedMessage announces that a snapshot key was rewritten.
type LedgerChangedMessage struct {
	Key       string    `json:"key"`
	Operation string    `json:"operation"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(key, operation string, count int, at time.Time) *LedgerChangedMessage {
	return &LedgerChangedMessage{Key: key, Operation: operation, Count: count, Timestamp: at.UTC()}
}

// BillReminderMessage is published for each unpaid bill due soon.
type BillReminderMessage struct {
	TransactionID string          `json:"transactionId"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"dueDate"`
	DaysUntil     int             `json:"daysUntil"`
	IsProjection  bool            `json:"isProjection"`
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) { return json.Marshal(m) }
func (m *BillReminderMessage) ToJSON() ([]byte, error)  { return json.Marshal(m) }

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func BillReminderMessageFromJSON(data []byte) (*BillReminderMessage, error) {
	var msg BillReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
