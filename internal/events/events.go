package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	TransferCompleted  = "transfer.completed"
	TransactionCreated = "transaction.created"
	TurnAppended       = "turn.appended"
)

// Stream names
const (
	AccountEventsStream      = "account.events"
	TransactionEventsStream  = "transaction.events"
	ConversationEventsStream = "conversation.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Decode converts the loosely typed Data of a consumed event into v.
func (e Event) Decode(v any) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// Account events
type TransferCompletedEvent struct {
	TransferID  string          `json:"transferId"`
	UserID      string          `json:"userId"`
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	Amount      decimal.Decimal `json:"amount"`
}

// Transaction events
type TransactionCreatedEvent struct {
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`
	AccountType   string          `json:"accountType"`
	AccountNumber string          `json:"accountNumber,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
}

// Conversation events
type TurnAppendedEvent struct {
	TurnID    int64  `json:"turnId"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
}
