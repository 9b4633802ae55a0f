package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
	Credit   AccountType = "credit"
)

// AccountTypes lists every supported account type in display order.
var AccountTypes = []AccountType{Checking, Savings, Credit}

func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, Credit:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdTimestamp"`
}

type Account struct {
	AccountNumber string          `json:"accountNumber"`
	UserID        string          `json:"-"`
	Type          AccountType     `json:"type"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"createdTimestamp"`
	UpdatedAt     time.Time       `json:"updatedTimestamp"`
}

// Transaction is an immutable ledger entry. Negative amounts are outflows.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"-"`
	AccountType   AccountType     `json:"accountType"`
	AccountNumber string          `json:"accountNumber,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	Date          time.Time       `json:"date"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// ConversationTurn is one append-only entry of a session transcript.
// Name carries the tool name on function turns.
type ConversationTurn struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"-"`
	Role      Role      `json:"role"`
	Name      string    `json:"name,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdTimestamp"`
}
