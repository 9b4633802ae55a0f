package cqrs

import (
	"time"

	"github.com/eaglebank/assistant/internal/models"
	"github.com/shopspring/decimal"
)

// TransferCommand moves Amount between two accounts owned by UserID.
type TransferCommand struct {
	UserID      string
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
}

type CreateTransactionCommand struct {
	UserID        string
	AccountType   models.AccountType
	AccountNumber string
	Amount        decimal.Decimal
	Category      string
	Description   string
	Date          time.Time
}

// AppendTurnCommand records one transcript entry.
type AppendTurnCommand struct {
	SessionID string
	UserID    string
	Role      models.Role
	Name      string
	Text      string
}

type LoginCommand struct {
	Email    string
	Password string
}
