package cqrs

import (
	"time"

	"github.com/eaglebank/assistant/internal/models"
	"github.com/shopspring/decimal"
)

// ---------- Account queries ----------

// GetBalanceQuery resolves one account of AccountType. AccountNumber, when
// set, selects that exact account.
type GetBalanceQuery struct {
	UserID        string
	AccountType   models.AccountType
	AccountNumber string
}

// ListAccountsQuery fetches all accounts belonging to a user.
type ListAccountsQuery struct {
	UserID string
}

// ---------- Transaction queries ----------

// ListTransactionsQuery filters a user's ledger. Zero values mean "no filter";
// date bounds are inclusive.
type ListTransactionsQuery struct {
	UserID      string
	AccountType models.AccountType
	From        *time.Time
	To          *time.Time
	Category    string
}

// SpendingByCategoryQuery aggregates outflows in [From, To].
type SpendingByCategoryQuery struct {
	UserID      string
	From        time.Time
	To          time.Time
	AccountType models.AccountType
	Categories  []string
	MinAmount   decimal.Decimal
}

// ---------- Transcript queries ----------

type GetTranscriptQuery struct {
	SessionID string
	UserID    string
}
