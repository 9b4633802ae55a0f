package models

import "github.com/shopspring/decimal"

// AccountView is the projection handed to callers and cached in Redis.
type AccountView struct {
	Type          AccountType     `json:"type"`
	Balance       decimal.Decimal `json:"balance"`
	AccountNumber string          `json:"accountNumber"`
}

// Last4 returns the trailing four digits used when presenting an account.
func (v AccountView) Last4() string {
	if len(v.AccountNumber) <= 4 {
		return v.AccountNumber
	}
	return v.AccountNumber[len(v.AccountNumber)-4:]
}

// BalanceView is the result of a single balance lookup.
type BalanceView struct {
	AccountType   AccountType     `json:"accountType"`
	AccountNumber string          `json:"accountNumber,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
}

// CategorySpend is one row of a spend-by-category aggregation. Total is the
// absolute value of the summed outflows.
type CategorySpend struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// TransferReceipt confirms a committed transfer.
type TransferReceipt struct {
	TransferID  string          `json:"transferId"`
	Status      string          `json:"status"`
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	Amount      decimal.Decimal `json:"amount"`
}
