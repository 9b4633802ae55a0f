package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/gateway"
	"github.com/eaglebank/assistant/internal/models"
)

const (
	toolGetBalance         = "get_balance"
	toolGetTransactions    = "get_transactions"
	toolGetSpendingSummary = "get_spending_summary"
	toolTransferFunds      = "transfer_funds"
	toolClarifyAccount     = "clarify_account"
	toolListAccounts       = "list_accounts"
)

// Tool is one of the fixed banking operations the reasoning service may
// select. The set is closed: only types in this file implement it.
type Tool interface {
	Name() string
	isTool()
}

type GetBalance struct {
	AccountType models.AccountType `json:"accountType" validate:"required,oneof=checking savings credit"`
}

type GetTransactions struct {
	AccountType models.AccountType `json:"accountType" validate:"omitempty,oneof=checking savings credit"`
	From        string             `json:"from"`
	To          string             `json:"to"`
	Category    string             `json:"category"`
}

type GetSpendingSummary struct {
	From     string `json:"from" validate:"required"`
	To       string `json:"to" validate:"required"`
	Category string `json:"category"`
}

type TransferFunds struct {
	FromAccount string          `json:"fromAccount" validate:"required"`
	ToAccount   string          `json:"toAccount" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

type ClarifyCandidate struct {
	Last4   string          `json:"last4" validate:"required"`
	Balance decimal.Decimal `json:"balance"`
}

type ClarifyAccount struct {
	AccountType string             `json:"accountType" validate:"required"`
	Accounts    []ClarifyCandidate `json:"accounts" validate:"required,min=1,dive"`
}

type ListAccounts struct{}

func (GetBalance) Name() string         { return toolGetBalance }
func (GetTransactions) Name() string    { return toolGetTransactions }
func (GetSpendingSummary) Name() string { return toolGetSpendingSummary }
func (TransferFunds) Name() string      { return toolTransferFunds }
func (ClarifyAccount) Name() string     { return toolClarifyAccount }
func (ListAccounts) Name() string       { return toolListAccounts }

func (GetBalance) isTool()         {}
func (GetTransactions) isTool()    {}
func (GetSpendingSummary) isTool() {}
func (TransferFunds) isTool()      {}
func (ClarifyAccount) isTool()     {}
func (ListAccounts) isTool()       {}

var validate = validator.New()

// decodeTool turns a repaired invocation into a typed tool. Unknown names and
// arguments that fail validation are InvalidRequest.
func decodeTool(inv *invocation) (Tool, error) {
	switch inv.Name {
	case toolGetBalance:
		return decodeArgs[GetBalance](inv)
	case toolGetTransactions:
		return decodeArgs[GetTransactions](inv)
	case toolGetSpendingSummary:
		return decodeArgs[GetSpendingSummary](inv)
	case toolTransferFunds:
		t, err := decodeArgs[TransferFunds](inv)
		if err != nil {
			return nil, err
		}
		if !t.Amount.IsPositive() {
			return nil, apperr.Invalidf("Invalid arguments for %s: amount must be greater than zero", inv.Name)
		}
		return t, nil
	case toolClarifyAccount:
		return decodeArgs[ClarifyAccount](inv)
	case toolListAccounts:
		return ListAccounts{}, nil
	default:
		return nil, apperr.Invalidf("Unknown function: %s", inv.Name)
	}
}

func decodeArgs[T Tool](inv *invocation) (T, error) {
	var t T
	if err := json.Unmarshal(inv.Arguments, &t); err != nil {
		return t, apperr.Wrap(apperr.InvalidRequest, fmt.Sprintf("Invalid arguments for %s", inv.Name), err)
	}
	if err := validate.Struct(t); err != nil {
		return t, apperr.Wrap(apperr.InvalidRequest, fmt.Sprintf("Invalid arguments for %s", inv.Name), err)
	}
	return t, nil
}

var accountTypeEnum = []string{string(models.Checking), string(models.Savings), string(models.Credit)}

// Catalog describes the tools in the order they are offered to the model.
func Catalog() []gateway.ToolSpec {
	return []gateway.ToolSpec{
		{
			Name:        toolGetBalance,
			Description: "Returns the balance for a given account type",
			Parameters: &gateway.Schema{
				Type: "object",
				Properties: map[string]*gateway.Schema{
					"accountType": {Type: "string", Enum: accountTypeEnum, Description: "Which account to check"},
				},
				Required: []string{"accountType"},
			},
		},
		{
			Name:        toolGetTransactions,
			Description: "Lists the user's transactions, optionally filtered by account type, date range and category",
			Parameters: &gateway.Schema{
				Type: "object",
				Properties: map[string]*gateway.Schema{
					"accountType": {Type: "string", Enum: accountTypeEnum},
					"from":        {Type: "string", Format: "date-time", Description: "ISO start date"},
					"to":          {Type: "string", Format: "date-time", Description: "ISO end date"},
					"category":    {Type: "string", Description: `Transaction category, e.g. "groceries"`},
				},
			},
		},
		{
			Name:        toolGetSpendingSummary,
			Description: "Returns total spending per category in a date range, optionally for one category",
			Parameters: &gateway.Schema{
				Type: "object",
				Properties: map[string]*gateway.Schema{
					"from":     {Type: "string", Format: "date-time", Description: "ISO start date"},
					"to":       {Type: "string", Format: "date-time", Description: "ISO end date"},
					"category": {Type: "string", Description: `Transaction category, e.g. "groceries"`},
				},
				Required: []string{"from", "to"},
			},
		},
		{
			Name:        toolTransferFunds,
			Description: "Moves money from one of the user's accounts to another",
			Parameters: &gateway.Schema{
				Type: "object",
				Properties: map[string]*gateway.Schema{
					"fromAccount": {Type: "string", Description: "Source account (last 4 digits or full number)"},
					"toAccount":   {Type: "string", Description: "Destination account (last 4 digits or full number)"},
					"amount":      {Type: "number", Description: "Amount to transfer"},
				},
				Required: []string{"fromAccount", "toAccount", "amount"},
			},
		},
		{
			Name:        toolClarifyAccount,
			Description: "Asks the user which account they mean when several match",
			Parameters: &gateway.Schema{
				Type: "object",
				Properties: map[string]*gateway.Schema{
					"accountType": {Type: "string"},
					"accounts": {
						Type: "array",
						Items: &gateway.Schema{
							Type: "object",
							Properties: map[string]*gateway.Schema{
								"last4":   {Type: "string"},
								"balance": {Type: "number"},
							},
							Required: []string{"last4", "balance"},
						},
					},
				},
				Required: []string{"accountType", "accounts"},
			},
		},
		{
			Name:        toolListAccounts,
			Description: "Returns the user's accounts with type, balance and account number",
			Parameters:  &gateway.Schema{Type: "object"},
		},
	}
}

// formatMoney renders an amount as $1234.50 or -$120.00.
func formatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// disambiguationText asks the user to choose between accounts of one type.
func disambiguationText(accountType string, candidates []ClarifyCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s ending in %s (%s)", accountType, c.Last4, formatMoney(c.Balance)))
	}
	return fmt.Sprintf("You have multiple %s accounts: %s. Which one would you like to check?",
		accountType, strings.Join(parts, ", "))
}
