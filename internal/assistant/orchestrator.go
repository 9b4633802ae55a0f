// Package assistant runs one conversational turn: it asks the reasoning
// service to pick a banking tool, validates the pick, executes it and has
// the result phrased as a reply. Every step is written to the transcript.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/gateway"
	"github.com/eaglebank/assistant/internal/logger"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/eaglebank/assistant/internal/utils"
)

const (
	selectionPrompt = `You are the Eagle Bank assistant.
For balances, transactions, spending summaries, transfers and account listings, respond only with a call to the matching function and no other text.
For a balance request call get_balance with the account type only. Do not list accounts or ask which account is meant; the application handles that.
Answer anything else briefly in plain text.`

	phrasingPrompt = "You are a helpful banking assistant. The function below has already been run; now compose a natural language answer for the user."

	// ActionTransfer asks the client to confirm a transfer through the
	// transfer endpoint.
	ActionTransfer = "goto_transfer"
)

type AccountService interface {
	ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error)
	GetBalance(ctx context.Context, q cqrs.GetBalanceQuery) (*models.BalanceView, error)
}

type TransactionService interface {
	FindAllForUser(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error)
	SpendingByCategory(ctx context.Context, q cqrs.SpendingByCategoryQuery) ([]models.CategorySpend, error)
}

type Transcript interface {
	Append(ctx context.Context, cmd cqrs.AppendTurnCommand) (*models.ConversationTurn, error)
}

// TurnResult is returned to the chat caller.
type TurnResult struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
	Done      bool   `json:"done"`
	Action    string `json:"action,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// TransferIntent is the pending action produced by transfer_funds. It is
// never executed by the assistant.
type TransferIntent struct {
	FromAccount string `json:"fromAccount"`
	ToAccount   string `json:"toAccount"`
	Amount      string `json:"amount"`
}

type Orchestrator struct {
	gateway      gateway.Gateway
	accounts     AccountService
	transactions TransactionService
	transcript   Transcript
	tools        []gateway.ToolSpec
}

func NewOrchestrator(gw gateway.Gateway, accounts AccountService, transactions TransactionService, transcript Transcript) *Orchestrator {
	return &Orchestrator{
		gateway:      gw,
		accounts:     accounts,
		transactions: transactions,
		transcript:   transcript,
		tools:        Catalog(),
	}
}

type state int

const (
	stateAwaitingToolSelection state = iota
	stateToolSelected
	stateToolExecuted
	stateAwaitingPhrasing
	statePlainReply
	stateDisambiguation
	stateClarification
	stateTransferPending
	stateDone
)

var stateNames = [...]string{
	"awaiting_tool_selection", "tool_selected", "tool_executed", "awaiting_phrasing",
	"plain_reply", "disambiguation", "clarification", "transfer_pending", "done",
}

func (s state) String() string { return stateNames[s] }

// turn carries the data of one HandleTurn call between states.
type turn struct {
	userID    string
	sessionID string
	text      string

	inv    *invocation
	tool   Tool
	reply  string
	result any
	done   bool
	action string
	data   any
}

// HandleTurn processes one user utterance. An empty sessionID starts a new
// session.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, sessionID, text string) (*TurnResult, error) {
	if sessionID == "" {
		sessionID = utils.NewSessionID()
	}
	t := &turn{userID: userID, sessionID: sessionID, text: text, done: true}
	log := logger.FromContext(ctx).With().Str("sessionId", sessionID).Str("userId", userID).Logger()
	ctx = logger.WithContext(ctx, log)

	if err := o.persist(ctx, t, models.RoleUser, "", text); err != nil {
		return nil, err
	}

	st := stateAwaitingToolSelection
	for st != stateDone {
		from := st
		var err error
		switch st {
		case stateAwaitingToolSelection:
			st, err = o.selectTool(ctx, t)
		case stateToolSelected:
			st, err = o.execute(ctx, t)
		case stateToolExecuted:
			st, err = o.recordResult(ctx, t)
		case stateAwaitingPhrasing:
			st, err = o.phrase(ctx, t)
		case statePlainReply:
			st, err = o.reply(ctx, t)
		case stateDisambiguation, stateClarification, stateTransferPending:
			st, err = o.shortCircuit(ctx, t)
		default:
			err = fmt.Errorf("unexpected state %s", st)
		}
		if err != nil {
			log.Warn().Err(err).Str("state", from.String()).Msg("turn failed")
			return nil, err
		}
		log.Debug().Str("from", from.String()).Str("to", st.String()).Msg("turn state")
	}

	return &TurnResult{
		SessionID: t.sessionID,
		Reply:     t.reply,
		Done:      t.done,
		Action:    t.action,
		Data:      t.data,
	}, nil
}

func (o *Orchestrator) selectTool(ctx context.Context, t *turn) (state, error) {
	resp, err := o.gateway.Complete(ctx, gateway.Request{
		SystemPrompt: selectionPrompt,
		Tools:        o.tools,
		ToolMode:     gateway.ToolModeAuto,
		Messages:     []gateway.Message{{Role: gateway.RoleUser, Content: t.text}},
	})
	if err != nil {
		return 0, err
	}

	inv, err := extractInvocation(resp)
	if err != nil {
		return 0, err
	}
	if inv == nil {
		if strings.TrimSpace(resp.Content) == "" {
			return 0, apperr.Upstream("reasoning service returned an empty reply", nil)
		}
		t.reply = resp.Content
		return statePlainReply, nil
	}

	tool, err := decodeTool(inv)
	if err != nil {
		return 0, err
	}
	t.inv = inv
	t.tool = tool
	return stateToolSelected, nil
}

func (o *Orchestrator) execute(ctx context.Context, t *turn) (state, error) {
	switch tool := t.tool.(type) {
	case GetBalance:
		return o.getBalance(ctx, t, tool)
	case GetTransactions:
		return o.getTransactions(ctx, t, tool)
	case GetSpendingSummary:
		return o.getSpendingSummary(ctx, t, tool)
	case ListAccounts:
		accounts, err := o.accounts.ListAccounts(ctx, cqrs.ListAccountsQuery{UserID: t.userID})
		if err != nil {
			return 0, err
		}
		t.result = map[string]any{"accounts": accounts}
		return stateToolExecuted, nil
	case TransferFunds:
		intent := TransferIntent{FromAccount: tool.FromAccount, ToAccount: tool.ToAccount, Amount: tool.Amount.String()}
		payload, err := json.Marshal(struct {
			Action string         `json:"action"`
			Data   TransferIntent `json:"data"`
		}{ActionTransfer, intent})
		if err != nil {
			return 0, fmt.Errorf("encode transfer intent: %w", err)
		}
		t.reply = string(payload)
		t.action = ActionTransfer
		t.data = intent
		return stateTransferPending, nil
	case ClarifyAccount:
		t.reply = disambiguationText(tool.AccountType, tool.Accounts)
		t.done = false
		return stateClarification, nil
	default:
		return 0, apperr.Invalidf("Unknown function: %s", t.tool.Name())
	}
}

var accountSuffixPattern = regexp.MustCompile(`(?i)(?:ending in\s*)?(\d{2,4})$`)

// accountSuffix returns a trailing 2-4 digit hint such as "ending in 8118".
func accountSuffix(text string) string {
	text = strings.TrimRight(strings.TrimSpace(text), ".?!")
	m := accountSuffixPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func (o *Orchestrator) getBalance(ctx context.Context, t *turn, tool GetBalance) (state, error) {
	accounts, err := o.accounts.ListAccounts(ctx, cqrs.ListAccountsQuery{UserID: t.userID})
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return 0, err
	}

	var candidates []models.AccountView
	for _, a := range accounts {
		if a.Type == tool.AccountType {
			candidates = append(candidates, a)
		}
	}

	var resolved *models.AccountView
	if suffix := accountSuffix(t.text); suffix != "" {
		var hits []models.AccountView
		for _, a := range candidates {
			if strings.HasSuffix(a.AccountNumber, suffix) {
				hits = append(hits, a)
			}
		}
		if len(hits) == 1 {
			resolved = &hits[0]
		}
	}

	if resolved == nil {
		switch len(candidates) {
		case 0:
			return 0, apperr.NotFoundf("No %s account found", tool.AccountType)
		case 1:
			resolved = &candidates[0]
		default:
			options := make([]ClarifyCandidate, 0, len(candidates))
			for _, a := range candidates {
				options = append(options, ClarifyCandidate{Last4: a.Last4(), Balance: a.Balance})
			}
			t.reply = disambiguationText(string(tool.AccountType), options)
			return stateDisambiguation, nil
		}
	}

	balance, err := o.accounts.GetBalance(ctx, cqrs.GetBalanceQuery{
		UserID:        t.userID,
		AccountType:   tool.AccountType,
		AccountNumber: resolved.AccountNumber,
	})
	if err != nil {
		return 0, err
	}
	t.result = balance
	return stateToolExecuted, nil
}

func (o *Orchestrator) getTransactions(ctx context.Context, t *turn, tool GetTransactions) (state, error) {
	q := cqrs.ListTransactionsQuery{UserID: t.userID, AccountType: tool.AccountType, Category: tool.Category}
	if tool.From != "" {
		from, err := utils.ParseDateBound(tool.From, false)
		if err != nil {
			return 0, apperr.Invalidf("Invalid arguments for %s: %v", toolGetTransactions, err)
		}
		q.From = &from
	}
	if tool.To != "" {
		to, err := utils.ParseDateBound(tool.To, true)
		if err != nil {
			return 0, apperr.Invalidf("Invalid arguments for %s: %v", toolGetTransactions, err)
		}
		q.To = &to
	}

	txns, err := o.transactions.FindAllForUser(ctx, q)
	if err != nil {
		return 0, err
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	t.result = map[string]any{"transactions": txns}
	return stateToolExecuted, nil
}

func (o *Orchestrator) getSpendingSummary(ctx context.Context, t *turn, tool GetSpendingSummary) (state, error) {
	from, err := utils.ParseDateBound(tool.From, false)
	if err != nil {
		return 0, apperr.Invalidf("Invalid arguments for %s: %v", toolGetSpendingSummary, err)
	}
	to, err := utils.ParseDateBound(tool.To, true)
	if err != nil {
		return 0, apperr.Invalidf("Invalid arguments for %s: %v", toolGetSpendingSummary, err)
	}

	q := cqrs.SpendingByCategoryQuery{UserID: t.userID, From: from, To: to}
	if tool.Category != "" {
		q.Categories = []string{tool.Category}
	}
	summary, err := o.transactions.SpendingByCategory(ctx, q)
	if err != nil {
		return 0, err
	}
	if summary == nil {
		summary = []models.CategorySpend{}
	}
	t.result = map[string]any{"spendingByCategory": summary}
	return stateToolExecuted, nil
}

func (o *Orchestrator) recordResult(ctx context.Context, t *turn) (state, error) {
	raw, err := json.Marshal(t.result)
	if err != nil {
		return 0, fmt.Errorf("encode %s result: %w", t.inv.Name, err)
	}
	if err := o.persist(ctx, t, models.RoleFunction, t.inv.Name, string(raw)); err != nil {
		return 0, err
	}
	t.result = json.RawMessage(raw)
	return stateAwaitingPhrasing, nil
}

func (o *Orchestrator) phrase(ctx context.Context, t *turn) (state, error) {
	call := t.inv.call
	if call == nil {
		call = &gateway.ToolCall{Name: t.inv.Name, Arguments: t.inv.Arguments}
	}
	resp, err := o.gateway.Complete(ctx, gateway.Request{
		SystemPrompt: phrasingPrompt,
		Tools:        o.tools,
		ToolMode:     gateway.ToolModeNone,
		Messages: []gateway.Message{
			{Role: gateway.RoleUser, Content: t.text},
			{Role: gateway.RoleAssistant, ToolCall: call},
			{Role: gateway.RoleFunction, Name: t.inv.Name, Content: string(t.result.(json.RawMessage))},
		},
	})
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return 0, apperr.Upstream("reasoning service returned an empty reply", nil)
	}
	t.reply = resp.Content
	return o.reply(ctx, t)
}

func (o *Orchestrator) reply(ctx context.Context, t *turn) (state, error) {
	if err := o.persist(ctx, t, models.RoleAssistant, "", t.reply); err != nil {
		return 0, err
	}
	return stateDone, nil
}

// shortCircuit ends a turn without a phrasing call: the raw tool arguments
// and the synthesized reply are both recorded.
func (o *Orchestrator) shortCircuit(ctx context.Context, t *turn) (state, error) {
	if err := o.persist(ctx, t, models.RoleFunction, t.inv.Name, string(t.inv.Arguments)); err != nil {
		return 0, err
	}
	return o.reply(ctx, t)
}

func (o *Orchestrator) persist(ctx context.Context, t *turn, role models.Role, name, text string) error {
	_, err := o.transcript.Append(ctx, cqrs.AppendTurnCommand{
		SessionID: t.sessionID,
		UserID:    t.userID,
		Role:      role,
		Name:      name,
		Text:      text,
	})
	return err
}
