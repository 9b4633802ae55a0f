package command

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/events"
	"github.com/eaglebank/assistant/internal/logger"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/eaglebank/assistant/internal/repository"
	"github.com/eaglebank/assistant/internal/utils"
)

const transferCategory = "transfer"

// Ledger runs a unit of work atomically against the write store.
type Ledger interface {
	InTx(ctx context.Context, fn func(repository.LedgerTx) error) error
}

// AccountCache is the slice of the account read model a command touches.
type AccountCache interface {
	InvalidateUser(ctx context.Context, userID string)
	WarmUser(ctx context.Context, userID string) error
	IsEventProcessed(ctx context.Context, eventID string) bool
	MarkEventProcessed(ctx context.Context, eventID string)
}

type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

type TransferOptions struct {
	// MaxAttempts bounds how often a transfer is tried when it loses a lock
	// race. Values below 1 mean a single attempt.
	MaxAttempts  int
	RetryBackoff time.Duration
	// RecordStatements writes a debit and a credit ledger entry in the same
	// database transaction as the balance update.
	RecordStatements bool
}

// AccountCommandService moves money between accounts and keeps the account
// read model in sync.
type AccountCommandService struct {
	ledger    Ledger
	cache     AccountCache
	publisher EventPublisher
	opts      TransferOptions
	now       func() time.Time
}

func NewAccountCommandService(ledger Ledger, cache AccountCache, publisher EventPublisher, opts TransferOptions) *AccountCommandService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &AccountCommandService{
		ledger:    ledger,
		cache:     cache,
		publisher: publisher,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Transfer debits FromAccount and credits ToAccount in one database
// transaction. Either both legs commit or neither does.
func (s *AccountCommandService) Transfer(ctx context.Context, cmd cqrs.TransferCommand) (*models.TransferReceipt, error) {
	if err := validateTransfer(cmd); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With().
		Str("userId", cmd.UserID).
		Str("fromAccount", cmd.FromAccount).
		Str("toAccount", cmd.ToAccount).
		Logger()

	transferID := utils.GenerateID("tfr")
	op := func() error {
		err := s.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
			return s.applyTransfer(ctx, tx, transferID, cmd)
		})
		if err != nil && apperr.KindOf(err) != apperr.Conflict {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.RetryBackoff
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = 25 * time.Millisecond
	}
	policy.MaxElapsedTime = 0
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.opts.MaxAttempts-1)), ctx)

	err := backoff.RetryNotify(op, retry, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("wait", wait).Msg("transfer conflicted, retrying")
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	s.cache.InvalidateUser(ctx, cmd.UserID)
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.TransferCompleted, events.TransferCompletedEvent{
		TransferID:  transferID,
		UserID:      cmd.UserID,
		FromAccount: cmd.FromAccount,
		ToAccount:   cmd.ToAccount,
		Amount:      cmd.Amount,
	}); err != nil {
		log.Error().Err(err).Msg("failed to publish transfer.completed event")
	}
	log.Info().Str("transferId", transferID).Str("amount", cmd.Amount.StringFixed(2)).Msg("transfer completed")

	return &models.TransferReceipt{
		TransferID:  transferID,
		Status:      "completed",
		FromAccount: cmd.FromAccount,
		ToAccount:   cmd.ToAccount,
		Amount:      cmd.Amount,
	}, nil
}

func (s *AccountCommandService) applyTransfer(ctx context.Context, tx repository.LedgerTx, transferID string, cmd cqrs.TransferCommand) error {
	locked, err := tx.LockAccounts(ctx, cmd.UserID, cmd.FromAccount, cmd.ToAccount)
	if err != nil {
		return err
	}
	src, ok := locked[cmd.FromAccount]
	if !ok {
		return apperr.NotFoundf("Account not found")
	}
	dst, ok := locked[cmd.ToAccount]
	if !ok {
		return apperr.NotFoundf("Account not found")
	}
	if src.Balance.LessThan(cmd.Amount) {
		return apperr.Invalidf("Insufficient funds")
	}

	if err := tx.UpdateBalance(ctx, cmd.UserID, src.AccountNumber, src.Balance.Sub(cmd.Amount)); err != nil {
		return err
	}
	if err := tx.UpdateBalance(ctx, cmd.UserID, dst.AccountNumber, dst.Balance.Add(cmd.Amount)); err != nil {
		return err
	}
	if !s.opts.RecordStatements {
		return nil
	}

	now := s.now()
	legs := []*models.Transaction{
		{
			ID:            transferID + "-out",
			UserID:        cmd.UserID,
			AccountType:   src.Type,
			AccountNumber: src.AccountNumber,
			Amount:        cmd.Amount.Neg(),
			Category:      transferCategory,
			Description:   "Transfer to account ending in " + models.AccountView{AccountNumber: dst.AccountNumber}.Last4(),
			Date:          now,
		},
		{
			ID:            transferID + "-in",
			UserID:        cmd.UserID,
			AccountType:   dst.Type,
			AccountNumber: dst.AccountNumber,
			Amount:        cmd.Amount,
			Category:      transferCategory,
			Description:   "Transfer from account ending in " + models.AccountView{AccountNumber: src.AccountNumber}.Last4(),
			Date:          now,
		},
	}
	for _, leg := range legs {
		if err := tx.InsertTransaction(ctx, leg); err != nil {
			return err
		}
	}
	return nil
}

func validateTransfer(cmd cqrs.TransferCommand) error {
	switch {
	case cmd.FromAccount == "" || cmd.ToAccount == "":
		return apperr.Invalidf("Both accounts are required")
	case cmd.FromAccount == cmd.ToAccount:
		return apperr.Invalidf("Cannot transfer to the same account")
	case !cmd.Amount.IsPositive():
		return apperr.Invalidf("Amount must be greater than zero")
	case !cmd.Amount.Equal(cmd.Amount.Round(2)):
		return apperr.Invalidf("Amount must have at most two decimal places")
	}
	return nil
}

// HandleAccountEvent rebuilds the account list view of the user named in a
// transfer.completed event. Duplicate deliveries are skipped.
func (s *AccountCommandService) HandleAccountEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.TransferCompleted {
		return nil
	}
	var data events.TransferCompletedEvent
	if err := event.Decode(&data); err != nil {
		return err
	}
	if s.cache.IsEventProcessed(ctx, data.TransferID) {
		lg := logger.FromContext(ctx)
		lg.Debug().Str("transferId", data.TransferID).Msg("transfer event already processed, skipping")
		return nil
	}
	if err := s.cache.WarmUser(ctx, data.UserID); err != nil {
		return fmt.Errorf("failed to rebuild account view: %w", err)
	}
	s.cache.MarkEventProcessed(ctx, data.TransferID)
	return nil
}
