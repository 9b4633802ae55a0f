package command

import (
	"context"
	"time"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/events"
	"github.com/eaglebank/assistant/internal/logger"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/eaglebank/assistant/internal/utils"
)

type TransactionWriter interface {
	Create(ctx context.Context, txn *models.Transaction) error
}

// TransactionCommandService records ledger entries. Recording an entry does
// not move any account balance.
type TransactionCommandService struct {
	writeRepo TransactionWriter
	publisher EventPublisher
	now       func() time.Time
}

func NewTransactionCommandService(writeRepo TransactionWriter, publisher EventPublisher) *TransactionCommandService {
	return &TransactionCommandService{
		writeRepo: writeRepo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *TransactionCommandService) CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
	if !cmd.AccountType.Valid() {
		return nil, apperr.Invalidf("Unknown account type %q", cmd.AccountType)
	}
	if cmd.Amount.IsZero() {
		return nil, apperr.Invalidf("Amount must not be zero")
	}
	if cmd.Category == "" {
		return nil, apperr.Invalidf("Category is required")
	}

	date := cmd.Date
	if date.IsZero() {
		date = s.now()
	}
	txn := &models.Transaction{
		ID:            utils.GenerateID("tan"),
		UserID:        cmd.UserID,
		AccountType:   cmd.AccountType,
		AccountNumber: cmd.AccountNumber,
		Amount:        cmd.Amount.Round(2),
		Category:      cmd.Category,
		Description:   cmd.Description,
		Date:          date.UTC(),
	}
	if err := s.writeRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.TransactionEventsStream, events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		AccountType:   string(txn.AccountType),
		AccountNumber: txn.AccountNumber,
		Amount:        txn.Amount,
		Category:      txn.Category,
	}); err != nil {
		lg := logger.FromContext(ctx)
		lg.Error().Err(err).Str("transactionId", txn.ID).Msg("failed to publish transaction.created event")
	}
	return txn, nil
}
