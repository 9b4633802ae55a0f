package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eaglebank/assistant/internal/models"
)

// TransactionWriteRepository appends ledger entries. Entries are never
// updated or deleted.
type TransactionWriteRepository struct {
	db *sql.DB
}

func NewTransactionWriteRepository(db *sql.DB) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db}
}

func (r *TransactionWriteRepository) Create(ctx context.Context, txn *models.Transaction) error {
	return insertTransaction(ctx, r.db, txn)
}

func insertTransaction(ctx context.Context, q dbtx, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, account_type, account_number, amount, category, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.ExecContext(ctx, query,
		txn.ID, txn.UserID, txn.AccountType, nullString(txn.AccountNumber),
		txn.Amount, txn.Category, nullString(txn.Description), txn.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}
