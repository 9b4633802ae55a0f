package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/logger"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// LedgerTx is the unit of work a transfer runs inside. Every call shares one
// database transaction.
type LedgerTx interface {
	// LockAccounts loads and row-locks the named accounts of userID, keyed by
	// account number. Missing accounts are simply absent from the map.
	LockAccounts(ctx context.Context, userID string, accountNumbers ...string) (map[string]*models.Account, error)
	UpdateBalance(ctx context.Context, userID, accountNumber string, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, txn *models.Transaction) error
}

// AccountWriteRepository handles all state-mutating operations for accounts.
// It operates exclusively against the PostgreSQL write store (source of truth).
type AccountWriteRepository struct {
	db *sql.DB
}

func NewAccountWriteRepository(db *sql.DB) *AccountWriteRepository {
	return &AccountWriteRepository{db: db}
}

func (r *AccountWriteRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (user_id, account_number, type, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.UserID, account.AccountNumber, account.Type, account.Balance,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// InTx runs fn inside a single database transaction. The transaction commits
// only if fn returns nil; lock contention surfaces as an apperr.Conflict.
func (r *AccountWriteRepository) InTx(ctx context.Context, fn func(LedgerTx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				lg := logger.FromContext(ctx)
				lg.Warn().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	if err = fn(&ledgerTx{tx: tx}); err != nil {
		return classify(err)
	}
	if err = tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

type ledgerTx struct {
	tx *sql.Tx
}

func (l *ledgerTx) LockAccounts(ctx context.Context, userID string, accountNumbers ...string) (map[string]*models.Account, error) {
	// A stable lock order keeps two opposing transfers from deadlocking.
	numbers := append([]string(nil), accountNumbers...)
	sort.Strings(numbers)

	query := `
		SELECT user_id, account_number, type, balance, created_at, updated_at
		FROM accounts
		WHERE user_id = $1 AND account_number = ANY($2)
		ORDER BY account_number
		FOR UPDATE
	`
	rows, err := l.tx.QueryContext(ctx, query, userID, pq.Array(numbers))
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer rows.Close()

	locked := make(map[string]*models.Account, len(numbers))
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.UserID, &a.AccountNumber, &a.Type, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		locked[a.AccountNumber] = &a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	return locked, nil
}

func (l *ledgerTx) UpdateBalance(ctx context.Context, userID, accountNumber string, balance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $3, updated_at = $4
		WHERE user_id = $1 AND account_number = $2
	`
	result, err := l.tx.ExecContext(ctx, query, userID, accountNumber, balance, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFoundf("Account not found")
	}
	return nil
}

func (l *ledgerTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	return insertTransaction(ctx, l.tx, txn)
}
