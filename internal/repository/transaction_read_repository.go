package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/eaglebank/assistant/internal/models"
	"github.com/lib/pq"
)

// TransactionFilter narrows a ledger scan. Zero values disable a filter;
// From and To are inclusive.
type TransactionFilter struct {
	UserID      string
	AccountType models.AccountType
	From        *time.Time
	To          *time.Time
	Categories  []string
	OutflowOnly bool
}

// TransactionReadRepository handles all read operations for transactions.
type TransactionReadRepository struct {
	db *sql.DB
}

func NewTransactionReadRepository(db *sql.DB) *TransactionReadRepository {
	return &TransactionReadRepository{db: db}
}

// Find returns matching transactions, newest first.
func (r *TransactionReadRepository) Find(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	query, args := buildFindQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		var (
			t             models.Transaction
			accountNumber sql.NullString
			description   sql.NullString
		)
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.AccountType, &accountNumber,
			&t.Amount, &t.Category, &description, &t.Date,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.AccountNumber = accountNumber.String
		t.Description = description.String
		t.Date = t.Date.UTC()
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

func buildFindQuery(f TransactionFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, user_id, account_type, account_number, amount, category, description, occurred_at
		FROM transactions
		WHERE user_id = $1`)
	args := []any{f.UserID}

	add := func(clause string, arg any) {
		args = append(args, arg)
		fmt.Fprintf(&b, " AND "+clause, len(args))
	}
	if f.AccountType != "" {
		add("account_type = $%d", f.AccountType)
	}
	if f.From != nil {
		add("occurred_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("occurred_at <= $%d", *f.To)
	}
	if len(f.Categories) > 0 {
		add("category = ANY($%d)", pq.Array(f.Categories))
	}
	if f.OutflowOnly {
		b.WriteString(" AND amount < 0")
	}
	b.WriteString(" ORDER BY occurred_at DESC, id DESC")
	return b.String(), args
}
