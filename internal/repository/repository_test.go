package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestBuildFindQueryUserOnly(t *testing.T) {
	query, args := buildFindQuery(TransactionFilter{UserID: "usr-1"})

	assert.Contains(t, query, "WHERE user_id = $1")
	assert.NotContains(t, query, "$2")
	assert.True(t, strings.HasSuffix(query, "ORDER BY occurred_at DESC, id DESC"))
	assert.Equal(t, []any{"usr-1"}, args)
}

func TestBuildFindQueryAllFilters(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)

	query, args := buildFindQuery(TransactionFilter{
		UserID:      "usr-1",
		AccountType: models.Checking,
		From:        &from,
		To:          &to,
		Categories:  []string{"groceries", "dining"},
		OutflowOnly: true,
	})

	assert.Contains(t, query, "account_type = $2")
	assert.Contains(t, query, "occurred_at >= $3")
	assert.Contains(t, query, "occurred_at <= $4")
	assert.Contains(t, query, "category = ANY($5)")
	assert.Contains(t, query, "amount < 0")
	assert.Len(t, args, 5)
	assert.Equal(t, models.Checking, args[1])
	assert.Equal(t, from, args[2])
	assert.Equal(t, to, args[3])
}

func TestBuildFindQuerySkipsUnsetBounds(t *testing.T) {
	to := time.Now()
	query, args := buildFindQuery(TransactionFilter{UserID: "usr-1", To: &to, Categories: []string{"rent"}})

	assert.NotContains(t, query, "occurred_at >=")
	assert.Contains(t, query, "occurred_at <= $2")
	assert.Contains(t, query, "category = ANY($3)")
	assert.Len(t, args, 3)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))

	deadlock := fmt.Errorf("failed to update balance: %w", &pq.Error{Code: "40P01"})
	assert.True(t, errors.Is(classify(deadlock), apperr.ErrConflict))

	serialization := &pq.Error{Code: "40001"}
	assert.Equal(t, apperr.Conflict, apperr.KindOf(classify(serialization)))

	unique := &pq.Error{Code: "23505"}
	assert.Equal(t, apperr.Internal, apperr.KindOf(classify(unique)))

	notFound := apperr.NotFoundf("Account not found")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(classify(notFound)))
}
