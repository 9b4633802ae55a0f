package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/eaglebank/assistant/internal/repository"
	"github.com/shopspring/decimal"
)

type TransactionReader interface {
	Find(ctx context.Context, f repository.TransactionFilter) ([]models.Transaction, error)
}

type TransactionQueryService struct {
	readRepo TransactionReader
}

func NewTransactionQueryService(readRepo TransactionReader) *TransactionQueryService {
	return &TransactionQueryService{readRepo: readRepo}
}

// FindAllForUser lists the user's transactions newest first. All filters are
// optional and combine with AND; date bounds are inclusive.
func (s *TransactionQueryService) FindAllForUser(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	if q.AccountType != "" && !q.AccountType.Valid() {
		return nil, apperr.Invalidf("Unknown account type %q", q.AccountType)
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, apperr.Invalidf("from must not be after to")
	}

	filter := repository.TransactionFilter{
		UserID:      q.UserID,
		AccountType: q.AccountType,
		From:        q.From,
		To:          q.To,
	}
	if q.Category != "" {
		filter.Categories = []string{q.Category}
	}

	txns, err := s.readRepo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	return txns, nil
}

// SpendingByCategory sums outflows per category inside [From, To] and reports
// each total as a positive amount, largest first.
func (s *TransactionQueryService) SpendingByCategory(ctx context.Context, q cqrs.SpendingByCategoryQuery) ([]models.CategorySpend, error) {
	if q.From.IsZero() || q.To.IsZero() {
		return nil, apperr.Invalidf("from and to are required")
	}
	if q.From.After(q.To) {
		return nil, apperr.Invalidf("from must not be after to")
	}
	if q.AccountType != "" && !q.AccountType.Valid() {
		return nil, apperr.Invalidf("Unknown account type %q", q.AccountType)
	}
	if q.MinAmount.IsNegative() {
		return nil, apperr.Invalidf("min must not be negative")
	}

	from, to := q.From, q.To
	txns, err := s.readRepo.Find(ctx, repository.TransactionFilter{
		UserID:      q.UserID,
		AccountType: q.AccountType,
		From:        &from,
		To:          &to,
		Categories:  q.Categories,
		OutflowOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("spending by category: %w", err)
	}
	return aggregateSpending(txns, q.MinAmount), nil
}

// aggregateSpending groups outflows by category. Inflows are ignored even if
// present. Groups whose total is below minAmount are dropped.
func aggregateSpending(txns []models.Transaction, minAmount decimal.Decimal) []models.CategorySpend {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if !t.Amount.IsNegative() {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(t.Amount)
	}

	out := make([]models.CategorySpend, 0, len(sums))
	for category, sum := range sums {
		total := sum.Abs()
		if total.LessThan(minAmount) {
			continue
		}
		out = append(out, models.CategorySpend{Category: category, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
