package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/middleware"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/eaglebank/assistant/internal/repository"
	"github.com/eaglebank/assistant/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeAccounts struct {
	accounts []models.AccountView
	err      error
}

func (f *fakeAccounts) ListByUserID(_ context.Context, _ string) ([]models.AccountView, error) {
	return f.accounts, f.err
}

func (f *fakeAccounts) FindByType(_ context.Context, _ string, typ models.AccountType, limit int) ([]models.AccountView, error) {
	var out []models.AccountView
	for _, a := range f.accounts {
		if a.Type == typ && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, f.err
}

func (f *fakeAccounts) FindByNumber(_ context.Context, _ string, typ models.AccountType, number string) (*models.AccountView, error) {
	for _, a := range f.accounts {
		if a.Type == typ && a.AccountNumber == number {
			a := a
			return &a, nil
		}
	}
	return nil, f.err
}

type fakeTransactions struct {
	txns       []models.Transaction
	lastFilter repository.TransactionFilter
}

func (f *fakeTransactions) Find(_ context.Context, filter repository.TransactionFilter) ([]models.Transaction, error) {
	f.lastFilter = filter
	return f.txns, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ---- account queries ----

func TestGetBalance(t *testing.T) {
	accounts := &fakeAccounts{accounts: []models.AccountView{
		{Type: models.Checking, Balance: dec("2370.00"), AccountNumber: "402918730983"},
		{Type: models.Checking, Balance: dec("10.00"), AccountNumber: "402918731111"},
		{Type: models.Savings, Balance: dec("500.00"), AccountNumber: "402918738118"},
	}}
	svc := NewAccountQueryService(accounts)
	ctx := context.Background()

	tests := []struct {
		name        string
		query       cqrs.GetBalanceQuery
		wantBalance string
		wantKind    apperr.Kind
		wantMsg     string
	}{
		{
			name:        "single account of type",
			query:       cqrs.GetBalanceQuery{UserID: "usr-1", AccountType: models.Savings},
			wantBalance: "500",
		},
		{
			name:        "exact number",
			query:       cqrs.GetBalanceQuery{UserID: "usr-1", AccountType: models.Checking, AccountNumber: "402918730983"},
			wantBalance: "2370",
		},
		{
			name:     "multiple accounts without number",
			query:    cqrs.GetBalanceQuery{UserID: "usr-1", AccountType: models.Checking},
			wantKind: apperr.InvalidRequest,
		},
		{
			name:     "no account of type",
			query:    cqrs.GetBalanceQuery{UserID: "usr-1", AccountType: models.Credit},
			wantKind: apperr.NotFound,
			wantMsg:  "No credit account found",
		},
		{
			name:     "unknown number",
			query:    cqrs.GetBalanceQuery{UserID: "usr-1", AccountType: models.Savings, AccountNumber: "402918739999"},
			wantKind: apperr.NotFound,
			wantMsg:  "No savings account found with number ending in 9999",
		},
		{
			name:     "invalid type",
			query:    cqrs.GetBalanceQuery{UserID: "usr-1", AccountType: "brokerage"},
			wantKind: apperr.InvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := svc.GetBalance(ctx, tt.query)
			if tt.wantBalance != "" {
				require.NoError(t, err)
				assert.True(t, view.Balance.Equal(dec(tt.wantBalance)))
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, apperr.Message(err))
			}
		})
	}
}

func TestListAccounts(t *testing.T) {
	ctx := context.Background()

	svc := NewAccountQueryService(&fakeAccounts{accounts: []models.AccountView{{Type: models.Checking, AccountNumber: "1"}}})
	views, err := svc.ListAccounts(ctx, cqrs.ListAccountsQuery{UserID: "usr-1"})
	require.NoError(t, err)
	assert.Len(t, views, 1)

	empty := NewAccountQueryService(&fakeAccounts{})
	_, err = empty.ListAccounts(ctx, cqrs.ListAccountsQuery{UserID: "usr-1"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, "No accounts found for user usr-1", apperr.Message(err))

	failing := NewAccountQueryService(&fakeAccounts{err: errors.New("db down")})
	_, err = failing.ListAccounts(ctx, cqrs.ListAccountsQuery{UserID: "usr-1"})
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
}

// ---- transaction queries ----

func TestSpendingByCategorySignsAndGrouping(t *testing.T) {
	repo := &fakeTransactions{txns: []models.Transaction{
		{Category: "groceries", Amount: dec("-50")},
		{Category: "groceries", Amount: dec("-30")},
		{Category: "salary", Amount: dec("2000")},
	}}
	svc := NewTransactionQueryService(repo)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	got, err := svc.SpendingByCategory(context.Background(), cqrs.SpendingByCategoryQuery{
		UserID: "usr-1", From: from, To: to,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "groceries", got[0].Category)
	assert.True(t, got[0].Total.Equal(dec("80")))

	assert.True(t, repo.lastFilter.OutflowOnly)
	assert.Equal(t, from, *repo.lastFilter.From)
	assert.Equal(t, to, *repo.lastFilter.To)
}

func TestAggregateSpendingOrdering(t *testing.T) {
	got := aggregateSpending([]models.Transaction{
		{Category: "dining", Amount: dec("-20")},
		{Category: "rent", Amount: dec("-1200")},
		{Category: "coffee", Amount: dec("-20")},
		{Category: "fuel", Amount: dec("-5.25")},
	}, decimal.Zero)

	require.Len(t, got, 4)
	assert.Equal(t, []string{"rent", "coffee", "dining", "fuel"}, []string{got[0].Category, got[1].Category, got[2].Category, got[3].Category})
	assert.True(t, got[3].Total.Equal(dec("5.25")))
}

func TestAggregateSpendingMinAmount(t *testing.T) {
	got := aggregateSpending([]models.Transaction{
		{Category: "coffee", Amount: dec("-4")},
		{Category: "coffee", Amount: dec("-4")},
		{Category: "rent", Amount: dec("-1200")},
	}, dec("10"))

	require.Len(t, got, 1)
	assert.Equal(t, "rent", got[0].Category)
}

func TestSpendingByCategoryValidation(t *testing.T) {
	svc := NewTransactionQueryService(&fakeTransactions{})
	now := time.Now()

	tests := []struct {
		name  string
		query cqrs.SpendingByCategoryQuery
	}{
		{"missing dates", cqrs.SpendingByCategoryQuery{UserID: "usr-1"}},
		{"reversed window", cqrs.SpendingByCategoryQuery{UserID: "usr-1", From: now, To: now.Add(-time.Hour)}},
		{"bad type", cqrs.SpendingByCategoryQuery{UserID: "usr-1", From: now, To: now, AccountType: "gold"}},
		{"negative min", cqrs.SpendingByCategoryQuery{UserID: "usr-1", From: now, To: now, MinAmount: dec("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SpendingByCategory(context.Background(), tt.query)
			assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
		})
	}
}

func TestFindAllForUserFilters(t *testing.T) {
	repo := &fakeTransactions{txns: []models.Transaction{{ID: "t1"}}}
	svc := NewTransactionQueryService(repo)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	txns, err := svc.FindAllForUser(context.Background(), cqrs.ListTransactionsQuery{
		UserID: "usr-1", AccountType: models.Checking, From: &from, Category: "dining",
	})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, []string{"dining"}, repo.lastFilter.Categories)
	assert.Equal(t, models.Checking, repo.lastFilter.AccountType)
	assert.Nil(t, repo.lastFilter.To)
	assert.False(t, repo.lastFilter.OutflowOnly)

	to := from.Add(-time.Hour)
	_, err = svc.FindAllForUser(context.Background(), cqrs.ListTransactionsQuery{UserID: "usr-1", From: &from, To: &to})
	assert.Equal(t, apperr.InvalidRequest, apperr.KindOf(err))
}

// ---- transcript queries ----

type fakeTurns struct {
	turns []models.ConversationTurn
}

func (f *fakeTurns) ListBySession(_ context.Context, sessionID, userID string) ([]models.ConversationTurn, error) {
	var out []models.ConversationTurn
	for _, t := range f.turns {
		if t.SessionID == sessionID && t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func TestGetTranscript(t *testing.T) {
	svc := NewTranscriptQueryService(&fakeTurns{turns: []models.ConversationTurn{
		{ID: 1, SessionID: "s-1", UserID: "usr-1", Role: models.RoleUser, Text: "hi"},
		{ID: 2, SessionID: "s-1", UserID: "usr-1", Role: models.RoleAssistant, Text: "hello"},
	}})

	turns, err := svc.GetTranscript(context.Background(), cqrs.GetTranscriptQuery{SessionID: "s-1", UserID: "usr-1"})
	require.NoError(t, err)
	assert.Len(t, turns, 2)

	_, err = svc.GetTranscript(context.Background(), cqrs.GetTranscriptQuery{SessionID: "s-1", UserID: "usr-2"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

// ---- auth ----

type fakeUsers struct {
	user *models.User
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if f.user != nil && f.user.Email == email {
		return f.user, nil
	}
	return nil, apperr.NotFoundf("user not found")
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	secret := []byte("secret")
	svc := NewAuthQueryService(&fakeUsers{user: &models.User{ID: "usr-1", Email: "alice@example.com", PasswordHash: hash}}, secret)

	token, err := svc.Login(context.Background(), cqrs.LoginCommand{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	claims := &middleware.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return secret, nil })
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "usr-1", claims.UserID)

	_, err = svc.Login(context.Background(), cqrs.LoginCommand{Email: "alice@example.com", Password: "nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), cqrs.LoginCommand{Email: "bob@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
