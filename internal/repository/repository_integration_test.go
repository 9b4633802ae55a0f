//go:build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/models"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("assistant"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "schema is idempotent")
	return db
}

func seedAccount(t *testing.T, repo *AccountWriteRepository, userID, number string, typ models.AccountType, balance string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(context.Background(), &models.Account{
		UserID: userID, AccountNumber: number, Type: typ,
		Balance: decimal.RequireFromString(balance), CreatedAt: now, UpdatedAt: now,
	}))
}

func TestIntegration_LedgerTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	write := NewAccountWriteRepository(db)
	mr := miniredis.RunT(t)
	read := NewAccountReadRepository(db, goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)

	seedAccount(t, write, "usr-1", "100000000001", models.Checking, "100.00")
	seedAccount(t, write, "usr-1", "100000000002", models.Savings, "10.00")

	t.Run("commit moves both legs", func(t *testing.T) {
		err := write.InTx(ctx, func(tx LedgerTx) error {
			locked, err := tx.LockAccounts(ctx, "usr-1", "100000000002", "100000000001")
			require.NoError(t, err)
			require.Len(t, locked, 2)
			amount := decimal.RequireFromString("25.50")
			if err := tx.UpdateBalance(ctx, "usr-1", "100000000001", locked["100000000001"].Balance.Sub(amount)); err != nil {
				return err
			}
			return tx.UpdateBalance(ctx, "usr-1", "100000000002", locked["100000000002"].Balance.Add(amount))
		})
		require.NoError(t, err)

		views, err := read.ListByUserID(ctx, "usr-1")
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.True(t, views[0].Balance.Equal(decimal.RequireFromString("74.50")))
		assert.True(t, views[1].Balance.Equal(decimal.RequireFromString("35.50")))
	})

	t.Run("error after first leg rolls back", func(t *testing.T) {
		boom := errors.New("injected")
		err := write.InTx(ctx, func(tx LedgerTx) error {
			if err := tx.UpdateBalance(ctx, "usr-1", "100000000001", decimal.Zero); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		acct, err := read.FindByNumber(ctx, "usr-1", models.Checking, "100000000001")
		require.NoError(t, err)
		assert.True(t, acct.Balance.Equal(decimal.RequireFromString("74.50")))
	})

	t.Run("other user's account is invisible", func(t *testing.T) {
		err := write.InTx(ctx, func(tx LedgerTx) error {
			locked, err := tx.LockAccounts(ctx, "usr-2", "100000000001")
			require.NoError(t, err)
			assert.Empty(t, locked)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("concurrent transfers preserve the total", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			from, to := "100000000001", "100000000002"
			if i%2 == 1 {
				from, to = to, from
			}
			go func() {
				defer wg.Done()
				_ = write.InTx(ctx, func(tx LedgerTx) error {
					locked, err := tx.LockAccounts(ctx, "usr-1", from, to)
					if err != nil {
						return err
					}
					one := decimal.NewFromInt(1)
					if err := tx.UpdateBalance(ctx, "usr-1", from, locked[from].Balance.Sub(one)); err != nil {
						return err
					}
					return tx.UpdateBalance(ctx, "usr-1", to, locked[to].Balance.Add(one))
				})
			}()
		}
		wg.Wait()

		require.NoError(t, read.WarmUser(ctx, "usr-1"))
		views, err := read.ListByUserID(ctx, "usr-1")
		require.NoError(t, err)
		total := decimal.Zero
		for _, v := range views {
			total = total.Add(v.Balance)
		}
		assert.True(t, total.Equal(decimal.RequireFromString("110.00")), total.String())
	})
}

func TestIntegration_AccountLookups(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	write := NewAccountWriteRepository(db)
	mr := miniredis.RunT(t)
	read := NewAccountReadRepository(db, goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)

	seedAccount(t, write, "usr-1", "100000000001", models.Checking, "1.00")
	seedAccount(t, write, "usr-1", "100000000002", models.Checking, "2.00")
	seedAccount(t, write, "usr-1", "100000000003", models.Savings, "3.00")

	views, err := read.FindByType(ctx, "usr-1", models.Checking, 2)
	require.NoError(t, err)
	assert.Len(t, views, 2)

	missing, err := read.FindByNumber(ctx, "usr-1", models.Savings, "100000000001")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = read.ListByUserID(ctx, "usr-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(accountListKeyPrefix+"usr-1"))

	read.InvalidateUser(ctx, "usr-1")
	assert.False(t, mr.Exists(accountListKeyPrefix+"usr-1"))

	none, err := read.ListByUserID(ctx, "usr-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIntegration_TransactionFind(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	write := NewTransactionWriteRepository(db)
	read := NewTransactionReadRepository(db)

	day := func(d int) time.Time { return time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC) }
	for _, txn := range []models.Transaction{
		{ID: "t1", UserID: "usr-1", AccountType: models.Checking, Amount: decimal.NewFromInt(-50), Category: "groceries", Date: day(1)},
		{ID: "t2", UserID: "usr-1", AccountType: models.Checking, Amount: decimal.NewFromInt(-30), Category: "groceries", Date: day(2)},
		{ID: "t3", UserID: "usr-1", AccountType: models.Checking, Amount: decimal.NewFromInt(2000), Category: "salary", Date: day(3)},
		{ID: "t4", UserID: "usr-1", AccountType: models.Credit, Amount: decimal.NewFromInt(-12), Category: "coffee", Date: day(4), Description: "latte"},
		{ID: "t5", UserID: "usr-2", AccountType: models.Checking, Amount: decimal.NewFromInt(-99), Category: "groceries", Date: day(2)},
	} {
		txn := txn
		require.NoError(t, write.Create(ctx, &txn))
	}

	all, err := read.Find(ctx, TransactionFilter{UserID: "usr-1"})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "t4", all[0].ID)
	assert.Equal(t, "latte", all[0].Description)

	from, to := day(2), day(3)
	window, err := read.Find(ctx, TransactionFilter{UserID: "usr-1", From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	outflows, err := read.Find(ctx, TransactionFilter{UserID: "usr-1", AccountType: models.Checking, OutflowOnly: true, Categories: []string{"groceries"}})
	require.NoError(t, err)
	assert.Len(t, outflows, 2)
}

func TestIntegration_Turns(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewTurnRepository(db)

	for _, turn := range []*models.ConversationTurn{
		{SessionID: "s-1", UserID: "usr-1", Role: models.RoleUser, Text: "balance?"},
		{SessionID: "s-1", UserID: "usr-1", Role: models.RoleFunction, Name: "get_balance", Text: `{"accountType":"checking"}`},
		{SessionID: "s-1", UserID: "usr-1", Role: models.RoleAssistant, Text: "You have $10.00."},
	} {
		require.NoError(t, repo.Append(ctx, turn))
		assert.NotZero(t, turn.ID)
	}

	turns, err := repo.ListBySession(ctx, "s-1", "usr-1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "get_balance", turns[1].Name)
	assert.Less(t, turns[0].ID, turns[2].ID)

	others, err := repo.ListBySession(ctx, "s-1", "usr-2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestIntegration_Users(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	require.NoError(t, repo.Create(ctx, &models.User{
		ID: "usr-1", Name: "Alice", Email: "alice@example.com", PasswordHash: "hash", CreatedAt: time.Now().UTC(),
	}))

	user, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", user.ID)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
