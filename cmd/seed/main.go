package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/eaglebank/assistant/internal/config"
	"github.com/eaglebank/assistant/internal/logger"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/eaglebank/assistant/internal/repository"
	"github.com/eaglebank/assistant/internal/utils"
)

const (
	transactionsPerUser = 200
	historyDays         = 60
	maxAccountsPerType  = 3
)

var categories = []string{
	"groceries", "utilities", "dining", "entertainment", "rent",
	"salary", "fuel", "shopping", "subscription", "coffee",
}

type seedUser struct {
	name     string
	email    string
	password string
}

var seedUsers = []seedUser{
	{name: "Alice", email: "alice@example.com", password: "password123"},
	{name: "Bob", email: "bob@example.com", password: "letmein456"},
	{name: "Carol", email: "carol@example.com", password: "s3cur3p4ss!"},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{}).Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	if err := wipe(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to wipe existing data")
	}
	log.Info().Msg("dropped existing data")

	s := &seeder{
		users:        repository.NewUserRepository(db),
		accounts:     repository.NewAccountWriteRepository(db),
		transactions: repository.NewTransactionWriteRepository(db),
		now:          time.Now().UTC(),
		log:          log,
	}
	for _, u := range seedUsers {
		if err := s.seedUser(ctx, u); err != nil {
			log.Fatal().Err(err).Str("email", u.email).Msg("seeding failed")
		}
	}
	log.Info().Msg("seeding complete")
}

func wipe(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `TRUNCATE conversation_turns, transactions, accounts, users`)
	return err
}

type seeder struct {
	users        *repository.UserRepository
	accounts     *repository.AccountWriteRepository
	transactions *repository.TransactionWriteRepository
	now          time.Time
	log          zerolog.Logger
}

func (s *seeder) seedUser(ctx context.Context, u seedUser) error {
	hash, err := utils.HashPassword(u.password)
	if err != nil {
		return err
	}
	user := &models.User{
		ID:           utils.GenerateID("usr"),
		Name:         u.name,
		Email:        u.email,
		PasswordHash: hash,
		CreatedAt:    s.now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	nChecking := randBetween(1, maxAccountsPerType)
	nSavings := randBetween(1, maxAccountsPerType)

	var accounts []*models.Account
	for range nChecking {
		accounts = append(accounts, s.newAccount(user.ID, models.Checking, randBetween(500, 5000)))
	}
	for range nSavings {
		accounts = append(accounts, s.newAccount(user.ID, models.Savings, randBetween(1000, 20000)))
	}
	accounts = append(accounts, s.newAccount(user.ID, models.Credit, randBetween(-2000, -100)))

	for _, a := range accounts {
		if err := s.accounts.Create(ctx, a); err != nil {
			return err
		}
	}
	s.log.Info().
		Str("email", u.email).
		Int("checking", nChecking).
		Int("savings", nSavings).
		Msg("created accounts")

	checking := accounts[0]
	for range transactionsPerUser {
		txn := s.randomTransaction(user.ID, accounts, checking)
		if err := s.transactions.Create(ctx, txn); err != nil {
			return err
		}
	}
	s.log.Info().Str("email", u.email).Int("count", transactionsPerUser).Msg("created transactions")
	return nil
}

func (s *seeder) newAccount(userID string, t models.AccountType, balance int) *models.Account {
	return &models.Account{
		AccountNumber: utils.GenerateAccountNumber(),
		UserID:        userID,
		Type:          t,
		Balance:       decimal.NewFromInt(int64(balance)),
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	}
}

// randomTransaction draws one historical entry. Salary always lands on the
// first checking account as an inflow; everything else is an outflow.
func (s *seeder) randomTransaction(userID string, accounts []*models.Account, checking *models.Account) *models.Transaction {
	category := categories[rand.IntN(len(categories))]
	date := s.now.Add(-time.Duration(randBetween(0, historyDays-1)) * 24 * time.Hour)

	acct := accounts[rand.IntN(len(accounts))]
	var amount int
	if category == "salary" {
		acct = checking
		amount = randBetween(2000, 5000)
	} else {
		limit := 200
		if acct.Type == models.Credit {
			limit = 500
		}
		amount = -randBetween(5, limit)
	}

	return &models.Transaction{
		ID:            utils.GenerateID("tan"),
		UserID:        userID,
		AccountType:   acct.Type,
		AccountNumber: acct.AccountNumber,
		Amount:        decimal.NewFromInt(int64(amount)),
		Category:      category,
		Description:   fmt.Sprintf("Seeded %s", category),
		Date:          date,
	}
}

func randBetween(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}
