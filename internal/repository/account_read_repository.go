package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eaglebank/assistant/internal/logger"
	"github.com/eaglebank/assistant/internal/models"
	sharedredis "github.com/eaglebank/assistant/internal/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	accountListKeyPrefix    = "accounts:user:"
	processedEventKeyPrefix = "processed:event:"
)

// AccountReadRepository handles all read operations for accounts.
// A user's account list is cached in Redis and rebuilt from PostgreSQL on a
// miss; single-account lookups always read PostgreSQL.
type AccountReadRepository struct {
	db    *sql.DB
	redis *goredis.Client
	cache *sharedredis.ViewCache[[]models.AccountView]
}

func NewAccountReadRepository(db *sql.DB, redisClient *goredis.Client, ttl time.Duration) *AccountReadRepository {
	return &AccountReadRepository{
		db:    db,
		redis: redisClient,
		cache: sharedredis.NewViewCache[[]models.AccountView](redisClient, ttl),
	}
}

// ListByUserID returns every account of userID, trying Redis first.
func (r *AccountReadRepository) ListByUserID(ctx context.Context, userID string) ([]models.AccountView, error) {
	if views, ok := r.cache.Get(ctx, accountListKeyPrefix+userID); ok {
		return *views, nil
	}

	views, err := r.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(views) > 0 {
		r.cache.Set(ctx, accountListKeyPrefix+userID, &views)
	}
	return views, nil
}

// FindByType returns at most limit accounts of the given type.
func (r *AccountReadRepository) FindByType(ctx context.Context, userID string, accountType models.AccountType, limit int) ([]models.AccountView, error) {
	query := `
		SELECT type, balance, account_number
		FROM accounts
		WHERE user_id = $1 AND type = $2
		ORDER BY account_number
		LIMIT $3
	`
	return r.queryViews(ctx, query, userID, accountType, limit)
}

// FindByNumber returns the exact account, or nil if there is none.
func (r *AccountReadRepository) FindByNumber(ctx context.Context, userID string, accountType models.AccountType, accountNumber string) (*models.AccountView, error) {
	query := `
		SELECT type, balance, account_number
		FROM accounts
		WHERE user_id = $1 AND type = $2 AND account_number = $3
	`
	var view models.AccountView
	err := r.db.QueryRowContext(ctx, query, userID, accountType, accountNumber).Scan(
		&view.Type, &view.Balance, &view.AccountNumber,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &view, nil
}

// InvalidateUser drops the cached account list of userID.
func (r *AccountReadRepository) InvalidateUser(ctx context.Context, userID string) {
	r.cache.Delete(ctx, accountListKeyPrefix+userID)
}

// WarmUser reloads the cached account list of userID from PostgreSQL.
func (r *AccountReadRepository) WarmUser(ctx context.Context, userID string) error {
	views, err := r.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		r.cache.Delete(ctx, accountListKeyPrefix+userID)
		return nil
	}
	r.cache.Set(ctx, accountListKeyPrefix+userID, &views)
	return nil
}

// IsEventProcessed reports whether eventID was already applied. Guards
// against duplicate delivery under at-least-once Redis Streams semantics.
func (r *AccountReadRepository) IsEventProcessed(ctx context.Context, eventID string) bool {
	val, err := r.redis.Exists(ctx, processedEventKeyPrefix+eventID).Result()
	return err == nil && val > 0
}

// MarkEventProcessed records eventID for 72 hours, long enough to cover any
// realistic redelivery window from a consumer group.
func (r *AccountReadRepository) MarkEventProcessed(ctx context.Context, eventID string) {
	if err := r.redis.Set(ctx, processedEventKeyPrefix+eventID, "1", 72*time.Hour).Err(); err != nil {
		lg := logger.FromContext(ctx)
		lg.Warn().Err(err).Str("eventId", eventID).Msg("failed to mark event processed")
	}
}

func (r *AccountReadRepository) loadUser(ctx context.Context, userID string) ([]models.AccountView, error) {
	query := `
		SELECT type, balance, account_number
		FROM accounts
		WHERE user_id = $1
		ORDER BY CASE type WHEN 'checking' THEN 0 WHEN 'savings' THEN 1 ELSE 2 END, account_number
	`
	return r.queryViews(ctx, query, userID)
}

func (r *AccountReadRepository) queryViews(ctx context.Context, query string, args ...any) ([]models.AccountView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	views := []models.AccountView{}
	for rows.Next() {
		var view models.AccountView
		if err := rows.Scan(&view.Type, &view.Balance, &view.AccountNumber); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return views, nil
}
