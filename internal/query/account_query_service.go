package query

import (
	"context"
	"fmt"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/models"
)

// AccountReader is the read model consulted by AccountQueryService.
type AccountReader interface {
	ListByUserID(ctx context.Context, userID string) ([]models.AccountView, error)
	FindByType(ctx context.Context, userID string, accountType models.AccountType, limit int) ([]models.AccountView, error)
	FindByNumber(ctx context.Context, userID string, accountType models.AccountType, accountNumber string) (*models.AccountView, error)
}

type AccountQueryService struct {
	readRepo AccountReader
}

func NewAccountQueryService(readRepo AccountReader) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo}
}

// GetBalance resolves exactly one account of the requested type. Without an
// account number the user must hold a single account of that type.
func (s *AccountQueryService) GetBalance(ctx context.Context, q cqrs.GetBalanceQuery) (*models.BalanceView, error) {
	if !q.AccountType.Valid() {
		return nil, apperr.Invalidf("Unknown account type %q", q.AccountType)
	}

	if q.AccountNumber != "" {
		view, err := s.readRepo.FindByNumber(ctx, q.UserID, q.AccountType, q.AccountNumber)
		if err != nil {
			return nil, fmt.Errorf("get balance: %w", err)
		}
		if view == nil {
			return nil, apperr.NotFoundf("No %s account found with number ending in %s", q.AccountType, last4(q.AccountNumber))
		}
		return &models.BalanceView{AccountType: view.Type, AccountNumber: view.AccountNumber, Balance: view.Balance}, nil
	}

	views, err := s.readRepo.FindByType(ctx, q.UserID, q.AccountType, 2)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	switch len(views) {
	case 0:
		return nil, apperr.NotFoundf("No %s account found", q.AccountType)
	case 1:
		return &models.BalanceView{AccountType: views[0].Type, AccountNumber: views[0].AccountNumber, Balance: views[0].Balance}, nil
	default:
		return nil, apperr.Invalidf("You have multiple %s accounts; please specify the account number", q.AccountType)
	}
}

// ListAccounts returns every account of the user. A user without accounts is
// reported as NotFound.
func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	views, err := s.readRepo.ListByUserID(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(views) == 0 {
		return nil, apperr.NotFoundf("No accounts found for user %s", q.UserID)
	}
	return views, nil
}

func last4(accountNumber string) string {
	if len(accountNumber) <= 4 {
		return accountNumber
	}
	return accountNumber[len(accountNumber)-4:]
}
