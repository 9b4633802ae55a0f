package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/assistant/internal/apperr"
	"github.com/eaglebank/assistant/internal/cqrs"
	"github.com/eaglebank/assistant/internal/middleware"
	"github.com/eaglebank/assistant/internal/models"
	"github.com/eaglebank/assistant/internal/utils"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenTTL = 24 * time.Hour

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthQueryService issues the bearer tokens accepted by
// middleware.AuthMiddleware. It has no command counterpart because login
// does not mutate application state.
type AuthQueryService struct {
	users  UserReader
	secret []byte
	now    func() time.Time
}

func NewAuthQueryService(users UserReader, secret []byte) *AuthQueryService {
	return &AuthQueryService{users: users, secret: secret, now: time.Now}
}

func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (string, error) {
	user, err := s.users.GetByEmail(ctx, cmd.Email)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("login: %w", err)
	}
	if !utils.CheckPassword(cmd.Password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return s.generateToken(user.ID, user.Email)
}

func (s *AuthQueryService) generateToken(userID, email string) (string, error) {
	now := s.now()
	claims := middleware.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}
