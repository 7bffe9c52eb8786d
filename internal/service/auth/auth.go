// internal/service/auth/auth.go
package auth

import (
	"context"

	"resonate-service/internal/pkg/jwt"
	xerrors "resonate-service/internal/pkg/errors"
	"resonate-service/internal/repository/postgres"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	accountRepo *postgres.AccountRepository
	jwtManager  *jwt.Manager
	logger      *zap.Logger
}

func NewAuthService(accountRepo *postgres.AccountRepository, jwtManager *jwt.Manager, logger *zap.Logger) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		jwtManager:  jwtManager,
		logger:      logger,
	}
}

// Login verifies credentials and issues a token bound to the calling device.
func (s *AuthService) Login(ctx context.Context, email, password, deviceID string) (string, string, error) {
	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return "", "", xerrors.ErrUnauthorized
		}
		return "", "", xerrors.Wrap(err, "login failed")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("rejected login attempt", zap.String("email", email))
		return "", "", xerrors.ErrUnauthorized
	}

	token, err := s.jwtManager.Issue(account.ID, deviceID)
	if err != nil {
		return "", "", xerrors.Wrap(err, "failed to issue token")
	}

	return token, account.ID, nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenStr string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verify(tokenStr)
	if err != nil {
		return nil, xerrors.ErrSessionExpired
	}
	return claims, nil
}
