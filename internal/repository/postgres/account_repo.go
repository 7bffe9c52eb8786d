// internal/repository/postgres/account_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	xerrors "resonate-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByEmail retrieves an account for login.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`

	var acc Account
	err := r.db.QueryRow(ctx, query, email).Scan(
		&acc.ID, &acc.Email, &acc.PasswordHash, &acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return &acc, nil
}
