package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertUser records the operator, replacing a changed login.
func (r *UserRepository) UpsertUser(ctx context.Context, user domain.User) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, login)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET login = EXCLUDED.login
WHERE users.login IS DISTINCT FROM EXCLUDED.login
`, user.ID, user.Login)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
