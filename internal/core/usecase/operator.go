package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
)

const maxLoginRunes = 255

type OperatorUseCase struct {
	users ports.UserStore
}

func NewOperatorUseCase(users ports.UserStore) *OperatorUseCase {
	return &OperatorUseCase{users: users}
}

// RememberOperator stores the login sent with a write request so analytics
// can show it instead of the raw user id. Requests without a login keep the
// stored one.
func (uc *OperatorUseCase) RememberOperator(ctx context.Context, req domain.RequestContext) error {
	if err := requireUser(req, "remember operator"); err != nil {
		return err
	}
	login := strings.TrimSpace(req.Login)
	if login == "" {
		return nil
	}
	if utf8.RuneCountInString(login) > maxLoginRunes {
		return domain.WrapError(domain.ErrInvalidInput, "remember operator", fmt.Errorf("login longer than %d characters", maxLoginRunes))
	}
	if err := uc.users.UpsertUser(ctx, domain.User{ID: req.UserID, Login: login}); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
