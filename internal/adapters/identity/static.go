package identity

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/ports"
	"context"
	"fmt"
)

// Static always reports the same user. It serves single-user deployments
// where the account is fixed by configuration.
type Static struct {
	user *domain.User
}

func NewStatic(user *domain.User) *Static {
	return &Static{user: user}
}

// Ensure resolves email through the user store, creating the user on
// first start, and returns a Static identity for it.
func Ensure(ctx context.Context, users ports.UserStore, email string) (*Static, error) {
	u, err := users.EnsureUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	return NewStatic(u), nil
}

func (s *Static) Current(context.Context) (*domain.User, error) {
	if s == nil || s.user == nil {
		return nil, nil
	}
	u := *s.user
	return &u, nil
}
