package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// UserRepository stores the local mirror of authenticated identities.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail matches case-insensitively and returns nil, nil when absent.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Ensure creates the user or refreshes its email and name.
	Ensure(ctx context.Context, user *model.User) error
}
