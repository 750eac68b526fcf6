package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// User is the bidder identity as the auction core sees it
type User struct {
	ID    uuid.UUID
	Name  string
	IsGPB bool
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
