// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqlite and internal/repository/gormstore
// implement them.
package repository

import (
	"context"

	"github.com/sakif/sendlinks/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores accounts.
//
// CreateUser returns an error matching apperror.ErrUserExists when the
// email is already taken. Lookups return apperror.ErrNotFound.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
}

// SocialRepository stores profile links.
//
// UpsertSocials writes every link in one transaction: a link whose
// (user, category) row exists is updated in place, otherwise inserted.
// Either all links are stored or none are.
type SocialRepository interface {
	ListSocials(ctx context.Context, userID int64) ([]model.Social, error)
	UpsertSocials(ctx context.Context, userID int64, links []model.Social) error
}

// Store is a complete storage backend.
type Store interface {
	UserRepository
	SocialRepository

	Ping(ctx context.Context) error
	// Reset drops and recreates all tables.
	Reset(ctx context.Context) error
	Close() error
}
