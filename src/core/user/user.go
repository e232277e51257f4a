package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrFileQuotaExhausted = errors.New("file quota exhausted")
	ErrInvalidUsername    = errors.New("username is required")
)

// Default allowances granted to a new user.
const (
	DefaultFilesAvailable   = 1
	DefaultCreditsAvailable = 100
)

// User is one tenant of the system. All chunks and chat turns are
// scoped by its ID.
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	CreditsAvailable int       `json:"credits_available"`
	CreditsUsed      int       `json:"credits_used"`
	FilesAvailable   int       `json:"files_available"`
	FilesUsed        int       `json:"files_used"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Repository persists user records.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	// ConsumeFileQuota atomically moves one file from available to
	// used; it returns ErrFileQuotaExhausted when none remain.
	ConsumeFileQuota(ctx context.Context, id string) error
	// AddCreditsUsed bumps the usage counter. It is bookkeeping only,
	// nothing enforces a ceiling.
	AddCreditsUsed(ctx context.Context, id string, n int) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new user with the default allowances.
func (s *Service) Create(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidUsername
	}

	u := &User{
		ID:               uuid.New().String(),
		Username:         username,
		CreditsAvailable: DefaultCreditsAvailable,
		FilesAvailable:   DefaultFilesAvailable,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
