package userctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docochat/src/core/user"
)

type User struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	Username         string    `gorm:"not null;uniqueIndex" json:"username"`
	CreditsAvailable int       `gorm:"not null;default:0" json:"credits_available"`
	CreditsUsed      int       `gorm:"not null;default:0" json:"credits_used"`
	FilesAvailable   int       `gorm:"not null;default:0" json:"files_available"`
	FilesUsed        int       `gorm:"not null;default:0" json:"files_used"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserService is the gorm-backed user repository.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Create(ctx context.Context, u *user.User) error {
	record := &User{
		ID:               u.ID,
		Username:         u.Username,
		CreditsAvailable: u.CreditsAvailable,
		CreditsUsed:      u.CreditsUsed,
		FilesAvailable:   u.FilesAvailable,
		FilesUsed:        u.FilesUsed,
	}

	result := s.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		return fmt.Errorf("failed to create user: %v", result.Error)
	}

	u.CreatedAt = record.CreatedAt
	u.UpdatedAt = record.UpdatedAt
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*user.User, error) {
	var record User
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %v", result.Error)
	}
	return toDomain(&record), nil
}

// ConsumeFileQuota moves one file from available to used in a single
// conditional update, so concurrent uploads cannot overdraw the quota.
func (s *UserService) ConsumeFileQuota(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND files_available > 0", id).
		Updates(map[string]interface{}{
			"files_available": gorm.Expr("files_available - 1"),
			"files_used":      gorm.Expr("files_used + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to consume file quota: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrFileQuotaExhausted
	}
	return nil
}

func (s *UserService) AddCreditsUsed(ctx context.Context, id string, n int) error {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"credits_available": gorm.Expr("credits_available - ?", n),
			"credits_used":      gorm.Expr("credits_used + ?", n),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to add credits used: %v", result.Error)
	}
	return nil
}

func toDomain(r *User) *user.User {
	return &user.User{
		ID:               r.ID,
		Username:         r.Username,
		CreditsAvailable: r.CreditsAvailable,
		CreditsUsed:      r.CreditsUsed,
		FilesAvailable:   r.FilesAvailable,
		FilesUsed:        r.FilesUsed,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
