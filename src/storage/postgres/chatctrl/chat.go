package chatctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"docochat/src/core/chat"
)

type ChatTurn struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index;type:uuid" json:"user_id"`
	Role      string    `gorm:"not null" json:"role"`
	Content   string    `gorm:"not null;type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatTurn) TableName() string {
	return "chat_turns"
}

// ChatService is the gorm-backed conversation log.
type ChatService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewChatService(db *gorm.DB) (*ChatService, error) {
	node, err := snowflake.NewNode(3) // Node number 3 for chat turns
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &ChatService{
		db:        db,
		snowflake: node,
	}, nil
}

// AppendExchange writes the user message and the assistant reply in one
// transaction. Snowflake IDs keep the pair ordered even when the rows
// share a creation timestamp.
func (s *ChatService) AppendExchange(ctx context.Context, userID, userMessage, reply string) error {
	turns := []ChatTurn{
		{
			ID:      s.snowflake.Generate().Int64(),
			UserID:  userID,
			Role:    chat.RoleUser,
			Content: userMessage,
		},
		{
			ID:      s.snowflake.Generate().Int64(),
			UserID:  userID,
			Role:    chat.RoleAssistant,
			Content: reply,
		},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&turns).Error
	})
	if err != nil {
		return fmt.Errorf("failed to append exchange: %v", err)
	}
	return nil
}

func (s *ChatService) ListByUser(ctx context.Context, userID string) ([]chat.Turn, error) {
	var records []ChatTurn
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list chat turns: %v", result.Error)
	}

	turns := make([]chat.Turn, len(records))
	for i, r := range records {
		turns[i] = chat.Turn{
			ID:        r.ID,
			UserID:    r.UserID,
			Role:      r.Role,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		}
	}
	return turns, nil
}
