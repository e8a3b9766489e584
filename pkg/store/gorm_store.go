package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"minichat/pkg/domain"
)

const migrateLockID int64 = 52814412

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ConversationModel{}, &MessageModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Migrations from concurrently starting replicas serialize on an advisory lock.
func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateConversation inserts a new conversation row.
func (s *GormStore) CreateConversation(ctx context.Context, userID, title string) (domain.Conversation, error) {
	model := ConversationModel{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		LastUpdated: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Conversation{}, err
	}
	return conversationFromModel(model), nil
}

// ListConversationsByUser returns the user's conversations with nested
// messages, most recently updated first.
func (s *GormStore) ListConversationsByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	var models []ConversationModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_updated DESC").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Find(&models).Error; err != nil {
		return nil, err
	}
	items := make([]domain.Conversation, 0, len(models))
	for _, model := range models {
		items = append(items, conversationFromModel(model))
	}
	return items, nil
}

// UpdateConversationTitle overwrites the title and refreshes last_updated.
func (s *GormStore) UpdateConversationTitle(ctx context.Context, conversationID, title string) (domain.Conversation, error) {
	res := s.db.WithContext(ctx).Model(&ConversationModel{}).
		Where("id = ?", conversationID).
		Updates(map[string]any{
			"title":        title,
			"last_updated": time.Now().UTC(),
		})
	if res.Error != nil {
		return domain.Conversation{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Conversation{}, ErrNotFound
	}
	var model ConversationModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, ErrNotFound
		}
		return domain.Conversation{}, err
	}
	return conversationFromModel(model), nil
}

// InsertMessage appends one message row. A nonexistent conversation is
// rejected by the foreign key constraint.
func (s *GormStore) InsertMessage(ctx context.Context, conversationID, userID, content string, role domain.Role) (domain.Message, error) {
	model := MessageModel{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           string(role),
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Message{}, err
	}
	return messageFromModel(model), nil
}

func conversationFromModel(m ConversationModel) domain.Conversation {
	conv := domain.Conversation{
		ID:          m.ID,
		UserID:      m.UserID,
		Title:       m.Title,
		LastUpdated: m.LastUpdated,
		Messages:    make([]domain.Message, 0, len(m.Messages)),
	}
	for _, msg := range m.Messages {
		conv.Messages = append(conv.Messages, messageFromModel(msg))
	}
	return conv
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		Role:           domain.Role(m.Role),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}
