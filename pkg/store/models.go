package store

import "time"

// GORM models used for persistence. IDs and timestamps are generated in the
// store layer so the Postgres and in-memory implementations behave alike.

type ConversationModel struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	UserID      string         `gorm:"not null;index"`
	Title       string         `gorm:"not null"`
	LastUpdated time.Time      `gorm:"not null;index"`
	Messages    []MessageModel `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (ConversationModel) TableName() string { return "conversations" }

type MessageModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	ConversationID string    `gorm:"type:uuid;not null;index"`
	UserID         string    `gorm:"not null;index"`
	Role           string    `gorm:"not null"`
	Content        string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

func (MessageModel) TableName() string { return "messages" }
