package model

import "time"

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	TenantID  uint      `gorm:"not null;index" json:"tenant_id"`
	Sender    string    `gorm:"size:16;not null;index" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Provider  string    `gorm:"size:32" json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
