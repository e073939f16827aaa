package model

import "time"

// Session is a widget conversation. ExternalID is the uuid handed to the
// embeddable widget; anonymous visitors get one on their first message.
type Session struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ExternalID   string    `gorm:"size:36;not null;uniqueIndex" json:"session_id"`
	TenantID     uint      `gorm:"not null;index" json:"tenant_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}
