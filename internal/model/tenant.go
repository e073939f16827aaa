package model

import "time"

// Tenant is an isolated customer. Documents, sessions and messages always
// carry the owning tenant's ID; nothing is ever served across tenants.
type Tenant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Domain    string    `gorm:"size:255;uniqueIndex" json:"domain"`
	APIKey    string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
