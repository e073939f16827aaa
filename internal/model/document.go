package model

import "time"

// Document is an ingested knowledge file. A document is immutable once
// processed; re-uploading creates a new document with a fresh ExternalID.
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExternalID string    `gorm:"size:36;not null;uniqueIndex:idx_tenant_document" json:"document_id"`
	TenantID   uint      `gorm:"not null;uniqueIndex:idx_tenant_document" json:"tenant_id"`
	Filename   string    `gorm:"size:256;not null" json:"filename"`
	Processed  bool      `gorm:"not null;default:false" json:"processed"`
	ChunkCount int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
