package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"supportchat/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) GetByExternalID(tenantID uint, externalID string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("tenant_id = ? AND external_id = ?", tenantID, externalID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByIDAndTenant(id, tenantID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByTenant(tenantID uint) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Where("tenant_id = ?", tenantID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// SaveWithChunks writes the document row and its full chunk set in a single
// transaction. Any previous chunks of the document are replaced, so a
// re-ingested document never ends up with a mixed or duplicated chunk set.
func (r *DocumentRepository) SaveWithChunks(doc *model.Document, chunks []model.Chunk) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if doc.ID == 0 {
			if err := tx.Create(doc).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		for i := range chunks {
			chunks[i].DocumentID = doc.ID
			chunks[i].TenantID = doc.TenantID
		}
		if len(chunks) > 0 {
			if err := tx.Create(&chunks).Error; err != nil {
				return err
			}
		}
		doc.Processed = true
		doc.ChunkCount = len(chunks)
		return tx.Model(&model.Document{}).Where("id = ?", doc.ID).
			Updates(map[string]interface{}{"processed": true, "chunk_count": len(chunks)}).Error
	})
	if err != nil {
		return fmt.Errorf("save document with chunks failed: %w", err)
	}
	return nil
}

// DeleteWithChunks removes the document and all its chunks in one transaction.
func (r *DocumentRepository) DeleteWithChunks(id, tenantID uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Document{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
