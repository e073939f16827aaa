package repository

import (
	"fmt"

	"gorm.io/gorm"

	"supportchat/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) ListByTenantAndIDs(tenantID uint, ids []uint) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := r.db.Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by ids failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) ListByDocumentID(documentID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.Where("document_id = ?", documentID).Order("ordinal ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by document failed: %w", err)
	}
	return chunks, nil
}

// ListAll streams every chunk in batches; used to rebuild the vector index at
// startup. The callback receives chunks ordered by primary key.
func (r *ChunkRepository) ListAll(batchSize int, fn func(chunks []model.Chunk) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []model.Chunk
	result := r.db.FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	if result.Error != nil {
		return fmt.Errorf("scan chunks failed: %w", result.Error)
	}
	return nil
}
