package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"supportchat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByExternalID(tenantID uint, externalID string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("tenant_id = ? AND external_id = ?", tenantID, externalID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) ListByTenant(tenantID uint, limit int) ([]model.Session, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var sessions []model.Session
	if err := r.db.Where("tenant_id = ?", tenantID).Order("last_activity DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) TouchActivity(sessionID uint, at time.Time) error {
	if err := r.db.Model(&model.Session{}).Where("id = ?", sessionID).Update("last_activity", at).Error; err != nil {
		return fmt.Errorf("touch session activity failed: %w", err)
	}
	return nil
}
