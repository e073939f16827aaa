package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"supportchat/internal/model"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(tenant *model.Tenant) error {
	if err := r.db.Create(tenant).Error; err != nil {
		return fmt.Errorf("create tenant failed: %w", err)
	}
	return nil
}

func (r *TenantRepository) GetByID(id uint) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant failed: %w", err)
	}
	return &tenant, nil
}

// GetByAPIKey resolves a tenant from its widget API key. Inactive tenants are
// treated as not found.
func (r *TenantRepository) GetByAPIKey(apiKey string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.Where("api_key = ? AND active = ?", apiKey, true).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant by api key failed: %w", err)
	}
	return &tenant, nil
}
