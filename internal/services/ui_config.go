package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/stackmed/formconfig/backend/internal/cache"
	"github.com/stackmed/formconfig/backend/internal/models"
	"github.com/stackmed/formconfig/backend/pkg/response"
	"gorm.io/gorm"
)

// UIConfigService owns config CRUD against the database together with the
// cache side of every mutation: each successful create/update is followed by
// a populate, each delete by an invalidate. The database is always
// authoritative; reads that miss the cache fall through and repopulate it.
type UIConfigService struct {
	db    *gorm.DB
	cache *cache.Manager
}

func NewUIConfigService(db *gorm.DB, cacheManager *cache.Manager) *UIConfigService {
	return &UIConfigService{db: db, cache: cacheManager}
}

type CreateUIConfigRequest struct {
	TenantID    string            `json:"tenant_id" binding:"required"`
	Type        models.ConfigType `json:"type" binding:"required"`
	Description string            `json:"description"`
	Fields      models.FieldList  `json:"fields"`
}

// UpdateUIConfigRequest carries a partial update: nil fields leave the stored
// value unchanged.
type UpdateUIConfigRequest struct {
	Description *string           `json:"description"`
	Fields      *models.FieldList `json:"fields"`
}

type UIConfigListRequest struct {
	TenantID string `form:"tenant_id"`
	Type     string `form:"type"`
}

// Get returns the config for (tenantID, configType), consulting the cache
// first and repopulating it on a store read.
func (s *UIConfigService) Get(ctx context.Context, tenantID string, configType models.ConfigType) (*models.UIConfig, error) {
	if cfg, ok := s.cache.Lookup(ctx, tenantID, configType); ok {
		return cfg, nil
	}

	var cfg models.UIConfig
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND config_type = ?", tenantID, configType).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("config not found")
		}
		return nil, err
	}

	s.cache.Populate(ctx, &cfg)
	return &cfg, nil
}

// Create inserts a new config document. A duplicate (tenant_id, type) pair is
// a conflict; concurrent creates race on the store's unique index and the
// loser surfaces the same conflict.
func (s *UIConfigService) Create(ctx context.Context, req *CreateUIConfigRequest) (*models.UIConfig, error) {
	if !req.Type.Valid() {
		return nil, response.NewBadRequest(fmt.Sprintf("unknown config type %q", req.Type))
	}
	if err := checkFieldPatterns(req.Fields); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.UIConfig{}).
		Where("tenant_id = ? AND config_type = ?", req.TenantID, req.Type).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, response.NewConflict("config already exists for this tenant and type")
	}

	cfg := models.UIConfig{
		TenantID:    req.TenantID,
		ConfigType:  req.Type,
		Description: req.Description,
		Fields:      req.Fields,
	}
	if cfg.Fields == nil {
		cfg.Fields = models.FieldList{}
	}

	if err := s.db.WithContext(ctx).Create(&cfg).Error; err != nil {
		// losing a concurrent create race on the unique index is still a conflict
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("config already exists for this tenant and type")
		}
		return nil, err
	}

	s.cache.Populate(ctx, &cfg)
	LogInfo("ui_config", "create", "config created", cfg.TenantID, "", map[string]interface{}{"type": cfg.ConfigType})
	return &cfg, nil
}

// Update merges a partial update into the stored document and refreshes the
// cache with the result.
func (s *UIConfigService) Update(ctx context.Context, tenantID string, configType models.ConfigType, req *UpdateUIConfigRequest) (*models.UIConfig, error) {
	var cfg models.UIConfig
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND config_type = ?", tenantID, configType).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("config not found")
		}
		return nil, err
	}

	if req.Fields != nil {
		if err := checkFieldPatterns(*req.Fields); err != nil {
			return nil, err
		}
	}

	updates := make(map[string]interface{})
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Fields != nil {
		updates["fields"] = *req.Fields
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&cfg).Updates(updates).Error; err != nil {
			return nil, err
		}
		// Reload so the cached snapshot matches the stored row
		if err := s.db.WithContext(ctx).First(&cfg, cfg.ID).Error; err != nil {
			return nil, err
		}
	}

	s.cache.Populate(ctx, &cfg)
	LogInfo("ui_config", "update", "config updated", cfg.TenantID, "", map[string]interface{}{"type": cfg.ConfigType})
	return &cfg, nil
}

// Delete removes the document and invalidates its cache entry.
func (s *UIConfigService) Delete(ctx context.Context, tenantID string, configType models.ConfigType) error {
	result := s.db.WithContext(ctx).
		Where("tenant_id = ? AND config_type = ?", tenantID, configType).
		Delete(&models.UIConfig{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("config not found")
	}

	s.cache.Invalidate(ctx, tenantID, configType)
	LogInfo("ui_config", "delete", "config deleted", tenantID, "", map[string]interface{}{"type": configType})
	return nil
}

// List returns configs matching the conjunctive filters; absent filters match
// all. Always served from the store, never the cache.
func (s *UIConfigService) List(ctx context.Context, req *UIConfigListRequest) ([]models.UIConfig, error) {
	query := s.db.WithContext(ctx).Model(&models.UIConfig{})

	if req.TenantID != "" {
		query = query.Where("tenant_id = ?", req.TenantID)
	}
	if req.Type != "" {
		query = query.Where("config_type = ?", req.Type)
	}

	var configs []models.UIConfig
	if err := query.Order("id ASC").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// FlushCache clears every cached config across all tenants.
func (s *UIConfigService) FlushCache(ctx context.Context) {
	s.cache.FlushAll(ctx)
	LogWarning("ui_config", "flush_cache", "full cache flush requested", "", "", nil)
}

// checkFieldPatterns rejects configs whose validation patterns do not
// compile, so a bad pattern fails loudly at write time instead of silently
// skipping the constraint on every submission.
func checkFieldPatterns(fields models.FieldList) error {
	for _, f := range fields {
		if f.Validation == nil || f.Validation.Pattern == "" {
			continue
		}
		if _, err := regexp.Compile(`\A(?:` + f.Validation.Pattern + `)\z`); err != nil {
			return response.NewBadRequest(fmt.Sprintf("field %q has an invalid pattern: %v", f.ID, err))
		}
	}
	return nil
}
