package services

import (
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stackmed/formconfig/backend/internal/models"
	"github.com/stackmed/formconfig/backend/pkg/logger"
	"gorm.io/gorm"
)

var globalLogDB *gorm.DB

func InitSystemLogger(db *gorm.DB) {
	globalLogDB = db
}

func LogInfo(module, action, message, tenantID, ip string, extra interface{}) {
	writeLog("info", module, action, message, tenantID, ip, extra)
}

func LogWarning(module, action, message, tenantID, ip string, extra interface{}) {
	writeLog("warning", module, action, message, tenantID, ip, extra)
}

func LogError(module, action, message, tenantID, ip string, extra interface{}) {
	writeLog("error", module, action, message, tenantID, ip, extra)
}

func writeLog(level, module, action, message, tenantID, ip string, extra interface{}) {
	if globalLogDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.SystemLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		TenantID:  tenantID,
		IP:        ip,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	globalLogDB.Create(entry)
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page     int    `form:"page" binding:"min=1"`
	PageSize int    `form:"page_size" binding:"min=1,max=100"`
	Level    string `form:"level"`
	Module   string `form:"module"`
	TenantID string `form:"tenant_id"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var logs []models.SystemLog
	var total int64

	query := s.db.Model(&models.SystemLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.TenantID != "" {
		query = query.Where("tenant_id = ?", req.TenantID)
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// CleanupOldLogs deletes logs older than the specified number of days
// Returns the number of deleted records
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

const logRetentionDays = 30

var logCleanupCron *cron.Cron

// StartLogCleanupScheduler runs a nightly retention sweep over system logs.
func StartLogCleanupScheduler(db *gorm.DB) {
	service := NewSystemLogService(db)

	logCleanupCron = cron.New()
	_, err := logCleanupCron.AddFunc("0 3 * * *", func() {
		deleted, err := service.CleanupOldLogs(logRetentionDays)
		if err != nil {
			logger.Errorf("[SystemLog] cleanup failed: %v", err)
			return
		}
		if deleted > 0 {
			logger.Infof("[SystemLog] cleanup removed %d entries older than %d days", deleted, logRetentionDays)
		}
	})
	if err != nil {
		logger.Errorf("[SystemLog] failed to schedule cleanup: %v", err)
		return
	}
	logCleanupCron.Start()
}

// StopLogCleanupScheduler stops the retention sweep.
func StopLogCleanupScheduler() {
	if logCleanupCron != nil {
		logCleanupCron.Stop()
	}
}
