package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/stackmed/formconfig/backend/internal/models"
	"github.com/stackmed/formconfig/backend/internal/schema"
	"github.com/stackmed/formconfig/backend/pkg/logger"
)

// FormService validates user submissions against the tenant's form
// description. The contract is recompiled from the current config snapshot on
// every call; submissions themselves are not persisted.
type FormService struct {
	configs *UIConfigService
}

func NewFormService(configs *UIConfigService) *FormService {
	return &FormService{configs: configs}
}

// SubmissionResult is the normalized outcome of a valid submission.
type SubmissionResult struct {
	SubmissionID string                 `json:"submission_id"`
	TenantID     string                 `json:"tenant_id"`
	Type         models.ConfigType      `json:"type"`
	Data         map[string]interface{} `json:"data"`
}

// Submit fetches the config (cache or store), compiles its schema and
// validates the payload. A non-nil violation slice means the submission was
// rejected; an error means the config could not be loaded.
func (s *FormService) Submit(ctx context.Context, tenantID string, configType models.ConfigType, payload map[string]interface{}) (*SubmissionResult, []schema.Violation, error) {
	cfg, err := s.configs.Get(ctx, tenantID, configType)
	if err != nil {
		return nil, nil, err
	}

	compiled := schema.Compile(cfg.Fields)
	record, violations := schema.Validate(compiled, payload)
	if violations != nil {
		logger.Debug().
			Str("tenant_id", tenantID).
			Str("type", string(configType)).
			Int("violations", len(violations)).
			Msg("submission rejected")
		return nil, violations, nil
	}

	result := &SubmissionResult{
		SubmissionID: uuid.NewString(),
		TenantID:     tenantID,
		Type:         configType,
		Data:         record,
	}

	logger.Debug().
		Str("tenant_id", tenantID).
		Str("type", string(configType)).
		Str("submission_id", result.SubmissionID).
		Msg("submission validated")

	return result, nil, nil
}
