package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/stackmed/formconfig/backend/internal/services"
	"github.com/stackmed/formconfig/backend/pkg/response"
)

type FormHandler struct {
	formService *services.FormService
}

func NewFormHandler(formService *services.FormService) *FormHandler {
	return &FormHandler{formService: formService}
}

// Submit validates an arbitrary JSON object against the tenant's form
// description and returns the normalized record, or a 422 carrying the full
// ordered violation list.
func (h *FormHandler) Submit(c *gin.Context) {
	tenantID, configType, ok := configKey(c)
	if !ok {
		return
	}

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.BadRequest(c, "request body must be a JSON object")
		return
	}

	result, violations, err := h.formService.Submit(c.Request.Context(), tenantID, configType, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	if violations != nil {
		response.Unprocessable(c, "submission failed validation", violations)
		return
	}

	response.Success(c, result)
}
