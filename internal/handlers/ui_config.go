package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/stackmed/formconfig/backend/internal/models"
	"github.com/stackmed/formconfig/backend/internal/services"
	"github.com/stackmed/formconfig/backend/pkg/response"
)

type UIConfigHandler struct {
	configService *services.UIConfigService
}

func NewUIConfigHandler(configService *services.UIConfigService) *UIConfigHandler {
	return &UIConfigHandler{configService: configService}
}

// configKey extracts and validates the (tenant_id, type) pair from the path.
func configKey(c *gin.Context) (string, models.ConfigType, bool) {
	tenantID := c.Param("tenant_id")
	configType := models.ConfigType(c.Param("type"))
	if !configType.Valid() {
		response.BadRequest(c, "unknown config type")
		return "", "", false
	}
	return tenantID, configType, true
}

func (h *UIConfigHandler) Get(c *gin.Context) {
	tenantID, configType, ok := configKey(c)
	if !ok {
		return
	}

	cfg, err := h.configService.Get(c.Request.Context(), tenantID, configType)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, cfg)
}

func (h *UIConfigHandler) Create(c *gin.Context) {
	var req services.CreateUIConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cfg, err := h.configService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, cfg)
}

func (h *UIConfigHandler) Update(c *gin.Context) {
	tenantID, configType, ok := configKey(c)
	if !ok {
		return
	}

	var req services.UpdateUIConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cfg, err := h.configService.Update(c.Request.Context(), tenantID, configType, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, cfg)
}

func (h *UIConfigHandler) Delete(c *gin.Context) {
	tenantID, configType, ok := configKey(c)
	if !ok {
		return
	}

	if err := h.configService.Delete(c.Request.Context(), tenantID, configType); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "config deleted successfully"})
}

func (h *UIConfigHandler) List(c *gin.Context) {
	var req services.UIConfigListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	configs, err := h.configService.List(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, configs)
}

// FlushCache clears the whole cache. Dangerous: every tenant's next read
// goes to the store.
func (h *UIConfigHandler) FlushCache(c *gin.Context) {
	h.configService.FlushCache(c.Request.Context())
	response.Success(c, gin.H{"message": "cache flushed"})
}
