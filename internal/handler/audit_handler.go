package handler

import (
	"net/http"
	"strconv"

	"tenurix/internal/auth"
	"tenurix/internal/middleware"
	"tenurix/internal/service"
	"tenurix/pkg/pagination"
	"tenurix/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit-logs", middleware.RequireAnyPermission(auth.PermManageUsersKey), h.GetAuditLogs)
}

// GetAuditLogs retrieves the workflow audit trail
// @Summary      Get audit logs
// @Description  Whole log paginated, or the full trail of one entity when entity_type and entity_id are set.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_type  query     string  false  "property_submission, listing, lease_application or lease"
// @Param        entity_id    query     int     false  "Entity ID"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=response.Page}
// @Router       /management/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	p := pagination.FromQuery(c)
	entityID, _ := strconv.ParseInt(c.Query("entity_id"), 10, 64)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), session, service.AuditFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   entityID,
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items: logs,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}
