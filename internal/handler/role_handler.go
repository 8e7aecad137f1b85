package handler

import (
	"net/http"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/middleware"
	"tenurix/internal/service"
	"tenurix/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
}

func NewRoleHandler(roleService service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/roles/:name/permissions", middleware.RequireAnyPermission(auth.PermManageUsersKey), h.GetRolePermissions)
}

// GetRolePermissions lists the permission keys currently granted to a role.
// Sessions issued before a change keep their old snapshot until re-login.
// @Summary      Role permissions
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        name  path      string  true  "Role name"
// @Success      200   {object}  response.Response{data=[]string}
// @Failure      403   {object}  response.Response
// @Router       /management/roles/{name}/permissions [get]
func (h *RoleHandler) GetRolePermissions(c *gin.Context) {
	keys, err := h.roleService.GetPermissionsByRoleName(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, apperror.Internal("failed to fetch role permissions", err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, keys))
}
