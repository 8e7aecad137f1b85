package handler

import (
	"net/http"
	"time"

	"tenurix/internal/middleware"
	"tenurix/internal/service"
	"tenurix/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService  service.UserService
	secureCookie bool
	now          func() time.Time
}

// NewUserHandler sets up the routing dependencies for login and /me.
// secureCookie should be true behind TLS.
func NewUserHandler(userService service.UserService, secureCookie bool) *UserHandler {
	return &UserHandler{userService: userService, secureCookie: secureCookie, now: time.Now}
}

// RegisterPublicRoutes binds the endpoints that need no token.
func (h *UserHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.POST("/auth/management/login", h.Login)
	router.POST("/auth/logout", h.Logout)
}

// RegisterRoutes binds the endpoints behind middleware.Authenticate.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/me", h.GetMe)
}

// Login handles POST /auth/management/login to authenticate and return a JWT token
// @Summary      Management login
// @Description  Authenticates an active user by email and password. The token carries the role's permission keys.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginUserRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/management/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	maxAge := int(res.ExpiresAt.Sub(h.now()).Seconds())
	if maxAge > 0 {
		middleware.SetTokenCookie(c, res.Token, maxAge, h.secureCookie)
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout clears the access token cookie
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c, h.secureCookie)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"logged_out": true}))
}

// GetMe handles GET /me to return the caller's token snapshot
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	me, err := h.userService.Me(c.Request.Context(), session)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, me))
}
