package handler

import (
	"log/slog"
	"net/http"

	"tenurix/internal/auth"
	"tenurix/internal/middleware"
	"tenurix/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterDeps carries everything the HTTP layer needs.
type RouterDeps struct {
	Log          *slog.Logger
	Tokens       *auth.TokenManager
	CORSOrigins  []string
	SecureCookie bool

	Users        service.UserService
	Submissions  service.SubmissionService
	Applications service.LeaseApplicationService
	Portfolio    service.PortfolioService
	Audit        service.AuditService
	Roles        service.RoleService
}

// NewRouter builds the gin engine with every workflow route registered.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.Log))

	// cors rejects an empty origin list, so no origins means no CORS handling.
	if len(d.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = d.CORSOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
		router.Use(cors.New(corsConfig))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	userHandler := NewUserHandler(d.Users, d.SecureCookie)
	userHandler.RegisterPublicRoutes(router.Group(""))

	authed := router.Group("", middleware.Authenticate(d.Tokens))
	userHandler.RegisterRoutes(authed)

	management := authed.Group("/management")
	NewSubmissionHandler(d.Submissions).RegisterRoutes(management)
	NewLeaseApplicationHandler(d.Applications).RegisterRoutes(management)
	NewPortfolioHandler(d.Portfolio).RegisterRoutes(management)
	NewAuditHandler(d.Audit).RegisterRoutes(management)
	NewRoleHandler(d.Roles).RegisterRoutes(management)

	return router
}
