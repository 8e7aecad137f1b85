package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "tenurix/api/swagger" // swagger docs
	"tenurix/internal/auth"
	"tenurix/internal/config"
	"tenurix/internal/database"
	"tenurix/internal/handler"
	"tenurix/internal/logger"
	"tenurix/internal/model"
	"tenurix/internal/repository"
	"tenurix/internal/service"
	"tenurix/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// @title           Tenurix Management API
// @version         1.0
// @description     Back-office approval workflow for property submissions and lease applications.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:          "tenurix-api",
		Short:        "Tenurix back-office API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("env-file", "configs/.env", "optional dotenv file")

	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config and opens the database shared by every command.
func bootstrap(cmd *cobra.Command) (*config.Config, *slog.Logger, *gorm.DB, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.SlogLevel())

	db, err := database.NewConnection(cfg.DB, log)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info("connected to PostgreSQL", slog.String("host", cfg.DB.Host), slog.String("database", cfg.DB.Name))
	return cfg, log, db, nil
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, db, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			if migrate {
				if err := database.Migrate(db); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), cfg, log, db)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "auto-migrate the schema before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, db *gorm.DB) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)
	tokens := auth.NewTokenManager([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.JWT.TTL)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txm := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	listingRepo := repository.NewListingRepository(db)
	applicationRepo := repository.NewLeaseApplicationRepository(db)
	leaseRepo := repository.NewLeaseRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	router := handler.NewRouter(handler.RouterDeps{
		Log:          log,
		Tokens:       tokens,
		CORSOrigins:  cfg.CORSOrigins,
		SecureCookie: cfg.IsRelease(),
		Users:        service.NewUserService(userRepo, tokens),
		Submissions:  service.NewSubmissionService(txm, propertyRepo, listingRepo, auditRepo, wsHub, log),
		Applications: service.NewLeaseApplicationService(txm, applicationRepo, listingRepo, leaseRepo, auditRepo, wsHub, log),
		Portfolio:    service.NewPortfolioService(userRepo, propertyRepo, listingRepo, leaseRepo),
		Audit:        service.NewAuditService(auditRepo),
		Roles:        service.NewRoleService(txm, roleRepo, userRepo),
	})

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, tokens)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, db, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info("schema migrated")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var (
		email    string
		password string
		fullName string
		role     string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed default roles and permissions, optionally with a first account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, db, err := bootstrap(cmd)
			if err != nil {
				return err
			}

			txm := repository.NewTransactionManager(db)
			roles := service.NewRoleService(txm, repository.NewRoleRepository(db), repository.NewUserRepository(db))
			if err := roles.SeedDefaultRolesAndPermissions(cmd.Context()); err != nil {
				return err
			}
			log.Info("default roles and permissions seeded")

			if email == "" {
				return nil
			}
			user, created, err := roles.EnsureUser(cmd.Context(), service.SeedUserRequest{
				Email:    email,
				FullName: fullName,
				Password: password,
				Role:     role,
			})
			if err != nil {
				return err
			}
			log.Info("seed account ready",
				slog.Int64("user_id", user.ID),
				slog.String("email", user.Email),
				slog.Bool("created", created))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of an account to create")
	cmd.Flags().StringVar(&password, "password", "", "password for the account")
	cmd.Flags().StringVar(&fullName, "name", "", "display name for the account")
	cmd.Flags().StringVar(&role, "role", model.RoleManager, "role for the account")
	return cmd
}
