package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pompomputin/wwebjs-webui-docker/api/handlers"
	"github.com/pompomputin/wwebjs-webui-docker/api/middleware"
	"github.com/pompomputin/wwebjs-webui-docker/internal/audit"
	"github.com/pompomputin/wwebjs-webui-docker/internal/auth"
	"github.com/pompomputin/wwebjs-webui-docker/internal/db"
	"github.com/pompomputin/wwebjs-webui-docker/internal/media"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/repository"
	"github.com/pompomputin/wwebjs-webui-docker/internal/session"
	"github.com/pompomputin/wwebjs-webui-docker/internal/whatsapp"
	"github.com/pompomputin/wwebjs-webui-docker/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.AuthDir, 0o700); err != nil {
		return fmt.Errorf("failed to create auth directory: %w", err)
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.CloseDB()

	users := repository.NewUserRepository(database)
	authSvc := auth.NewService(users, cfg.JWTSecret, cfg.TokenTTL)
	if err := seedAdmin(cmd.Context(), authSvc, users, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		return err
	}

	trail, err := audit.NewLogger(cfg.AuditPath)
	if err != nil {
		return fmt.Errorf("failed to open audit trail: %w", err)
	}
	defer trail.Close()

	wsService := ws.NewService(authSvc, logger)
	defer wsService.Close()
	if cfg.CORSOrigin != "*" {
		origin := cfg.CORSOrigin
		ws.SetCheckOrigin(func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || o == origin
		})
	}

	sessionManager := session.NewManager(
		whatsapp.NewFactory(cfg.AuthDir, logger),
		repository.NewSettingsRepository(database),
		media.NewFetcher(cfg.MediaFetchTimeout, cfg.MediaMaxBytes),
		wsService,
		trail,
		logger,
		session.Config{
			RemoveGrace:    cfg.RemoveGrace,
			TypingDuration: cfg.TypingDuration,
			EventWorkers:   cfg.EventWorkers,
			HistorySize:    cfg.MessageHistory,
		},
	)
	defer sessionManager.Close()
	wsService.SetSessions(sessionManager)

	if strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(logger, cfg.CORSOrigin, cfg.MediaMaxBytes, authSvc, sessionManager, wsService)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "data_dir", cfg.DataDir, "audit_run", trail.Run())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	return nil
}

// newRouter assembles the HTTP surface: health, login and websocket are
// public, everything under /session requires a token.
func newRouter(logger *slog.Logger, corsOrigin string, maxUploadBytes int64, authSvc *auth.Service, sessions *session.Manager, wsService *ws.Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS(corsOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": len(sessions.List()),
			"clients":  wsService.HubManager().ClientCount(),
		})
	})

	public := r.Group("")
	handlers.NewAuthHandler(authSvc).RegisterRoutes(public)
	handlers.NewWebSocketHandler(wsService.Handler()).RegisterRoutes(public)

	authed := r.Group("", middleware.RequireAuth(authSvc))
	handlers.NewSessionHandler(sessions, maxUploadBytes, logger).RegisterRoutes(authed)
	return r
}

// seedAdmin makes sure an operator exists. Without ADMIN_PASSWORD an empty
// user table is only reported.
func seedAdmin(ctx context.Context, svc *auth.Service, users *repository.UserRepository, username, password string, logger *slog.Logger) error {
	if password == "" {
		n, err := users.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if n == 0 {
			logger.Warn("no users exist; set ADMIN_PASSWORD or run `user add`")
		}
		return nil
	}
	if err := svc.EnsureUser(ctx, username, password, model.RoleOperator); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	logger.Info("admin user ready", "username", username)
	return nil
}
