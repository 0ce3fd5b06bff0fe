package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fixora/sessionkit/application/port/outbound"
	"github.com/fixora/sessionkit/application/usecase"
	"github.com/fixora/sessionkit/domain/valueobject"
	"github.com/fixora/sessionkit/infrastructure/broadcast"
	"github.com/fixora/sessionkit/infrastructure/config"
	"github.com/fixora/sessionkit/infrastructure/identity"
	"github.com/fixora/sessionkit/infrastructure/service/logger"
	"github.com/fixora/sessionkit/infrastructure/service/profile"
	"github.com/fixora/sessionkit/infrastructure/sessionstore"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger
	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "session-agent",
	})
	structuredLogger.Info(ctx, "Session agent starting", map[string]interface{}{
		"identity_base_url": cfg.IdentityBaseURL,
		"broadcast_backend": cfg.BroadcastBackend,
	})

	// Initialize token store
	store, err := sessionstore.NewFileStore(cfg.SessionFile, cfg.SessionKey)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to initialize session store", err, map[string]interface{}{
			"session_file": cfg.SessionFile,
		})
		log.Fatalf("Failed to initialize session store: %v", err)
	}

	// Initialize broadcast backend; fall back to in-process when the shared
	// channel is unreachable so the session still works standalone
	var port outbound.BroadcastPort
	switch cfg.BroadcastBackend {
	case "redis":
		port, err = broadcast.NewRedisBroadcast(cfg.RedisURL, cfg.BroadcastChannel, structuredLogger)
	case "postgres":
		port, err = broadcast.NewPostgresBroadcast(cfg.DatabaseURL, cfg.BroadcastChannel, structuredLogger)
	default:
		port = broadcast.NewMemoryHub().NewPort()
	}
	if err != nil {
		structuredLogger.Warn(ctx, "Broadcast backend unavailable, running standalone", map[string]interface{}{
			"backend": cfg.BroadcastBackend,
			"error":   err.Error(),
		})
		port = broadcast.NewMemoryHub().NewPort()
	}

	// Initialize identity client
	identityClient := identity.NewClient(identity.ClientConfig{
		BaseURL:     cfg.IdentityBaseURL,
		LoginPath:   cfg.LoginPath,
		RefreshPath: cfg.RefreshPath,
		LogoutPath:  cfg.LogoutPath,
		Timeout:     cfg.HTTPTimeout,
	}, structuredLogger)

	// Initialize session manager
	manager := usecase.NewSessionManager(
		usecase.SessionConfig{
			Enabled:                  cfg.Enabled,
			Leeway:                   cfg.TokenLeeway,
			Jitter:                   cfg.TokenJitter,
			MinDelay:                 cfg.TokenMinDelay,
			InactivityLimit:          cfg.InactivityLimit,
			WarningWindow:            cfg.InactivityWarningWindow,
			VisibilityPauseThreshold: cfg.VisibilityPauseThreshold,
		},
		store,
		port,
		identityClient,
		profile.NewDecoder(),
		structuredLogger,
		usecase.Callbacks{
			OnWarning: func() {
				structuredLogger.Warn(ctx, "Session about to expire from inactivity", map[string]interface{}{})
			},
			OnLogout: func(reason valueobject.LogoutReason, redirect bool) {
				structuredLogger.Info(ctx, "Session ended", map[string]interface{}{
					"reason":   string(reason),
					"redirect": redirect,
				})
			},
		},
	)

	if err := manager.Start(ctx); err != nil {
		structuredLogger.Error(ctx, "Failed to start session manager", err, map[string]interface{}{})
		log.Fatalf("Failed to start session manager: %v", err)
	}

	snapshot := manager.Snapshot()
	structuredLogger.Info(ctx, "Session manager ready", map[string]interface{}{
		"authenticated": snapshot.Authenticated,
		"state":         string(snapshot.State),
	})

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down session agent...", map[string]interface{}{})
	if err := manager.Close(); err != nil {
		structuredLogger.Error(ctx, "Failed to close session manager", err, map[string]interface{}{})
	}
	structuredLogger.Info(ctx, "Session agent exited", map[string]interface{}{})
}
