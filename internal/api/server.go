// Package api composes the stores, protocol services, and RPC transport
// into a runnable daemon.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"helix-auth/go-backend/internal/adapters/rpc"
	"helix-auth/go-backend/internal/bootstrap/config"
	"helix-auth/go-backend/internal/observe"
	"helix-auth/go-backend/internal/platform/privacylog"
	"helix-auth/go-backend/internal/platform/ratelimiter"
	"helix-auth/go-backend/internal/protocol"
	"helix-auth/go-backend/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Server struct {
	transport *rpc.Server
	logger    *slog.Logger
}

// NewServer builds the full daemon from resolved configuration. Stores are
// loaded from the data directory; a missing directory starts empty.
func NewServer(cfg config.Config) (*Server, error) {
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	keys, err := storage.NewPersistentKeyStore(filepath.Join(cfg.DataDir, "keys.json"), cfg.StorePassphrase)
	if err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}
	challenges, err := storage.NewPersistentChallengeStore(filepath.Join(cfg.DataDir, "challenges.json"), cfg.StorePassphrase)
	if err != nil {
		return nil, fmt.Errorf("open challenge store: %w", err)
	}
	registry, err := storage.NewPersistentRevocationRegistry(filepath.Join(cfg.DataDir, "revocations.json"), cfg.StorePassphrase)
	if err != nil {
		return nil, fmt.Errorf("open revocation registry: %w", err)
	}
	sessionStore, err := storage.NewPersistentSessionStore(filepath.Join(cfg.DataDir, "sessions.json"), cfg.StorePassphrase)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	metrics := observe.New(promRegistry)

	audit := protocol.NewAuditTrail(logger)
	issueLimiter := ratelimiter.New(cfg.ChallengeRPS, cfg.ChallengeBurst, 10*time.Minute)

	sessions := protocol.NewSessionManager(sessionStore, metrics, nil)
	services := rpc.Services{
		Enrollment:     protocol.NewEnrollmentService(keys, nil, audit, metrics, nil),
		Challenges:     protocol.NewChallengeService(challenges, keys, registry, issueLimiter, metrics, nil),
		Authentication: protocol.NewAuthenticationService(challenges, keys, registry, sessions, audit, metrics, nil),
		Sessions:       sessions,
		Admin:          protocol.NewAdminService(keys, challenges, registry, sessionStore, audit, metrics, nil),
		Keys:           keys,
	}

	addr, err := config.ResolveListenAddr(cfg.Listen)
	if err != nil {
		return nil, err
	}
	transport := rpc.NewServer(services, rpc.Options{
		Addr:       addr,
		AdminToken: cfg.AdminToken,
		BodyLimit:  cfg.RPCBodyLimit,
		Logger:     logger,
		Registry:   promRegistry,
	})

	logger.Info("daemon configured", "listen", addr, "data_dir", cfg.DataDir)
	return &Server{transport: transport, logger: logger}, nil
}

func (s *Server) Run(ctx context.Context) error {
	return s.transport.Run(ctx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(privacylog.WrapHandler(handler))
}
