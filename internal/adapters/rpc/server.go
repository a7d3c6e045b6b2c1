package rpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"helix-auth/go-backend/internal/platform/ratelimiter"
	"helix-auth/go-backend/internal/protocol"
	"helix-auth/go-backend/internal/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultRPCAddr = "127.0.0.1:8420"

const adminTokenHeader = "X-Helix-Admin-Token"

// Services groups everything the RPC surface dispatches into.
type Services struct {
	Enrollment     *protocol.EnrollmentService
	Challenges     *protocol.ChallengeService
	Authentication *protocol.AuthenticationService
	Sessions       *protocol.SessionManager
	Admin          *protocol.AdminService
	Keys           *storage.KeyStore
}

type Options struct {
	Addr       string
	AdminToken string
	BodyLimit  int64
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	// EdgeRPS/EdgeBurst bound requests per remote host before dispatch.
	EdgeRPS   float64
	EdgeBurst int
}

type Server struct {
	httpServer *http.Server
	services   Services
	adminToken string
	bodyLimit  int64
	logger     *slog.Logger
	limiter    *ratelimiter.MapLimiter
}

func NewServer(services Services, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultRPCAddr
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = 1 << 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.EdgeRPS <= 0 {
		opts.EdgeRPS = 50
	}
	if opts.EdgeBurst <= 0 {
		opts.EdgeBurst = 100
	}

	s := &Server{
		services:   services,
		adminToken: opts.AdminToken,
		bodyLimit:  opts.BodyLimit,
		logger:     opts.Logger,
		limiter:    ratelimiter.New(opts.EdgeRPS, opts.EdgeBurst, 10*time.Minute),
	}
	if s.adminToken == "" {
		s.logger.Warn("HELIX_ADMIN_TOKEN is not set; admin methods accept administrator sessions only")
	}

	router := mux.NewRouter()
	router.HandleFunc("/rpc", s.handleRPC).Methods(http.MethodPost)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if opts.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// authorizeAdmin accepts either the operator token header or a bearer
// session token whose key was enrolled with subject_type administrator.
func (s *Server) authorizeAdmin(r *http.Request) bool {
	if s.adminToken != "" {
		provided := strings.TrimSpace(r.Header.Get(adminTokenHeader))
		if provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(s.adminToken)) == 1 {
			return true
		}
	}

	bearer := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(bearer, prefix) {
		return false
	}
	keyID, err := s.services.Sessions.Validate(r.Context(), strings.TrimSpace(bearer[len(prefix):]))
	if err != nil {
		return false
	}
	key, err := s.services.Keys.Get(r.Context(), keyID)
	if err != nil {
		return false
	}
	return key.SubjectType == "administrator"
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
