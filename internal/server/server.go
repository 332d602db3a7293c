package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/flashmemo/flashmemo/internal/utils"
	"github.com/flashmemo/flashmemo/pkg/intake"
	"github.com/flashmemo/flashmemo/pkg/storage"
)

// Config holds the HTTP server settings.
type Config struct {
	Listen string `validate:"required,listen_addr"`

	// Users maps basic-auth usernames to passwords. Each username owns its
	// own links. When empty, every request acts as DefaultOwner.
	Users        map[string]string `validate:"dive,keys,required,max=64,endkeys,required"`
	DefaultOwner string            `validate:"omitempty,max=64"`

	ReadTimeout     time.Duration `validate:"gte=0"`
	WriteTimeout    time.Duration `validate:"gte=0"`
	ShutdownTimeout time.Duration `validate:"gte=0"`
}

var validate = newValidator()

var hostnameRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,62}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,62}[a-zA-Z0-9])?)*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("listen_addr", validateListenAddr)
	return v
}

// validateListenAddr accepts host:port with an optional host and port 0
// for an ephemeral port.
func validateListenAddr(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return false
	}
	return host == "" || net.ParseIP(host) != nil || hostnameRe.MatchString(host)
}

// Validate checks the configuration before the server starts.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if len(c.Users) == 0 && c.DefaultOwner == "" {
		return errors.New("invalid server config: either users or a default owner must be set")
	}
	return nil
}

type Server struct {
	cfg    Config
	DB     *storage.DB
	Intake *intake.Handler
}

func New(cfg Config, db *storage.DB, h *intake.Handler) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if h == nil {
		h = intake.NewHandler(db, intake.WithLogger(utils.Log))
	}
	return &Server{cfg: cfg, DB: db, Intake: h}, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /share", s.basicAuth(s.handleShare))
	mux.HandleFunc("POST /api/share", s.basicAuth(s.handleShare))

	mux.HandleFunc("GET /api/links", s.basicAuth(s.handleListLinks))
	mux.HandleFunc("GET /api/links/{id}", s.basicAuth(s.handleGetLink))
	mux.HandleFunc("POST /api/links/{id}/read", s.basicAuth(s.handleSetRead))
	mux.HandleFunc("DELETE /api/links/{id}", s.basicAuth(s.handleDeleteLink))

	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /api/tags", s.basicAuth(s.handleTags))
	mux.HandleFunc("GET /api/normalize", s.basicAuth(s.handleNormalize))

	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("Starting server on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	utils.Log.Info("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ownerKey struct{}

// ownerFrom returns the authenticated owner stored by basicAuth.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.cfg.Users) == 0 {
			next(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, s.cfg.DefaultOwner)))
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || !s.checkPassword(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, user)))
	}
}

func (s *Server) checkPassword(user, pass string) bool {
	want, ok := s.cfg.Users[user]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(pass)) == 1
}
