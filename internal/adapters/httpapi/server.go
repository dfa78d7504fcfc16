package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/consensusbot/internal/domain"
	"github.com/alejandrodnm/consensusbot/internal/ports"
	"github.com/alejandrodnm/consensusbot/internal/scanner"
)

// ScanService es lo que la API necesita del scanner.
type ScanService interface {
	TryScan(ctx context.Context) ([]domain.ConsensusSignal, error)
	Status() scanner.Status
	RegisterChat(ctx context.Context, chatID int64) error
	SubscribeChat(ctx context.Context, chatID int64) error
	UnsubscribeChat(ctx context.Context, chatID int64) error
	IsSubscribed(ctx context.Context, chatID int64) bool
}

// Deps son los colaboradores de la API. Gatherer nil usa el registry global.
type Deps struct {
	Scanner  ScanService
	Signals  ports.SignalLedger
	Wallets  ports.WalletStore
	Gatherer prometheus.Gatherer
}

// Server es la API HTTP de administración.
type Server struct {
	echo *echo.Echo
	addr string
}

// New crea el servidor y registra las rutas.
func New(addr string, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newValidator()
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(requestLogger())

	h := &handlers{scanner: deps.Scanner, signals: deps.Signals, wallets: deps.Wallets}
	h.register(e)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return &Server{echo: e, addr: addr}
}

// Handler expone el router para tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start sirve hasta que ctx se cancele y luego hace un shutdown ordenado.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin API listening", "addr", s.addr)
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpapi.Start: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi.Start: shutdown: %w", err)
	}
	return nil
}

// requestLogger loguea cada request con slog.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			slog.Debug("http request",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration", time.Since(start).Round(time.Millisecond),
			)
			return nil
		}
	}
}

// errorResponse es el cuerpo de todas las respuestas de error.
type errorResponse struct {
	Error   string            `json:"error"`
	Details []ValidationError `json:"details,omitempty"`
}

// errorHandler traduce errores de echo y de validación a JSON.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := errorResponse{Error: "internal server error"}

	var he *echo.HTTPError
	var verr validationErrors
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body = errorResponse{Error: "validation failed", Details: verr}
	case errors.As(err, &he):
		status = he.Code
		body.Error = fmt.Sprint(he.Message)
	default:
		slog.Error("http handler failed", "path", c.Path(), "err", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}
