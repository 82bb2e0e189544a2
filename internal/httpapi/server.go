// Package httpapi exposes the access evaluation engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/BrandonDHaskell/Portunus/gate/internal/metrics"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// Scanner decides scan requests. *service.AccessService implements it.
type Scanner interface {
	Scan(ctx context.Context, req types.ScanRequest) (types.ScanResponse, error)
}

type Dependencies struct {
	Logger        *slog.Logger
	Addr          string
	AccessService Scanner

	// MetricsHandler is mounted at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

type Server struct {
	Echo *echo.Echo

	logger   *slog.Logger
	addr     string
	scanner  Scanner
	validate *validator.Validate
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(maxRequestBody))

	s := &Server{
		Echo:     e,
		logger:   logger,
		addr:     d.Addr,
		scanner:  d.AccessService,
		validate: validator.New(),
	}

	e.GET("/v1/scan", s.handleScan)
	e.GET("/healthz", s.handleHealth)

	if d.MetricsHandler != nil {
		path := d.MetricsPath
		if path == "" {
			path = metrics.DefaultPath
		}
		e.GET(path, echo.WrapHandler(d.MetricsHandler))
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.Echo }

// Start blocks serving on the configured address. It returns nil after a
// clean Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.String("addr", s.addr))
	if err := s.Echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.Echo.Shutdown(ctx)
}

func (s *Server) handleScan(c echo.Context) error {
	var req types.ScanRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return s.writeError(c, http.StatusBadRequest, "invalid query parameters")
	}

	// Health checkers only send the sentinel location.
	if strings.TrimSpace(req.LocationID) != types.UptimeLocationID {
		if err := s.validate.Struct(req); err != nil {
			return s.writeError(c, http.StatusBadRequest, service.ErrInvalidRequest.Error())
		}
	}

	resp, err := s.scanner.Scan(c.Request().Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error(
				"scan failed",
				slog.String("access_point_id", req.AccessPointID),
				slog.String("error", err.Error()),
			)
			return s.writeError(c, status, "internal error")
		}
		return s.writeError(c, status, err.Error())
	}

	if wantsProtobuf(c.Request()) {
		return writeProto(c, http.StatusOK, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) writeError(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorBody{Success: false, Error: msg})
}
