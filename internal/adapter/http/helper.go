package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"chama-engine/internal/domain/fault"
	"chama-engine/internal/pkg/logger"
)

// statusOf maps the engine's fault taxonomy onto HTTP statuses.
// Anything outside the taxonomy is a server fault.
func statusOf(err error) int {
	switch fault.KindOf(err) {
	case fault.Validation:
		return http.StatusBadRequest
	case fault.Policy:
		return http.StatusUnprocessableEntity
	case fault.Conflict:
		return http.StatusConflict
	case fault.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON error for a usecase failure. Engine
// faults carry a client-safe message; anything else is logged and
// reported as a bare internal error.
func respondError(c echo.Context, err error) error {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		logger.CtxError(c.Request().Context(), "engine error", err,
			slog.String("path", c.Path()))
		return c.JSON(code, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(code, ErrorResponse{Error: err.Error()})
}
