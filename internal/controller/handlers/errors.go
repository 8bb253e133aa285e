package handlers

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/slotswap/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorStatus сопоставляет класс ошибки с HTTP статусом и кодом
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrTransient):
		return http.StatusServiceUnavailable, "transient"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError отвечает клиенту ошибкой. Unexpected errors are logged and
// replaced with an opaque message.
func (h *Handlers) writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)

	msg := err.Error()
	if !service.IsDomainError(err) {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		msg = "internal error"
	} else if errors.Is(err, service.ErrTransient) {
		h.logger.Warn("Store is temporarily unavailable", zap.Error(err))
		msg = "temporarily unavailable, please retry"
	}

	c.AbortWithStatusJSON(status, errorResponse{Code: code, Error: msg})
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "invalid_input", Error: msg})
}
