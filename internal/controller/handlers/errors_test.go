package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/Freeeeeet/slotswap/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", fmt.Errorf("%w: bad id", service.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "not_found"},
		{"invalid state", service.ErrInvalidState, http.StatusConflict, "invalid_state"},
		{"conflict", service.ErrConflict, http.StatusConflict, "conflict"},
		{"transient", service.ErrTransient, http.StatusServiceUnavailable, "transient"},
		{"tx deadline", repository.TimeoutAsTransient(context.DeadlineExceeded), http.StatusServiceUnavailable, "transient"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestWriteError_TransactionTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handlers{logger: zap.NewNop()}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/swap-request", nil)

	err := fmt.Errorf("initiate swap: %w", repository.TimeoutAsTransient(context.DeadlineExceeded))
	h.writeError(c, err)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "transient", body.Code)
	assert.Equal(t, "temporarily unavailable, please retry", body.Error)
}

func TestWriteError_UnexpectedIsOpaque(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handlers{logger: zap.NewNop()}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/events", nil)

	h.writeError(c, errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "internal", body.Code)
	assert.Equal(t, "internal error", body.Error)
}
