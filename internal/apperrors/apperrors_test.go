package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("booking missing"), http.StatusNotFound},
		{Forbidden("not yours"), http.StatusForbidden},
		{BadRequest("bad input"), http.StatusBadRequest},
		{Conflict("already pending"), http.StatusConflict},
		{InsufficientInventory("no rooms"), http.StatusBadRequest},
		{Internal(errors.New("boom"), "db down"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "for %v", tt.err)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := Conflict("duplicate edit")
	wrapped := fmt.Errorf("request failed: %w", inner)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindConflict))
	assert.False(t, IsKind(wrapped, KindNotFound))
}

func TestInternal_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "failed to commit")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to commit")
	assert.Contains(t, err.Error(), "connection refused")
}
