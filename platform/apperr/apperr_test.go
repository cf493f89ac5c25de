package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{BadRequest("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Forbidden("x"), http.StatusForbidden},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Internal("x"), http.StatusInternalServerError},
		{Expired("x"), http.StatusGone},
		{Upstream("x", nil), http.StatusBadGateway},
		{New(KindUnknown, "x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus(), tt.err.Kind)
	}
}

func TestKindThroughWrapping(t *testing.T) {
	cause := errors.New("smtp timeout")
	err := fmt.Errorf("notify: %w", Upstream("email failed", cause))

	assert.True(t, Is(err, KindUpstream))
	assert.False(t, Is(err, KindInternal))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUnknown, GetKind(cause))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "Invitation expired", Expired("Invitation expired").Error())
	assert.Equal(t, "invitations.open: Invitation expired", Expired("Invitation expired").WithOp("invitations.open").Error())
}
