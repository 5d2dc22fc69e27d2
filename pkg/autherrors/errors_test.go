package autherrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInvalidState, KindOf(New(KindInvalidState, "bad state")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	// The kind survives fmt.Errorf wrapping.
	wrapped := fmt.Errorf("callback failed: %w", New(KindStateExpired, "too late"))
	assert.Equal(t, KindStateExpired, KindOf(wrapped))
}

func TestIsKind(t *testing.T) {
	err := Wrap(KindJwksError, "fetch failed", errors.New("connection refused"))
	assert.True(t, IsKind(err, KindJwksError))
	assert.False(t, IsKind(err, KindInvalidToken))
	assert.False(t, IsKind(nil, KindJwksError))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindJwksError, "fetch failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "JWKS_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInvalidState))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindStateExpired))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInvalidScope))

	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindTokenExpired))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindSessionNotFound))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindTokenNotFound))

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindJwksError))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindTokenExchangeError))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Kind("UNKNOWN")))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, StatusOf(New(KindInvalidToken, "bad")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
}
