package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_BurstThenDeny(t *testing.T) {
	bucket := NewTokenBucket(3, 0.0001)

	for i := 0; i < 3; i++ {
		assert.True(t, bucket.Allow(), "burst call %d", i)
	}
	assert.False(t, bucket.Allow())
	assert.False(t, bucket.Allow())
}

func TestTokenBucket_Refill(t *testing.T) {
	bucket := NewTokenBucket(1, 1000)

	assert.True(t, bucket.Allow())
	// At 1000 tokens/s the bucket is full again almost immediately.
	assert.Eventually(t, bucket.Allow, 100*time.Millisecond, time.Millisecond)
}

func TestPerMinute(t *testing.T) {
	bucket := PerMinute(2)

	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.False(t, bucket.Allow())
	assert.Less(t, bucket.Tokens(), 1.0)
}

func TestKeyed_IsolatesKeys(t *testing.T) {
	keyed := NewKeyed(1, 0.0001)

	assert.True(t, keyed.Allow("10.0.0.1"))
	assert.False(t, keyed.Allow("10.0.0.1"))

	// A different key gets its own bucket.
	assert.True(t, keyed.Allow("10.0.0.2"))
}

func sendThrough(handler http.Handler, addr, forwarded string) int {
	req := httptest.NewRequest(http.MethodGet, "/oauth/login", nil)
	req.RemoteAddr = addr
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestPerIP(t *testing.T) {
	handler := PerIP(2, 0.0001)(okHandler())

	assert.Equal(t, http.StatusOK, sendThrough(handler, "10.0.0.1:1234", ""))
	assert.Equal(t, http.StatusOK, sendThrough(handler, "10.0.0.1:1234", ""))
	assert.Equal(t, http.StatusTooManyRequests, sendThrough(handler, "10.0.0.1:1234", ""))

	// Another client is unaffected.
	assert.Equal(t, http.StatusOK, sendThrough(handler, "10.0.0.2:1234", ""))
}

func TestPerIP_IgnoresProxyHeadersByDefault(t *testing.T) {
	handler := PerIP(2, 0.0001)(okHandler())

	// Varying X-Forwarded-For must not mint fresh buckets; the connection
	// address is the key.
	assert.Equal(t, http.StatusOK, sendThrough(handler, "10.0.0.1:1234", "203.0.113.1"))
	assert.Equal(t, http.StatusOK, sendThrough(handler, "10.0.0.1:1234", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, sendThrough(handler, "10.0.0.1:1234", "203.0.113.3"))
}

func TestPerIP_TrustProxyHeaders(t *testing.T) {
	handler := PerIP(2, 0.0001, TrustProxyHeaders())(okHandler())

	// X-Forwarded-For identifies the client behind the proxy.
	assert.Equal(t, http.StatusOK, sendThrough(handler, "10.0.0.9:1234", "203.0.113.7"))
	assert.Equal(t, http.StatusOK, sendThrough(handler, "10.0.0.9:1234", "203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, sendThrough(handler, "10.0.0.9:1234", "203.0.113.7"))

	// A different forwarded client gets its own bucket.
	assert.Equal(t, http.StatusOK, sendThrough(handler, "10.0.0.9:1234", "203.0.113.8"))
}
