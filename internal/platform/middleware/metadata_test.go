package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientMetadata(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{
			name: "extracts first hop from X-Forwarded-For",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1, 198.51.100.1",
			},
			remoteAddr: "192.0.2.9:4711",
			expectedIP: "203.0.113.1",
		},
		{
			name: "extracts from X-Real-IP when no X-Forwarded-For",
			headers: map[string]string{
				"X-Real-IP": "198.51.100.7",
			},
			remoteAddr: "192.0.2.9:4711",
			expectedIP: "198.51.100.7",
		},
		{
			name:       "falls back to remote addr",
			remoteAddr: "192.0.2.9:4711",
			expectedIP: "192.0.2.9",
		},
		{
			name: "ignores literal unknown",
			headers: map[string]string{
				"X-Forwarded-For": "unknown",
			},
			remoteAddr: "192.0.2.9:4711",
			expectedIP: "192.0.2.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedCtx context.Context
			handler := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedCtx = r.Context()
			}))

			req := httptest.NewRequest(http.MethodPost, "/identify", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("User-Agent", "voicegate-test/1.0")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expectedIP, GetClientIP(capturedCtx), "IP address mismatch")
			assert.Equal(t, "voicegate-test/1.0", GetUserAgent(capturedCtx))
		})
	}
}

func TestGetClientIPMissing(t *testing.T) {
	assert.Empty(t, GetClientIP(context.Background()))
	assert.Empty(t, GetUserAgent(context.Background()))
}
