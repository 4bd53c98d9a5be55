package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wekeepgrowing/billing-gateway/internal/config"
	"go.uber.org/zap"
)

func TestServer_Routes(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	srv := NewServer(cfg, zap.NewNop(), Dependencies{})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"billing status needs a token", http.MethodGet, "/api/v1/billing/status", http.StatusUnauthorized},
		{"billing history needs a token", http.MethodGet, "/api/v1/billing/history", http.StatusUnauthorized},
		{"cancel needs a token", http.MethodPost, "/api/v1/subscriptions/sub_1/cancel", http.StatusUnauthorized},
		{"unsigned billing webhook", http.MethodPost, "/webhooks/billing", http.StatusBadRequest},
		{"unsigned voice webhook", http.MethodPost, "/webhooks/voice", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
