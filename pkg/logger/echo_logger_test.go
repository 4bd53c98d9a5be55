package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskHeader(t *testing.T) {
	assert.Equal(t, "application/json", maskHeader("Content-Type", "application/json"))
	assert.Equal(t, "[MASKED]", maskHeader("authorization", "Bearer x"))
	assert.Equal(t, "v1,abcdefg...vwxyz", maskHeader("Webhook-Signature", "v1,abcdefghijklmnopqrstuvwxyz"))
}

func TestEchoZapLogger_Level(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewEchoZapLogger(zap.New(core))

	assert.Equal(t, log.INFO, l.Level())
	l.Debug("hidden")
	l.Infof("listening on %s", ":8080")
	l.SetLevel(log.WARN)
	l.Info("hidden too")
	l.Warn("slow")

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "listening on :8080", entries[0].Message)
		assert.Equal(t, "echo", entries[0].LoggerName)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	}

	l.SetPrefix("http")
	l.Error("boom")
	assert.Equal(t, "http", logs.AllUntimed()[2].LoggerName)
}

func TestWithEchoLogger_RendersStructuredErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := echo.New()
	WithEchoLogger(e, zap.New(core))

	e.GET("/x", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, echo.Map{"error": "taken", "code": "CONFLICT"})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"taken","code":"CONFLICT"}`, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("HTTP error").Len())
}
