package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func findEntry(entries []observer.LoggedEntry, msg string) *observer.LoggedEntry {
	for i := range entries {
		if entries[i].Message == msg {
			return &entries[i]
		}
	}
	return nil
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-42")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/documents/:kind/:id", func(c *gin.Context) {
		assert.Equal(t, "req-42", GetRequestID(c.Request.Context()))
		FromContext(c.Request.Context()).Info("handler ran")
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/documents/invoice/123?verbose=1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, findEntry(recorded.All(), "handler ran"))

	entry := findEntry(recorded.All(), "HTTP Request")
	require.NotNil(t, entry)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "verbose=1", fields["query"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotNil(t, findEntry(recorded.All(), "Panic recovered"))
}

func TestGetGinLogger_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}
