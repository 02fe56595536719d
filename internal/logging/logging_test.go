package logging

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) {
		c.Set(gin.AuthUserKey, "ada")
		c.String(http.StatusOK, GetRequestID(c))
	})
	router.GET("/fail", func(c *gin.Context) {
		c.Error(errors.New("storage failure"))
		c.AbortWithStatus(http.StatusInternalServerError)
	})
	return router
}

func TestNew(t *testing.T) {
	logger, err := New("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New("warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud")
	assert.Error(t, err)
}

// TestRequestIDGenerated expects a fresh UUID when the client did not send an id.
func TestRequestIDGenerated(t *testing.T) {
	router := newTestRouter(zap.NewNop())
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/ok", nil)
	router.ServeHTTP(recorder, request)

	requestID := recorder.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(requestID)
	assert.NoError(t, err)
	assert.Equal(t, requestID, recorder.Body.String())
}

// TestRequestIDKept expects that the id sent by the client is used.
func TestRequestIDKept(t *testing.T) {
	router := newTestRouter(zap.NewNop())
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/ok", nil)
	request.Header.Set(RequestIDHeader, "trace-4711")
	router.ServeHTTP(recorder, request)
	assert.Equal(t, "trace-4711", recorder.Header().Get(RequestIDHeader))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := newTestRouter(zap.New(core))

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/ok", nil)
	request.Header.Set(RequestIDHeader, "trace-4711")
	router.ServeHTTP(recorder, request)

	failRecorder := httptest.NewRecorder()
	failRequest, _ := http.NewRequest("GET", "/fail", nil)
	router.ServeHTTP(failRecorder, failRequest)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "trace-4711", fields["request_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/ok", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "ada", fields["user"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].Message, "storage failure")
	assert.Equal(t, int64(http.StatusInternalServerError), entries[1].ContextMap()["status"])
}
