package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/estatedesk/internal/logger"
	"github.com/stwalsh4118/estatedesk/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// logLines decodes the JSON lines written by a production logger.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestRequestID(t *testing.T) {
	echo := func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) }

	t.Run("generates a UUID when none is sent", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", echo)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		headerID := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(headerID)
		assert.NoError(t, err)
		assert.Equal(t, headerID, w.Body.String())
	})

	tests := []struct {
		name     string
		incoming string
		kept     bool
	}{
		{name: "keeps upstream id", incoming: "lb-7f3a.2024:01", kept: true},
		{name: "replaces id with spaces", incoming: "id with spaces", kept: false},
		{name: "replaces id with control characters", incoming: "abc\x1bdef", kept: false},
		{name: "replaces overlong id", incoming: strings.Repeat("a", maxRequestIDLength+1), kept: false},
		{name: "keeps id at the length limit", incoming: strings.Repeat("a", maxRequestIDLength), kept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(RequestID())
			router.GET("/test", echo)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if tt.kept {
				assert.Equal(t, tt.incoming, w.Body.String())
				return
			}
			assert.NotEqual(t, tt.incoming, w.Body.String())
			_, err := uuid.Parse(w.Body.String())
			assert.NoError(t, err)
		})
	}

	t.Run("empty outside the chain", func(t *testing.T) {
		assert.Empty(t, GetRequestID(&gin.Context{}))
	})
}

func TestCORS(t *testing.T) {
	allowedOrigins := []string{"http://localhost:3000", "http://localhost:3001"}

	newRouter := func(origins []string) *gin.Engine {
		router := gin.New()
		router.Use(CORS(origins))
		router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
		return router
	}

	t.Run("allows listed origin with credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		newRouter(allowedOrigins).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("ignores unlisted origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://evil.com")
		w := httptest.NewRecorder()
		newRouter(allowedOrigins).ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight allows event stream reconnect headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		newRouter(allowedOrigins).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		allowed := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
		assert.Contains(t, allowed, "last-event-id")
		assert.Contains(t, allowed, "x-request-id")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})

	t.Run("rejects preflight from unlisted origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", "http://evil.com")
		w := httptest.NewRecorder()
		newRouter(allowedOrigins).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("wildcard opens every origin without credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://anywhere.example")
		w := httptest.NewRecorder()
		newRouter([]string{"*"}).ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestCORSConfig(t *testing.T) {
	listed := corsConfig([]string{"http://localhost:3000"})
	assert.False(t, listed.AllowAllOrigins)
	assert.True(t, listed.AllowCredentials)
	assert.Equal(t, []string{"http://localhost:3000"}, listed.AllowOrigins)
	assert.Contains(t, listed.ExposeHeaders, RequestIDHeader)

	wildcard := corsConfig([]string{"http://localhost:3000", "*"})
	assert.True(t, wildcard.AllowAllOrigins)
	assert.False(t, wildcard.AllowCredentials)
	assert.Empty(t, wildcard.AllowOrigins)
}

func TestLogger(t *testing.T) {
	newRouter := func(buf *bytes.Buffer) *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.Use(Logger(logger.NewWithWriter("production", buf)))
		return router
	}

	t.Run("logs route template and request id", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)
		router.GET("/api/v1/leads/:id", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

		req := httptest.NewRequest(http.MethodGet, "/api/v1/leads/42?fields=score", nil)
		req.Header.Set(RequestIDHeader, "req-1")
		router.ServeHTTP(httptest.NewRecorder(), req)

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "Request completed", lines[0]["message"])
		assert.Equal(t, "info", lines[0]["level"])
		assert.Equal(t, "/api/v1/leads/:id", lines[0]["route"])
		assert.Equal(t, "/api/v1/leads/42", lines[0]["path"])
		assert.Equal(t, "fields=score", lines[0]["query"])
		assert.Equal(t, "req-1", lines[0]["request_id"])
		assert.Equal(t, float64(http.StatusOK), lines[0]["status"])
	})

	t.Run("successful health checks stay below info", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)
		router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Empty(t, logLines(t, &buf))
	})

	t.Run("failing health checks still surface", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)
		router.GET("/health/ready", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "error", lines[0]["level"])
	})

	t.Run("server errors carry the handler error", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)
		router.GET("/boom", func(c *gin.Context) {
			_ = c.Error(errors.New("connection reset"))
			c.Status(http.StatusInternalServerError)
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "Request failed", lines[0]["message"])
		assert.Equal(t, "connection reset", lines[0]["error"])
	})

	t.Run("client errors log as warnings", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)
		router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "warn", lines[0]["level"])
		assert.Equal(t, "Request rejected", lines[0]["message"])
	})

	t.Run("event streams log on close", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)
		router.GET("/stream", func(c *gin.Context) {
			c.Header("Content-Type", "text/event-stream")
			c.SSEvent("ping", "")
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stream", nil))

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "Change stream closed", lines[0]["message"])
	})

	t.Run("GetLogger", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)
		var found *logger.Logger
		router.GET("/test", func(c *gin.Context) {
			found = GetLogger(c)
			c.String(http.StatusOK, "OK")
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.NotNil(t, found)
		assert.Nil(t, GetLogger(&gin.Context{}))
	})
}

func TestRecovery(t *testing.T) {
	t.Run("panic becomes error envelope", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.Use(Recovery(logger.Nop()))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		req.Header.Set(RequestIDHeader, "req-panic")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body struct {
			Error struct {
				Code      string `json:"code"`
				Message   string `json:"message"`
				RequestID string `json:"request_id"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Error.Code)
		assert.Equal(t, "req-panic", body.Error.RequestID)
		assert.NotContains(t, w.Body.String(), "test panic")
	})

	t.Run("panic after the response started leaves the body alone", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(logger.Nop()))
		router.GET("/partial", func(c *gin.Context) {
			c.String(http.StatusOK, "event: ping\n\n")
			panic("stream broke")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "event: ping\n\n", w.Body.String())
	})

	t.Run("logs through the request logger", func(t *testing.T) {
		var buf bytes.Buffer
		router := gin.New()
		router.Use(RequestID())
		router.Use(Logger(logger.NewWithWriter("production", &buf)))
		router.Use(Recovery(logger.Nop()))
		router.GET("/panic", func(c *gin.Context) { panic("boom") })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))

		lines := logLines(t, &buf)
		require.Len(t, lines, 2)
		assert.Equal(t, "Panic recovered", lines[0]["message"])
		assert.Equal(t, "panic: boom", lines[0]["error"])
		assert.Equal(t, "/panic", lines[0]["route"])
		assert.Equal(t, "Request failed", lines[1]["message"])
	})

	t.Run("does not interfere with normal requests", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(logger.Nop()))
		router.GET("/normal", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/normal", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})
}

func TestMiddlewareStack(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger(logger.Nop()))
	router.Use(Recovery(logger.Nop()))
	router.Use(CORS([]string{"http://localhost:3000"}))
	router.GET("/test", func(c *gin.Context) {
		assert.NotEmpty(t, GetRequestID(c))
		assert.NotNil(t, GetLogger(c))
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics(t *testing.T) {
	t.Run("labels by route template", func(t *testing.T) {
		m := metrics.New()
		router := gin.New()
		router.Use(Metrics(m))
		router.GET("/api/v1/leads/:id", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		for _, id := range []string{"a", "b"} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/leads/"+id, nil)
			router.ServeHTTP(httptest.NewRecorder(), req)
		}

		assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/leads/:id", "200")))
	})

	t.Run("groups unknown paths", func(t *testing.T) {
		m := metrics.New()
		router := gin.New()
		router.Use(Metrics(m))

		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", unmatchedRoute, "404")))
	})
}
