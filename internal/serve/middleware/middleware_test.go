package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stellar/go/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
)

func Test_RecoverHandler(t *testing.T) {
	buf := new(strings.Builder)
	log.DefaultLogger.SetOutput(buf)
	log.DefaultLogger.SetLevel(logrus.TraceLevel)

	r := chi.NewRouter()
	r.Use(RecoverHandler)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), "panic: test panic")
}

func Test_RecoverHandler_doesNotRecoverFromErrAbortHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RecoverHandler)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	require.Panics(t, func() {
		req, err := http.NewRequest("GET", "/", nil)
		require.NoError(t, err)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
	})
}

func Test_MetricsRequestHandler(t *testing.T) {
	mMonitorService := &monitor.MockMonitorService{}

	r := chi.NewRouter()
	r.Use(MetricsRequestHandler(mMonitorService))
	r.Get("/mock", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status": "OK"}`))
		require.NoError(t, err)
	})

	mLabels := monitor.HTTPRequestLabels{Status: "200", Route: "/mock", Method: "GET"}
	mMonitorService.On("MonitorHTTPRequestDuration", mock.AnythingOfType("time.Duration"), mLabels).Return(nil).Once()

	req, err := http.NewRequest("GET", "/mock", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "OK"}`, rr.Body.String())
}

func Test_RequireKioskID(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequireKioskID)
	r.Get("/jobs/pending", func(w http.ResponseWriter, r *http.Request) {
		kioskID, ok := KioskIDFromContext(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(kioskID))
		require.NoError(t, err)
	})

	t.Run("rejects requests without the header", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "/jobs/pending", nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects a blank header", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "/jobs/pending", nil)
		require.NoError(t, err)
		req.Header.Set(KioskIDHeader, "   ")

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("stores the kiosk id in context", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "/jobs/pending", nil)
		require.NoError(t, err)
		req.Header.Set(KioskIDHeader, "kiosk-42")

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "kiosk-42", rr.Body.String())
	})
}

func Test_CorsMiddleware(t *testing.T) {
	t.Run("Should work with an expected origin", func(t *testing.T) {
		r := chi.NewRouter()
		requestBaseURL := "http://myserver.com/*"
		expectedRespBody := "ok"

		r.Use(CorsMiddleware([]string{requestBaseURL}))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, err := w.Write([]byte(expectedRespBody))
			require.NoError(t, err)
		})

		expectedReqOrigin := "http://myserver.com/custompage"
		req, err := http.NewRequest("GET", "/", nil)
		require.NoError(t, err)
		req.Header.Add("Origin", expectedReqOrigin)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		resp := rr.Result()
		respBody, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, expectedReqOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, expectedRespBody, string(respBody))
	})

	t.Run("Should not return Access-Control-Allow-Origin header with unexpected origin", func(t *testing.T) {
		r := chi.NewRouter()
		requestBaseURL := "http://myserver.com"
		expectedRespBody := "ok"

		r.Use(CorsMiddleware([]string{requestBaseURL}))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, err := w.Write([]byte(expectedRespBody))
			require.NoError(t, err)
		})

		reqOrigin := "http://locahost:8080"
		req, err := http.NewRequest("GET", "/", nil)
		require.NoError(t, err)
		req.Header.Add("Origin", reqOrigin)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		resp := rr.Result()
		respBody, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, expectedRespBody, string(respBody))
	})
}

func Test_LoggingMiddleware(t *testing.T) {
	r := chi.NewRouter()
	expectedRespBody := "ok"

	debugEntries := log.DefaultLogger.StartTest(log.InfoLevel)

	r.Use(RequireKioskID)
	r.Use(LoggingMiddleware)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(expectedRespBody))
		require.NoError(t, err)
	})

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.Header.Set(KioskIDHeader, "kiosk-1")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	resp := rr.Result()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, expectedRespBody, string(respBody))

	entries := debugEntries()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Message, "starting request")
	assert.Contains(t, entries[1].Message, "finished request")
	assert.Equal(t, "kiosk-1", entries[0].Data["kiosk_id"])
}

func Test_BasicAuthMiddleware(t *testing.T) {
	r := chi.NewRouter()

	adminAccount := "admin"
	adminAPIKey := "secret"

	r.Group(func(r chi.Router) {
		r.Use(BasicAuthMiddleware(adminAccount, adminAPIKey))

		r.Get("/authenticated", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, err := w.Write(json.RawMessage(`{"message":"secured content"}`))
			require.NoError(t, err)
		})
	})

	r.Get("/open", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write(json.RawMessage(`{"message":"open content"}`))
		require.NoError(t, err)
	})

	t.Run("returns 401 error when no auth header is sent", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "/authenticated", nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		resp := w.Result()
		respBody, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Not authorized."}`, string(respBody))
	})

	t.Run("returns 401 error for incorrect credentials", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "/authenticated", nil)
		require.NoError(t, err)
		req.SetBasicAuth("wrongUser", "wrongPass")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		resp := w.Result()
		respBody, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Not authorized."}`, string(respBody))
	})

	t.Run("200 response for correct credentials", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "/authenticated", nil)
		require.NoError(t, err)
		req.SetBasicAuth(adminAccount, adminAPIKey)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		resp := w.Result()
		respBody, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"message":"secured content"}`, string(respBody))
	})

	t.Run("200 response for open routes with no auth", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "/open", nil)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		resp := w.Result()
		respBody, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"message":"open content"}`, string(respBody))
	})
}
