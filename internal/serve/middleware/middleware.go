package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/stellar/go/support/http/mutil"
	"github.com/stellar/go/support/log"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/serve/httperror"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/utils"
)

type ContextKey string

const (
	// KioskIDContextKey is where RequireKioskID stores the value of the X-Kiosk-Id header.
	KioskIDContextKey ContextKey = "kiosk_id"
	// KioskIDHeader is the header every kiosk-facing request must carry.
	KioskIDHeader string = "X-Kiosk-Id"
)

// RecoverHandler is a middleware that recovers from panics and logs the error.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			// No need to recover when the client has disconnected:
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			ctx := req.Context()
			log.Ctx(ctx).WithStack(err).Error(err)
			httperror.InternalError(ctx, "", err, nil).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// MetricsRequestHandler is a middleware that monitors http requests, and export the data
// to the metrics server
func MetricsRequestHandler(monitorService monitor.MonitorServiceInterface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := middleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			duration := time.Since(then)

			labels := monitor.HTTPRequestLabels{
				Status: fmt.Sprintf("%d", mw.Status()),
				Route:  utils.GetRoutePattern(req),
				Method: req.Method,
			}

			err := monitorService.MonitorHTTPRequestDuration(duration, labels)
			if err != nil {
				log.Ctx(req.Context()).Errorf("Error trying to monitor request time: %s", err)
			}
		})
	}
}

// RequireKioskID reads the X-Kiosk-Id header and stores it in the request context, rejecting the
// request with InvalidKiosk if the header is missing or blank. Only kiosk-scoped routes mount
// this middleware: transaction creation from the attendant display and the agent's job
// poll/report surface. Payer-facing routes and the admin audit surface do not.
func RequireKioskID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		kioskID := strings.TrimSpace(req.Header.Get(KioskIDHeader))
		if kioskID == "" {
			httperror.NewHTTPError(http.StatusBadRequest, "InvalidKiosk", nil, nil).
				WithDetail(fmt.Sprintf("%s header is required", KioskIDHeader)).
				Render(rw)
			return
		}

		ctx := context.WithValue(req.Context(), KioskIDContextKey, kioskID)
		next.ServeHTTP(rw, req.WithContext(ctx))
	})
}

// KioskIDFromContext returns the kiosk id stashed by RequireKioskID.
func KioskIDFromContext(ctx context.Context) (string, bool) {
	kioskID, ok := ctx.Value(KioskIDContextKey).(string)
	return kioskID, ok
}

func CorsMiddleware(corsAllowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		cors := cors.New(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		})

		return cors.Handler(next)
	}
}

// LoggingMiddleware is a middleware that logs requests to the logger.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		mw := mutil.WrapWriter(rw)

		reqCtx := req.Context()
		logFields := log.F{
			"method": req.Method,
			"path":   req.URL.String(),
			"req":    middleware.GetReqID(reqCtx),
		}
		if kioskID, ok := KioskIDFromContext(reqCtx); ok {
			logFields["kiosk_id"] = kioskID
		}
		logCtx := log.Set(reqCtx, log.Ctx(reqCtx).WithFields(logFields))
		req = req.WithContext(logCtx)

		logRequestStart(req)
		started := time.Now()

		next.ServeHTTP(mw, req)
		ended := time.Since(started)
		logRequestEnd(req, mw, ended)
	})
}

func logRequestStart(req *http.Request) {
	l := log.Ctx(req.Context()).WithFields(
		log.F{
			"subsys":    "http",
			"ip":        req.RemoteAddr,
			"host":      req.Host,
			"useragent": req.Header.Get("User-Agent"),
		},
	)

	l.Info("starting request")
}

func logRequestEnd(req *http.Request, mw mutil.WriterProxy, duration time.Duration) {
	l := log.Ctx(req.Context()).WithFields(log.F{
		"subsys":   "http",
		"status":   mw.Status(),
		"bytes":    mw.BytesWritten(),
		"duration": duration,
	})
	if routeContext := chi.RouteContext(req.Context()); routeContext != nil {
		l = l.WithField("route", routeContext.RoutePattern())
	}

	l.Info("finished request")
}

// BasicAuthMiddleware gates the operator audit surface behind a single static
// account/API-key pair, compared in constant time to avoid timing attacks.
func BasicAuthMiddleware(adminAccount, adminAPIKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			if adminAccount == "" || adminAPIKey == "" {
				httperror.InternalError(ctx, "Admin account and API key are not set", nil, nil).Render(rw)
				return
			}

			accountUserName, apiKey, ok := req.BasicAuth()
			if !ok {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			if accountUserName != adminAccount || subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminAPIKey)) != 1 {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			log.Ctx(ctx).Infof("[AdminAuth] - Admin authenticated with account %s", adminAccount)
			next.ServeHTTP(rw, req)
		})
	}
}
