// Package middleware holds the HTTP server middleware: request logging
// and the optional API token check.
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"

	pkglog "StackScout/pkg/log"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// Logging injects a request context and logs every request with its
// status and duration.
//
//	🟢 POST /v1/research - 202 (3ms)
func Logging(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			start := time.Now()

			var method, path, ip, requestID string
			if tr, ok := transport.FromServerContext(ctx); ok {
				method, path = "RPC", tr.Operation()
				requestID = tr.RequestHeader().Get(RequestIDHeader)
				if ht, ok := tr.(http.Transporter); ok {
					r := ht.Request()
					method = r.Method
					path = r.URL.Path
					ip = clientIP(r)
				}
				if requestID == "" {
					requestID = pkglog.GenerateRequestID()
				}
				tr.ReplyHeader().Set(RequestIDHeader, requestID)
			}
			ctx = pkglog.WithRequestContext(ctx, requestID)

			reply, err := handler(ctx, req)

			status := 200
			if err != nil {
				status = int(errors.FromError(err).Code)
			}
			kvs := []interface{}{"ip", ip}
			if err != nil {
				kvs = append(kvs, "error", err.Error())
			}
			logger.RequestWithContext(ctx, method, path, status, time.Since(start), kvs...)
			return reply, err
		}
	}
}

// clientIP prefers X-Real-IP, then the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}
