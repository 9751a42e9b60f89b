package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"

	pkglog "StackScout/pkg/log"
)

// ErrUnauthorized rejects requests without the configured API token.
var ErrUnauthorized = errors.Unauthorized("UNAUTHORIZED", "missing or invalid API token")

// bearerToken reads "Authorization: Bearer <token>", falling back to X-API-Key.
func bearerToken(h transport.Header) string {
	if v := h.Get("Authorization"); v != "" {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(h.Get("X-API-Key"))
}

// Auth requires token on every request. An empty token disables the check.
func Auth(token string, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		if token == "" {
			return handler
		}
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return nil, ErrUnauthorized
			}
			got := bearerToken(tr.RequestHeader())
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.Warnw("msg", "rejected request with invalid API token",
					"type", "request",
					"operation", tr.Operation(),
					"request_id", pkglog.GetRequestID(ctx),
					"api_key", got)
				return nil, ErrUnauthorized
			}
			return handler(ctx, req)
		}
	}
}
