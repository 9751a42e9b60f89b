package log

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

type contextKey struct{}

// RequestContext carries tracing fields through one API request.
type RequestContext struct {
	RequestID string
	SessionID string
	StartTime time.Time

	mu       sync.Mutex
	metadata map[string]interface{}
}

const base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateRequestID returns a random 10 character base36 id.
func GenerateRequestID() string {
	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[rand.IntN(len(base36Chars))]
	}
	return string(b)
}

// WithRequestContext attaches a new RequestContext to ctx. An empty
// requestID is replaced by a generated one.
func WithRequestContext(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return context.WithValue(ctx, contextKey{}, &RequestContext{
		RequestID: requestID,
		StartTime: time.Now(),
	})
}

// GetRequestContext returns the RequestContext of ctx, or an empty one
// with request id "unknown".
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if rc, ok := ctx.Value(contextKey{}).(*RequestContext); ok {
			return rc
		}
	}
	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID returns the request id of ctx.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// SetSessionID records the research session a request created or read.
func SetSessionID(ctx context.Context, id string) {
	rc := GetRequestContext(ctx)
	rc.mu.Lock()
	rc.SessionID = id
	rc.mu.Unlock()
}

// GetSessionID returns the session id recorded by SetSessionID.
func GetSessionID(ctx context.Context) string {
	rc := GetRequestContext(ctx)
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.SessionID
}

// SetMetadata stores an extra value on the request.
func SetMetadata(ctx context.Context, key string, value interface{}) {
	rc := GetRequestContext(ctx)
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.metadata == nil {
		rc.metadata = make(map[string]interface{})
	}
	rc.metadata[key] = value
}

// GetMetadata reads a value stored with SetMetadata.
func GetMetadata(ctx context.Context, key string) (interface{}, bool) {
	rc := GetRequestContext(ctx)
	rc.mu.Lock()
	defer rc.mu.Unlock()
	v, ok := rc.metadata[key]
	return v, ok
}

// GetElapsedTime returns the milliseconds since the request started.
func GetElapsedTime(ctx context.Context) int64 {
	rc := GetRequestContext(ctx)
	if rc.StartTime.IsZero() {
		return 0
	}
	return time.Since(rc.StartTime).Milliseconds()
}
