package log

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// SlowRequestThreshold is the duration above which a request is also
// logged as slow.
const SlowRequestThreshold = 2 * time.Second

// LogHelper extends log.Helper with typed entries. Each method tags the
// entry with a "type" field picked up by EmojiConsoleEncoder.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper wraps logger.
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{Helper: log.NewHelper(logger)}
}

func typed(msg, logType string, kvs []interface{}) []interface{} {
	all := make([]interface{}, 0, len(kvs)+4)
	all = append(all, "msg", msg)
	all = append(all, kvs...)
	return append(all, "type", logType)
}

// Startup logs a startup step.
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "startup", kvs)...)
}

// Scheduler logs a scheduled job run.
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "scheduler", kvs)...)
}

// Research logs a research workflow step.
func (h *LogHelper) Research(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "research", kvs)...)
}

// Breaker logs a circuit breaker event as a warning.
func (h *LogHelper) Breaker(msg string, kvs ...interface{}) {
	h.Warnw(typed(msg, "breaker", kvs)...)
}

// Database logs a storage operation at debug level.
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(typed(msg, "database", kvs)...)
}

// RequestWithContext logs a finished API request with the request and
// session ids of ctx, and a slow request warning above SlowRequestThreshold.
func (h *LogHelper) RequestWithContext(ctx context.Context, method, path string, status int, elapsed time.Duration, kvs ...interface{}) {
	rc := GetRequestContext(ctx)
	msg := fmt.Sprintf("%s %s - %d (%dms)", method, path, status, elapsed.Milliseconds())
	all := append([]interface{}{"msg", msg}, kvs...)
	all = append(all,
		"type", "request",
		"request_id", rc.RequestID,
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
	)
	if sid := GetSessionID(ctx); sid != "" {
		all = append(all, "session_id", sid)
	}
	h.Infow(all...)

	if elapsed > SlowRequestThreshold {
		h.Warnw(
			"msg", fmt.Sprintf("[%s] slow request %s %s", rc.RequestID, method, path),
			"type", "slow_request",
			"request_id", rc.RequestID,
			"duration_ms", elapsed.Milliseconds(),
			"threshold_ms", SlowRequestThreshold.Milliseconds(),
		)
	}
}

// CacheStats logs the cache counters with the derived hit rate.
func (h *LogHelper) CacheStats(name string, hits, misses, expired, evicted, errs int64, kvs ...interface{}) {
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	msg := fmt.Sprintf("cache stats - %s | hit rate %.2f%%, expired %d, evicted %d", name, hitRate, expired, evicted)
	all := append([]interface{}{"msg", msg}, kvs...)
	all = append(all,
		"cache_name", name,
		"hits", hits,
		"misses", misses,
		"expired", expired,
		"evicted", evicted,
		"errors", errs,
		"hit_rate", fmt.Sprintf("%.2f%%", hitRate),
		"type", "cache_stats",
	)
	h.Infow(all...)
}
