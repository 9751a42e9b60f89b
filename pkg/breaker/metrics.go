package breaker

import "time"

// Metrics is a point-in-time copy of a breaker's counters.
// Derived values are computed on demand and never stored.
type Metrics struct {
	TotalRequests        int64
	SuccessfulRequests   int64
	FailedRequests       int64
	RejectedRequests     int64
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
	StateTransitions     int64
	LastSuccessTime      time.Time
	LastFailureTime      time.Time
	RecentResponseTimes  []time.Duration
}

// FailureRate returns failed / total requests, 0 when nothing ran yet.
func (m Metrics) FailureRate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.FailedRequests) / float64(m.TotalRequests)
}

// AverageResponseTime averages the recent response-time window.
func (m Metrics) AverageResponseTime() time.Duration {
	if len(m.RecentResponseTimes) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range m.RecentResponseTimes {
		sum += d
	}
	return sum / time.Duration(len(m.RecentResponseTimes))
}

// window is a fixed-capacity ring of response times.
type window struct {
	values []time.Duration
	next   int
	full   bool
}

func newWindow(size int) *window {
	return &window{values: make([]time.Duration, size)}
}

func (w *window) add(d time.Duration) {
	w.values[w.next] = d
	w.next = (w.next + 1) % len(w.values)
	if w.next == 0 {
		w.full = true
	}
}

// snapshot returns the window contents oldest first.
func (w *window) snapshot() []time.Duration {
	if !w.full {
		out := make([]time.Duration, w.next)
		copy(out, w.values[:w.next])
		return out
	}
	out := make([]time.Duration, 0, len(w.values))
	out = append(out, w.values[w.next:]...)
	out = append(out, w.values[:w.next]...)
	return out
}

func (w *window) reset() {
	w.next = 0
	w.full = false
}
