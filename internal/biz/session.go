package biz

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"StackScout/internal/conf"
	"StackScout/internal/metrics"
	"StackScout/internal/model"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.NotFound("SESSION_NOT_FOUND", "research session not found")

// TechStatus is the status of one technology within a session.
type TechStatus string

// Technology statuses, in the only order they may be entered.
const (
	TechPending     TechStatus = "pending"
	TechResearching TechStatus = "researching"
	TechCompleted   TechStatus = "completed"
	TechFailed      TechStatus = "failed"
)

func (s TechStatus) rank() int {
	switch s {
	case TechPending:
		return 0
	case TechResearching:
		return 1
	case TechCompleted, TechFailed:
		return 2
	}
	return -1
}

// Terminal reports whether no further transition is possible.
func (s TechStatus) Terminal() bool {
	return s == TechCompleted || s == TechFailed
}

// SessionStatus is the overall status of a batch.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// Outcome is what happened to one technology.
type Outcome struct {
	Technology      string                   `json:"technology"`
	Status          TechStatus               `json:"status"`
	Known           bool                     `json:"known"`
	Cached          bool                     `json:"cached"`
	QualityWarning  bool                     `json:"quality_warning"`
	Quality         float64                  `json:"quality"`
	ArtifactVersion string                   `json:"artifact_version,omitempty"`
	Error           string                   `json:"error,omitempty"`
	Profile         *model.TechnologyProfile `json:"profile,omitempty"`
	Result          *model.ResearchResult    `json:"result,omitempty"`
	Artifact        *model.Artifact          `json:"artifact,omitempty"`
	StartedAt       *time.Time               `json:"started_at,omitempty"`
	FinishedAt      *time.Time               `json:"finished_at,omitempty"`
}

// Counters are live per-status counts of a session.
type Counters struct {
	Pending         int `json:"pending"`
	Researching     int `json:"researching"`
	Completed       int `json:"completed"`
	Failed          int `json:"failed"`
	PeakResearching int `json:"peak_researching"`
}

// Session tracks one batch research request.
type Session struct {
	ID           string              `json:"id"`
	Technologies []string            `json:"technologies"`
	Status       SessionStatus       `json:"status"`
	Outcomes     map[string]*Outcome `json:"outcomes"`
	Counters     Counters            `json:"counters"`
	Error        string              `json:"error,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Technologies = append([]string(nil), s.Technologies...)
	cp.Outcomes = make(map[string]*Outcome, len(s.Outcomes))
	for k, o := range s.Outcomes {
		oc := *o
		cp.Outcomes[k] = &oc
	}
	return &cp
}

// SessionManager owns all sessions in memory.
type SessionManager struct {
	retention time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *log.Helper

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a manager that keeps finished sessions for
// research.session_retention, one hour by default.
func NewSessionManager(c *conf.Research, m *metrics.Metrics, logger log.Logger) *SessionManager {
	retention := time.Hour
	if c != nil && c.SessionRetention > 0 {
		retention = c.SessionRetention
	}
	return &SessionManager{
		retention: retention,
		metrics:   m,
		now:       time.Now,
		logger:    log.NewHelper(logger),
		sessions:  make(map[string]*Session),
	}
}

// Create starts an in-progress session with every technology pending.
func (m *SessionManager) Create(technologies []string) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		Technologies: append([]string(nil), technologies...),
		Status:       SessionInProgress,
		Outcomes:     make(map[string]*Outcome, len(technologies)),
		StartedAt:    m.now(),
	}
	for _, t := range technologies {
		s.Outcomes[t] = &Outcome{Technology: t, Status: TechPending}
	}
	s.Counters.Pending = len(technologies)

	m.mu.Lock()
	m.sessions[s.ID] = s
	if len(technologies) == 0 {
		m.finishLocked(s)
	}
	m.mu.Unlock()

	m.metrics.SessionStarted()
	m.logger.Infow("msg", "research session created", "session_id", s.ID, "technologies", len(technologies))
	return s.clone()
}

// Start moves a technology to researching.
func (m *SessionManager) Start(id, technology string) error {
	return m.update(id, technology, func(o *Outcome) {
		o.Status = TechResearching
		now := m.now()
		o.StartedAt = &now
	})
}

// Complete records a successful outcome. The outcome status is forced to completed.
func (m *SessionManager) Complete(id string, outcome Outcome) error {
	return m.update(id, outcome.Technology, func(o *Outcome) {
		started := o.StartedAt
		*o = outcome
		o.Status = TechCompleted
		o.StartedAt = started
		now := m.now()
		o.FinishedAt = &now
	})
}

// Fail records a failed technology with its error message.
func (m *SessionManager) Fail(id, technology string, cause error) error {
	return m.update(id, technology, func(o *Outcome) {
		o.Status = TechFailed
		if cause != nil {
			o.Error = cause.Error()
		}
		now := m.now()
		o.FinishedAt = &now
	})
}

// Abort marks the whole session failed after an unrecoverable error.
func (m *SessionManager) Abort(id string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.FinishedAt != nil {
		return nil
	}
	if cause != nil {
		s.Error = cause.Error()
	}
	m.finishLocked(s)
	s.Status = SessionFailed
	m.logger.Errorw("msg", "research session aborted", "session_id", id, "error", cause)
	return nil
}

// update applies fn to a technology's outcome if the resulting status does
// not move backwards. Terminal outcomes are never changed.
func (m *SessionManager) update(id, technology string, fn func(*Outcome)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	o, ok := s.Outcomes[technology]
	if !ok {
		return fmt.Errorf("technology %q is not part of session %s", technology, id)
	}
	from := o.Status
	if from.Terminal() {
		return fmt.Errorf("technology %q already %s", technology, from)
	}

	next := *o
	fn(&next)
	if next.Status.rank() < from.rank() {
		return fmt.Errorf("invalid status transition for %q: %s -> %s", technology, from, next.Status)
	}
	*o = next
	m.count(s, from, -1)
	m.count(s, next.Status, 1)

	if s.Counters.Pending == 0 && s.Counters.Researching == 0 && s.FinishedAt == nil {
		m.finishLocked(s)
	}
	return nil
}

func (m *SessionManager) count(s *Session, st TechStatus, delta int) {
	c := &s.Counters
	switch st {
	case TechPending:
		c.Pending += delta
	case TechResearching:
		c.Researching += delta
		if c.Researching > c.PeakResearching {
			c.PeakResearching = c.Researching
		}
	case TechCompleted:
		c.Completed += delta
	case TechFailed:
		c.Failed += delta
	}
}

func (m *SessionManager) finishLocked(s *Session) {
	now := m.now()
	s.FinishedAt = &now
	s.Status = SessionCompleted
	m.logger.Infow("msg", "research session finished",
		"session_id", s.ID,
		"completed", s.Counters.Completed,
		"failed", s.Counters.Failed,
		"peak_researching", s.Counters.PeakResearching,
		"duration", now.Sub(s.StartedAt))
}

// Get returns a copy of the session.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.clone(), nil
}

// List returns copies of all sessions, newest first.
func (m *SessionManager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.clone())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Cleanup drops sessions finished more than the retention delay ago and
// returns how many were removed. In-progress sessions are kept.
func (m *SessionManager) Cleanup() int {
	cutoff := m.now().Add(-m.retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.FinishedAt != nil && s.FinishedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Infow("msg", "expired research sessions removed", "count", removed, "remaining", len(m.sessions))
	}
	return removed
}
