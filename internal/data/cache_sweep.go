package data

import (
	"context"
	"errors"
	"sort"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	Scanned    int   `json:"scanned"`
	Expired    int   `json:"expired"`
	Evicted    int   `json:"evicted"`
	TotalBytes int64 `json:"total_bytes"`
}

// Sweep removes expired entries, then evicts least-recently-accessed
// content entries until the stored size is within MaxSizeBytes.
// Versioned artifacts are bounded by MaxVersions and never evicted here.
func (s *Store) Sweep(ctx context.Context) (SweepReport, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	s.flushTouched(ctx)

	var report SweepReport
	now := s.now()
	var live []*CacheEntry
	for _, area := range []Area{AreaContent, AreaTemplates} {
		entries, err := s.entries(ctx, area)
		if err != nil {
			return report, &CacheError{Op: "sweep", Key: string(area), Err: err}
		}
		for _, e := range entries {
			report.Scanned++
			if e.Expired(now) {
				removed, err := s.removeUnchanged(ctx, e)
				if err != nil {
					s.log.Warnw("msg", "failed to remove expired cache entry", "key", e.Key, "error", err)
					continue
				}
				if !removed {
					continue
				}
				s.expired.Add(1)
				report.Expired++
				continue
			}
			report.TotalBytes += e.Size
			live = append(live, e)
		}
	}

	if s.opts.MaxSizeBytes > 0 && report.TotalBytes > s.opts.MaxSizeBytes {
		sort.SliceStable(live, func(i, j int) bool {
			if !live[i].LastAccessed.Equal(live[j].LastAccessed) {
				return live[i].LastAccessed.Before(live[j].LastAccessed)
			}
			return live[i].CreatedAt.Before(live[j].CreatedAt)
		})
		for _, e := range live {
			if report.TotalBytes <= s.opts.MaxSizeBytes {
				break
			}
			if e.Area != AreaContent {
				continue
			}
			removed, err := s.removeUnchanged(ctx, e)
			if err != nil {
				s.log.Warnw("msg", "failed to evict cache entry", "key", e.Key, "error", err)
				continue
			}
			if !removed {
				continue
			}
			report.TotalBytes -= e.Size
			report.Evicted++
			s.evicted.Add(1)
		}
		if report.TotalBytes > s.opts.MaxSizeBytes {
			s.log.Warnw("msg", "cache still over budget after eviction", "total_bytes", report.TotalBytes, "max_bytes", s.opts.MaxSizeBytes)
		}
	}

	s.log.Infow("msg", "cache sweep finished",
		"scanned", report.Scanned,
		"expired", report.Expired,
		"evicted", report.Evicted,
		"total_bytes", report.TotalBytes)
	return report, nil
}

// removeUnchanged removes the listed entry e unless it was rewritten or
// removed after the listing. Writers are blocked between check and removal.
func (s *Store) removeUnchanged(ctx context.Context, e *CacheEntry) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, err := s.readSidecar(ctx, e.Area, e.Key, true)
	if errors.Is(err, ErrCacheNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !sameGeneration(cur, e) {
		s.log.Debugw("msg", "cache entry rewritten during sweep, kept", "key", e.Key)
		return false, nil
	}
	if err := s.remove(ctx, e.Area, e.Key); err != nil {
		return false, err
	}
	return true, nil
}

// sameGeneration reports whether a and b describe the same write.
func sameGeneration(a, b *CacheEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) || a.Checksum != b.Checksum || a.Size != b.Size {
		return false
	}
	if (a.ExpiresAt == nil) != (b.ExpiresAt == nil) {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.Equal(*b.ExpiresAt)
}

// flushTouched writes pending index-hit access stats to the sidecars so
// eviction sees them.
func (s *Store) flushTouched(ctx context.Context) {
	s.mu.Lock()
	pending := s.touched
	s.touched = make(map[string]accessStat)
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	for _, area := range []Area{AreaContent, AreaTemplates} {
		entries, err := s.entries(ctx, area)
		if err != nil {
			s.log.Warnw("msg", "failed to list cache metadata for access flush", "error", err)
			return
		}
		for _, e := range entries {
			st, ok := pending[sidecarName(e.Area, e.Key)]
			if !ok {
				continue
			}
			e.AccessCount += st.count
			if st.at.After(e.LastAccessed) {
				e.LastAccessed = st.at
			}
			if err := s.writeSidecar(ctx, e); err != nil {
				s.log.Warnw("msg", "failed to flush cache access stats", "key", e.Key, "error", err)
			}
		}
	}
}
