package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// VersionInfo describes one stored version of a namespace.
type VersionInfo struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Size      int64             `json:"size"`
	Checksum  string            `json:"checksum"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Version is a stored version with its content.
type Version struct {
	Namespace string `json:"namespace"`
	VersionInfo
	Content []byte `json:"content"`
}

type versionManifest struct {
	Namespace string        `json:"namespace"`
	Latest    string        `json:"latest"`
	Next      int           `json:"next"`
	Versions  []VersionInfo `json:"versions"`
}

func manifestKey(ns string) string { return ns + "#manifest" }

func versionKey(ns, id string) string { return ns + "@" + id }

// StoreVersioned stores content as a new version of ns, repoints the latest
// marker at it and prunes versions beyond MaxVersions.
func (s *Store) StoreVersioned(ctx context.Context, ns string, content []byte, metadata map[string]string) (string, error) {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()

	m, err := s.readManifest(ctx, ns)
	if err != nil {
		return "", err
	}

	m.Next++
	id := fmt.Sprintf("v%d", m.Next)
	entry, err := s.put(ctx, AreaTemplates, versionKey(ns, id), content, nil, id)
	if err != nil {
		return "", err
	}

	m.Versions = append(m.Versions, VersionInfo{
		ID:        id,
		CreatedAt: entry.CreatedAt,
		Size:      entry.RawSize,
		Checksum:  entry.Checksum,
		Metadata:  metadata,
	})
	var pruned []VersionInfo
	if over := len(m.Versions) - s.opts.MaxVersions; over > 0 {
		pruned = append(pruned, m.Versions[:over]...)
		m.Versions = append([]VersionInfo(nil), m.Versions[over:]...)
	}
	m.Latest = id

	if err := s.writeManifest(ctx, m); err != nil {
		_ = s.remove(ctx, AreaTemplates, versionKey(ns, id))
		return "", err
	}
	for _, v := range pruned {
		if err := s.remove(ctx, AreaTemplates, versionKey(ns, v.ID)); err != nil {
			s.log.Warnw("msg", "failed to prune old version", "namespace", ns, "version", v.ID, "error", err)
		}
	}

	s.log.Debugw("msg", "version stored", "namespace", ns, "version", id, "kept", len(m.Versions))
	return id, nil
}

// Latest returns the newest version of ns.
func (s *Store) Latest(ctx context.Context, ns string) (*Version, error) {
	m, err := s.readManifest(ctx, ns)
	if err != nil {
		return nil, err
	}
	if m.Latest == "" {
		return nil, ErrCacheNotFound
	}
	return s.versionFrom(ctx, m, m.Latest)
}

// Version returns version id of ns.
func (s *Store) Version(ctx context.Context, ns, id string) (*Version, error) {
	m, err := s.readManifest(ctx, ns)
	if err != nil {
		return nil, err
	}
	return s.versionFrom(ctx, m, id)
}

// Versions lists the kept versions of ns, oldest first.
func (s *Store) Versions(ctx context.Context, ns string) ([]VersionInfo, error) {
	m, err := s.readManifest(ctx, ns)
	if err != nil {
		return nil, err
	}
	return m.Versions, nil
}

// InvalidateNamespace removes every version of ns and its manifest.
// It returns the number of versions removed.
func (s *Store) InvalidateNamespace(ctx context.Context, ns string) (int, error) {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()

	m, err := s.readManifest(ctx, ns)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, v := range m.Versions {
		if err := s.remove(ctx, AreaTemplates, versionKey(ns, v.ID)); err != nil {
			return removed, &CacheError{Op: "invalidate", Key: versionKey(ns, v.ID), Err: err}
		}
		removed++
	}
	if err := s.remove(ctx, AreaTemplates, manifestKey(ns)); err != nil {
		return removed, &CacheError{Op: "invalidate", Key: manifestKey(ns), Err: err}
	}
	if removed > 0 {
		s.log.Infow("msg", "namespace invalidated", "namespace", ns, "versions", removed)
	}
	return removed, nil
}

func (s *Store) versionFrom(ctx context.Context, m *versionManifest, id string) (*Version, error) {
	for _, info := range m.Versions {
		if info.ID != id {
			continue
		}
		content, _, err := s.load(ctx, AreaTemplates, versionKey(m.Namespace, id))
		if err != nil {
			return nil, err
		}
		return &Version{Namespace: m.Namespace, VersionInfo: info, Content: content}, nil
	}
	return nil, ErrCacheNotFound
}

// readManifest returns the manifest of ns, empty when none is stored.
// A manifest that exists but cannot be read is an error, never empty.
func (s *Store) readManifest(ctx context.Context, ns string) (*versionManifest, error) {
	raw, _, err := s.loadStrict(ctx, AreaTemplates, manifestKey(ns))
	if errors.Is(err, ErrCacheNotFound) {
		return &versionManifest{Namespace: ns}, nil
	}
	if err != nil {
		return nil, err
	}
	var m versionManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &CacheError{Op: "decode", Key: manifestKey(ns), Err: err}
	}
	m.Namespace = ns
	return &m, nil
}

func (s *Store) writeManifest(ctx context.Context, m *versionManifest) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return &CacheError{Op: "encode", Key: manifestKey(m.Namespace), Err: err}
	}
	_, err = s.put(ctx, AreaTemplates, manifestKey(m.Namespace), raw, nil, m.Latest)
	return err
}
