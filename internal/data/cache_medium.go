package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Area is a storage namespace inside a cache medium.
type Area string

// Cache medium areas.
const (
	AreaContent   Area = "content"
	AreaMetadata  Area = "metadata"
	AreaTemplates Area = "templates"
)

var allAreas = []Area{AreaContent, AreaMetadata, AreaTemplates}

// ErrMediumNotFound is returned by a CacheMedium when a blob does not exist.
var ErrMediumNotFound = errors.New("cache medium: blob not found")

// CacheMedium stores opaque blobs by area and name. Names are chosen by the
// Store and are safe as file names.
type CacheMedium interface {
	Read(ctx context.Context, area Area, name string) ([]byte, error)
	Write(ctx context.Context, area Area, name string, data []byte) error
	// Delete removes a blob; deleting a missing blob is not an error.
	Delete(ctx context.Context, area Area, name string) error
	List(ctx context.Context, area Area) ([]string, error)
}

// FileMedium keeps blobs in a directory tree, one sub-directory per area.
// Writes go to a temp file that is renamed into place.
type FileMedium struct {
	root string
}

// NewFileMedium creates the area directories under root.
func NewFileMedium(root string) (*FileMedium, error) {
	if root == "" {
		return nil, errors.New("cache medium: directory is required")
	}
	for _, a := range allAreas {
		if err := os.MkdirAll(filepath.Join(root, string(a)), 0o755); err != nil {
			return nil, fmt.Errorf("cache medium: create %s: %w", a, err)
		}
	}
	return &FileMedium{root: root}, nil
}

func (m *FileMedium) path(area Area, name string) string {
	return filepath.Join(m.root, string(area), name)
}

func (m *FileMedium) Read(_ context.Context, area Area, name string) ([]byte, error) {
	b, err := os.ReadFile(m.path(area, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMediumNotFound
	}
	return b, err
}

func (m *FileMedium) Write(_ context.Context, area Area, name string, data []byte) error {
	dir := filepath.Join(m.root, string(area))
	tmp, err := os.CreateTemp(dir, ".tmp-"+name+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, m.path(area, name)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (m *FileMedium) Delete(_ context.Context, area Area, name string) error {
	err := os.Remove(m.path(area, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (m *FileMedium) List(_ context.Context, area Area) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.root, string(area)))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// RedisMedium keeps blobs as Redis strings under {prefix}:{area}:{name}.
type RedisMedium struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisMedium wraps rdb.
func NewRedisMedium(rdb *redis.Client, prefix string) (*RedisMedium, error) {
	if rdb == nil {
		return nil, errors.New("cache medium: redis client is nil")
	}
	if prefix == "" {
		prefix = "stackscout:cache"
	}
	return &RedisMedium{rdb: rdb, prefix: prefix}, nil
}

func (m *RedisMedium) key(area Area, name string) string {
	return m.prefix + ":" + string(area) + ":" + name
}

func (m *RedisMedium) Read(ctx context.Context, area Area, name string) ([]byte, error) {
	b, err := m.rdb.Get(ctx, m.key(area, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMediumNotFound
	}
	return b, err
}

func (m *RedisMedium) Write(ctx context.Context, area Area, name string, data []byte) error {
	return m.rdb.Set(ctx, m.key(area, name), data, 0).Err()
}

func (m *RedisMedium) Delete(ctx context.Context, area Area, name string) error {
	return m.rdb.Del(ctx, m.key(area, name)).Err()
}

func (m *RedisMedium) List(ctx context.Context, area Area) ([]string, error) {
	prefix := m.key(area, "")
	var names []string
	iter := m.rdb.Scan(ctx, 0, prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
