package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"StackScout/internal/model"
	pkgerrors "StackScout/pkg/errors"
	pkglog "StackScout/pkg/log"
)

// ErrTechnologyNotFound is returned when a technology is not in the repository.
var ErrTechnologyNotFound = errors.New("technology not found")

// Technology is the GORM model for the technologies table.
type Technology struct {
	ID         int64      `gorm:"primaryKey;column:id"`
	Name       string     `gorm:"column:name;size:100;uniqueIndex;not null"`
	Category   string     `gorm:"column:category;size:50;not null"`
	Maturity   string     `gorm:"column:maturity;size:20"`
	Popularity float64    `gorm:"column:popularity;default:0;not null"`
	DocURL     string     `gorm:"column:doc_url;size:255"`
	RepoURL    string     `gorm:"column:repo_url;size:255"`
	Aliases    *string    `gorm:"column:aliases;type:json"` // JSON array
	LearnedAt  *time.Time `gorm:"column:learned_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Technology) TableName() string {
	return "technologies"
}

// TechnologyRepo persists learned technologies. Without a database it keeps
// them in memory for the life of the process.
type TechnologyRepo struct {
	db     *gorm.DB
	logger *pkglog.LogHelper

	mu  sync.RWMutex
	mem map[string]*model.TechnologyProfile
}

// NewTechnologyRepo creates a repository on db; a nil db selects the
// in-memory store.
func NewTechnologyRepo(db *gorm.DB, logger log.Logger) *TechnologyRepo {
	helper := pkglog.NewLogHelper(logger)
	if db == nil {
		helper.Warn("no database configured, learned technologies are kept in memory only")
	}
	return &TechnologyRepo{
		db:     db,
		logger: helper,
		mem:    make(map[string]*model.TechnologyProfile),
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Save inserts the profile or updates the existing row with the same name.
func (r *TechnologyRepo) Save(ctx context.Context, p *model.TechnologyProfile) error {
	if p == nil || normalizeName(p.Name) == "" {
		return errors.New("technology name is required")
	}
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		cp := *p
		cp.Name = normalizeName(p.Name)
		cp.Aliases = append([]string(nil), p.Aliases...)
		r.mem[normalizeName(p.Name)] = &cp
		return nil
	}

	row, err := toTechnology(p)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Create(row).Error
	if pkgerrors.IsRetryable(err) {
		r.logger.Warnw("msg", "retrying technology insert", "name", row.Name, "error", err)
		err = r.db.WithContext(ctx).Create(row).Error
	}
	if err == nil {
		r.logger.Database("technology saved", "name", row.Name, "category", row.Category)
		return nil
	}

	dbErr := pkgerrors.ClassifyDBError(err)
	if dbErr.Type != pkgerrors.ErrorTypeDuplicateKey {
		return fmt.Errorf("failed to save technology %s: %w", row.Name, dbErr)
	}

	result := r.db.WithContext(ctx).
		Model(&Technology{}).
		Where("name = ?", row.Name).
		Updates(map[string]interface{}{
			"category":   row.Category,
			"maturity":   row.Maturity,
			"popularity": row.Popularity,
			"doc_url":    row.DocURL,
			"repo_url":   row.RepoURL,
			"aliases":    row.Aliases,
			"learned_at": row.LearnedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update technology %s: %w", row.Name, pkgerrors.ClassifyDBError(result.Error))
	}
	r.logger.Database("technology updated", "name", row.Name, "category", row.Category)
	return nil
}

// Get returns the profile stored under name.
func (r *TechnologyRepo) Get(ctx context.Context, name string) (*model.TechnologyProfile, error) {
	key := normalizeName(name)
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		p, ok := r.mem[key]
		if !ok {
			return nil, ErrTechnologyNotFound
		}
		cp := *p
		return &cp, nil
	}

	var row Technology
	if err := r.db.WithContext(ctx).Where("name = ?", key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTechnologyNotFound
		}
		return nil, fmt.Errorf("failed to get technology: %w", pkgerrors.ClassifyDBError(err))
	}
	return fromTechnology(&row), nil
}

// List returns all stored profiles ordered by name.
func (r *TechnologyRepo) List(ctx context.Context) ([]*model.TechnologyProfile, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		out := make([]*model.TechnologyProfile, 0, len(r.mem))
		for _, p := range r.mem {
			cp := *p
			out = append(out, &cp)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, nil
	}

	var rows []Technology
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list technologies: %w", pkgerrors.ClassifyDBError(err))
	}
	out := make([]*model.TechnologyProfile, 0, len(rows))
	for i := range rows {
		out = append(out, fromTechnology(&rows[i]))
	}
	return out, nil
}

// Delete removes name; a missing name is not an error.
func (r *TechnologyRepo) Delete(ctx context.Context, name string) error {
	key := normalizeName(name)
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.mem, key)
		return nil
	}
	if err := r.db.WithContext(ctx).Where("name = ?", key).Delete(&Technology{}).Error; err != nil {
		return fmt.Errorf("failed to delete technology: %w", pkgerrors.ClassifyDBError(err))
	}
	return nil
}

func toTechnology(p *model.TechnologyProfile) (*Technology, error) {
	row := &Technology{
		Name:       normalizeName(p.Name),
		Category:   p.Category,
		Maturity:   p.Maturity,
		Popularity: p.Popularity,
		DocURL:     p.DocURL,
		RepoURL:    p.RepoURL,
		LearnedAt:  p.LearnedAt,
	}
	if row.Category == "" {
		row.Category = "general"
	}
	if len(p.Aliases) > 0 {
		raw, err := json.Marshal(p.Aliases)
		if err != nil {
			return nil, fmt.Errorf("failed to encode aliases: %w", err)
		}
		s := string(raw)
		row.Aliases = &s
	}
	return row, nil
}

func fromTechnology(row *Technology) *model.TechnologyProfile {
	p := &model.TechnologyProfile{
		Name:       row.Name,
		Category:   row.Category,
		Maturity:   row.Maturity,
		Popularity: row.Popularity,
		DocURL:     row.DocURL,
		RepoURL:    row.RepoURL,
		Source:     model.SourceLearned,
		LearnedAt:  row.LearnedAt,
	}
	if row.Aliases != nil && *row.Aliases != "" {
		_ = json.Unmarshal([]byte(*row.Aliases), &p.Aliases)
	}
	return p
}
