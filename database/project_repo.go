package database

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/rpupo63/hundred-days/cache"
	"github.com/rpupo63/hundred-days/errs"
	"github.com/rpupo63/hundred-days/models"
)

const (
	recentProjectsKey = "projects:recent"
	projectSlugPrefix = "project:slug:"
)

// ProjectCache is the subset of cache.RedisClient the repository needs.
type ProjectCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type ProjectRepo struct {
	db       *gorm.DB
	cache    ProjectCache
	cacheTTL time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	// writes counts committed writes. A read only fills the cache when no
	// write landed between its query and its store.
	writes atomic.Uint64
}

type ProjectRepoOption func(*ProjectRepo)

// WithCache serves the public read paths (recency list and slug lookup)
// from c. Every write invalidates the affected keys.
func WithCache(c ProjectCache, ttl time.Duration) ProjectRepoOption {
	return func(r *ProjectRepo) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) ProjectRepoOption {
	return func(r *ProjectRepo) {
		r.now = now
	}
}

func NewProjectRepo(db *gorm.DB, opts ...ProjectRepoOption) *ProjectRepo {
	r := &ProjectRepo{
		db:     db,
		now:    time.Now,
		logger: log.With().Str("repo", "projects").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindAllByRecency returns every project, newest first.
func (r *ProjectRepo) FindAllByRecency(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	gen := r.writes.Load()
	if r.cachedJSON(ctx, recentProjectsKey, &projects) {
		return projects, nil
	}

	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("find", "projects", err)
	}
	r.storeJSON(ctx, recentProjectsKey, projects, gen)
	return projects, nil
}

// FindAllByDayDesc returns every project ordered by day number, highest first.
// The admin dashboard reads through here, so it never hits the cache.
func (r *ProjectRepo) FindAllByDayDesc(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	err := r.db.WithContext(ctx).Order("day_number DESC").Order("id DESC").Find(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("find", "projects", err)
	}
	return projects, nil
}

// FindBySlug returns the project published under slug.
func (r *ProjectRepo) FindBySlug(ctx context.Context, slug string) (*models.Project, error) {
	var project models.Project
	gen := r.writes.Load()
	if r.cachedJSON(ctx, projectSlugPrefix+slug, &project) {
		return &project, nil
	}

	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("project")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	r.storeJSON(ctx, projectSlugPrefix+slug, project, gen)
	return &project, nil
}

// FindByID returns a project by its ID
func (r *ProjectRepo) FindByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("project")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	return &project, nil
}

// ExistsBySlug reports whether any project already uses slug.
func (r *ProjectRepo) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).Where("slug = ?", slug).Count(&count).Error
	if err != nil {
		return false, errs.NewDatabaseError("check", "project slug", err)
	}
	return count > 0, nil
}

// Add inserts a new project, stamping both timestamps with the same instant.
func (r *ProjectRepo) Add(ctx context.Context, project *models.Project) error {
	now := r.now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return errs.NewDatabaseError("create", "project", err)
	}
	r.invalidate(ctx, project.Slug)
	return nil
}

// Update writes the named columns (see models.Field*) and refreshes updated_at.
// Columns not listed keep their stored value.
func (r *ProjectRepo) Update(ctx context.Context, project *models.Project, fields ...string) error {
	if project.ID == 0 {
		return errs.NewBadRequestError("project has no id")
	}
	project.UpdatedAt = r.now().UTC()

	columns := make([]string, 0, len(fields)+1)
	columns = append(columns, fields...)
	columns = append(columns, "updated_at")

	result := r.db.WithContext(ctx).Model(project).Select(columns).Updates(project)
	if result.Error != nil {
		return errs.NewDatabaseError("update", "project", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFound("project")
	}
	r.invalidate(ctx, project.Slug)
	return nil
}

// Delete removes a project permanently.
func (r *ProjectRepo) Delete(ctx context.Context, project *models.Project) error {
	result := r.db.WithContext(ctx).Delete(&models.Project{}, project.ID)
	if result.Error != nil {
		return errs.NewDatabaseError("delete", "project", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFound("project")
	}
	r.invalidate(ctx, project.Slug)
	return nil
}

func (r *ProjectRepo) cachedJSON(ctx context.Context, key string, dst any) bool {
	if r.cache == nil {
		return false
	}
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to database")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false
	}
	return true
}

// storeJSON caches value unless a write committed since gen was read. Writes
// from other processes are only bounded by the TTL.
func (r *ProjectRepo) storeJSON(ctx context.Context, key string, value any, gen uint64) {
	if r.cache == nil {
		return
	}
	if r.writes.Load() != gen {
		r.logger.Debug().Str("key", key).Msg("skipping cache fill, a write landed during the read")
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("could not encode cache entry")
		return
	}
	if err := r.cache.Set(ctx, key, data, r.cacheTTL); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (r *ProjectRepo) invalidate(ctx context.Context, slug string) {
	r.writes.Add(1)
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, recentProjectsKey, projectSlugPrefix+slug); err != nil {
		r.logger.Warn().Err(err).Str("slug", slug).Msg("cache invalidation failed")
	}
}
