package database

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rpupo63/hundred-days/cache"
	"github.com/rpupo63/hundred-days/errs"
	"github.com/rpupo63/hundred-days/models"
)

// stepClock hands out strictly increasing instants so timestamp ordering is
// deterministic.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Minute)
	return c.cur
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db, SQLite))
	return db
}

func newTestRepo(t *testing.T, opts ...ProjectRepoOption) *ProjectRepo {
	t.Helper()
	opts = append([]ProjectRepoOption{WithClock(newStepClock().Now)}, opts...)
	return NewProjectRepo(newTestDB(t), opts...)
}

func addProject(t *testing.T, repo *ProjectRepo, title, slug string, day int) *models.Project {
	t.Helper()
	p := &models.Project{Title: title, Slug: slug, DayNumber: day}
	require.NoError(t, repo.Add(context.Background(), p))
	return p
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db, SQLite))
}

func TestAdd_AssignsIDAndTimestamps(t *testing.T) {
	repo := newTestRepo(t)
	p := addProject(t, repo, "Hello World", "hello-world", 1)

	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.True(t, p.CreatedAt.Equal(p.UpdatedAt))
	assert.Equal(t, time.UTC, p.CreatedAt.Location())

	got, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", got.Title)
	assert.Equal(t, "", got.ImageURL)
	assert.Equal(t, "", got.Content)
}

func TestAdd_DuplicateSlug(t *testing.T) {
	repo := newTestRepo(t)
	addProject(t, repo, "Hello World", "hello-world", 1)

	err := repo.Add(context.Background(), &models.Project{Title: "Again", Slug: "hello-world", DayNumber: 2})
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
}

func TestOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	first := addProject(t, repo, "First", "first", 5)
	second := addProject(t, repo, "Second", "second", 1)
	third := addProject(t, repo, "Third", "third", 9)

	recent, err := repo.FindAllByRecency(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []uint{third.ID, second.ID, first.ID}, ids(recent))

	byDay, err := repo.FindAllByDayDesc(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{third.ID, first.ID, second.ID}, ids(byDay))
}

func TestFindAllByDayDesc_DuplicateDayNumbers(t *testing.T) {
	repo := newTestRepo(t)
	a := addProject(t, repo, "A", "a", 3)
	b := addProject(t, repo, "B", "b", 3)

	byDay, err := repo.FindAllByDayDesc(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, a.ID}, ids(byDay))
}

func TestFindBySlugAndID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	p := addProject(t, repo, "Hello World", "hello-world", 1)

	got, err := repo.FindBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	again, err := repo.FindBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = repo.FindBySlug(ctx, "nope")
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, 404, errs.StatusCode(err))

	_, err = repo.FindByID(ctx, p.ID+100)
	assert.True(t, errs.IsNotFound(err))
}

func TestExistsBySlug(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	addProject(t, repo, "Hello World", "hello-world", 1)

	exists, err := repo.ExistsBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsBySlug(ctx, "hello-world-day-2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdate_OnlyNamedFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	p := addProject(t, repo, "Hello World", "hello-world", 1)
	require.NoError(t, repo.Update(ctx, &models.Project{ID: p.ID, Slug: p.Slug, ImageURL: "https://img/1.jpg"}, models.FieldImageURL))

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	createdAt, updatedAt := stored.CreatedAt, stored.UpdatedAt

	stored.Content = "new content"
	stored.Title = "ignored because not selected"
	require.NoError(t, repo.Update(ctx, stored, models.FieldContent))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new content", got.Content)
	assert.Equal(t, "Hello World", got.Title)
	assert.Equal(t, 1, got.DayNumber)
	assert.Equal(t, "https://img/1.jpg", got.ImageURL)
	assert.Equal(t, "hello-world", got.Slug)
	assert.True(t, got.CreatedAt.Equal(createdAt))
	assert.True(t, got.UpdatedAt.After(updatedAt))
}

func TestUpdate_ClearsContent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	p := &models.Project{Title: "T", Slug: "t", DayNumber: 1, Content: "something"}
	require.NoError(t, repo.Add(ctx, p))

	p.Content = ""
	require.NoError(t, repo.Update(ctx, p, models.FieldContent))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Content)
}

func TestUpdate_Missing(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.Update(context.Background(), &models.Project{ID: 42, Title: "x"}, models.FieldTitle)
	assert.True(t, errs.IsNotFound(err))
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	p := addProject(t, repo, "Hello World", "hello-world", 1)

	require.NoError(t, repo.Delete(ctx, p))
	_, err := repo.FindByID(ctx, p.ID)
	assert.True(t, errs.IsNotFound(err))

	err = repo.Delete(ctx, p)
	assert.True(t, errs.IsNotFound(err))
}

// memoryCache records traffic so tests can see what the repository caches.
type memoryCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	gets        int
	invalidated []string
	failReads   bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failReads {
		return nil, errors.New("redis down")
	}
	v, ok := c.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.invalidated = append(c.invalidated, k)
	}
	return nil
}

func TestCache_ReadThroughAndInvalidate(t *testing.T) {
	c := newMemoryCache()
	repo := newTestRepo(t, WithCache(c, time.Minute))
	ctx := context.Background()
	p := addProject(t, repo, "Hello World", "hello-world", 1)

	_, err := repo.FindBySlug(ctx, "hello-world")
	require.NoError(t, err)
	require.Contains(t, c.data, projectSlugPrefix+"hello-world")

	var cached models.Project
	require.NoError(t, json.Unmarshal(c.data[projectSlugPrefix+"hello-world"], &cached))
	assert.Equal(t, p.ID, cached.ID)

	_, err = repo.FindAllByRecency(ctx)
	require.NoError(t, err)
	require.Contains(t, c.data, recentProjectsKey)

	p.Content = "edited"
	require.NoError(t, repo.Update(ctx, p, models.FieldContent))
	assert.NotContains(t, c.data, recentProjectsKey)
	assert.NotContains(t, c.data, projectSlugPrefix+"hello-world")

	got, err := repo.FindBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
}

func TestCache_WriteDuringReadSkipsFill(t *testing.T) {
	c := newMemoryCache()
	db := newTestDB(t)
	repo := NewProjectRepo(db, WithClock(newStepClock().Now), WithCache(c, time.Minute))
	ctx := context.Background()
	addProject(t, repo, "First", "first", 1)

	// commit a second project after the list query has read its rows but
	// before the result is cached
	fired := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:write_after_read", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "projects" {
			return
		}
		fired = true
		addProject(t, repo, "Second", "second", 2)
	}))

	stale, err := repo.FindAllByRecency(ctx)
	require.NoError(t, err)
	require.True(t, fired)
	assert.Len(t, stale, 1)
	assert.NotContains(t, c.data, recentProjectsKey, "a list read before the write must not be cached")

	fresh, err := repo.FindAllByRecency(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Contains(t, c.data, recentProjectsKey)
}

func TestCache_ReadErrorFallsBackToDatabase(t *testing.T) {
	c := newMemoryCache()
	c.failReads = true
	repo := newTestRepo(t, WithCache(c, time.Minute))
	addProject(t, repo, "Hello World", "hello-world", 1)

	got, err := repo.FindBySlug(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", got.Title)
	assert.Equal(t, 1, c.gets)
}

func TestFindAllByDayDesc_ConnectionFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "projects" ORDER BY day_number DESC`)).
		WillReturnError(errors.New("dial tcp 10.0.0.1:5432: connection refused"))

	_, err = NewProjectRepo(db).FindAllByDayDesc(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsDatabaseConnectionError(err))
	assert.Equal(t, 503, errs.StatusCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsBySlug_QueryFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "projects"`).
		WithArgs("hello-world").
		WillReturnError(errors.New("syntax error"))

	_, err = NewProjectRepo(db).ExistsBySlug(context.Background(), "hello-world")
	require.Error(t, err)
	assert.True(t, errs.IsDatabaseQueryError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func ids(projects []*models.Project) []uint {
	out := make([]uint, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.ID)
	}
	return out
}
