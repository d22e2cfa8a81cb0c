package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/pkg/cache"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

type memoryCacheRepo struct {
	values   map[string][]byte
	patterns []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: make(map[string][]byte)}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.values[key] = raw
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	r.patterns = append(r.patterns, pattern)
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var out map[string]int
	hit, err := svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "k", map[string]int{"a": 1}, 0))
	hit, err = svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, map[string]int{"a": 1}, out)
}

func TestCacheServiceDisabledAndNil(t *testing.T) {
	ctx := context.Background()
	var out map[string]int

	disabled := NewCacheService(newMemoryCacheRepo(), nil, 0, nil, false)
	hit, err := disabled.Get(ctx, "k", &out)
	assert.False(t, hit)
	assert.NoError(t, err)

	var missing *CacheService
	assert.False(t, missing.Enabled())
	assert.NoError(t, missing.Set(ctx, "k", 1, 0))
	assert.NoError(t, missing.InvalidateStudent(ctx, studentA))
}

func TestCacheInvalidationPatterns(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	require.NoError(t, svc.InvalidateStudent(ctx, studentA))
	require.NoError(t, svc.InvalidateProjections(ctx))
	assert.Equal(t, []string{
		cache.Key("class-schedules", studentA, "*"),
		cache.Key("summary", studentA, "*"),
		cache.Key("class-schedules", "*"),
		cache.Key("summary", "*"),
	}, repo.patterns)
}

func TestCacheKeys(t *testing.T) {
	start, end := day(2024, 1, 1), day(2024, 3, 31)

	assert.Equal(t, cache.Key("class-schedules", studentA, "2024-01-01", "2024-03-31", "all"), ClassScheduleCacheKey(studentA, start, end, nil))
	assert.Equal(t, cache.Key("class-schedules", studentA, "2024-01-01", "2024-03-31", "5"), ClassScheduleCacheKey(studentA, start, end, lo.ToPtr(5)))
	assert.Equal(t, cache.Key("summary", studentA, "2024-01-01"), SummaryCacheKey(studentA, start))
}
