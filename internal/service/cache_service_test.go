package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
)

type memoryCacheRepo struct {
	values  map[string][]byte
	failGet bool
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.failGet {
		return errors.New("redis down")
	}
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	repo := &memoryCacheRepo{values: make(map[string][]byte)}
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var out map[string]int
	assert.False(t, cache.Get(ctx, ClassResultsKey("t1", "c1"), &out))

	cache.Set(ctx, ClassResultsKey("t1", "c1"), map[string]int{"computed": 3}, 0)
	cache.Set(ctx, StudentResultKey("t1", "c1", "s1"), map[string]int{"position": 1}, 0)
	cache.Set(ctx, ClassResultsKey("t1", "c2"), map[string]int{"computed": 1}, 0)
	require.True(t, cache.Get(ctx, ClassResultsKey("t1", "c1"), &out))
	assert.Equal(t, 3, out["computed"])

	cache.Invalidate(ctx, ClassResultsPattern("t1", "c1"))
	assert.Len(t, repo.values, 1)
	assert.InDelta(t, 0.5, metrics.Snapshot().CacheHitRatio, 1e-9)
}

func TestCacheServiceDegradesToMiss(t *testing.T) {
	repo := &memoryCacheRepo{values: make(map[string][]byte), failGet: true}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	var out map[string]int
	assert.False(t, cache.Get(context.Background(), "k", &out))

	disabled := NewCacheService(repo, nil, time.Minute, nil, false)
	assert.False(t, disabled.Enabled())
	disabled.Set(context.Background(), "k", 1, 0)
	assert.Empty(t, repo.values)

	var nilCache *CacheService
	assert.False(t, nilCache.Get(context.Background(), "k", &out))
	nilCache.Invalidate(context.Background(), "*")
}
