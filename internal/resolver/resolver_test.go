package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/index"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
)

// memCache is an in-process Cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string]string
	usage   map[string]int64
	flushes int
	fail    error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]string{}, usage: map[string]int64{}}
}

func (m *memCache) GetCachedResolution(_ context.Context, q string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	return m.entries[q], nil
}

func (m *memCache) CacheResolution(_ context.Context, q, payload string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.entries[q] = payload
	return nil
}

func (m *memCache) FlushCache(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	m.entries = map[string]string{}
	return m.fail
}

func (m *memCache) IncrementUsage(_ context.Context, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.usage[alias]++
	return nil
}

func (m *memCache) GetUsageStats(context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make(map[string]int64, len(m.usage))
	for k, v := range m.usage {
		out[k] = v
	}
	return out, nil
}

func phones(t *testing.T) *domain.Document {
	t.Helper()
	d := domain.NewDocument()
	require.NoError(t, d.AppendCategory("Phones",
		domain.Entry{DisplayName: "Phone (1)", Aliases: []string{"phone 1", "p1"}, Link: "https://x.test/p1"},
		domain.Entry{DisplayName: "Phone (2)", Aliases: []string{"phone 2", "p2"}, Link: "https://x.test/p2"},
		domain.Entry{DisplayName: "Phone (2a)", Aliases: []string{"phone 2a"}, Link: "https://x.test/p2a"},
	))
	require.NoError(t, d.AppendCategory("Audio",
		domain.Entry{DisplayName: "Ear (2)", Aliases: []string{"ear 2"}, Link: "https://x.test/ear2"},
	))
	return d
}

func newResolver(t *testing.T, cache Cache) *Resolver {
	t.Helper()
	r := New(index.NewMemoryIndex(), cache, Options{}, logger.Nop())
	r.Sync(context.Background(), phones(t))
	return r
}

func TestResolveExact(t *testing.T) {
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "  Phone   2 ")
	assert.Equal(t, KindExact, res.Kind)
	assert.Equal(t, "phone 2", res.Query)
	assert.Equal(t, "https://x.test/p2", res.Link)
	assert.Equal(t, "Phone (2)", res.DisplayName)
	assert.Equal(t, "Phones", res.Category)
	assert.Equal(t, "Here's the link for `phone 2`: https://x.test/p2", res.Reply())
}

func TestResolveSuggestions(t *testing.T) {
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "phone 3")
	require.Equal(t, KindSuggestions, res.Kind)
	require.Len(t, res.Suggestions, 3)

	// "phone 1" and "phone 2" tie; alias order breaks it.
	assert.Equal(t, "phone 1", res.Suggestions[0].Alias)
	assert.Equal(t, "phone 2", res.Suggestions[1].Alias)
	assert.Equal(t, "phone 2a", res.Suggestions[2].Alias)
	for _, s := range res.Suggestions {
		assert.GreaterOrEqual(t, s.Score, DefaultCutoff)
	}

	want := "I couldn't an exact match for `phone 3`. Did you mean any of the following?\n\n" +
		"* `phone 1`: https://x.test/p1\n" +
		"* `phone 2`: https://x.test/p2\n" +
		"* `phone 2a`: https://x.test/p2a"
	assert.Equal(t, want, res.Reply())
}

func TestUsageBreaksTies(t *testing.T) {
	r := newResolver(t, nil)
	r.Resolve(context.Background(), "phone 2")

	res := r.Resolve(context.Background(), "phone 3")
	require.Equal(t, KindSuggestions, res.Kind)
	assert.Equal(t, "phone 2", res.Suggestions[0].Alias)
}

func TestResolveNone(t *testing.T) {
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "toaster")
	assert.Equal(t, KindNone, res.Kind)
	assert.Empty(t, res.Suggestions)
	assert.Equal(t, "I couldn't find a link for `toaster` and no similar matches were found. If you think this is wrong, contact the mods.", res.Reply())

	assert.Equal(t, KindNone, r.Resolve(context.Background(), "   ").Kind)
}

func TestSimilarity(t *testing.T) {
	s := newScorer()
	tests := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1},
		{"", "", 1},
		{"abc", "xyz", 0},
		{"phone 3", "phone 2", 12.0 / 14.0},
		{"ear", "ear 2", 6.0 / 8.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, s.Similarity(tt.a, tt.b), 1e-9, "%q vs %q", tt.a, tt.b)
	}
}

func TestCacheIsUsedAndFlushedOnSync(t *testing.T) {
	cache := newMemCache()
	r := newResolver(t, cache)
	assert.Equal(t, 1, cache.flushes)

	first := r.Resolve(context.Background(), "p2")
	require.Equal(t, KindExact, first.Kind)
	assert.Contains(t, cache.entries, "p2")
	assert.Equal(t, int64(1), cache.usage["p2"])

	// A cached answer is served even if the index changed underneath.
	d := domain.NewDocument()
	require.NoError(t, d.AppendCategory("Phones", domain.Entry{DisplayName: "Phone (2)", Aliases: []string{"p2"}, Link: "https://x.test/new"}))
	r.idx.Update(d)
	assert.Equal(t, "https://x.test/p2", r.Resolve(context.Background(), "p2").Link)
	assert.Equal(t, int64(2), cache.usage["p2"])

	// Sync drops it and restores counters from the cache.
	r.Sync(context.Background(), d)
	assert.Equal(t, 2, cache.flushes)
	l, ok := r.idx.Get("p2")
	require.True(t, ok)
	assert.Equal(t, int64(2), l.Counter)
	assert.Equal(t, "https://x.test/new", r.Resolve(context.Background(), "p2").Link)
}

func TestCacheFailuresAreIgnored(t *testing.T) {
	cache := newMemCache()
	cache.fail = errors.New("redis down")
	r := newResolver(t, cache)

	res := r.Resolve(context.Background(), "ear 2")
	assert.Equal(t, KindExact, res.Kind)
	assert.Equal(t, "https://x.test/ear2", res.Link)
}

func TestOptionsDefaults(t *testing.T) {
	r := New(index.NewMemoryIndex(), nil, Options{Cutoff: 2}, logger.Nop())
	assert.Equal(t, DefaultLimit, r.opts.Limit)
	assert.Equal(t, DefaultCutoff, r.opts.Cutoff)
	assert.Equal(t, DefaultCacheTTL, r.opts.CacheTTL)

	r = New(index.NewMemoryIndex(), nil, Options{Limit: 1, Cutoff: 0.5}, logger.Nop())
	r.Sync(context.Background(), phones(t))
	assert.Len(t, r.Resolve(context.Background(), "phone 3").Suggestions, 1)
}
