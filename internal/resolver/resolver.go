// Package resolver answers "!link <alias>" style lookups against the
// published document: exact alias hits, close-match suggestions, and the
// markdown reply the bot posts.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/index"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
)

const DefaultCacheTTL = 24 * time.Hour

// Kind classifies a resolution.
type Kind string

const (
	KindExact       Kind = "exact"
	KindSuggestions Kind = "suggestions"
	KindNone        Kind = "none"
)

// Suggestion is a close match offered when no alias matched exactly.
type Suggestion struct {
	Alias string  `json:"alias"`
	Link  string  `json:"link"`
	Score float64 `json:"score"`
}

// Resolution is the outcome of one lookup.
type Resolution struct {
	Query       string       `json:"query"`
	Kind        Kind         `json:"kind"`
	Alias       string       `json:"alias,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	Category    string       `json:"category,omitempty"`
	Link        string       `json:"link,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Cache persists resolutions and usage between processes. Every call is
// best effort: failures are logged and the lookup proceeds from memory.
type Cache interface {
	GetCachedResolution(ctx context.Context, query string) (string, error)
	CacheResolution(ctx context.Context, query, payload string, ttl time.Duration) error
	FlushCache(ctx context.Context) error
	IncrementUsage(ctx context.Context, alias string) error
	GetUsageStats(ctx context.Context) (map[string]int64, error)
}

type Options struct {
	Limit    int
	Cutoff   float64
	CacheTTL time.Duration
}

type Resolver struct {
	idx    *index.MemoryIndex
	cache  Cache
	scorer *scorer
	opts   Options
	log    logger.Logger
}

// New creates a resolver. cache may be nil.
func New(idx *index.MemoryIndex, cache Cache, opts Options, log logger.Logger) *Resolver {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Cutoff <= 0 || opts.Cutoff > 1 {
		opts.Cutoff = DefaultCutoff
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &Resolver{
		idx:    idx,
		cache:  cache,
		scorer: newScorer(),
		opts:   opts,
		log:    log,
	}
}

// Sync rebuilds the index from doc and drops cached resolutions, which
// may point at links that changed.
func (r *Resolver) Sync(ctx context.Context, doc *domain.Document) {
	r.idx.Update(doc)

	if r.cache != nil {
		if err := r.cache.FlushCache(ctx); err != nil {
			r.log.Warn("failed to flush resolution cache", logger.Error(err))
		}
		if stats, err := r.cache.GetUsageStats(ctx); err != nil {
			r.log.Warn("failed to read usage stats", logger.Error(err))
		} else {
			r.idx.SetCounters(stats)
		}
	}
	r.log.Info("resolver synced", logger.Int("aliases", r.idx.Count()))
}

// Normalize turns the text after a command into a lookup key.
func Normalize(argument string) string {
	return strings.Join(strings.Fields(strings.ToLower(argument)), " ")
}

// Resolve looks argument up.
func (r *Resolver) Resolve(ctx context.Context, argument string) Resolution {
	query := Normalize(argument)
	if query == "" {
		return Resolution{Query: query, Kind: KindNone}
	}

	if res, ok := r.cached(ctx, query); ok {
		r.count(ctx, res)
		return res
	}

	res := r.compute(query)
	r.store(ctx, res)
	r.count(ctx, res)
	return res
}

func (r *Resolver) compute(query string) Resolution {
	if l, ok := r.idx.Get(query); ok {
		return Resolution{
			Query:       query,
			Kind:        KindExact,
			Alias:       l.Alias,
			DisplayName: l.DisplayName,
			Category:    l.Category,
			Link:        l.URL,
		}
	}

	candidates := r.scorer.RankCandidates(query, r.idx.All(), r.opts.Cutoff)
	if len(candidates) == 0 {
		return Resolution{Query: query, Kind: KindNone}
	}
	if len(candidates) > r.opts.Limit {
		candidates = candidates[:r.opts.Limit]
	}

	res := Resolution{Query: query, Kind: KindSuggestions}
	for _, c := range candidates {
		res.Suggestions = append(res.Suggestions, Suggestion{
			Alias: c.Link.Alias,
			Link:  c.Link.URL,
			Score: c.Similarity,
		})
	}
	return res
}

func (r *Resolver) cached(ctx context.Context, query string) (Resolution, bool) {
	if r.cache == nil {
		return Resolution{}, false
	}
	payload, err := r.cache.GetCachedResolution(ctx, query)
	if err != nil {
		r.log.Debug("resolution cache unavailable", logger.Error(err))
		return Resolution{}, false
	}
	if payload == "" {
		return Resolution{}, false
	}
	var res Resolution
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		r.log.Warn("dropping unreadable cached resolution", logger.String("query", query), logger.Error(err))
		return Resolution{}, false
	}
	return res, true
}

func (r *Resolver) store(ctx context.Context, res Resolution) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.cache.CacheResolution(ctx, res.Query, string(data), r.opts.CacheTTL); err != nil {
		r.log.Debug("failed to cache resolution", logger.Error(err))
	}
}

func (r *Resolver) count(ctx context.Context, res Resolution) {
	if res.Kind != KindExact {
		return
	}
	r.idx.IncrementCounter(res.Alias)
	if r.cache == nil {
		return
	}
	if err := r.cache.IncrementUsage(ctx, res.Alias); err != nil {
		r.log.Debug("failed to record usage", logger.String("alias", res.Alias), logger.Error(err))
	}
}

// Reply renders the markdown answer posted for a resolution.
func (res Resolution) Reply() string {
	switch res.Kind {
	case KindExact:
		return fmt.Sprintf("Here's the link for `%s`: %s", res.Query, res.Link)
	case KindSuggestions:
		lines := make([]string, 0, len(res.Suggestions))
		for _, s := range res.Suggestions {
			lines = append(lines, fmt.Sprintf("* `%s`: %s", s.Alias, s.Link))
		}
		return fmt.Sprintf("I couldn't an exact match for `%s`. Did you mean any of the following?\n\n%s",
			res.Query, strings.Join(lines, "\n"))
	default:
		return fmt.Sprintf("I couldn't find a link for `%s` and no similar matches were found. If you think this is wrong, contact the mods.", res.Query)
	}
}
