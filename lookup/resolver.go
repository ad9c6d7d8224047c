// Package lookup asks external knowledge sources for a short answer to a
// query and remembers the outcome, including "nothing found".
package lookup

import (
	"context"
	"net/http"
	"time"

	"tanyabot/metrics"
	"tanyabot/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options configures a Resolver.
type Options struct {
	// Timeout bounds each source call separately. Defaults to DefaultTimeout.
	Timeout time.Duration
	// CacheEnabled turns on outcome caching. When false every call goes to the network.
	CacheEnabled bool
	// CacheSize bounds the cache; zero means unbounded.
	CacheSize int
	Metrics   *metrics.Metrics
}

// Resolver queries sources in priority order and returns the first non-empty
// snippet as plain text. Lookup failures never surface to the caller; they are
// logged and the next source is tried.
type Resolver struct {
	sources []Source
	timeout time.Duration
	cache   Cache
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewResolver(sources []Source, opts Options, logger *zap.Logger) (*Resolver, error) {
	r := &Resolver{
		sources: sources,
		timeout: opts.Timeout,
		metrics: opts.Metrics,
		logger:  logger,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if opts.CacheEnabled {
		c, err := NewCache(opts.CacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = c
	}
	return r, nil
}

// SourcesFromConfig builds the default source chain: Bing first when an API key
// is configured, then Wikipedia.
func SourcesFromConfig(bingKey, bingEndpoint, wikipediaEndpoint string, httpClient *http.Client) []Source {
	var sources []Source
	if bingKey != "" {
		sources = append(sources, NewBingSource(bingEndpoint, bingKey, httpClient))
	}
	return append(sources, NewWikipediaSource(wikipediaEndpoint, httpClient))
}

// Resolve returns a plain-text answer for query and whether one was found.
// Concurrent calls for the same query share a single round of source calls.
func (r *Resolver) Resolve(ctx context.Context, query string) (string, bool) {
	key := utils.NormalizeQuery(query)
	if key == "" {
		return "", false
	}

	if r.cache != nil {
		if answer, ok := r.cache.Get(key); ok {
			r.metrics.CacheHit()
			return answer, answer != ""
		}
		r.metrics.CacheMiss()
	}

	// The shared fetch outlives any single caller; each source call has its own deadline.
	fetchCtx := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(key, func() (any, error) {
		if r.cache != nil {
			if answer, ok := r.cache.Get(key); ok {
				return answer, nil
			}
		}
		answer := r.fetch(fetchCtx, query)
		if r.cache != nil {
			r.cache.Add(key, answer)
		}
		return answer, nil
	})

	answer, _ := v.(string)
	return answer, answer != ""
}

// CacheLen reports how many queries are cached, zero when caching is off.
func (r *Resolver) CacheLen() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.Len()
}

func (r *Resolver) fetch(ctx context.Context, query string) string {
	for _, src := range r.sources {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		start := time.Now()
		raw, err := src.Search(callCtx, query)
		cancel()
		elapsed := time.Since(start)

		if err != nil {
			r.metrics.ObserveLookup(src.Name(), "error", elapsed)
			r.logger.Warn("Knowledge source failed",
				zap.String("source", src.Name()),
				zap.String("query", query),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
			continue
		}

		text := StripHTML(raw)
		if text == "" {
			r.metrics.ObserveLookup(src.Name(), "empty", elapsed)
			continue
		}
		r.metrics.ObserveLookup(src.Name(), "hit", elapsed)
		r.logger.Debug("Knowledge source answered", zap.String("source", src.Name()), zap.Duration("elapsed", elapsed))
		return text
	}
	return ""
}
