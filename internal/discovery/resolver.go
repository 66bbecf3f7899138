// Package discovery resolves logical services to live replica base URLs.
//
// Resolution is pull-based: a cached set is served until its TTL lapses or the
// cache is invalidated, then the registry sources are queried in order until
// one answers. Nothing refreshes in the background.
package discovery

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/logger"
)

// DefaultRegistryTimeout bounds a single registry attempt.
const DefaultRegistryTimeout = 10 * time.Second

type ResolverOptions struct {
	Sources []Source
	Cache   *Cache
	Timeout time.Duration // per source attempt
	Logger  logger.Logger
}

// Resolver is shared by every façade. Concurrent misses for the same service
// may both query the registries; the last writer wins, which is harmless.
type Resolver struct {
	sources []Source
	cache   *Cache
	timeout time.Duration
	logger  logger.Logger
}

func NewResolver(opts ResolverOptions) *Resolver {
	if opts.Cache == nil {
		panic("discovery.NewResolver: cache is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRegistryTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		sources: append([]Source(nil), opts.Sources...),
		cache:   opts.Cache,
		timeout: timeout,
		logger:  log,
	}
}

// Resolve returns the replica set for svc. It never fails: when every source
// is unreachable or malformed the result is empty, which callers must read as
// "service unavailable".
func (r *Resolver) Resolve(ctx context.Context, svc catalog.Service) []string {
	if replicas, ok := r.cache.Get(svc.Key); ok {
		r.logger.Debug("using cached replicas",
			logger.String("service", svc.Label()),
			logger.Int("count", len(replicas)))
		return replicas
	}

	for _, src := range r.sources {
		raw, err := r.fetch(ctx, src, svc)
		if err != nil {
			r.logger.Warn("registry lookup failed",
				logger.String("service", svc.Label()),
				logger.String("registry", src.Name()),
				logger.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		replicas := NormalizeReplicas(raw)
		r.logger.Info("resolved replicas",
			logger.String("service", svc.Label()),
			logger.String("registry", src.Name()),
			logger.Strings("replicas", replicas))

		// An empty answer is not cached so the next call asks again.
		if len(replicas) > 0 {
			r.cache.Put(svc.Key, replicas)
		}
		return replicas
	}

	r.logger.Warn("all registries failed, no replicas available",
		logger.String("service", svc.Label()),
		logger.Int("registries", len(r.sources)))
	return []string{}
}

func (r *Resolver) fetch(ctx context.Context, src Source, svc catalog.Service) ([]string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return src.Fetch(attemptCtx, svc)
}

// InvalidateAll forgets every cached resolution. Callers use it when they
// suspect the topology changed, e.g. right before a login.
func (r *Resolver) InvalidateAll() {
	r.cache.InvalidateAll()
	r.logger.Debug("replica cache invalidated")
}

// Cache exposes the underlying cache for inspection.
func (r *Resolver) Cache() *Cache { return r.cache }

// Sources returns the registry endpoint names in query order.
func (r *Resolver) Sources() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}

// Close releases sources holding connections (etcd).
func (r *Resolver) Close() error {
	return closeSources(r.sources)
}
