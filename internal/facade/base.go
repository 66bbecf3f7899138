// Package facade exposes one typed client per backend service. Every call
// resolves the service, picks a replica and sends a single request through the
// executor; none of them knows where a replica lives.
package facade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/discovery"
	"github.com/MrSnakeDoc/relay/internal/executor"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/pagination"
)

// ErrServiceUnavailable means discovery produced no replica. No request was sent.
var ErrServiceUnavailable = errors.New("service unavailable")

// Resolver is the slice of discovery.Resolver the façades use.
type Resolver interface {
	Resolve(ctx context.Context, svc catalog.Service) []string
}

// Deps is shared by every façade; one resolver (and so one cache) serves all of them.
type Deps struct {
	Resolver Resolver
	Selector discovery.Selector
	Doer     executor.Doer
	// Attempts is how many replicas a call may try when the chosen one cannot
	// be reached at all (status 0). Application errors are never retried.
	Attempts int
	Logger   logger.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Resolver == nil || d.Doer == nil {
		panic("facade: resolver and doer are required")
	}
	if d.Selector == nil {
		d.Selector = discovery.NewRandomSelector(nil)
	}
	if d.Attempts < 1 {
		d.Attempts = 1
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type base struct {
	svc         catalog.Service
	deps        Deps
	log         logger.Logger
	unavailable error
}

func newBase(deps Deps, svc catalog.Service, label string) base {
	deps = deps.withDefaults()
	return base{
		svc:         svc,
		deps:        deps,
		log:         deps.Logger.Named("facade." + svc.Key),
		unavailable: fmt.Errorf("%s %w", label, ErrServiceUnavailable),
	}
}

// Service returns the logical service this façade talks to.
func (b *base) Service() catalog.Service { return b.svc }

// send runs resolve, select, execute. A transport fault re-selects among the
// same set until Attempts is spent; there is no delay between attempts.
func (b *base) send(ctx context.Context, req executor.Request) (*executor.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= b.deps.Attempts; attempt++ {
		replica, ok := b.deps.Selector.Choose(b.deps.Resolver.Resolve(ctx, b.svc))
		if !ok {
			b.log.Warn("no replica available", logger.String("path", req.Path))
			return nil, b.unavailable
		}

		req.BaseURL = replica
		resp, err := b.deps.Doer.Execute(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !executor.IsTransport(err) || ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
		b.log.Warn("replica unreachable",
			logger.String("replica", replica),
			logger.String("path", req.Path),
			logger.Int("attempt", attempt),
			logger.Error(err))
	}
	return nil, lastErr
}

func call[T any](ctx context.Context, b *base, req executor.Request) (T, error) {
	var out T
	resp, err := b.send(ctx, req)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func list[T any](ctx context.Context, b *base, req executor.Request) (pagination.Page[T], error) {
	raw, err := call[json.RawMessage](ctx, b, req)
	if err != nil {
		return pagination.Page[T]{}, err
	}
	return pagination.Normalize[T](raw)
}
