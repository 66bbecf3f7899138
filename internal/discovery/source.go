package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/executor"
)

// Source is one registry endpoint. Fetch returns the raw replica URLs it
// advertises for svc; normalization is the resolver's job.
type Source interface {
	Name() string
	Fetch(ctx context.Context, svc catalog.Service) ([]string, error)
}

// ErrUnsupportedRegistry is returned by ParseSources for unknown schemes.
var ErrUnsupportedRegistry = errors.New("unsupported registry endpoint")

const (
	schemeConsul = "consul://"
	schemeEtcd   = "etcd://"
)

// ParseSources builds the ordered source list from registry endpoint strings.
//
//	https://registry.example.com        -> HTTPSource (GET /apps/{id}/)
//	consul://10.0.0.5:8500              -> ConsulSource
//	etcd://10.0.0.6:2379,10.0.0.7:2379  -> EtcdSource
//
// HTTP registries are queried through doer so they receive the same headers as
// backend calls.
func ParseSources(endpoints []string, doer executor.Doer) ([]Source, error) {
	sources := make([]Source, 0, len(endpoints))
	for _, ep := range endpoints {
		ep = strings.TrimSpace(ep)
		lower := strings.ToLower(ep)

		var (
			src Source
			err error
		)
		switch {
		case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
			src = NewHTTPSource(ep, doer)
		case strings.HasPrefix(lower, schemeConsul):
			src, err = DialConsul(ep[len(schemeConsul):])
		case strings.HasPrefix(lower, schemeEtcd):
			src, err = DialEtcd(strings.Split(ep[len(schemeEtcd):], ","))
		default:
			err = fmt.Errorf("%w: %q", ErrUnsupportedRegistry, ep)
		}
		if err != nil {
			closeSources(sources)
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func closeSources(sources []Source) error {
	var errs []error
	for _, s := range sources {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
