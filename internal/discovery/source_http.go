package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/executor"
)

// Descriptor is the registry's answer for GET /apps/{id}/.
type Descriptor struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Replicas []ReplicaRecord `json:"replicas"`
}

// ReplicaRecord is one replica entry; only replica_url is used.
type ReplicaRecord struct {
	ReplicaURL string `json:"replica_url"`
}

var errMissingReplicas = errors.New("registry descriptor missing replicas field")

// HTTPSource queries an HTTP registry.
type HTTPSource struct {
	baseURL string
	doer    executor.Doer
}

func NewHTTPSource(baseURL string, doer executor.Doer) *HTTPSource {
	if doer == nil {
		panic("discovery.NewHTTPSource: doer is required")
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		doer:    doer,
	}
}

func (s *HTTPSource) Name() string { return s.baseURL }

func (s *HTTPSource) Fetch(ctx context.Context, svc catalog.Service) ([]string, error) {
	desc, err := executor.Get[Descriptor](ctx, s.doer, s.baseURL, fmt.Sprintf("/apps/%d/", svc.AppID))
	if err != nil {
		return nil, err
	}
	if desc.Replicas == nil {
		return nil, errMissingReplicas
	}

	urls := make([]string, 0, len(desc.Replicas))
	for _, r := range desc.Replicas {
		urls = append(urls, r.ReplicaURL)
	}
	return urls, nil
}
