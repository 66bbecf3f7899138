package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/consul/api"

	"github.com/MrSnakeDoc/relay/internal/catalog"
)

// ConsulMetaReplicaURL lets a service instance advertise its public base URL
// instead of the address:port consul knows it by.
const ConsulMetaReplicaURL = "replica_url"

// ConsulSource resolves a logical service to the healthy instances consul
// reports under the service's label.
type ConsulSource struct {
	addr   string
	client *api.Client
}

// DialConsul builds a consul client for addr ("host:port").
func DialConsul(addr string) (*ConsulSource, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client for %s: %w", addr, err)
	}
	return NewConsulSource(addr, client), nil
}

func NewConsulSource(addr string, client *api.Client) *ConsulSource {
	if client == nil {
		panic("discovery.NewConsulSource: client is required")
	}
	return &ConsulSource{addr: addr, client: client}
}

func (s *ConsulSource) Name() string { return "consul://" + s.addr }

func (s *ConsulSource) Fetch(ctx context.Context, svc catalog.Service) ([]string, error) {
	q := (&api.QueryOptions{}).WithContext(ctx)
	entries, _, err := s.client.Health().Service(svc.Label(), "", true, q)
	if err != nil {
		return nil, fmt.Errorf("consul health lookup for %s: %w", svc.Label(), err)
	}

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if u := consulReplicaURL(e); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func consulReplicaURL(e *api.ServiceEntry) string {
	if e == nil || e.Service == nil {
		return ""
	}
	if u := e.Service.Meta[ConsulMetaReplicaURL]; u != "" {
		return u
	}

	host := e.Service.Address
	if host == "" && e.Node != nil {
		host = e.Node.Address
	}
	if host == "" || e.Service.Port == 0 {
		return ""
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(e.Service.Port))
}
