package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/MrSnakeDoc/relay/internal/catalog"
)

// EtcdKeyPrefix is where replicas register: /relay/apps/{app_id}/{anything}.
const EtcdKeyPrefix = "/relay/apps/"

// etcdGetter is the slice of the etcd KV API the source needs.
type etcdGetter interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
}

// EtcdSource reads replica registrations from etcd. Values are either a JSON
// object with replica_url or a bare URL string.
type EtcdSource struct {
	endpoints []string
	kv        etcdGetter
	client    *clientv3.Client
}

// DialEtcd builds an etcd client for the given member endpoints.
func DialEtcd(endpoints []string) (*EtcdSource, error) {
	eps := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		if ep = strings.TrimSpace(ep); ep != "" {
			eps = append(eps, ep)
		}
	}
	if len(eps) == 0 {
		return nil, fmt.Errorf("%w: etcd endpoint list is empty", ErrUnsupportedRegistry)
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:        eps,
		AutoSyncInterval: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd client for %v: %w", eps, err)
	}
	return &EtcdSource{endpoints: eps, kv: client, client: client}, nil
}

func newEtcdSource(endpoints []string, kv etcdGetter) *EtcdSource {
	return &EtcdSource{endpoints: endpoints, kv: kv}
}

func (s *EtcdSource) Name() string { return "etcd://" + strings.Join(s.endpoints, ",") }

func (s *EtcdSource) Fetch(ctx context.Context, svc catalog.Service) ([]string, error) {
	prefix := fmt.Sprintf("%s%d/", EtcdKeyPrefix, svc.AppID)
	resp, err := s.kv.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcd get %s: %w", prefix, err)
	}

	urls := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		urls = append(urls, etcdReplicaURL(kv.Value))
	}
	return urls, nil
}

func etcdReplicaURL(value []byte) string {
	var rec ReplicaRecord
	if err := json.Unmarshal(value, &rec); err == nil {
		return rec.ReplicaURL
	}
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	return string(value)
}

// Close releases the etcd connection.
func (s *EtcdSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
