package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/discovery"
	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/session"
)

// Resolver is what the ops routes need from discovery.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, svc catalog.Service) []string
	InvalidateAll()
	Cache() *discovery.Cache
	Sources() []string
}

// SessionView is the read side of session.Manager.
type SessionView interface {
	State() session.State
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedHosts   []string         // Host headers allowed on mutating routes
	AllowedCIDRS   []string         // IPs allowed to access the ops routes
	TrustProxy     bool             // true if running behind a trusted reverse proxy
	RateLimitRPS   float64          // per-IP sustained rate on the ops routes
	RateLimitBurst int              // per-IP burst on the ops routes
	ReadyTimeout   time.Duration    // bound on readiness resolution, defaults to 10s
	Catalog        *catalog.Catalog // logical services known to this client
	Resolver       Resolver         // shared replica resolver
	Session        SessionView      // session state machine
	SessionBackend string           // "memory" | "redis"
	RedisClient    *redis.Client    // nil unless SessionBackend is "redis"
}

func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
