package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/executor"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Discovery
	RegistryURLs    []string      // ordered registry endpoints (http(s)://, consul://, etcd://)
	RegistryTimeout time.Duration // bound on a single registry attempt (default: 10s)
	CacheTTL        time.Duration // replica cache TTL (default: 5m)
	CatalogFile     string        // optional YAML catalogue, empty = built-in defaults
	AppIDs          map[string]int

	// Backend calls
	AuthToken       string        // static credential attached to every call
	AuthScheme      string        // Authorization scheme word (default: "Token")
	RequestTimeout  time.Duration // http.Client timeout for backend calls
	ReplicaAttempts int           // façade re-selection passes on transport faults

	// Session
	SessionBackend string        // "memory" | "redis"
	SessionID      string        // redis namespace for this client's session
	VerifyInterval time.Duration // freshness window of "last verified at"

	// Redis (only used when SessionBackend == "redis")
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// Ops surface
	AllowedCIDRS   []string // optional, restrict access to specific IPs / CIDRs
	AllowedHosts   []string // optional, Host headers accepted on mutating ops routes
	TrustProxy     bool     // true => trust X-Forwarded-For headers
	RateLimitRPS   float64  // sustained requests per second per client IP
	RateLimitBurst int
	ReadyTimeout   time.Duration // bound on /readyz resolution
}

func Load() *Config {
	cfg := &Config{
		ListenPort:      getenv("RELAY_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("RELAY_SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("RELAY_LOG_LEVEL", "info"),
		PrettyLog: mustBool("RELAY_PRETTY_LOG", true),

		RegistryURLs:    requireEnvSlice("RELAY_REGISTRY_URLS"),
		RegistryTimeout: mustDuration("RELAY_REGISTRY_TIMEOUT", 10*time.Second),
		CacheTTL:        mustDuration("RELAY_CACHE_TTL", 5*time.Minute),
		CatalogFile:     getenv("RELAY_CATALOG_FILE", ""),
		AppIDs: map[string]int{
			catalog.Auth:        getenvInt("RELAY_AUTH_APP_ID", 0),
			catalog.UserProfile: getenvInt("RELAY_USERPROFILE_APP_ID", 0),
			catalog.OTP:         getenvInt("RELAY_OTP_APP_ID", 0),
			catalog.Course:      getenvInt("RELAY_COURSE_APP_ID", 0),
		},

		AuthToken:       requireCredential("RELAY_AUTH_TOKEN"),
		AuthScheme:      getenv("RELAY_AUTH_SCHEME", "Token"),
		RequestTimeout:  mustDuration("RELAY_REQUEST_TIMEOUT", 30*time.Second),
		ReplicaAttempts: getenvInt("RELAY_REPLICA_ATTEMPTS", 1),

		SessionBackend: getenv("RELAY_SESSION_BACKEND", "memory"),
		SessionID:      getenv("RELAY_SESSION_ID", "default"),
		VerifyInterval: mustDuration("RELAY_VERIFY_INTERVAL", 5*time.Minute),

		RedisAddr:           getenv("RELAY_REDIS_ADDR", "localhost:6379"),
		RedisUser:           getenv("RELAY_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("RELAY_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("RELAY_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		AllowedCIDRS:   parseList(getenv("RELAY_ALLOWED_CIDRS", "")),
		AllowedHosts:   parseList(getenv("RELAY_ALLOWED_HOSTS", "")),
		TrustProxy:     mustBool("RELAY_TRUST_PROXY", false),
		RateLimitRPS:   getenvFloat("RELAY_RATE_LIMIT_RPS", 5),
		RateLimitBurst: getenvInt("RELAY_RATE_LIMIT_BURST", 10),
		ReadyTimeout:   mustDuration("RELAY_READY_TIMEOUT", 10*time.Second),
	}

	switch cfg.SessionBackend {
	case "memory", "redis":
	default:
		panic(fmt.Sprintf("❌ FATAL: RELAY_SESSION_BACKEND must be memory or redis, got %q", cfg.SessionBackend))
	}

	if cfg.ReplicaAttempts < 1 {
		cfg.ReplicaAttempts = 1
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	cp.AuthToken = "***REDACTED***"
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// requireCredential refuses to start without a usable static credential:
// every backend call carries it, so a missing one is a configuration fault.
func requireCredential(key string) string {
	v := strings.TrimSpace(requireEnv(key))
	if v == executor.PlaceholderToken {
		panic(fmt.Sprintf("❌ FATAL: %s still holds the placeholder value", key))
	}
	return v
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvSlice(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return splitAndTrim(v)
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseList(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

// splitAndTrim splits on commas except inside an etcd:// endpoint, whose
// member list is itself comma separated and runs until the next scheme.
func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed == "" {
			continue
		}
		if n := len(parts); n > 0 && !strings.Contains(trimmed, "://") && strings.HasPrefix(parts[n-1], "etcd://") {
			parts[n-1] += "," + trimmed
			continue
		}
		parts = append(parts, trimmed)
	}
	return parts
}
