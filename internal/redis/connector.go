// Package redis opens the go-redis client backing persisted sessions. The
// process refuses to start when redis stays unreachable past ConnectTimeout.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/relay/internal/logger"
)

// DefaultClientName is reported to redis via CLIENT SETNAME.
const DefaultClientName = "relay-session"

// ConnectOptions are the client settings plus the startup retry policy.
type ConnectOptions struct {
	Addr           string        // Redis address (ex: "localhost:6379")
	User           string        // Optional username
	Password       string        // Optional password
	RedisDB        int           // Redis DB number
	ClientName     string        // defaults to DefaultClientName
	DialTimeout    time.Duration // Redis dial timeout
	ReadTimeout    time.Duration // Redis read timeout
	WriteTimeout   time.Duration // Redis write timeout
	PoolSize       int           // Redis connection pool size
	ConnectTimeout time.Duration // budget for the whole startup loop (ex: 30s)
	RetryInterval  time.Duration // first pause between pings, doubled each time (ex: 2s)
	MaxWait        time.Duration // cap on the pause (ex: 10s)
	PingTimeout    time.Duration // bound on a single ping (ex: 5s)
	WarnThreshold  int           // failed pings logged at warn before switching to error
}

func (o ConnectOptions) validate() error {
	var errs []error
	if o.Addr == "" {
		errs = append(errs, errors.New("Addr is required"))
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"ConnectTimeout", o.ConnectTimeout},
		{"RetryInterval", o.RetryInterval},
		{"MaxWait", o.MaxWait},
		{"PingTimeout", o.PingTimeout},
	} {
		if d.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", d.name, d.v))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid redis options: %w", err)
	}
	return nil
}

func (o ConnectOptions) clientOptions() *redis.Options {
	name := o.ClientName
	if name == "" {
		name = DefaultClientName
	}
	return &redis.Options{
		Addr:         o.Addr,
		Username:     o.User,
		Password:     o.Password,
		DB:           o.RedisDB,
		ClientName:   name,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
	}
}

// New is Connect with a background parent context.
func New(opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	return Connect(context.Background(), opts, log)
}

// Connect builds the client and pings until redis answers, backing off
// exponentially up to MaxWait. It gives up when ConnectTimeout elapses or ctx
// is done, closing the client it built.
func Connect(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(opts.clientOptions())
	log = log.Named("redis")

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis",
		logger.String("addr", opts.Addr),
		logger.Duration("timeout", opts.ConnectTimeout))

	start := time.Now()
	b := backoff{next: opts.RetryInterval, max: opts.MaxWait}
	for attempt := 1; ; attempt++ {
		err := Ping(ctx, client, opts.PingTimeout)
		if err == nil {
			fields := []logger.Field{
				logger.String("addr", opts.Addr),
				logger.Int("attempts", attempt),
				logger.Duration("elapsed", time.Since(start)),
			}
			if attempt > 1 {
				log.Warn("connected to redis after retry", fields...)
			} else {
				log.Info("connected to redis", fields...)
			}
			return client, nil
		}

		wait := b.step()
		if !sleep(ctx, wait) {
			_ = client.Close()
			log.Error("redis unavailable, giving up",
				logger.String("addr", opts.Addr),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return nil, fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
				opts.Addr, attempt, opts.ConnectTimeout, err)
		}

		fields := []logger.Field{
			logger.String("addr", opts.Addr),
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err),
		}
		if attempt <= opts.WarnThreshold {
			log.Warn("redis ping failed, retrying", fields...)
		} else {
			log.Error("redis still unavailable, retrying", fields...)
		}
	}
}

// Ping checks the connection within timeout.
func Ping(ctx context.Context, client *redis.Client, timeout time.Duration) error {
	if client == nil {
		return errors.New("redis client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

type backoff struct {
	next, max time.Duration
}

// step returns the current pause and doubles the next one, capped at max.
func (b *backoff) step() time.Duration {
	d := min(b.next, b.max)
	b.next = min(b.next*2, b.max)
	return d
}

// sleep waits d, or reports false when ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
