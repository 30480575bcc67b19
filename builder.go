package authflow

import (
	"errors"

	"github.com/google/uuid"
	"github.com/nimbuspay/authflow/internal/ratelimit"
	"github.com/nimbuspay/authflow/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Orchestrator]. Construction is allocation-only; no
// I/O happens until the first flow call.
type Builder struct {
	config   Config
	gateway  Gateway
	store    session.Store
	redis    redis.UniversalClient
	sink     AuditSink
	deviceID string

	built bool
}

// New returns a builder preloaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithGateway sets the backend implementation. Required.
func (b *Builder) WithGateway(g Gateway) *Builder {
	b.gateway = g
	return b
}

// WithSessionStore sets an explicit session store. When unset, a Redis
// client (if provided) backs the store, otherwise memory.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithRedis persists the session credential in Redis under the configured
// prefix, keyed by device id.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDeviceID pins the stable per-install device identifier. When unset a
// random one is generated at build time.
func (b *Builder) WithDeviceID(deviceID string) *Builder {
	b.deviceID = deviceID
	return b
}

// WithAuditSink routes audit events to the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// Build validates the configuration and assembles the orchestrator. A
// builder can be used once.
func (b *Builder) Build() (*Orchestrator, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.gateway == nil {
		return nil, errors.New("gateway required")
	}

	deviceID := b.deviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	store := b.store
	if store == nil {
		if b.redis != nil {
			store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, deviceID)
		} else {
			store = session.NewMemoryStore()
		}
	}

	orchestrator := &Orchestrator{
		config:   cfg,
		gateway:  b.gateway,
		sessions: store,
		deviceID: deviceID,
		limiter: ratelimit.New(ratelimit.Config{
			AttemptWindow:   cfg.Security.AttemptWindow,
			MaxAttempts:     cfg.Security.MaxLoginAttempts,
			LockoutDuration: cfg.Security.LockoutDuration,
		}),
		audit:    newAuditDispatcher(cfg.Audit, b.sink),
		metrics:  NewMetrics(cfg.Metrics),
		counters: make(map[string]int64),
	}

	b.built = true
	return orchestrator, nil
}
