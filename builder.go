package authcore

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avelov/authcore/password"
	"github.com/avelov/authcore/registry"
	"github.com/avelov/authcore/token"
)

// Builder assembles an [Engine]. Construction is allocation-only until
// Build; a Builder is single-use.
type Builder struct {
	config    Config
	directory UserDirectory
	store     registry.Store
	redis     redis.UniversalClient
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the configuration. Zero-valued sections keep their
// defaults where Build can tell them apart; the signing secret is required.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDirectory sets the user-directory collaborator. Required.
func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithRegistry injects a refresh-token registry, overriding the one Build
// would construct. Tests use this to instantiate independent registries.
func (b *Builder) WithRegistry(store registry.Store) *Builder {
	b.store = store
	return b
}

// WithRedis supplies a redis client; Build then backs the refresh-token
// registry with it. Without a client (and without WithRegistry) the engine
// uses the in-process registry.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger for non-fatal warnings. Optional; the engine
// never logs credentials or tokens.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the engine's time source. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the wiring and returns the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	store := b.store
	if store == nil {
		if b.redis != nil {
			store = registry.NewRedis(b.redis, cfg.Refresh.RedisPrefix, cfg.refreshTTL())
		} else {
			store = registry.NewMemory(cfg.refreshTTL())
		}
	}

	hasher, err := password.NewHasher(password.Config{
		Scheme:      password.Scheme(cfg.Password.Scheme),
		KeySize:     cfg.Password.KeySize,
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		SigningSecret: cfg.Token.SigningSecret,
		AccessTTL:     cfg.accessTTL(),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		directory: b.directory,
		store:     store,
		hasher:    hasher,
		totp:      newTOTPManager(cfg.TOTP),
		tokens:    tokens,
		logger:    b.logger,
		now:       b.now,
	}
	if engine.now == nil {
		engine.now = time.Now
	}

	// The decoy pair keeps the cost of an unknown email in line with a wrong
	// password. Argon2id digests embed their own salt, so the key stays empty
	// under that scheme.
	decoyKey, err := hasher.GenerateKey()
	if err != nil {
		return nil, err
	}
	decoyDigest, err := hasher.Hash("authcore-decoy-credential", decoyKey)
	if err != nil {
		return nil, err
	}
	engine.decoyKey = decoyKey
	engine.decoyDigest = decoyDigest

	b.built = true
	return engine, nil
}
