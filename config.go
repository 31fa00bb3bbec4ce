package authcore

import (
	"errors"
	"time"
)

// Config defines the full configuration surface of the engine. Zero values
// are filled in from defaults by [Builder.Build]; only the signing secret has
// no default and must be supplied.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Token    TokenConfig
	Password PasswordConfig
	TOTP     TOTPConfig
	Lockout  LockoutConfig
	Refresh  RefreshConfig

	// RequireTransportSecurity is informational only: this core never touches
	// a transport. It is surfaced so deployments can assert the flag where
	// tokens actually cross the wire.
	RequireTransportSecurity bool
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures the access-token issuer.
type TokenConfig struct {
	// SigningSecret is the symmetric HS256 key. Required, no default.
	SigningSecret []byte
	// AccessTokenMinutes is the access-token lifetime. Default 60.
	AccessTokenMinutes int
	Issuer             string
	Audience           string
	Leeway             time.Duration
	// ValidateSecurityStamp makes [Engine.Validate] compare the token's stamp
	// claim against the live directory record, rejecting tokens issued before
	// the last security-relevant change. Costs one directory lookup per call.
	ValidateSecurityStamp bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordScheme selects the credential hashing scheme for newly produced
// digests. Verification always accepts both schemes, keyed on digest shape.
type PasswordScheme string

const (
	// SchemeHMACSHA512 derives the digest as HMAC-SHA512(key, password) with a
	// per-user random key stored alongside the digest.
	SchemeHMACSHA512 PasswordScheme = "hmac-sha512"
	// SchemeArgon2id produces PHC-encoded argon2id digests with an embedded
	// salt and an empty per-user key.
	SchemeArgon2id PasswordScheme = "argon2id"
)

// PasswordConfig configures the credential hasher.
type PasswordConfig struct {
	Scheme PasswordScheme
	// KeySize is the per-user HMAC key length in bytes. Default 64.
	KeySize int
	// UpgradeOnLogin rehashes HMAC-SHA512 records to argon2id after a
	// successful password check when Scheme is argon2id.
	UpgradeOnLogin bool

	// argon2id parameters, in the usual units (Memory in KiB).
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig configures the second-factor validator.
type TOTPConfig struct {
	Issuer string
	Digits int
	// Period is the time-step length in seconds. Default 30.
	Period int
	// WindowMinutes is the symmetric acceptance window around now, in whole
	// minutes. Every 30-second step inside the window yields one valid code.
	// Default 2. Note the unit: a 2-minute window accepts codes up to two
	// minutes stale, considerably wider than the usual one-step skew.
	WindowMinutes int
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig configures the failed-login lockout policy.
type LockoutConfig struct {
	// MaxFailedAttempts locks the account when reached. Default 5.
	MaxFailedAttempts int
	// Duration is how long a lockout lasts. Default 15 minutes.
	Duration time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig configures refresh-token issuance.
type RefreshConfig struct {
	// ExpirationDays is the refresh-token lifetime. Default 7.
	ExpirationDays int
	// RedisPrefix namespaces registry keys when the Redis registry is used.
	RedisPrefix string
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTokenMinutes: 60,
		},
		Password: PasswordConfig{
			Scheme:      SchemeHMACSHA512,
			KeySize:     64,
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		TOTP: TOTPConfig{
			Issuer:        "authcore",
			Digits:        6,
			Period:        30,
			WindowMinutes: 2,
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: 5,
			Duration:          15 * time.Minute,
		},
		Refresh: RefreshConfig{
			ExpirationDays: 7,
			RedisPrefix:    "ac",
		},
	}
}

// applyDefaults fills zero-valued fields from [defaultConfig]. Boolean flags
// and the signing secret are left alone; false and absent are meaningful.
func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.Token.AccessTokenMinutes == 0 {
		c.Token.AccessTokenMinutes = def.Token.AccessTokenMinutes
	}
	if c.Password.Scheme == "" {
		c.Password.Scheme = def.Password.Scheme
	}
	if c.Password.KeySize == 0 {
		c.Password.KeySize = def.Password.KeySize
	}
	if c.Password.Memory == 0 {
		c.Password.Memory = def.Password.Memory
	}
	if c.Password.Time == 0 {
		c.Password.Time = def.Password.Time
	}
	if c.Password.Parallelism == 0 {
		c.Password.Parallelism = def.Password.Parallelism
	}
	if c.Password.SaltLength == 0 {
		c.Password.SaltLength = def.Password.SaltLength
	}
	if c.Password.KeyLength == 0 {
		c.Password.KeyLength = def.Password.KeyLength
	}
	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = def.TOTP.Issuer
	}
	if c.TOTP.Digits == 0 {
		c.TOTP.Digits = def.TOTP.Digits
	}
	if c.TOTP.Period == 0 {
		c.TOTP.Period = def.TOTP.Period
	}
	if c.TOTP.WindowMinutes == 0 {
		c.TOTP.WindowMinutes = def.TOTP.WindowMinutes
	}
	if c.Lockout.MaxFailedAttempts == 0 {
		c.Lockout.MaxFailedAttempts = def.Lockout.MaxFailedAttempts
	}
	if c.Lockout.Duration == 0 {
		c.Lockout.Duration = def.Lockout.Duration
	}
	if c.Refresh.ExpirationDays == 0 {
		c.Refresh.ExpirationDays = def.Refresh.ExpirationDays
	}
	if c.Refresh.RedisPrefix == "" {
		c.Refresh.RedisPrefix = def.Refresh.RedisPrefix
	}
}

// Validate reports the first configuration problem found, or nil.
func (c Config) Validate() error {
	if len(c.Token.SigningSecret) == 0 {
		return errors.New("token signing secret required")
	}
	if len(c.Token.SigningSecret) < 32 {
		return errors.New("token signing secret must be at least 32 bytes")
	}
	if c.Token.AccessTokenMinutes <= 0 {
		return errors.New("access token lifetime must be positive")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token leeway out of range")
	}
	switch c.Password.Scheme {
	case SchemeHMACSHA512, SchemeArgon2id:
	default:
		return errors.New("unsupported password scheme")
	}
	if c.Password.UpgradeOnLogin && c.Password.Scheme != SchemeArgon2id {
		return errors.New("password upgrade on login requires the argon2id scheme")
	}
	if c.Password.KeySize < 32 {
		return errors.New("password key size must be >= 32 bytes")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("totp digits must be 6..8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.WindowMinutes <= 0 {
		return errors.New("totp window must be positive")
	}
	if c.Lockout.MaxFailedAttempts <= 0 {
		return errors.New("lockout threshold must be positive")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if c.Refresh.ExpirationDays <= 0 {
		return errors.New("refresh token lifetime must be positive")
	}
	return nil
}

func (c Config) accessTTL() time.Duration {
	return time.Duration(c.Token.AccessTokenMinutes) * time.Minute
}

func (c Config) refreshTTL() time.Duration {
	return time.Duration(c.Refresh.ExpirationDays) * 24 * time.Hour
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = cloneBytes(cfg.Token.SigningSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
