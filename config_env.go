package authcore

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors Config with env tags so deployments can configure the
// engine without code. Only values present in the environment override the
// defaults.
type envConfig struct {
	SigningSecret      string `env:"SIGNING_SECRET"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_MINUTES" envDefault:"60"`
	TokenIssuer        string `env:"TOKEN_ISSUER"`
	TokenAudience      string `env:"TOKEN_AUDIENCE"`

	PasswordScheme string `env:"PASSWORD_SCHEME" envDefault:"hmac-sha512"`
	UpgradeOnLogin bool   `env:"PASSWORD_UPGRADE_ON_LOGIN" envDefault:"false"`

	TOTPIssuer        string `env:"TOTP_ISSUER" envDefault:"authcore"`
	TOTPWindowMinutes int    `env:"TOTP_WINDOW_MINUTES" envDefault:"2"`

	MaxFailedAttempts     int `env:"MAX_FAILED_ATTEMPTS" envDefault:"5"`
	LockoutMinutes        int `env:"LOCKOUT_MINUTES" envDefault:"15"`
	RefreshExpirationDays int `env:"REFRESH_EXPIRATION_DAYS" envDefault:"7"`

	RequireTransportSecurity bool `env:"REQUIRE_TRANSPORT_SECURITY" envDefault:"false"`
}

// ConfigFromEnv builds a Config from AUTHCORE_-prefixed environment
// variables layered over the defaults. The signing secret is required:
// AUTHCORE_SIGNING_SECRET must be set.
func ConfigFromEnv() (Config, error) {
	var ec envConfig
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: "AUTHCORE_"}); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := defaultConfig()
	cfg.Token.SigningSecret = []byte(ec.SigningSecret)
	cfg.Token.AccessTokenMinutes = ec.AccessTokenMinutes
	cfg.Token.Issuer = ec.TokenIssuer
	cfg.Token.Audience = ec.TokenAudience
	cfg.Password.Scheme = PasswordScheme(ec.PasswordScheme)
	cfg.Password.UpgradeOnLogin = ec.UpgradeOnLogin
	cfg.TOTP.Issuer = ec.TOTPIssuer
	cfg.TOTP.WindowMinutes = ec.TOTPWindowMinutes
	cfg.Lockout.MaxFailedAttempts = ec.MaxFailedAttempts
	cfg.Lockout.Duration = time.Duration(ec.LockoutMinutes) * time.Minute
	cfg.Refresh.ExpirationDays = ec.RefreshExpirationDays
	cfg.RequireTransportSecurity = ec.RequireTransportSecurity

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
