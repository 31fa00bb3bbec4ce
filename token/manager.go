package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config carries the issuer parameters. SigningSecret is the symmetric HS256
// key, a deployment secret external to this core.
type Config struct {
	SigningSecret []byte
	AccessTTL     time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// Identity is the claim bag attached to every access token. Keeping it a
// typed struct (rather than a loose claim map) means the issuer cannot omit
// or mistype a claim key.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Roles  []string
	Stamp  string
}

// Claims is the decoded access-token payload. Subject carries the user id.
type Claims struct {
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Stamp string   `json:"stamp,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and validates access tokens. It is immutable after
// construction and safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errors.New("signing secret required")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Create signs a new access token for the identity, expiring at now+TTL.
func (m *Manager) Create(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  id.Name,
		Email: id.Email,
		Roles: id.Roles,
		Stamp: id.Stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.SigningSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Parse validates signature, algorithm, issuer/audience (when configured),
// and expiry, returning the decoded claims.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, m.keyFunc)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// ParseExpired validates everything Parse does except expiry. The refresh
// flow hands in tokens that are expected to be expired; the signature and
// the algorithm identifier are still enforced, and issuer/audience are
// checked manually since claim validation is switched off.
func (m *Manager) ParseExpired(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, m.keyFunc)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return nil, jwt.ErrTokenInvalidIssuer
	}
	if m.config.Audience != "" && !containsAudience(claims.Audience, m.config.Audience) {
		return nil, jwt.ErrTokenInvalidAudience
	}
	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	return m.config.SigningSecret, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
