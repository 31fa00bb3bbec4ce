package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Scheme selects the algorithm used for newly produced digests.
type Scheme string

const (
	// SchemeHMACSHA512 computes HMAC-SHA512(key, password) where key is a
	// per-user random value stored alongside the digest. The key plays the
	// role of a salt but is also the MAC key, so identical passwords under
	// different keys yield unrelated digests.
	SchemeHMACSHA512 Scheme = "hmac-sha512"
	// SchemeArgon2id produces $argon2id$... PHC strings with an embedded salt.
	SchemeArgon2id Scheme = "argon2id"
)

const (
	minKeySize            = 32
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2Prefix          = "$argon2id$"
)

// Config carries hasher parameters. KeySize is the HMAC per-user key length
// in bytes; the remaining fields are argon2id parameters (Memory in KiB).
type Config struct {
	Scheme      Scheme
	KeySize     int
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher computes and verifies credential digests. It is immutable after
// construction and safe for concurrent use.
type Hasher struct {
	config Config
}

// NewHasher validates the configuration and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	switch cfg.Scheme {
	case SchemeHMACSHA512, SchemeArgon2id:
	default:
		return nil, errors.New("unsupported password scheme")
	}
	if cfg.KeySize < minKeySize {
		return nil, errors.New("password key size must be >= 32 bytes")
	}
	if cfg.Scheme == SchemeArgon2id {
		if cfg.Memory < minMemoryKB {
			return nil, errors.New("password memory must be >= 8192 KB")
		}
		if cfg.Time < minTimeCost {
			return nil, errors.New("password time must be >= 1")
		}
		if cfg.Parallelism < minParallelism {
			return nil, errors.New("password parallelism must be >= 1")
		}
		if cfg.SaltLength < minSaltLength {
			return nil, errors.New("password salt length must be >= 16")
		}
		if cfg.KeyLength < minKeyLength {
			return nil, errors.New("password key length must be >= 16")
		}
	}
	return &Hasher{config: cfg}, nil
}

// GenerateKey returns a fresh per-user HMAC key. Argon2id records do not use
// one; callers verifying only argon2id digests may store an empty key.
func (h *Hasher) GenerateKey() ([]byte, error) {
	key := make([]byte, h.config.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Hash computes a digest for the password under the configured scheme.
// Password bytes are used exactly as provided (no Unicode normalization).
func (h *Hasher) Hash(pw string, key []byte) (string, error) {
	switch h.config.Scheme {
	case SchemeArgon2id:
		return h.hashArgon2(pw)
	default:
		return h.hashHMAC(pw, key)
	}
}

// Verify recomputes the digest for the password and compares it in constant
// time. A mismatch, an unknown digest shape, or a malformed digest all
// report false; verification never returns an error.
func (h *Hasher) Verify(pw string, key []byte, digest string) bool {
	if strings.HasPrefix(digest, argon2Prefix) {
		return verifyArgon2(pw, digest)
	}
	return verifyHMAC(pw, key, digest)
}

// NeedsUpgrade reports whether the stored digest should be rehashed under
// the configured scheme: an HMAC digest while argon2id is configured, or an
// argon2id digest with weaker-than-configured parameters.
func (h *Hasher) NeedsUpgrade(digest string) bool {
	if h.config.Scheme != SchemeArgon2id {
		return false
	}
	if !strings.HasPrefix(digest, argon2Prefix) {
		return true
	}
	parsed, err := parsePHC(digest)
	if err != nil {
		return true
	}
	return h.config.Memory > parsed.memory ||
		h.config.Time > parsed.time ||
		h.config.Parallelism > parsed.parallelism ||
		h.config.KeyLength != parsed.keyLength
}

func (h *Hasher) hashHMAC(pw string, key []byte) (string, error) {
	if len(key) < minKeySize {
		return "", errors.New("hmac key too short")
	}
	mac := hmac.New(sha512.New, key)
	_, _ = mac.Write([]byte(pw))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func verifyHMAC(pw string, key []byte, digest string) bool {
	stored, err := base64.StdEncoding.DecodeString(digest)
	if err != nil || len(stored) != sha512.Size || len(key) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, key)
	_, _ = mac.Write([]byte(pw))
	return subtle.ConstantTimeCompare(mac.Sum(nil), stored) == 1
}

func (h *Hasher) hashArgon2(pw string) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(pw),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	), nil
}

func verifyArgon2(pw string, digest string) bool {
	parsed, err := parsePHC(digest)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		[]byte(pw),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		parsed.keyLength,
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

func parsePHC(digest string) (*parsedPHC, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != "argon2id" {
		return nil, errors.New("unsupported algorithm")
	}

	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var out parsedPHC
	pairs := strings.Split(parts[3], ",")
	if len(pairs) != 3 {
		return nil, errors.New("invalid parameter format")
	}
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("invalid parameter entry")
		}
		switch kv[0] {
		case "m":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return nil, errors.New("invalid memory parameter")
			}
			out.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return nil, errors.New("invalid time parameter")
			}
			out.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(kv[1], 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return nil, errors.New("invalid parallelism parameter")
			}
			out.parallelism = uint8(v)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if out.memory == 0 || out.time == 0 || out.parallelism == 0 {
		return nil, errors.New("missing parameters")
	}

	out.salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(out.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	out.hash, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(out.hash) == 0 {
		return nil, errors.New("invalid hash")
	}
	out.keyLength = uint32(len(out.hash))

	return &out, nil
}
