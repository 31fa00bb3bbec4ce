package authcore

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avelov/authcore/internal"
)

type totpManager struct {
	config TOTPConfig
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	if cfg.Digits == 0 {
		cfg.Digits = 6
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	if cfg.WindowMinutes == 0 {
		cfg.WindowMinutes = 2
	}
	return &totpManager{config: cfg}
}

// GenerateSecret returns a fresh 160-bit secret as raw bytes plus its
// unpadded base32 form.
func (m *totpManager) GenerateSecret() ([]byte, string, error) {
	return internal.NewTOTPSecret()
}

// ProvisionURI renders the otpauth:// enrollment URI for the secret, in the
// form authenticator apps consume from a QR code.
func (m *totpManager) ProvisionURI(secretBase32, account string) string {
	issuer := m.config.Issuer
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(m.config.Period))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// VerifyCode checks the submitted code against every time step inside the
// acceptance window. The window is WindowMinutes on each side of now; a
// 2-minute window with 30-second steps accepts the codes of the current
// counter and the four counters on either side. Malformed input is a plain
// mismatch, never an error.
func (m *totpManager) VerifyCode(secret []byte, code string, now time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false
	}
	if len(secret) == 0 {
		return false
	}

	baseCounter := now.Unix() / int64(m.config.Period)
	steps := int64(m.config.WindowMinutes) * 60 / int64(m.config.Period)
	for step := -steps; step <= steps; step++ {
		counter := baseCounter + step
		if counter < 0 {
			continue
		}
		generated := hotpCode(secret, counter, m.config.Digits)
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true
		}
	}

	return false
}

// hotpCode computes the RFC 4226 code for one counter value: HMAC-SHA1 over
// the big-endian 8-byte counter, dynamic truncation (low nibble of the last
// byte selects a 4-byte window, sign bit masked off), reduced modulo 10^digits.
func hotpCode(secret []byte, counter int64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod)
}

func isNumericString(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
