package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ErrMissingSecret is returned when the shared secret is empty.
var ErrMissingSecret = fmt.Errorf("totp secret is required")

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPOptions parameterize code generation per RFC 6238. Zero values fall
// back to the interoperable defaults used by common authenticator apps
// (SHA-1, 6 digits, 30 second period).
type TOTPOptions struct {
	Period time.Duration
	Digits int
	// Skew is the number of adjacent periods accepted on verification to
	// absorb clock drift between server and device.
	Skew int
}

func (o TOTPOptions) withDefaults() TOTPOptions {
	if o.Period <= 0 {
		o.Period = 30 * time.Second
	}
	if o.Digits <= 0 {
		o.Digits = 6
	}
	if o.Skew < 0 {
		o.Skew = 0
	}
	return o
}

// GenerateTOTPSecret returns a new random base32 secret suitable for
// authenticator app enrollment.
func GenerateTOTPSecret() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return b32.EncodeToString(buf), nil
}

// GenerateTOTP computes the code for the given instant.
func GenerateTOTP(secret string, at time.Time, opts TOTPOptions) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	opts = opts.withDefaults()

	key, err := b32.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}

	counter := uint64(at.Unix() / int64(opts.Period.Seconds()))
	return hotp(key, counter, opts.Digits), nil
}

// VerifyTOTP checks the submitted code against the current period and the
// configured skew on either side. Comparison is constant time per candidate.
func VerifyTOTP(secret, code string, at time.Time, opts TOTPOptions) (bool, error) {
	if secret == "" {
		return false, ErrMissingSecret
	}
	opts = opts.withDefaults()
	if len(code) != opts.Digits {
		return false, nil
	}

	key, err := b32.DecodeString(secret)
	if err != nil {
		return false, fmt.Errorf("decode totp secret: %w", err)
	}

	counter := at.Unix() / int64(opts.Period.Seconds())
	matched := false
	for offset := -opts.Skew; offset <= opts.Skew; offset++ {
		candidate := counter + int64(offset)
		if candidate < 0 {
			continue
		}
		expected := hotp(key, uint64(candidate), opts.Digits)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			matched = true
		}
	}

	return matched, nil
}

// ProvisioningURI renders the otpauth:// URI encoded into enrollment QR codes.
func ProvisioningURI(issuer, account, secret string, opts TOTPOptions) string {
	opts = opts.withDefaults()

	label := url.PathEscape(issuer) + ":" + url.PathEscape(account)
	params := url.Values{}
	params.Set("secret", secret)
	params.Set("issuer", issuer)
	params.Set("algorithm", "SHA1")
	params.Set("digits", strconv.Itoa(opts.Digits))
	params.Set("period", strconv.Itoa(int(opts.Period.Seconds())))

	return "otpauth://totp/" + label + "?" + params.Encode()
}

// hotp implements RFC 4226 dynamic truncation over HMAC-SHA1.
func hotp(key []byte, counter uint64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, value%mod)
}
