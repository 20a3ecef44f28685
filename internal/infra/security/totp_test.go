package security

import (
	"strings"
	"testing"
	"time"
)

// Base32 encoding of the ASCII secret "12345678901234567890" from the
// RFC 6238 appendix test vectors.
const rfcTestSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateTOTPReferenceVectors(t *testing.T) {
	cases := []struct {
		unix int64
		want string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}

	opts := TOTPOptions{Digits: 8}
	for _, tc := range cases {
		got, err := GenerateTOTP(rfcTestSecret, time.Unix(tc.unix, 0).UTC(), opts)
		if err != nil {
			t.Fatalf("GenerateTOTP(%d) returned error: %v", tc.unix, err)
		}
		if got != tc.want {
			t.Fatalf("GenerateTOTP(%d) = %s, want %s", tc.unix, got, tc.want)
		}
	}
}

func TestVerifyTOTPAcceptsAdjacentPeriods(t *testing.T) {
	now := time.Unix(1111111111, 0).UTC()
	opts := TOTPOptions{Skew: 1}

	previous, err := GenerateTOTP(rfcTestSecret, now.Add(-30*time.Second), opts)
	if err != nil {
		t.Fatalf("GenerateTOTP returned error: %v", err)
	}

	ok, err := VerifyTOTP(rfcTestSecret, previous, now, opts)
	if err != nil {
		t.Fatalf("VerifyTOTP returned error: %v", err)
	}
	if !ok {
		t.Fatal("code from previous period rejected with skew 1")
	}
}

func TestVerifyTOTPRejectsOutsideSkew(t *testing.T) {
	now := time.Unix(1111111111, 0).UTC()
	opts := TOTPOptions{Skew: 1}

	stale, err := GenerateTOTP(rfcTestSecret, now.Add(-2*time.Minute), opts)
	if err != nil {
		t.Fatalf("GenerateTOTP returned error: %v", err)
	}

	ok, err := VerifyTOTP(rfcTestSecret, stale, now, opts)
	if err != nil {
		t.Fatalf("VerifyTOTP returned error: %v", err)
	}
	if ok {
		t.Fatal("code four periods old accepted")
	}
}

func TestVerifyTOTPRejectsWrongLength(t *testing.T) {
	ok, err := VerifyTOTP(rfcTestSecret, "1234", time.Now(), TOTPOptions{})
	if err != nil {
		t.Fatalf("VerifyTOTP returned error: %v", err)
	}
	if ok {
		t.Fatal("short code accepted")
	}
}

func TestVerifyTOTPMissingSecret(t *testing.T) {
	if _, err := VerifyTOTP("", "123456", time.Now(), TOTPOptions{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestGenerateTOTPSecretRoundTrip(t *testing.T) {
	secret, err := GenerateTOTPSecret()
	if err != nil {
		t.Fatalf("GenerateTOTPSecret returned error: %v", err)
	}

	now := time.Now().UTC()
	code, err := GenerateTOTP(secret, now, TOTPOptions{})
	if err != nil {
		t.Fatalf("GenerateTOTP returned error: %v", err)
	}

	ok, err := VerifyTOTP(secret, code, now, TOTPOptions{})
	if err != nil {
		t.Fatalf("VerifyTOTP returned error: %v", err)
	}
	if !ok {
		t.Fatal("freshly generated code rejected")
	}
}

func TestProvisioningURI(t *testing.T) {
	uri := ProvisioningURI("JuristDZ", "jean.avocat@example.com", rfcTestSecret, TOTPOptions{})

	if !strings.HasPrefix(uri, "otpauth://totp/JuristDZ:") {
		t.Fatalf("unexpected label in URI: %s", uri)
	}
	if !strings.Contains(uri, "secret="+rfcTestSecret) {
		t.Fatalf("URI missing secret: %s", uri)
	}
	if !strings.Contains(uri, "issuer=JuristDZ") {
		t.Fatalf("URI missing issuer: %s", uri)
	}
	if !strings.Contains(uri, "period=30") {
		t.Fatalf("URI missing period: %s", uri)
	}
}
