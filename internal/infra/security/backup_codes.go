package security

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Backup codes use an unambiguous alphabet (no 0/O, 1/I/L) so codes read
// over the phone or copied from paper survive transcription.
const backupCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const backupCodeGroupLen = 4

// GenerateBackupCodes produces count single-use recovery codes in the form
// XXXX-XXXX. Callers persist HashToken(code) only; the plaintext is shown to
// the user exactly once.
func GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}

	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := generateBackupCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, nil
}

func generateBackupCode() (string, error) {
	buf := make([]byte, backupCodeGroupLen*2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate backup code: %w", err)
	}

	var sb strings.Builder
	for i, b := range buf {
		if i == backupCodeGroupLen {
			sb.WriteByte('-')
		}
		sb.WriteByte(backupCodeAlphabet[int(b)%len(backupCodeAlphabet)])
	}

	return sb.String(), nil
}

// NormalizeBackupCode canonicalizes user input before hashing so that
// lowercase entry or a missing dash still matches the stored hash.
func NormalizeBackupCode(raw string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if len(cleaned) != backupCodeGroupLen*2 {
		return cleaned
	}
	return cleaned[:backupCodeGroupLen] + "-" + cleaned[backupCodeGroupLen:]
}
