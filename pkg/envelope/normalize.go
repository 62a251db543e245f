package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds s into its canonical matching form: NFKC, lowercase,
// whitespace runs collapsed to one space, trimmed. Empty input yields empty output.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}

	// NFKC runs again after lowercasing so the result is a fixed point.
	folded := norm.NFKC.String(strings.ToLower(norm.NFKC.String(s)))

	return strings.Join(strings.Fields(folded), " ")
}

// ContentHash returns the hex-encoded SHA-256 of the normalized title and body
// joined by a single space.
func ContentHash(title, body string) string {
	sum := sha256.Sum256([]byte(NormalizeText(title) + " " + NormalizeText(body)))
	return hex.EncodeToString(sum[:])
}
