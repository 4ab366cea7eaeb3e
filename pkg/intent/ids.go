package intent

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewUserID generates a short anonymous user identifier, e.g. "user_a1b2c3".
func NewUserID(prefix string) string {
	if prefix == "" {
		prefix = "user"
	}
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "_" + raw[:6]
}

// HashIdentifier anonymizes an external identifier (email, IP) into a short
// stable reference for logging.
func HashIdentifier(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])[:16]
}
