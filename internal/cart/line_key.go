package cart

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// LineKey derives the stable identity of a cart line from its variant
// coordinates. Adding the same (product, size, color) twice lands on the
// same key, so the lines merge instead of duplicating.
func LineKey(productID uuid.UUID, size, color string) string {
	raw := strings.Join([]string{
		productID.String(),
		strings.ToLower(strings.TrimSpace(size)),
		strings.ToLower(strings.TrimSpace(color)),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}
