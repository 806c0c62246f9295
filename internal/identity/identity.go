package identity

import (
	"strings"

	"github.com/google/uuid"
)

func New() string {
	return uuid.NewString()
}

// SaleNumber builds a human-readable receipt number from a fresh UUID:
// "SALE-" followed by its first eight hex characters, uppercased. Collisions
// are possible at this length and are caught by a unique index on insert.
func SaleNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "SALE-" + strings.ToUpper(raw[:8])
}
