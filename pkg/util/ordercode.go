package util

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const orderCodePrefix = "SF"

// GenerateOrderCode creates a human-shareable order code, e.g. "SF-3F9A21C7BD".
// Guests use this code to track an order without an account; the orders table
// carries a unique index on it, so the rare collision surfaces as an insert error.
func GenerateOrderCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s-%s", orderCodePrefix, strings.ToUpper(raw[:10]))
}
