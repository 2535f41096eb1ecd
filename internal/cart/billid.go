package cart

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewBillID mints the client-side idempotency key for a sale. Time-derived so
// ids sort roughly by checkout order, with a random suffix against
// same-instant collisions. Stable across retries: minted exactly once, at
// payment selection.
func NewBillID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("BILL-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("BILL-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}
