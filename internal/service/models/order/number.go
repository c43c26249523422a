package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewNumber generates a human-readable order number, unique and stable for the
// order's lifetime: ORD-YYYYMMDD-XXXXXX.
func NewNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:6])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
