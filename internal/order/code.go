package order

import (
	"fmt"
	"time"
)

// FormatCode builds the human order code, e.g. FRM-20250314-0007. The
// sequence is per calendar day across all orders.
func FormatCode(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), seq)
}
