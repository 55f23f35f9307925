package ranking

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseStoredScore coerces a number read back from the store. Stores hand
// numbers back as strings; anything that is not a finite decimal is
// rejected rather than read as zero.
func parseStoredScore(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not numeric", ErrCorruptValue, raw)
	}
	return d, nil
}

func formatScore(d decimal.Decimal) string {
	return d.String()
}
