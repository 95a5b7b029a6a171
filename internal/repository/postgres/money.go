package postgres

import (
	"fmt"
	"strings"

	domainerrors "github.com/rmedeiros/payrouter/internal/domain/errors"
)

// centsToNumeric renders an amount in cents as a two-decimal string
// suitable for a NUMERIC column.
func centsToNumeric(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// numericToCents parses a NUMERIC column value back into cents. Values
// with more than two decimal places are rejected rather than rounded.
func numericToCents(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty amount", domainerrors.ErrInvalidAmount)
	}

	negative := false
	if strings.HasPrefix(value, "-") {
		negative = true
		value = value[1:]
	}

	whole, frac := value, ""
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		whole, frac = value[:idx], value[idx+1:]
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: too many decimal places in %q", domainerrors.ErrInvalidAmount, value)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var cents int64
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("%w: malformed amount %q", domainerrors.ErrInvalidAmount, value)
			}
			cents = cents*10 + int64(r-'0')
		}
	}
	if negative {
		cents = -cents
	}
	return cents, nil
}
