package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive numeric span parsed from "low-high" or a bare
// number, used for levelRange and players.
type Range struct {
	Low  int
	High int
}

var (
	// ErrMalformedRange reports input that does not parse as a range at all.
	ErrMalformedRange = errors.New("malformed range")
	// ErrRangeBounds reports a parsed range whose bounds are not positive
	// or are out of order.
	ErrRangeBounds = errors.New("invalid range bounds")
)

// ParseRange parses "1-3" or "4" into a Range. Both bounds must be positive
// and low must not exceed high; a bare "4" means 4-4.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	lowStr, highStr, dashed := strings.Cut(s, "-")
	if !dashed {
		highStr = lowStr
	}
	low, errLow := strconv.Atoi(strings.TrimSpace(lowStr))
	high, errHigh := strconv.Atoi(strings.TrimSpace(highStr))
	if errLow != nil || errHigh != nil {
		return Range{}, fmt.Errorf("%w: %q is not \"low-high\" or a single number", ErrMalformedRange, s)
	}
	if low < 1 || high < 1 {
		return Range{}, fmt.Errorf("%w: values in %q must be positive", ErrRangeBounds, s)
	}
	if low > high {
		return Range{}, fmt.Errorf("%w: low exceeds high in %q", ErrRangeBounds, s)
	}
	return Range{Low: low, High: high}, nil
}

// String renders the range back in its canonical frontmatter form.
func (r Range) String() string {
	if r.Low == r.High {
		return strconv.Itoa(r.Low)
	}
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}
