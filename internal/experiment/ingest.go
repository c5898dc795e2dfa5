package experiment

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCounts converts operator input of the form "<total> <success>" into a
// variation. The two numbers may come in either order: the larger is taken as
// total.
func ParseCounts(text string, opts ...Option) (*Variation, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: expected two numbers, got %d", ErrValidation, len(fields))
	}

	nums := make([]int, 2)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrValidation, f)
		}
		nums[i] = n
	}

	total, success := max(nums[0], nums[1]), min(nums[0], nums[1])
	return New(total, success, opts...)
}
