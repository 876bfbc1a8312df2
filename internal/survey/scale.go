package survey

import (
	"fmt"
	"strconv"
	"strings"
)

// Scale is the discrete score domain a scored question offers. Choices are
// presented in slice order.
type Scale []int

// DefaultScale is the per-problem score domain.
func DefaultScale() Scale { return Scale{0, 1, 2, 3} }

// DefaultSingleScale is the score domain of single-overall-grade surveys.
func DefaultSingleScale() Scale {
	s := make(Scale, 11)
	for i := range s {
		s[i] = i
	}
	return s
}

// Max returns the highest value in the scale, or 0 for an empty scale.
func (s Scale) Max() int {
	max := 0
	for _, v := range s {
		if v > max {
			max = v
		}
	}
	return max
}

// Validate rejects score domains that would make scoring degenerate: an
// empty domain, negatives, or a maximum of zero (division by zero when
// scaling to assignment points).
func (s Scale) Validate() error {
	if len(s) == 0 {
		return &ConfigurationError{Reason: "score options are empty"}
	}
	for _, v := range s {
		if v < 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("score option %d is negative", v)}
		}
	}
	if s.Max() == 0 {
		return &ConfigurationError{Reason: "score options have a maximum of zero"}
	}
	return nil
}

// ParseScale parses a comma-separated score option list such as "0,1,2,3".
func ParseScale(spec string) (Scale, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("parse score options: empty")
	}
	var s Scale
	for _, part := range strings.Split(spec, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse score options %q: %w", spec, err)
		}
		s = append(s, v)
	}
	return s, nil
}
