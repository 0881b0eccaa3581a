package routingtable

import (
	"fmt"
	"strings"
)

// Topic level separator and wildcard tokens.
const (
	// Separator splits a topic or filter into levels.
	Separator = "/"

	// WildcardSingle matches exactly one topic level.
	WildcardSingle = "+"

	// WildcardMulti matches zero or more trailing topic levels.
	WildcardMulti = "#"
)

// ParseFilter splits a topic filter into levels and validates wildcard placement.
//
// A valid filter:
//   - Is not empty
//   - Uses "+" and "#" only as whole levels
//   - Has "#" only as its last level
func ParseFilter(filter string) ([]string, error) {
	if filter == "" {
		return nil, fmt.Errorf("%w: filter cannot be empty", ErrInvalidFilter)
	}

	levels := strings.Split(filter, Separator)
	for i, level := range levels {
		switch level {
		case WildcardMulti:
			if i != len(levels)-1 {
				return nil, fmt.Errorf("%w: %q: '#' must be the last level", ErrInvalidFilter, filter)
			}
		case WildcardSingle:
		default:
			if strings.ContainsAny(level, WildcardSingle+WildcardMulti) {
				return nil, fmt.Errorf("%w: %q: wildcard must occupy a whole level", ErrInvalidFilter, filter)
			}
		}
	}
	return levels, nil
}

// ValidateFilter returns an error if the filter is malformed.
func ValidateFilter(filter string) error {
	_, err := ParseFilter(filter)
	return err
}

// ValidateTopic returns an error if the topic cannot be published to.
func ValidateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, WildcardSingle+WildcardMulti) {
		return fmt.Errorf("%w: %q: wildcards are not allowed in a topic", ErrInvalidTopic, topic)
	}
	return nil
}

// SplitTopic splits a concrete topic into levels. Every level is a literal,
// including any "+" or "#" characters it happens to contain.
func SplitTopic(topic string) []string {
	return strings.Split(topic, Separator)
}

// IsWildcard returns true if the filter contains any wildcard level.
func IsWildcard(filter string) bool {
	return strings.ContainsAny(filter, WildcardSingle+WildcardMulti)
}
