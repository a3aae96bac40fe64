package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// StringPtr returns a pointer to a string, or nil if empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to an int.
func IntPtr(i int) *int {
	return &i
}

// ContainsString checks if a string slice contains a specific string.
func ContainsString(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// LetterToIndex converts an answer letter ('A', 'b', ...) to a zero-based index.
func LetterToIndex(letter string) (int, error) {
	l := strings.ToUpper(strings.TrimSpace(letter))
	if len(l) != 1 || l[0] < 'A' || l[0] > 'Z' {
		return -1, fmt.Errorf("invalid answer letter %q", letter)
	}
	return int(l[0] - 'A'), nil
}

// IndexToLetter converts a zero-based index to its answer letter.
func IndexToLetter(i int) string {
	if i < 0 || i >= 26 {
		return ""
	}
	return string(rune('A' + i))
}

// ParseBool accepts the loose truthy forms found in question banks.
// Anything it does not recognise is false.
func ParseBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		}
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	return false
}

// ParseInt converts JSON numbers, YAML ints and numeric strings to an int.
func ParseInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// OptionalString returns a pointer to the trimmed string form of v, or nil.
func OptionalString(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return StringPtr(strings.TrimSpace(t))
	case int, int64, float64:
		return StringPtr(fmt.Sprint(t))
	}
	return nil
}
