package errors

import (
	"math"
	"strconv"
	"strings"
)

// maxListedNodes caps how many node indices appear in an error message.
const maxListedNodes = 8

// FormatNodes renders node indices as "[1 5 9]", truncating after max
// entries with a "(+N more)" suffix.
func FormatNodes(nodes []int, max int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, n := range nodes {
		if i == max {
			b.WriteString(" (+")
			b.WriteString(strconv.Itoa(len(nodes) - max))
			b.WriteString(" more)")
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(n))
	}
	b.WriteByte(']')
	return b.String()
}

// ValidateLength checks that a per-node array has exactly n entries.
func ValidateLength(name string, got, n int) error {
	if got != n {
		return New(ErrCodeInvalidInput, "%s has %d entries, mesh has %d nodes", name, got, n)
	}
	return nil
}

// ValidateFinite rejects NaN or infinite entries and reports every
// offending index.
func ValidateFinite(code Code, name string, values []float64) error {
	var bad []int
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, i)
		}
	}
	if len(bad) > 0 {
		return AtNodes(code, bad, "%s is not finite", name)
	}
	return nil
}

// ValidatePath validates a file path argument.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' || r < 0x20 {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}
	return nil
}
