package llvm

import (
	"strings"
)

// Chunks accumulates IR text fragments and assembles them with a
// round-based pairwise join (a balanced tree of concatenations). A naive
// left-fold of string concatenation is O(n^2) on large functions, a
// documented bootstrap problem; the balanced join keeps assembly at
// O(n log n).
type Chunks struct {
	parts []string
}

// Append adds one fragment.
func (c *Chunks) Append(part string) {
	c.parts = append(c.parts, part)
}

// Line appends a fragment plus a trailing newline.
func (c *Chunks) Line(part string) {
	c.parts = append(c.parts, part, "\n")
}

// Len reports the number of fragments held.
func (c *Chunks) Len() int {
	return len(c.parts)
}

// Join merges all fragments pairwise, round by round, until one remains.
func (c *Chunks) Join() string {
	if len(c.parts) == 0 {
		return ""
	}

	parts := c.parts
	for len(parts) > 1 {
		merged := make([]string, 0, (len(parts)+1)/2)
		for i := 0; i < len(parts); i += 2 {
			if i+1 < len(parts) {
				var sb strings.Builder
				sb.Grow(len(parts[i]) + len(parts[i+1]))
				sb.WriteString(parts[i])
				sb.WriteString(parts[i+1])
				merged = append(merged, sb.String())
			} else {
				merged = append(merged, parts[i])
			}
		}
		parts = merged
	}
	return parts[0]
}
