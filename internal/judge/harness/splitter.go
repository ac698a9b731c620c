package harness

import "strings"

// SplitInput splits a raw stdin payload into k argument fragments.
//
// Newline-separated payloads win when they carry at least k non-empty lines.
// Otherwise the payload is split on commas outside [] and {} nesting. When
// neither yields k fragments the whole trimmed payload becomes one argument.
func SplitInput(payload string, k int) []string {
	if k < 0 {
		k = 0
	}
	lines := nonEmptyLines(payload)
	if len(lines) >= k {
		return lines[:k]
	}
	parts := splitTopLevel(payload, ',', "[{", "]}")
	if len(parts) >= k {
		return parts[:k]
	}
	return []string{strings.TrimSpace(payload)}
}

func nonEmptyLines(payload string) []string {
	raw := strings.Split(payload, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitTopLevel splits s on sep wherever the bracket depth is zero.
// Fragments are trimmed and a trailing empty fragment is dropped.
// Depth is not clamped, so a stray closer keeps later separators nested.
func splitTopLevel(s string, sep rune, opens, closes string) []string {
	var (
		parts []string
		cur   strings.Builder
		depth int
	)
	for _, ch := range s {
		switch {
		case strings.ContainsRune(opens, ch):
			depth++
		case strings.ContainsRune(closes, ch):
			depth--
		}
		if ch == sep && depth == 0 {
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(ch)
	}
	if last := strings.TrimSpace(cur.String()); last != "" {
		parts = append(parts, last)
	}
	return parts
}
