package domain

import "strings"

// NormalizeAlias returns the canonical form of an alias (trimmed, lower-cased).
func NormalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

// ParseAliases splits a comma-separated alias list.
// Examples:
//   - "Phone 2, p2 ,," -> ["phone 2", "p2"]
//   - "  " -> []
func ParseAliases(raw string) []string {
	return NormalizeAliases(strings.Split(raw, ","))
}

// NormalizeAliases normalizes every alias and drops the empty ones.
// Order is preserved. The result is never nil.
func NormalizeAliases(aliases []string) []string {
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if n := NormalizeAlias(a); n != "" {
			out = append(out, n)
		}
	}
	return out
}
