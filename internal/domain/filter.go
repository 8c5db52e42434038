package domain

import "strings"

// Match is an entry returned by Filter together with its current position.
type Match struct {
	Position
	Entry Entry `json:"entry"`
}

// Filter returns the entries whose "category display_name aliases..." text
// contains query (case-insensitive). An empty query matches everything.
//
// Positions are only valid until the next structural change.
func (d *Document) Filter(query string) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []Match
	d.Walk(func(pos Position, e Entry) bool {
		if query != "" {
			haystack := strings.ToLower(pos.Category + " " + e.DisplayName + " " + strings.Join(e.Aliases, " "))
			if !strings.Contains(haystack, query) {
				return true
			}
		}
		out = append(out, Match{Position: pos, Entry: e.Clone()})
		return true
	})
	return out
}
