package resolver

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/MrSnakeDoc/linkdesk/internal/index"
)

const (
	// DefaultCutoff is the minimum similarity for a suggestion.
	DefaultCutoff = 0.6
	// DefaultLimit is the maximum number of suggestions.
	DefaultLimit = 3

	// ScoreUsageWeight scales the usage bonus used to break similarity ties.
	ScoreUsageWeight = 0.1
)

// Candidate is an alias scored against a query.
type Candidate struct {
	Link       index.Link
	Similarity float64 // 0..1
	UsageScore float64
}

// scorer computes difflib-style ratios: 2*M/T, where M is the number of
// characters in common runs and T the combined length.
type scorer struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

func newScorer() *scorer {
	return &scorer{dmp: diffmatchpatch.New()}
}

// Similarity returns a ratio in [0, 1]; 1 means equal strings.
func (s *scorer) Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la+lb == 0 {
		return 1
	}
	if a == b {
		return 1
	}

	common := 0
	for _, d := range s.dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			common += utf8.RuneCountInString(d.Text)
		}
	}
	return 2 * float64(common) / float64(la+lb)
}

// RankCandidates keeps links whose alias reaches cutoff and orders them by
// similarity, then usage, then alias.
func (s *scorer) RankCandidates(query string, links []index.Link, cutoff float64) []Candidate {
	candidates := make([]Candidate, 0, len(links))
	for _, l := range links {
		sim := s.Similarity(query, l.Alias)
		if sim < cutoff {
			continue
		}

		// Logarithmic so heavy use cannot dominate
		usage := 0.0
		if l.Counter > 0 {
			usage = math.Log10(float64(l.Counter)+1) * ScoreUsageWeight * 100
		}
		candidates = append(candidates, Candidate{Link: l, Similarity: sim, UsageScore: usage})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.UsageScore != b.UsageScore {
			return a.UsageScore > b.UsageScore
		}
		return a.Link.Alias < b.Link.Alias
	})
	return candidates
}
