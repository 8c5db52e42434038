package publish

import (
	"fmt"
	"strings"
)

// Strategy selects how a publish reaches the default branch.
type Strategy int

const (
	// DirectCommit writes onto the default branch.
	DirectCommit Strategy = iota
	// BranchAndReview writes onto a fresh branch and opens a pull request.
	BranchAndReview
)

func (s Strategy) String() string {
	switch s {
	case DirectCommit:
		return "direct"
	case BranchAndReview:
		return "review"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy accepts "direct" or "review" (also "branch", "pr").
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "commit", "":
		return DirectCommit, nil
	case "review", "branch", "pr":
		return BranchAndReview, nil
	default:
		return 0, fmt.Errorf("unknown publish strategy %q (want direct or review)", s)
	}
}
