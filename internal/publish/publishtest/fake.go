// Package publishtest provides an in-memory publish.Transport.
package publishtest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/linkdesk/internal/publish"
)

// Transport keeps one text per branch and versions it with a content hash,
// the way a git blob sha behaves. Fail* fields inject errors per step.
type Transport struct {
	mu       sync.Mutex
	Default  string
	branches map[string]string
	nextPR   int

	FailLoad    error
	FailWrite   error
	FailTip     error
	FailBranch  error
	FailPropose error

	// OnWrite runs before a write is applied; it may change the remote.
	OnWrite func(req publish.WriteRequest)
	// OnLoad runs after a branch was read and before the snapshot is
	// returned.
	OnLoad func(branch string)

	Calls    []string
	Writes   []publish.WriteRequest
	Branches []string
	Reviews  []publish.ReviewRequest
}

// New creates a transport whose default branch holds text.
func New(text string) *Transport {
	return &Transport{
		Default:  "main",
		branches: map[string]string{"main": text},
		nextPR:   1,
	}
}

// Revision returns the marker for text.
func Revision(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Text returns the current text of branch ("" = default).
func (t *Transport) Text(branch string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.branches[t.branch(branch)]
}

// SetText changes a branch behind the editor's back.
func (t *Transport) SetText(branch, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.branches[t.branch(branch)] = text
}

// CallCount reports how many transport calls were made.
func (t *Transport) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

func (t *Transport) LoadDocumentText(_ context.Context, branch string) (publish.Snapshot, error) {
	snap, err := t.load(branch)
	if err == nil && t.OnLoad != nil {
		t.OnLoad(t.branch(branch))
	}
	return snap, err
}

func (t *Transport) load(branch string) (publish.Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, "load:"+t.branch(branch))
	if t.FailLoad != nil {
		return publish.Snapshot{}, t.FailLoad
	}
	text, ok := t.branches[t.branch(branch)]
	if !ok {
		return publish.Snapshot{}, &publish.TransportError{Op: "load", Err: fmt.Errorf("no branch %s", branch)}
	}
	return publish.Snapshot{Text: text, Revision: Revision(text)}, nil
}

func (t *Transport) WriteDocumentText(_ context.Context, req publish.WriteRequest) error {
	if t.OnWrite != nil {
		t.OnWrite(req)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.branch(req.Branch)
	t.Calls = append(t.Calls, "write:"+b)
	if t.FailWrite != nil {
		return t.FailWrite
	}
	current, ok := t.branches[b]
	if !ok {
		return &publish.TransportError{Op: "write", Err: fmt.Errorf("no branch %s", b)}
	}
	if Revision(current) != req.Revision {
		return &publish.ConflictError{Revision: req.Revision, Reason: "does not match " + Revision(current)}
	}
	t.branches[b] = req.Text
	t.Writes = append(t.Writes, req)
	return nil
}

func (t *Transport) ResolveDefaultBranchTip(context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, "tip")
	if t.FailTip != nil {
		return "", t.FailTip
	}
	return "commit-" + Revision(t.branches[t.Default])[:8], nil
}

func (t *Transport) CreateBranch(_ context.Context, name, from string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, "branch:"+name)
	if t.FailBranch != nil {
		return "", t.FailBranch
	}
	if _, exists := t.branches[name]; exists {
		return "", &publish.TransportError{Op: "create branch", Err: fmt.Errorf("reference already exists")}
	}
	t.branches[name] = t.branches[t.Default]
	t.Branches = append(t.Branches, name)
	return "refs/heads/" + name, nil
}

func (t *Transport) ProposeMerge(_ context.Context, branch, title, body string) (publish.ReviewRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, "propose:"+branch)
	if t.FailPropose != nil {
		return publish.ReviewRequest{}, t.FailPropose
	}
	pr := publish.ReviewRequest{
		Number: t.nextPR,
		URL:    fmt.Sprintf("https://example.test/pull/%d", t.nextPR),
		Branch: branch,
	}
	t.nextPR++
	t.Reviews = append(t.Reviews, pr)
	return pr, nil
}

func (t *Transport) branch(b string) string {
	if b == "" {
		return t.Default
	}
	return b
}
