// Package publish commits an edited document back to the repository,
// either directly onto the default branch or through a review branch and
// pull request. Both paths share one precondition-checked write.
package publish

import (
	"context"
	"errors"
	"fmt"
)

// Snapshot is the document text at a revision.
type Snapshot struct {
	Text     string `json:"-"`
	Revision string `json:"revision"`
}

// WriteRequest replaces the document on Branch if its current revision is
// still Revision. An empty Branch means the default branch.
type WriteRequest struct {
	Text     string
	Revision string
	Message  string
	Branch   string
}

// ReviewRequest identifies an opened pull request.
type ReviewRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Branch string `json:"branch"`
}

// Transport is the remote store holding the document.
type Transport interface {
	// LoadDocumentText reads the document and its revision marker from branch.
	LoadDocumentText(ctx context.Context, branch string) (Snapshot, error)
	// WriteDocumentText writes when the precondition holds and returns a
	// *ConflictError otherwise.
	WriteDocumentText(ctx context.Context, req WriteRequest) error
	// ResolveDefaultBranchTip returns the commit the default branch points at.
	ResolveDefaultBranchTip(ctx context.Context) (string, error)
	// CreateBranch creates name at fromRevision and returns the new ref.
	CreateBranch(ctx context.Context, name, fromRevision string) (string, error)
	// ProposeMerge opens a review request from branch into the default branch.
	ProposeMerge(ctx context.Context, branch, title, body string) (ReviewRequest, error)
}

var (
	// ErrConflict matches every *ConflictError.
	ErrConflict = errors.New("concurrency conflict")
	// ErrPermissionDenied is returned when the credential may not write.
	ErrPermissionDenied = errors.New("permission denied")
)

// ConflictError reports a write rejected because the document changed
// since Revision was read. Reason is the remote's message, unaltered.
type ConflictError struct {
	Revision string
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("concurrency conflict: document changed since revision %s", short(e.Revision))
	}
	return fmt.Sprintf("concurrency conflict at revision %s: %s", short(e.Revision), e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// TransportError wraps any other remote failure with the step that hit it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func short(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	if rev == "" {
		return "<none>"
	}
	return rev
}
