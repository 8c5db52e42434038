// Package dirty tracks whether the edited document differs from the
// revision it was loaded from, by comparing serialized text.
package dirty

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
)

// contextLines is the number of unchanged lines kept around a change in Diff.
const contextLines = 3

// Serializer renders a document to its canonical text.
type Serializer interface {
	Serialize(doc *domain.Document) (string, error)
}

// Tracker holds the canonical text of the last-known-good revision.
// Structural equality is not used: two documents are the same when they
// serialize to the same text.
type Tracker struct {
	mu         sync.RWMutex
	serializer Serializer
	baseline   string
}

func New(s Serializer) *Tracker {
	return &Tracker{serializer: s}
}

// Reset records doc as the new baseline.
func (t *Tracker) Reset(doc *domain.Document) error {
	text, err := t.serializer.Serialize(doc)
	if err != nil {
		return fmt.Errorf("dirty: baseline: %w", err)
	}
	t.mu.Lock()
	t.baseline = text
	t.mu.Unlock()
	return nil
}

// Baseline returns the canonical text recorded by the last Reset.
func (t *Tracker) Baseline() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.baseline
}

// Dirty reports whether doc serializes differently from the baseline,
// ignoring trailing whitespace.
func (t *Tracker) Dirty(doc *domain.Document) (bool, error) {
	text, err := t.serializer.Serialize(doc)
	if err != nil {
		return false, fmt.Errorf("dirty: serialize: %w", err)
	}
	return trim(text) != trim(t.Baseline()), nil
}

// Diff returns a line diff from the baseline to doc in "+ "/"- " form with
// collapsed context. It is empty when the document is clean.
func (t *Tracker) Diff(doc *domain.Document) (string, error) {
	text, err := t.serializer.Serialize(doc)
	if err != nil {
		return "", fmt.Errorf("dirty: serialize: %w", err)
	}
	base := t.Baseline()
	if trim(text) == trim(base) {
		return "", nil
	}
	return Lines(base, text), nil
}

// Lines diffs two texts line by line.
func Lines(oldText, newText string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	return format(diffs)
}

func format(diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for i, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" {
			continue
		}
		lines := strings.Split(text, "\n")
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, l := range lines {
				b.WriteString("- " + l + "\n")
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range lines {
				b.WriteString("+ " + l + "\n")
			}
		case diffmatchpatch.DiffEqual:
			writeContext(&b, lines, i == 0, i == len(diffs)-1)
		}
	}
	return b.String()
}

// writeContext keeps contextLines next to each neighbouring change.
func writeContext(b *strings.Builder, lines []string, first, last bool) {
	head, tail := contextLines, contextLines
	if first {
		head = 0
	}
	if last {
		tail = 0
	}
	if len(lines) <= head+tail {
		for _, l := range lines {
			b.WriteString("  " + l + "\n")
		}
		return
	}
	for _, l := range lines[:head] {
		b.WriteString("  " + l + "\n")
	}
	b.WriteString("  ...\n")
	for _, l := range lines[len(lines)-tail:] {
		b.WriteString("  " + l + "\n")
	}
}

func trim(s string) string {
	return strings.TrimRight(s, " \t\r\n")
}
