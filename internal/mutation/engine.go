// Package mutation applies user edits to a domain.Document: field edits,
// creation with alias-collision checks, confirmed deletion, reordering,
// and the pre-publish schema and duplicate-alias gates.
package mutation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
)

// ErrDeclined is returned when a Confirmer refuses an overridable operation.
var ErrDeclined = errors.New("operation declined")

// NewEntry is the input of Create.
type NewEntry struct {
	Category    string   `json:"category"`
	DisplayName string   `json:"display_name"`
	Aliases     []string `json:"aliases"`
	Link        string   `json:"link"`
}

// Engine mutates one document. It is not safe for concurrent use;
// callers serialize access (see session.Session).
type Engine struct {
	doc       *domain.Document
	log       logger.Logger
	validator *schemaValidator
}

// New creates an engine over doc.
func New(doc *domain.Document, log logger.Logger) *Engine {
	if doc == nil {
		doc = domain.NewDocument()
	}
	return &Engine{
		doc:       doc,
		log:       log,
		validator: newSchemaValidator(),
	}
}

// Document returns the document being edited.
func (e *Engine) Document() *domain.Document { return e.doc }

// Reset points the engine at a freshly loaded document.
func (e *Engine) Reset(doc *domain.Document) { e.doc = doc }

// EditField applies raw text typed into one cell. Aliases are split on
// commas, trimmed, lower-cased and emptied tokens dropped; other fields are
// trimmed. Empty values are stored as-is: validation runs at publish time.
func (e *Engine) EditField(pos domain.Position, field domain.Field, raw string) error {
	value := strings.TrimSpace(raw)
	if err := e.doc.SetField(pos, field, value); err != nil {
		return fmt.Errorf("edit %s: %w", field, err)
	}
	e.log.Debug("entry field edited",
		logger.String("category", pos.Category),
		logger.Int("position", pos.Index),
		logger.String("field", field.String()))
	return nil
}

// Create appends a new entry to its category (created when missing).
//
// Blank category, display name or link is rejected with a
// *domain.ValidationError. Every alias already held by another entry is
// put to c.ConfirmCollision; a single refusal aborts with ErrDeclined.
// Nothing is mutated unless the entry is added.
func (e *Engine) Create(in NewEntry, c Confirmer) (domain.Position, error) {
	in.Category = strings.TrimSpace(in.Category)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Link = strings.TrimSpace(in.Link)
	aliases := domain.NormalizeAliases(in.Aliases)

	var missing []domain.Violation
	for _, f := range []struct{ name, value string }{
		{"category", in.Category},
		{"display_name", in.DisplayName},
		{"link", in.Link},
	} {
		if f.value == "" {
			missing = append(missing, domain.Violation{
				Category:    in.Category,
				Index:       -1,
				DisplayName: in.DisplayName,
				Field:       f.name,
				Reason:      "is required",
			})
		}
	}
	if len(missing) > 0 {
		return domain.Position{}, &domain.ValidationError{Violations: missing}
	}

	collisions := e.Collisions(aliases)
	for _, col := range collisions {
		if c == nil || !c.ConfirmCollision(col) {
			e.log.Info("entry creation declined on alias collision",
				logger.String("alias", col.Alias),
				logger.String("holder_category", col.Category),
				logger.String("holder", col.DisplayName))
			return domain.Position{}, fmt.Errorf("%w: %s", ErrDeclined, col)
		}
	}

	entries, _ := e.doc.Category(in.Category)
	pos := domain.Position{Category: in.Category, Index: len(entries)}
	entry := domain.Entry{DisplayName: in.DisplayName, Aliases: aliases, Link: in.Link}
	if err := e.doc.InsertEntry(pos.Category, pos.Index, entry); err != nil {
		return domain.Position{}, fmt.Errorf("create entry: %w", err)
	}

	e.log.Info("entry created",
		logger.String("category", pos.Category),
		logger.String("display_name", entry.DisplayName),
		logger.Strings("aliases", aliases),
		logger.Int("overridden_collisions", len(collisions)))
	return pos, nil
}

// Delete removes the entry at pos once c confirms it, then prunes the
// category if it became empty.
func (e *Engine) Delete(pos domain.Position, c Confirmer) (domain.Entry, error) {
	target, err := e.doc.Entry(pos)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("delete entry: %w", err)
	}
	if c == nil || !c.ConfirmDelete(pos, target) {
		return domain.Entry{}, fmt.Errorf("%w: delete %q", ErrDeclined, target.DisplayName)
	}

	removed, err := e.doc.RemoveEntry(pos)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("delete entry: %w", err)
	}
	pruned := e.doc.PruneCategory(pos.Category)

	e.log.Info("entry deleted",
		logger.String("category", pos.Category),
		logger.String("display_name", removed.DisplayName),
		logger.Bool("category_pruned", pruned))
	return removed, nil
}

// Move relocates an entry so it ends at index to.Index of to.Category.
// Moving an entry onto itself is a no-op. The source category is pruned
// when it empties and differs from the destination.
func (e *Engine) Move(from, to domain.Position) error {
	if from == to {
		if _, err := e.doc.Entry(from); err != nil {
			return fmt.Errorf("move entry: %w", err)
		}
		return nil
	}
	if err := e.doc.MoveEntry(from, to); err != nil {
		return fmt.Errorf("move entry: %w", err)
	}

	pruned := false
	if from.Category != to.Category {
		pruned = e.doc.PruneCategory(from.Category)
	}

	e.log.Debug("entry moved",
		logger.String("from_category", from.Category),
		logger.Int("from_position", from.Index),
		logger.String("to_category", to.Category),
		logger.Int("to_position", to.Index),
		logger.Bool("source_pruned", pruned))
	return nil
}

// Collisions lists, for each requested alias, every existing entry that
// already holds it.
func (e *Engine) Collisions(aliases []string) []domain.Collision {
	wanted := make(map[string]bool, len(aliases))
	order := make([]string, 0, len(aliases))
	for _, a := range domain.NormalizeAliases(aliases) {
		if !wanted[a] {
			wanted[a] = true
			order = append(order, a)
		}
	}
	if len(order) == 0 {
		return nil
	}

	holders := make(map[string][]domain.Holder, len(order))
	e.doc.Walk(func(pos domain.Position, entry domain.Entry) bool {
		seen := make(map[string]bool, len(entry.Aliases))
		for _, a := range entry.Aliases {
			a = domain.NormalizeAlias(a)
			if wanted[a] && !seen[a] {
				seen[a] = true
				holders[a] = append(holders[a], domain.Holder{
					Category:    pos.Category,
					Index:       pos.Index,
					DisplayName: entry.DisplayName,
				})
			}
		}
		return true
	})

	var out []domain.Collision
	for _, a := range order {
		for _, h := range holders[a] {
			out = append(out, domain.Collision{Alias: a, Holder: h})
		}
	}
	return out
}

// Duplicates reports every alias held by more than one entry, in order of
// first appearance. An alias repeated inside one entry counts once.
func (e *Engine) Duplicates() []domain.Duplicate {
	var order []string
	holders := make(map[string][]domain.Holder)

	e.doc.Walk(func(pos domain.Position, entry domain.Entry) bool {
		seen := make(map[string]bool, len(entry.Aliases))
		for _, a := range entry.Aliases {
			a = domain.NormalizeAlias(a)
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			if _, ok := holders[a]; !ok {
				order = append(order, a)
			}
			holders[a] = append(holders[a], domain.Holder{
				Category:    pos.Category,
				Index:       pos.Index,
				DisplayName: entry.DisplayName,
			})
		}
		return true
	})

	var out []domain.Duplicate
	for _, a := range order {
		if len(holders[a]) > 1 {
			out = append(out, domain.Duplicate{Alias: a, Holders: holders[a]})
		}
	}
	return out
}

// Validate checks every entry against the schema and returns all
// violations at once as a *domain.ValidationError, or nil.
func (e *Engine) Validate() error {
	var violations []domain.Violation
	e.doc.Walk(func(pos domain.Position, entry domain.Entry) bool {
		violations = append(violations, e.validator.entry(pos, entry)...)
		return true
	})
	if len(violations) == 0 {
		return nil
	}
	e.log.Debug("document failed validation", logger.Int("violations", len(violations)))
	return &domain.ValidationError{Violations: violations}
}
