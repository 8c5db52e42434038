package mutation

import "github.com/MrSnakeDoc/linkdesk/internal/domain"

// Confirmer is the caller-supplied gate for overridable operations.
// Each method returns true to proceed.
type Confirmer interface {
	// ConfirmCollision is asked once per alias a new entry shares with an existing one.
	ConfirmCollision(c domain.Collision) bool
	// ConfirmDelete is asked before an entry is removed.
	ConfirmDelete(pos domain.Position, e domain.Entry) bool
	// ConfirmDuplicates is asked before publishing a document with shared aliases.
	ConfirmDuplicates(d []domain.Duplicate) bool
}

type constant bool

func (c constant) ConfirmCollision(domain.Collision) bool           { return bool(c) }
func (c constant) ConfirmDelete(domain.Position, domain.Entry) bool { return bool(c) }
func (c constant) ConfirmDuplicates([]domain.Duplicate) bool        { return bool(c) }

var (
	// Always grants every confirmation.
	Always Confirmer = constant(true)
	// Never declines every confirmation.
	Never Confirmer = constant(false)
)

// Funcs adapts plain functions to a Confirmer. A nil function declines.
type Funcs struct {
	Collision  func(domain.Collision) bool
	Delete     func(domain.Position, domain.Entry) bool
	Duplicates func([]domain.Duplicate) bool
}

func (f Funcs) ConfirmCollision(c domain.Collision) bool {
	return f.Collision != nil && f.Collision(c)
}

func (f Funcs) ConfirmDelete(pos domain.Position, e domain.Entry) bool {
	return f.Delete != nil && f.Delete(pos, e)
}

func (f Funcs) ConfirmDuplicates(d []domain.Duplicate) bool {
	return f.Duplicates != nil && f.Duplicates(d)
}

// AllowAliases confirms collisions only for the listed aliases, confirms
// deletes when Delete is set and duplicates when Duplicates is set.
// It backs request-scoped confirmations sent over the API.
type AllowAliases struct {
	Aliases    []string
	Delete     bool
	Duplicates bool
}

func (a AllowAliases) ConfirmCollision(c domain.Collision) bool {
	want := domain.NormalizeAlias(c.Alias)
	for _, alias := range a.Aliases {
		if domain.NormalizeAlias(alias) == want {
			return true
		}
	}
	return false
}

func (a AllowAliases) ConfirmDelete(domain.Position, domain.Entry) bool { return a.Delete }
func (a AllowAliases) ConfirmDuplicates([]domain.Duplicate) bool        { return a.Duplicates }
