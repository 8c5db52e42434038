// Package session owns one editing session: the loaded document, its
// revision marker, the dirty tracker and the publish gate.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/linkdesk/internal/dirty"
	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/mutation"
	"github.com/MrSnakeDoc/linkdesk/internal/publish"
)

const DefaultCommitMessage = "Update commands.yaml via Editor"

var (
	// ErrNoChanges is returned by Publish when nothing was edited.
	ErrNoChanges = errors.New("no changes to publish")
	// ErrPublishInFlight is returned while another publish runs.
	ErrPublishInFlight = errors.New("a publish is already in progress")
	// ErrLoadInFlight is returned while the document is being reloaded.
	ErrLoadInFlight = errors.New("a reload is already in progress")
	// ErrNoWriteAccess is returned by Open for read-only credentials.
	ErrNoWriteAccess = errors.New("no write access to the repository")
	// ErrNotLoaded is returned before the first successful Load.
	ErrNotLoaded = errors.New("document not loaded")
)

// Codec converts between document text and the document model.
type Codec interface {
	Parse(text string) (*domain.Document, error)
	Serialize(doc *domain.Document) (string, error)
}

// Authorizer answers who the credential belongs to and whether it may write.
type Authorizer interface {
	CurrentUser(ctx context.Context) (string, error)
	HasWriteAccess(ctx context.Context, login string) (bool, error)
}

// SyncHook observes the default-branch document after every load and
// every publish. It receives a private copy.
type SyncHook func(ctx context.Context, revision string, doc *domain.Document)

type Options struct {
	CommitMessage string
}

// State is a point-in-time view of the session.
type State struct {
	Document   *domain.Document
	Revision   string
	Dirty      bool
	Publishing bool
	User       string
}

// Report is the pre-publish check result.
type Report struct {
	Violations []domain.Violation `json:"violations"`
	Duplicates []domain.Duplicate `json:"duplicates"`
}

// OK reports whether publishing would pass without confirmation.
func (r Report) OK() bool { return len(r.Violations) == 0 && len(r.Duplicates) == 0 }

type Session struct {
	mu         sync.Mutex
	codec      Codec
	coord      *publish.Coordinator
	engine     *mutation.Engine
	tracker    *dirty.Tracker
	revision   string
	isLoaded   bool
	generation uint64
	user       string
	hooks      []SyncHook

	// busy serializes loads and publishes: idle, loading or publishing.
	busy atomic.Int32

	opts Options
	log  logger.Logger
}

const (
	idle int32 = iota
	loading
	publishing
)

func New(codec Codec, coord *publish.Coordinator, opts Options, log logger.Logger) *Session {
	if opts.CommitMessage == "" {
		opts.CommitMessage = DefaultCommitMessage
	}
	return &Session{
		codec:   codec,
		coord:   coord,
		engine:  mutation.New(domain.NewDocument(), log),
		tracker: dirty.New(codec),
		opts:    opts,
		log:     log,
	}
}

// OnSync registers h. Not safe to call concurrently with Load or Publish.
func (s *Session) OnSync(h SyncHook) {
	s.hooks = append(s.hooks, h)
}

// Open checks that the credential may write, then loads the document.
func (s *Session) Open(ctx context.Context, a Authorizer) error {
	user, err := a.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("session: identify user: %w", err)
	}
	ok, err := a.HasWriteAccess(ctx, user)
	if err != nil {
		return fmt.Errorf("session: check access for %s: %w", user, err)
	}
	if !ok {
		s.log.Warn("write access denied", logger.String("user", user))
		return fmt.Errorf("%w: %s", ErrNoWriteAccess, user)
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.log.Info("session opened", logger.String("user", user))

	return s.Load(ctx)
}

// acquire claims the session for op, or reports what holds it.
func (s *Session) acquire(op int32) error {
	if s.busy.CompareAndSwap(idle, op) {
		return nil
	}
	if s.busy.Load() == publishing {
		return ErrPublishInFlight
	}
	return ErrLoadInFlight
}

func (s *Session) release() { s.busy.Store(idle) }

// Load replaces the document with the default branch, discarding edits.
func (s *Session) Load(ctx context.Context) error {
	if err := s.acquire(loading); err != nil {
		return err
	}
	defer s.release()

	snap, doc, err := s.fetch(ctx)
	if err != nil {
		return fmt.Errorf("session: load: %w", err)
	}

	s.mu.Lock()
	err = s.resetLocked(doc, snap.Revision)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("session: load: %w", err)
	}
	s.announce(ctx, snap.Revision, doc)
	return nil
}

// Refresh reloads the default branch when its revision moved and nothing
// is pending locally. It reports whether the document was replaced. A
// refresh requested while a load or publish runs is skipped.
func (s *Session) Refresh(ctx context.Context) (bool, error) {
	if err := s.acquire(loading); err != nil {
		s.log.Debug("refresh skipped", logger.Error(err))
		return false, nil
	}
	defer s.release()

	snap, doc, err := s.fetch(ctx)
	if err != nil {
		return false, fmt.Errorf("session: refresh: %w", err)
	}

	s.mu.Lock()
	if s.isLoaded && snap.Revision == s.revision {
		s.mu.Unlock()
		return false, nil
	}
	if s.isLoaded {
		pending, err := s.tracker.Dirty(s.engine.Document())
		if err != nil {
			s.mu.Unlock()
			return false, err
		}
		if pending {
			s.mu.Unlock()
			s.log.Warn("default branch moved while edits are pending; publish will conflict until reloaded",
				logger.String("revision", snap.Revision))
			return false, nil
		}
	}
	err = s.resetLocked(doc, snap.Revision)
	s.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("session: refresh: %w", err)
	}
	s.announce(ctx, snap.Revision, doc)
	return true, nil
}

func (s *Session) fetch(ctx context.Context) (publish.Snapshot, *domain.Document, error) {
	snap, err := s.coord.Load(ctx)
	if err != nil {
		return publish.Snapshot{}, nil, err
	}
	doc, err := s.codec.Parse(snap.Text)
	if err != nil {
		return publish.Snapshot{}, nil, err
	}
	return snap, doc, nil
}

// resetLocked makes doc both the baseline and the working copy. s.mu held.
func (s *Session) resetLocked(doc *domain.Document, revision string) error {
	if err := s.tracker.Reset(doc); err != nil {
		return err
	}
	s.engine.Reset(doc.Clone())
	s.revision = revision
	s.isLoaded = true
	s.generation++
	return nil
}

func (s *Session) announce(ctx context.Context, revision string, doc *domain.Document) {
	s.log.Info("document loaded",
		logger.String("revision", revision),
		logger.Int("categories", len(doc.Categories())),
		logger.Int("entries", doc.Len()))
	s.notify(ctx, revision, doc)
}

// Snapshot returns a copy of the document with its revision and dirty flag.
func (s *Session) Snapshot() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isLoaded {
		return State{}, ErrNotLoaded
	}
	d, err := s.tracker.Dirty(s.engine.Document())
	if err != nil {
		return State{}, err
	}
	return State{
		Document:   s.engine.Document().Clone(),
		Revision:   s.revision,
		Dirty:      d,
		Publishing: s.busy.Load() == publishing,
		User:       s.user,
	}, nil
}

// Dirty reports whether the document differs from the loaded revision.
func (s *Session) Dirty() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Dirty(s.engine.Document())
}

// Diff previews what a publish would change.
func (s *Session) Diff() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isLoaded {
		return "", ErrNotLoaded
	}
	return s.tracker.Diff(s.engine.Document())
}

// Filter searches the current document.
func (s *Session) Filter(query string) []domain.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Document().Filter(query)
}

func (s *Session) EditField(pos domain.Position, field domain.Field, raw string) error {
	return s.edit(func(e *mutation.Engine) error { return e.EditField(pos, field, raw) })
}

func (s *Session) Create(in mutation.NewEntry, c mutation.Confirmer) (domain.Position, error) {
	var pos domain.Position
	err := s.edit(func(e *mutation.Engine) error {
		var err error
		pos, err = e.Create(in, c)
		return err
	})
	return pos, err
}

func (s *Session) Delete(pos domain.Position, c mutation.Confirmer) (domain.Entry, error) {
	var removed domain.Entry
	err := s.edit(func(e *mutation.Engine) error {
		var err error
		removed, err = e.Delete(pos, c)
		return err
	})
	return removed, err
}

func (s *Session) Move(from, to domain.Position) error {
	return s.edit(func(e *mutation.Engine) error { return e.Move(from, to) })
}

// edit runs fn under the lock and counts successful mutations, so a
// publish can tell whether edits landed while it was in flight.
func (s *Session) edit(fn func(*mutation.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isLoaded {
		return ErrNotLoaded
	}
	if err := fn(s.engine); err != nil {
		return err
	}
	s.generation++
	return nil
}

// Collisions reports which of aliases existing entries already hold.
func (s *Session) Collisions(aliases []string) []domain.Collision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Collisions(aliases)
}

// Check runs the publish gates without publishing.
func (s *Session) Check() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r Report
	var verr *domain.ValidationError
	if errors.As(s.engine.Validate(), &verr) {
		r.Violations = verr.Violations
	}
	r.Duplicates = s.engine.Duplicates()
	return r
}

// Publish validates the document and hands it to the coordinator.
//
// Refused without any network call when a load or publish runs or nothing
// changed. Validation violations fail the publish; shared aliases need
// c.ConfirmDuplicates. On failure the session is untouched. On success the
// document is replaced by the re-read default branch, unless edits were
// made meanwhile, in which case they are kept and only the baseline and
// revision move.
func (s *Session) Publish(ctx context.Context, message string, c mutation.Confirmer) (publish.Result, error) {
	if err := s.acquire(publishing); err != nil {
		return publish.Result{}, err
	}
	defer s.release()

	text, revision, gen, err := s.prepare(c)
	if err != nil {
		return publish.Result{}, err
	}
	if message == "" {
		message = s.opts.CommitMessage
	}

	res, err := s.coord.Publish(ctx, text, revision, message)
	if err != nil {
		return publish.Result{}, err
	}
	if !res.Resynced {
		return res, nil
	}

	synced, err := s.codec.Parse(res.Snapshot.Text)
	if err != nil {
		s.log.Error("published document could not be re-read", logger.Error(err))
		return res, nil
	}

	s.mu.Lock()
	rebased := s.generation != gen
	if err := s.tracker.Reset(synced); err != nil {
		s.mu.Unlock()
		s.log.Error("baseline reset failed", logger.Error(err))
		return res, nil
	}
	s.revision = res.Snapshot.Revision
	if !rebased {
		s.engine.Reset(synced.Clone())
	}
	s.mu.Unlock()

	if rebased {
		s.log.Info("edits made during publish kept on top of the new revision",
			logger.String("revision", res.Snapshot.Revision))
	}
	s.notify(ctx, res.Snapshot.Revision, synced)
	return res, nil
}

func (s *Session) prepare(c mutation.Confirmer) (text, revision string, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isLoaded {
		return "", "", 0, ErrNotLoaded
	}
	doc := s.engine.Document()
	changed, err := s.tracker.Dirty(doc)
	if err != nil {
		return "", "", 0, err
	}
	if !changed {
		return "", "", 0, ErrNoChanges
	}
	if err := s.engine.Validate(); err != nil {
		return "", "", 0, err
	}
	if dups := s.engine.Duplicates(); len(dups) > 0 {
		if c == nil || !c.ConfirmDuplicates(dups) {
			return "", "", 0, fmt.Errorf("%w: %d aliases are shared by several entries", mutation.ErrDeclined, len(dups))
		}
		s.log.Info("publishing with duplicate aliases", logger.Int("duplicates", len(dups)))
	}

	text, err = s.codec.Serialize(doc)
	if err != nil {
		return "", "", 0, err
	}
	return text, s.revision, s.generation, nil
}

func (s *Session) notify(ctx context.Context, revision string, doc *domain.Document) {
	for _, h := range s.hooks {
		h(ctx, revision, doc.Clone())
	}
}
