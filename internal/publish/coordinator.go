package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/linkdesk/internal/logger"
)

const (
	DefaultBranchPrefix = "editor"
	DefaultReviewTitle  = "Update bot mappings"
)

// Options configures a Coordinator.
type Options struct {
	Strategy      Strategy
	DefaultBranch string
	BranchPrefix  string
	ReviewTitle   string
	ReviewBody    string

	// Now and NewID name review branches; defaults are time.Now and uuid.
	Now   func() time.Time
	NewID func() string
}

// Result describes a successful publish. Snapshot is the default branch
// as re-read after the publish, never a guessed marker. Resynced is false
// when that re-read failed; the write itself still happened.
type Result struct {
	Strategy Strategy       `json:"-"`
	Branch   string         `json:"branch"`
	Review   *ReviewRequest `json:"review,omitempty"`
	Snapshot Snapshot       `json:"snapshot"`
	Resynced bool           `json:"resynced"`
}

// Coordinator runs publications against a Transport. It holds no lock and
// never retries: a rejected precondition is reported, not resolved.
type Coordinator struct {
	transport Transport
	opts      Options
	log       logger.Logger
}

func NewCoordinator(t Transport, opts Options, log logger.Logger) *Coordinator {
	if opts.BranchPrefix == "" {
		opts.BranchPrefix = DefaultBranchPrefix
	}
	if opts.ReviewTitle == "" {
		opts.ReviewTitle = DefaultReviewTitle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString()[:8] }
	}
	return &Coordinator{
		transport: t,
		opts:      opts,
		log:       log.With(logger.String("strategy", opts.Strategy.String())),
	}
}

// Strategy returns the configured strategy.
func (c *Coordinator) Strategy() Strategy { return c.opts.Strategy }

// Load reads the default branch.
func (c *Coordinator) Load(ctx context.Context) (Snapshot, error) {
	snap, err := c.transport.LoadDocumentText(ctx, c.opts.DefaultBranch)
	if err != nil {
		c.log.Warn("load failed", logger.String("branch", c.opts.DefaultBranch), logger.Error(err))
		return Snapshot{}, err
	}
	c.log.Debug("document loaded",
		logger.String("branch", c.opts.DefaultBranch),
		logger.String("revision", snap.Revision),
		logger.Int("bytes", len(snap.Text)))
	return snap, nil
}

// Publish sends text, read at revision, using the configured strategy.
// Any failure leaves the caller's state untouched; the error is returned
// as produced by the transport.
func (c *Coordinator) Publish(ctx context.Context, text, revision, message string) (Result, error) {
	start := time.Now()
	var (
		res Result
		err error
	)
	switch c.opts.Strategy {
	case DirectCommit:
		res, err = c.direct(ctx, text, revision, message)
	case BranchAndReview:
		res, err = c.review(ctx, text, revision, message)
	default:
		return Result{}, fmt.Errorf("publish: unsupported %s", c.opts.Strategy)
	}
	if err != nil {
		c.log.Warn("publish failed",
			logger.String("revision", revision),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return Result{}, err
	}

	res.Strategy = c.opts.Strategy
	c.log.Info("publish succeeded",
		logger.String("branch", res.Branch),
		logger.String("previous_revision", revision),
		logger.String("revision", res.Snapshot.Revision),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (c *Coordinator) direct(ctx context.Context, text, revision, message string) (Result, error) {
	if err := c.write(ctx, WriteRequest{
		Text:     text,
		Revision: revision,
		Message:  message,
		Branch:   c.opts.DefaultBranch,
	}); err != nil {
		return Result{}, err
	}

	return c.refetch(ctx, Result{Branch: c.opts.DefaultBranch}), nil
}

func (c *Coordinator) review(ctx context.Context, text, revision, message string) (Result, error) {
	tip, err := c.transport.ResolveDefaultBranchTip(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("publish: resolve default branch: %w", err)
	}

	name := c.branchName()
	ref, err := c.transport.CreateBranch(ctx, name, tip)
	if err != nil {
		return Result{}, fmt.Errorf("publish: create branch %s: %w", name, err)
	}
	c.log.Debug("review branch created", logger.String("branch", name), logger.String("ref", ref), logger.String("from", tip))

	// The precondition is the revision the edits were based on, so a
	// document changed upstream conflicts here too.
	if err := c.write(ctx, WriteRequest{
		Text:     text,
		Revision: revision,
		Message:  message,
		Branch:   name,
	}); err != nil {
		return Result{}, err
	}

	body := c.opts.ReviewBody
	if body == "" {
		body = message
	}
	pr, err := c.transport.ProposeMerge(ctx, name, c.opts.ReviewTitle, body)
	if err != nil {
		return Result{}, fmt.Errorf("publish: open review for %s: %w", name, err)
	}
	if pr.Branch == "" {
		pr.Branch = name
	}
	c.log.Info("review requested", logger.Int("number", pr.Number), logger.String("url", pr.URL))

	return c.refetch(ctx, Result{Branch: name, Review: &pr}), nil
}

// write is the precondition-checked write both strategies go through.
func (c *Coordinator) write(ctx context.Context, req WriteRequest) error {
	c.log.Debug("writing document",
		logger.String("branch", req.Branch),
		logger.String("revision", req.Revision),
		logger.Int("bytes", len(req.Text)))

	if err := c.transport.WriteDocumentText(ctx, req); err != nil {
		return fmt.Errorf("publish: write %s: %w", branchLabel(req.Branch), err)
	}
	return nil
}

// refetch re-reads the default branch after a successful write.
func (c *Coordinator) refetch(ctx context.Context, res Result) Result {
	snap, err := c.transport.LoadDocumentText(ctx, c.opts.DefaultBranch)
	if err != nil {
		c.log.Warn("re-read after publish failed, reload before publishing again",
			logger.String("branch", branchLabel(c.opts.DefaultBranch)),
			logger.Error(err))
		return res
	}
	res.Snapshot = snap
	res.Resynced = true
	return res
}

func (c *Coordinator) branchName() string {
	prefix := strings.TrimSuffix(c.opts.BranchPrefix, "-")
	return fmt.Sprintf("%s-%d-%s", prefix, c.opts.Now().UnixMilli(), c.opts.NewID())
}

func branchLabel(b string) string {
	if b == "" {
		return "default branch"
	}
	return b
}
