// Package github implements publish.Transport and the write-access check
// on top of the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v62/github"

	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/publish"
)

// ErrNotFound is returned when the document does not exist on the branch.
var ErrNotFound = errors.New("document not found")

type Config struct {
	Token         string
	Repository    string // owner/name
	Path          string
	DefaultBranch string
	BaseURL       string // API root, empty for api.github.com
	Timeout       time.Duration
}

// Client talks to one file in one repository.
type Client struct {
	api    *gh.Client
	owner  string
	repo   string
	path   string
	branch string
	log    logger.Logger
}

func New(cfg Config, log logger.Logger) (*Client, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(cfg.Repository), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("github: repository must be owner/name, got %q", cfg.Repository)
	}
	if cfg.Path == "" {
		return nil, errors.New("github: file path is required")
	}
	if cfg.DefaultBranch == "" {
		return nil, errors.New("github: default branch is required")
	}

	api := gh.NewClient(&http.Client{Timeout: cfg.Timeout})
	if cfg.Token != "" {
		api = api.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github: api url: %w", err)
		}
		api.BaseURL = u
	}

	return &Client{
		api:    api,
		owner:  owner,
		repo:   repo,
		path:   strings.TrimPrefix(cfg.Path, "/"),
		branch: cfg.DefaultBranch,
		log:    log.With(logger.String("repository", owner+"/"+repo)),
	}, nil
}

func (c *Client) LoadDocumentText(ctx context.Context, branch string) (publish.Snapshot, error) {
	ref := c.ref(branch)
	file, _, _, err := c.api.Repositories.GetContents(ctx, c.owner, c.repo, c.path, &gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if status(err) == http.StatusNotFound {
			return publish.Snapshot{}, &publish.TransportError{
				Op:  "load " + c.path,
				Err: fmt.Errorf("%w: %s on %s", ErrNotFound, c.path, ref),
			}
		}
		return publish.Snapshot{}, classify("load "+c.path, err)
	}
	if file == nil {
		return publish.Snapshot{}, &publish.TransportError{Op: "load " + c.path, Err: errors.New("path is a directory")}
	}

	text, err := file.GetContent()
	if err != nil {
		return publish.Snapshot{}, &publish.TransportError{Op: "decode " + c.path, Err: err}
	}
	c.log.Debug("contents fetched", logger.String("ref", ref), logger.String("sha", file.GetSHA()))
	return publish.Snapshot{Text: text, Revision: file.GetSHA()}, nil
}

// WriteDocumentText uses the contents API, whose sha parameter is the
// precondition: the remote rejects the write when the file moved on.
func (c *Client) WriteDocumentText(ctx context.Context, req publish.WriteRequest) error {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(req.Message),
		Content: []byte(req.Text),
		Branch:  gh.String(c.ref(req.Branch)),
	}
	if req.Revision != "" {
		opts.SHA = gh.String(req.Revision)
	}

	res, _, err := c.api.Repositories.UpdateFile(ctx, c.owner, c.repo, c.path, opts)
	if err != nil {
		var rerr *gh.ErrorResponse
		if errors.As(err, &rerr) && isStaleSHA(rerr) {
			return &publish.ConflictError{Revision: req.Revision, Reason: rerr.Message}
		}
		return classify("write "+c.path, err)
	}
	c.log.Debug("contents written",
		logger.String("branch", c.ref(req.Branch)),
		logger.String("commit", res.Commit.GetSHA()))
	return nil
}

func (c *Client) ResolveDefaultBranchTip(ctx context.Context) (string, error) {
	ref, _, err := c.api.Git.GetRef(ctx, c.owner, c.repo, "heads/"+c.branch)
	if err != nil {
		return "", classify("resolve "+c.branch, err)
	}
	return ref.GetObject().GetSHA(), nil
}

func (c *Client) CreateBranch(ctx context.Context, name, fromRevision string) (string, error) {
	ref, _, err := c.api.Git.CreateRef(ctx, c.owner, c.repo, &gh.Reference{
		Ref:    gh.String("refs/heads/" + name),
		Object: &gh.GitObject{SHA: gh.String(fromRevision)},
	})
	if err != nil {
		return "", classify("create branch "+name, err)
	}
	return ref.GetRef(), nil
}

func (c *Client) ProposeMerge(ctx context.Context, branch, title, body string) (publish.ReviewRequest, error) {
	pr, _, err := c.api.PullRequests.Create(ctx, c.owner, c.repo, &gh.NewPullRequest{
		Title: gh.String(title),
		Head:  gh.String(branch),
		Base:  gh.String(c.branch),
		Body:  gh.String(body),
	})
	if err != nil {
		return publish.ReviewRequest{}, classify("open pull request", err)
	}
	return publish.ReviewRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), Branch: branch}, nil
}

// CurrentUser returns the login the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	u, _, err := c.api.Users.Get(ctx, "")
	if err != nil {
		return "", classify("current user", err)
	}
	return u.GetLogin(), nil
}

// HasWriteAccess reports whether login may push to the repository.
func (c *Client) HasWriteAccess(ctx context.Context, login string) (bool, error) {
	perm, _, err := c.api.Repositories.GetPermissionLevel(ctx, c.owner, c.repo, login)
	if err != nil {
		return false, classify("permission level", err)
	}
	switch perm.GetPermission() {
	case "admin", "maintain", "write":
		return true, nil
	default:
		return false, nil
	}
}

func (c *Client) ref(branch string) string {
	if branch == "" {
		return c.branch
	}
	return branch
}

func status(err error) int {
	var rerr *gh.ErrorResponse
	if errors.As(err, &rerr) && rerr.Response != nil {
		return rerr.Response.StatusCode
	}
	return 0
}

// isStaleSHA tells a failed precondition apart from other rejected writes.
// GitHub answers 409 when the sha moved and 422 when it is missing; other
// 422s are validation errors on the request itself.
func isStaleSHA(rerr *gh.ErrorResponse) bool {
	if rerr.Response == nil {
		return false
	}
	switch rerr.Response.StatusCode {
	case http.StatusConflict:
		return true
	case http.StatusUnprocessableEntity:
		msg := strings.ToLower(rerr.Message)
		if strings.Contains(msg, `"sha"`) || strings.Contains(msg, "does not match") {
			return true
		}
		for _, e := range rerr.Errors {
			if e.Field == "sha" {
				return true
			}
		}
	}
	return false
}

// classify maps API failures onto publish errors; the remote message is kept.
func classify(op string, err error) error {
	var rerr *gh.ErrorResponse
	if errors.As(err, &rerr) {
		switch status(err) {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			// GitHub answers 404 on private repositories the token cannot see.
			return &publish.TransportError{Op: op, Err: fmt.Errorf("%w: %s", publish.ErrPermissionDenied, rerr.Message)}
		}
		return &publish.TransportError{Op: op, Err: errors.New(rerr.Message)}
	}
	return &publish.TransportError{Op: op, Err: err}
}
