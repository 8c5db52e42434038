package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/publish"
)

// fakeAPI serves the handful of REST endpoints the client uses.
type fakeAPI struct {
	mu       sync.Mutex
	files    map[string]string // branch -> text
	shas     map[string]string // branch -> blob sha
	nextSHA  int
	prs      []map[string]string
	perm     string
	denyAll  bool
	// rejectWrite, when set, fails every write with a 422 carrying it.
	rejectWrite string
	lastAuth string
}

func newFakeAPI(text string) *fakeAPI {
	return &fakeAPI{
		files:   map[string]string{"main": text},
		shas:    map[string]string{"main": "sha-1"},
		nextSHA: 2,
		perm:    "write",
	}
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.lastAuth = req.Header.Get("Authorization")
			deny := f.denyAll
			f.mu.Unlock()
			if deny {
				apiError(w, http.StatusForbidden, "Resource not accessible by personal access token")
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/repos/{owner}/{repo}/contents/*", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ref := req.URL.Query().Get("ref")
		text, ok := f.files[ref]
		if !ok || chi.URLParam(req, "*") != "commands.yaml" {
			apiError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"type":     "file",
			"encoding": "base64",
			"path":     "commands.yaml",
			"sha":      f.shas[ref],
			"content":  base64.StdEncoding.EncodeToString([]byte(text)),
		})
	})

	r.Put("/repos/{owner}/{repo}/contents/*", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Message string `json:"message"`
			Content []byte `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			apiError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.rejectWrite != "" {
			apiError(w, http.StatusUnprocessableEntity, f.rejectWrite)
			return
		}
		current, ok := f.shas[body.Branch]
		if !ok {
			apiError(w, http.StatusNotFound, "Branch "+body.Branch+" not found")
			return
		}
		if body.SHA == "" {
			apiError(w, http.StatusUnprocessableEntity, `Invalid request. "sha" wasn't supplied.`)
			return
		}
		if body.SHA != current {
			apiError(w, http.StatusConflict, fmt.Sprintf("commands.yaml does not match %s", body.SHA))
			return
		}
		f.files[body.Branch] = string(body.Content)
		f.shas[body.Branch] = fmt.Sprintf("sha-%d", f.nextSHA)
		f.nextSHA++
		writeJSON(w, http.StatusOK, map[string]any{
			"content": map[string]any{"sha": f.shas[body.Branch]},
			"commit":  map[string]any{"sha": "commit-" + f.shas[body.Branch], "message": body.Message},
		})
	})

	r.Get("/repos/{owner}/{repo}/git/ref/heads/{branch}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		b := chi.URLParam(req, "branch")
		if _, ok := f.shas[b]; !ok {
			apiError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ref":    "refs/heads/" + b,
			"object": map[string]any{"type": "commit", "sha": "commit-" + f.shas[b]},
		})
	})

	r.Post("/repos/{owner}/{repo}/git/refs", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		name := body.Ref[len("refs/heads/"):]
		if _, exists := f.shas[name]; exists {
			apiError(w, http.StatusUnprocessableEntity, "Reference already exists")
			return
		}
		f.files[name] = f.files["main"]
		f.shas[name] = f.shas["main"]
		writeJSON(w, http.StatusCreated, map[string]any{
			"ref":    body.Ref,
			"object": map[string]any{"type": "commit", "sha": body.SHA},
		})
	})

	r.Post("/repos/{owner}/{repo}/pulls", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.prs = append(f.prs, body)
		n := len(f.prs)
		writeJSON(w, http.StatusCreated, map[string]any{
			"number":   n,
			"html_url": fmt.Sprintf("https://github.test/o/r/pull/%d", n),
		})
	})

	r.Get("/user", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"login": "maintainer"})
	})

	r.Get("/repos/{owner}/{repo}/collaborators/{user}/permission", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"permission": f.perm})
	})

	return r
}

func (f *fakeAPI) text(branch string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[branch]
}

func (f *fakeAPI) sha(branch string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shas[branch]
}

func (f *fakeAPI) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func apiError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"message": msg})
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.router())
	t.Cleanup(srv.Close)

	c, err := New(Config{
		Token:         "t0ken",
		Repository:    "owner/repo",
		Path:          "commands.yaml",
		DefaultBranch: "main",
		BaseURL:       srv.URL,
		Timeout:       5 * time.Second,
	}, logger.Nop())
	require.NoError(t, err)
	return c
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "no slash", cfg: Config{Repository: "repo", Path: "c.yaml", DefaultBranch: "main"}},
		{name: "empty owner", cfg: Config{Repository: "/repo", Path: "c.yaml", DefaultBranch: "main"}},
		{name: "nested", cfg: Config{Repository: "a/b/c", Path: "c.yaml", DefaultBranch: "main"}},
		{name: "no path", cfg: Config{Repository: "a/b", DefaultBranch: "main"}},
		{name: "no branch", cfg: Config{Repository: "a/b", Path: "c.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, logger.Nop())
			assert.Error(t, err)
		})
	}
}

func TestLoadDocumentText(t *testing.T) {
	api := newFakeAPI("Tools: []\n")
	c := newTestClient(t, api)

	snap, err := c.LoadDocumentText(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Tools: []\n", snap.Text)
	assert.Equal(t, "sha-1", snap.Revision)
	assert.Equal(t, "Bearer t0ken", api.auth())

	_, err = c.LoadDocumentText(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWriteDocumentText(t *testing.T) {
	api := newFakeAPI("Tools: []\n")
	c := newTestClient(t, api)

	err := c.WriteDocumentText(context.Background(), publish.WriteRequest{
		Text:     "Wiki: []\n",
		Revision: "sha-1",
		Message:  "Update commands.yaml via Editor",
	})
	require.NoError(t, err)
	assert.Equal(t, "Wiki: []\n", api.text("main"))
	assert.Equal(t, "sha-2", api.sha("main"))
}

func TestWriteDocumentTextStaleRevision(t *testing.T) {
	api := newFakeAPI("Tools: []\n")
	c := newTestClient(t, api)

	err := c.WriteDocumentText(context.Background(), publish.WriteRequest{Text: "x: []\n", Revision: "sha-0"})
	require.ErrorIs(t, err, publish.ErrConflict)

	var conflict *publish.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "sha-0", conflict.Revision)
	assert.Equal(t, "commands.yaml does not match sha-0", conflict.Reason)
	assert.Equal(t, "Tools: []\n", api.text("main"))

	err = c.WriteDocumentText(context.Background(), publish.WriteRequest{Text: "x: []\n"})
	require.ErrorIs(t, err, publish.ErrConflict, "missing precondition on an existing file")
}

func TestWriteDocumentTextValidationIsNotAConflict(t *testing.T) {
	api := newFakeAPI("Tools: []\n")
	api.rejectWrite = "Invalid request. content is not valid Base64"
	c := newTestClient(t, api)

	err := c.WriteDocumentText(context.Background(), publish.WriteRequest{Text: "x: []\n", Revision: "sha-1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, publish.ErrConflict)

	var te *publish.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "write commands.yaml", te.Op)
	assert.Contains(t, err.Error(), "not valid Base64")
}

func TestPermissionDenied(t *testing.T) {
	api := newFakeAPI("Tools: []\n")
	api.denyAll = true
	c := newTestClient(t, api)

	err := c.WriteDocumentText(context.Background(), publish.WriteRequest{Text: "x: []\n", Revision: "sha-1"})
	require.ErrorIs(t, err, publish.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "Resource not accessible by personal access token")

	var te *publish.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "write commands.yaml", te.Op)
}

func TestBranchAndReviewFlow(t *testing.T) {
	api := newFakeAPI("Tools: []\n")
	c := newTestClient(t, api)
	ctx := context.Background()

	tip, err := c.ResolveDefaultBranchTip(ctx)
	require.NoError(t, err)
	assert.Equal(t, "commit-sha-1", tip)

	ref, err := c.CreateBranch(ctx, "editor-1-abcd", tip)
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/editor-1-abcd", ref)

	_, err = c.CreateBranch(ctx, "editor-1-abcd", tip)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Reference already exists")

	require.NoError(t, c.WriteDocumentText(ctx, publish.WriteRequest{Text: "Wiki: []\n", Revision: "sha-1", Branch: "editor-1-abcd"}))

	pr, err := c.ProposeMerge(ctx, "editor-1-abcd", "Update bot mappings", "body")
	require.NoError(t, err)
	assert.Equal(t, publish.ReviewRequest{Number: 1, URL: "https://github.test/o/r/pull/1", Branch: "editor-1-abcd"}, pr)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.prs, 1)
	assert.Equal(t, "editor-1-abcd", api.prs[0]["head"])
	assert.Equal(t, "main", api.prs[0]["base"])
	assert.Equal(t, "Update bot mappings", api.prs[0]["title"])
	assert.Equal(t, "Tools: []\n", api.files["main"])
}

func TestCoordinatorOverHTTP(t *testing.T) {
	api := newFakeAPI("Tools: []\n")
	c := newTestClient(t, api)
	co := publish.NewCoordinator(c, publish.Options{Strategy: publish.DirectCommit, DefaultBranch: "main"}, logger.Nop())

	snap, err := co.Load(context.Background())
	require.NoError(t, err)

	res, err := co.Publish(context.Background(), "Wiki: []\n", snap.Revision, "msg")
	require.NoError(t, err)
	assert.Equal(t, "sha-2", res.Snapshot.Revision)

	_, err = co.Publish(context.Background(), "Other: []\n", snap.Revision, "msg")
	require.ErrorIs(t, err, publish.ErrConflict)
}

func TestAuthorizer(t *testing.T) {
	api := newFakeAPI("")
	c := newTestClient(t, api)

	login, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "maintainer", login)

	for perm, want := range map[string]bool{"admin": true, "write": true, "maintain": true, "read": false, "none": false} {
		api.mu.Lock()
		api.perm = perm
		api.mu.Unlock()
		ok, err := c.HasWriteAccess(context.Background(), login)
		require.NoError(t, err)
		assert.Equal(t, want, ok, perm)
	}
}
