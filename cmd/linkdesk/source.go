package main

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/linkdesk/internal/app"
	"github.com/MrSnakeDoc/linkdesk/internal/codec"
	"github.com/MrSnakeDoc/linkdesk/internal/config"
	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/sources/localfile"
)

// remote is an editing session against the repository document.
type remote struct {
	cfg    *config.Config
	editor *app.Editor
}

// openRemote loads the document from the default branch. With write set
// the credential must also be allowed to push.
func openRemote(ctx context.Context, log logger.Logger, write bool) (*remote, error) {
	cfg, err := config.LoadChecked()
	if err != nil {
		return nil, err
	}
	editor, err := app.NewEditor(cfg, log)
	if err != nil {
		return nil, err
	}

	if write {
		err = editor.Session.Open(ctx, editor.Client)
	} else {
		err = editor.Session.Load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s from %s: %w", cfg.FilePath, cfg.Repository, err)
	}
	return &remote{cfg: cfg, editor: editor}, nil
}

// label names the loaded document for humans.
func (r *remote) label() string {
	state, err := r.editor.Session.Snapshot()
	if err != nil {
		return r.cfg.Repository + ":" + r.cfg.FilePath
	}
	return fmt.Sprintf("%s:%s@%s", r.cfg.Repository, r.cfg.FilePath, shortRev(state.Revision))
}

// loadDocument returns the document read-only commands work on: the local
// file when one is given, the default branch otherwise.
func loadDocument(ctx context.Context, file string, log logger.Logger) (*domain.Document, string, error) {
	if file != "" {
		doc, err := readDocument(file)
		return doc, file, err
	}
	r, err := openRemote(ctx, log, false)
	if err != nil {
		return nil, "", err
	}
	state, err := r.editor.Session.Snapshot()
	if err != nil {
		return nil, "", err
	}
	return state.Document, r.label(), nil
}

func readDocument(path string) (*domain.Document, error) {
	return localfile.NewLoader(path, codec.NewYAML()).Load()
}

func shortRev(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
