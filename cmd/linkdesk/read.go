package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkdesk/internal/codec"
	"github.com/MrSnakeDoc/linkdesk/internal/config"
	"github.com/MrSnakeDoc/linkdesk/internal/dirty"
	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/index"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/mutation"
	"github.com/MrSnakeDoc/linkdesk/internal/resolver"
	"github.com/MrSnakeDoc/linkdesk/internal/session"
	"github.com/MrSnakeDoc/linkdesk/internal/sources/localfile"
)

var errCheckFailed = errors.New("check failed")

func newLsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [query]",
		Short: "List entries, optionally filtered",
		Long: `List entries with their positions. The query matches the category,
the display name and the aliases, case-insensitively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, label, err := loadDocument(cmd.Context(), opts.file, cliLogger(opts))
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			render(cmd.OutOrStdout(), matchTable(label, doc.Filter(query)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read a local commands file instead of the repository")
	return cmd
}

func matchTable(label string, matches []domain.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", label)
	if len(matches) == 0 {
		b.WriteString("No entries.\n")
		return b.String()
	}
	b.WriteString("| Category | # | Name | Aliases | Link |\n|---|---|---|---|---|\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s |\n",
			cell(m.Category), m.Index, cell(m.Entry.DisplayName),
			cell(strings.Join(m.Entry.Aliases, ", ")), cell(m.Entry.Link))
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func newCheckCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the publish checks on a document",
		Long: `Validate every entry and list aliases shared by several entries.
Exits non-zero when publishing would be refused or need confirmation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := cliLogger(opts)
			doc, label, err := loadDocument(cmd.Context(), opts.file, log)
			if err != nil {
				return err
			}
			report := checkDocument(doc, log)
			render(cmd.OutOrStdout(), reportMarkdown(label, doc, report))
			if !report.OK() {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "check a local commands file instead of the repository")
	return cmd
}

func checkDocument(doc *domain.Document, log logger.Logger) session.Report {
	engine := mutation.New(doc, log)
	var report session.Report
	var verr *domain.ValidationError
	if errors.As(engine.Validate(), &verr) {
		report.Violations = verr.Violations
	}
	report.Duplicates = engine.Duplicates()
	return report
}

func reportMarkdown(label string, doc *domain.Document, r session.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n%d entries in %d categories.\n\n", label, doc.Len(), len(doc.Categories()))
	if r.OK() {
		b.WriteString("✅ Ready to publish.\n")
		return b.String()
	}
	if len(r.Violations) > 0 {
		fmt.Fprintf(&b, "### ❌ %d problems\n\n", len(r.Violations))
		for _, v := range r.Violations {
			fmt.Fprintf(&b, "* %s\n", v)
		}
		b.WriteString("\n")
	}
	if len(r.Duplicates) > 0 {
		fmt.Fprintf(&b, "### ⚠️ %d shared aliases\n\n", len(r.Duplicates))
		for _, d := range r.Duplicates {
			fmt.Fprintf(&b, "* %s\n", d)
		}
	}
	return b.String()
}

func newResolveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <alias>",
		Short: "Show what the bot answers for an alias",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := cliLogger(opts)
			doc, _, err := loadDocument(cmd.Context(), opts.file, log)
			if err != nil {
				return err
			}

			local := config.LoadLocal()
			res := resolver.New(index.NewMemoryIndex(), nil, resolver.Options{
				Limit:  local.SuggestionLimit,
				Cutoff: local.SuggestionCutoff,
			}, log)
			res.Sync(cmd.Context(), doc)

			resolution := res.Resolve(cmd.Context(), strings.Join(args, " "))
			render(cmd.OutOrStdout(), resolution.Reply())
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "resolve against a local commands file instead of the repository")
	return cmd
}

func newDiffCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <file>",
		Short: "Preview what publishing a local file would change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := cliLogger(opts)
			local, err := readDocument(args[0])
			if err != nil {
				return err
			}
			r, err := openRemote(cmd.Context(), log, false)
			if err != nil {
				return err
			}
			state, err := r.editor.Session.Snapshot()
			if err != nil {
				return err
			}

			diff, err := diffDocuments(state.Document, local)
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s matches %s\n", args[0], r.label())
				return nil
			}
			renderDiff(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}

// diffDocuments compares both documents in their published form, so
// formatting-only differences in the local file do not show.
func diffDocuments(base, doc *domain.Document) (string, error) {
	tracker := dirty.New(codec.NewYAML())
	if err := tracker.Reset(base); err != nil {
		return "", err
	}
	return tracker.Diff(doc)
}

func newPullCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pull [file]",
		Short: "Save the published document to a local file",
		Long: `Save the default-branch document to a local file, by default named
after the repository path. Edit it, then use "check --file" and "diff".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRemote(cmd.Context(), cliLogger(opts), false)
			if err != nil {
				return err
			}
			state, err := r.editor.Session.Snapshot()
			if err != nil {
				return err
			}

			path := filepath.Base(r.cfg.FilePath)
			if len(args) == 1 {
				path = args[0]
			}
			if err := localfile.NewLoader(path, codec.NewYAML()).Save(state.Document); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", r.label(), path)
			return nil
		},
	}
}
