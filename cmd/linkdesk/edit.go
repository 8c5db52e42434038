package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/mutation"
	"github.com/MrSnakeDoc/linkdesk/internal/publish"
)

var errAborted = errors.New("aborted, nothing published")

// editFunc applies one change to an opened session.
type editFunc func(r *remote, p *prompter) (string, error)

// runEdit opens a writable session, applies fn, previews the diff and
// publishes once confirmed.
func runEdit(cmd *cobra.Command, opts *options, message string, fn editFunc) error {
	ctx := cmd.Context()
	r, err := openRemote(ctx, cliLogger(opts), true)
	if err != nil {
		return err
	}
	p := newPrompter(cmd, opts.yes)

	summary, err := fn(r, p)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)

	return publishEdits(ctx, cmd, r, p, message)
}

func publishEdits(ctx context.Context, cmd *cobra.Command, r *remote, p *prompter, message string) error {
	out := cmd.OutOrStdout()
	s := r.editor.Session

	diff, err := s.Diff()
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(out, "No changes to publish.")
		return nil
	}
	renderDiff(out, diff)

	question := fmt.Sprintf("Publish to %s (%s)?", r.cfg.Repository, r.editor.Strategy)
	if !p.ask(question) {
		return errAborted
	}

	res, err := s.Publish(ctx, message, p)
	if err != nil {
		return err
	}
	switch {
	case res.Review != nil:
		fmt.Fprintf(out, "✅ Opened pull request #%d: %s\n", res.Review.Number, res.Review.URL)
	default:
		fmt.Fprintf(out, "✅ Published to %s at %s\n", res.Branch, shortRev(res.Snapshot.Revision))
	}
	return nil
}

func newAddCmd(opts *options) *cobra.Command {
	var (
		in      mutation.NewEntry
		message string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry and publish it",
		Long: `Add an entry at the end of a category, creating the category when it
does not exist. Aliases already held by other entries need confirmation.`,
		Example: `  linkdesk add --category Tools --name "Wiki" --alias wiki --alias docs --link https://wiki.example.com`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEdit(cmd, opts, message, func(r *remote, p *prompter) (string, error) {
				pos, err := r.editor.Session.Create(in, p)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Added %q at %s #%d.", in.DisplayName, pos.Category, pos.Index), nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Category, "category", "", "category to add the entry to")
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "display name")
	cmd.Flags().StringSliceVar(&in.Aliases, "alias", nil, "alias, repeatable or comma-separated")
	cmd.Flags().StringVar(&in.Link, "link", "", "absolute http(s) link")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("alias")
	_ = cmd.MarkFlagRequired("link")
	return cmd
}

func newEditCmd(opts *options) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "edit <category> <position> <display_name|aliases|link> <value>",
		Short: "Change one field of an entry and publish it",
		Example: `  linkdesk edit Tools 0 link https://wiki.example.com/home
  linkdesk edit Tools 0 aliases "wiki, docs"`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[0], args[1])
			if err != nil {
				return err
			}
			field, err := domain.ParseField(args[2])
			if err != nil {
				return err
			}
			return runEdit(cmd, opts, message, func(r *remote, _ *prompter) (string, error) {
				if err := r.editor.Session.EditField(pos, field, args[3]); err != nil {
					return "", err
				}
				return fmt.Sprintf("Set %s of %s #%d.", field, pos.Category, pos.Index), nil
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}

func newRmCmd(opts *options) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "rm <category> <position>",
		Short: "Delete an entry and publish the change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[0], args[1])
			if err != nil {
				return err
			}
			return runEdit(cmd, opts, message, func(r *remote, p *prompter) (string, error) {
				removed, err := r.editor.Session.Delete(pos, p)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Deleted %q.", removed.DisplayName), nil
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}

func newMvCmd(opts *options) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "mv <category> <position> <to-category> <to-position>",
		Short: "Move an entry and publish the change",
		Long: `Move an entry within its category or into another one. The target
position is the index the entry ends up at.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePosition(args[0], args[1])
			if err != nil {
				return err
			}
			to, err := parsePosition(args[2], args[3])
			if err != nil {
				return err
			}
			return runEdit(cmd, opts, message, func(r *remote, _ *prompter) (string, error) {
				if err := r.editor.Session.Move(from, to); err != nil {
					return "", err
				}
				return fmt.Sprintf("Moved %s #%d to %s #%d.", from.Category, from.Index, to.Category, to.Index), nil
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	return cmd
}

func parsePosition(category, index string) (domain.Position, error) {
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 {
		return domain.Position{}, fmt.Errorf("position must be a non-negative integer, got %q", index)
	}
	return domain.Position{Category: category, Index: i}, nil
}

// hint adds a next step to errors a user can act on.
func hint(err error) error {
	switch {
	case errors.Is(err, mutation.ErrDeclined):
		return fmt.Errorf("%w (confirm interactively or pass --yes)", err)
	case errors.Is(err, publish.ErrConflict):
		return fmt.Errorf("%w (the document changed upstream, run the command again)", err)
	case errors.Is(err, publish.ErrPermissionDenied):
		return fmt.Errorf("%w (check the token's repository scope)", err)
	}
	return err
}
