package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/version"
)

// options are the flags shared by every command.
type options struct {
	yes     bool
	verbose bool
	file    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "linkdesk",
		Short: "Edit and publish the bot's alias to link mappings",
		Long: `linkdesk edits the commands document the link bot answers from.

"serve" runs the editor API. The other commands work on the repository
document directly, or on a local copy with --file where noted.`,
		Version: fmt.Sprintf("%s (commit=%s, built=%s, %s)",
			version.Version, version.Commit, version.BuildDate, version.GoVersion),
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().BoolVarP(&opts.yes, "yes", "y", false, "answer yes to every confirmation")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "log debug output to stderr")

	root.AddCommand(
		newServeCmd(),
		newLsCmd(opts),
		newCheckCmd(opts),
		newResolveCmd(opts),
		newDiffCmd(opts),
		newPullCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newRmCmd(opts),
		newMvCmd(opts),
	)
	return root
}

// cliLogger keeps the terminal quiet unless --verbose is set.
func cliLogger(opts *options) logger.Logger {
	if opts.verbose {
		return logger.New("debug", true)
	}
	return logger.New("warn", true)
}
