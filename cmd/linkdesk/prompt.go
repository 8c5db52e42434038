package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
)

// prompter asks yes/no questions on the terminal. It implements
// mutation.Confirmer. Without a terminal every question is declined unless
// --yes was given.
type prompter struct {
	in          *bufio.Reader
	out         io.Writer
	yes         bool
	interactive bool
}

func newPrompter(cmd *cobra.Command, yes bool) *prompter {
	in := cmd.InOrStdin()
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return &prompter{
		in:          bufio.NewReader(in),
		out:         cmd.ErrOrStderr(),
		yes:         yes,
		interactive: interactive,
	}
}

func (p *prompter) ask(question string) bool {
	if p.yes {
		fmt.Fprintf(p.out, "%s [y/N] y\n", question)
		return true
	}
	if !p.interactive {
		fmt.Fprintf(p.out, "%s [y/N] no terminal, declined (use --yes)\n", question)
		return false
	}

	fmt.Fprintf(p.out, "%s [y/N] ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (p *prompter) ConfirmCollision(c domain.Collision) bool {
	return p.ask(fmt.Sprintf("The %s. Share it anyway?", c))
}

func (p *prompter) ConfirmDelete(pos domain.Position, e domain.Entry) bool {
	return p.ask(fmt.Sprintf("Delete %q (%s #%d, %s)?", e.DisplayName, pos.Category, pos.Index, e.Link))
}

func (p *prompter) ConfirmDuplicates(d []domain.Duplicate) bool {
	fmt.Fprintf(p.out, "%d aliases are shared by several entries:\n", len(d))
	for _, dup := range d {
		fmt.Fprintf(p.out, "  - %s\n", dup)
	}
	return p.ask("The bot answers with the first one. Publish anyway?")
}
