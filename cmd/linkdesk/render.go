package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// render prints markdown, styled when out is a terminal and raw otherwise.
func render(out io.Writer, markdown string) {
	if isTerminal(out) {
		if rendered, err := glamour.Render(markdown, "dark"); err == nil {
			fmt.Fprint(out, rendered)
			return
		}
	}
	fmt.Fprintln(out, markdown)
}

// renderDiff prints a diff preview, highlighted on a terminal.
func renderDiff(out io.Writer, diff string) {
	if isTerminal(out) {
		render(out, "```diff\n"+diff+"\n```")
		return
	}
	fmt.Fprintln(out, diff)
}
