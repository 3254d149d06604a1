package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// printReady writes the single startup line. Color follows color.NoColor,
// which honors NO_COLOR, and is dropped when disallowed or w is not a
// terminal.
func printReady(w io.Writer, url, root string, allowColor bool) {
	link := color.New(color.FgCyan, color.Underline)
	label := color.New(color.FgGreen, color.Bold)
	if !allowColor || !isTerminal(w) {
		link.DisableColor()
		label.DisableColor()
	}
	fmt.Fprintf(w, "%s on %s (root: %s)\n", label.Sprint("Static server ready"), link.Sprint(url), root)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
