package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	createColor  = color.New(color.FgGreen)
	destroyColor = color.New(color.FgRed)
	alterColor   = color.New(color.FgYellow)
	okColor      = color.New(color.FgGreen, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
)

// printPlan writes one entity's statements, colored by what each one does to
// the live schema.
func printPlan(w io.Writer, entity string, statements []string) {
	headerColor.Fprintf(w, "== %s\n", entity)
	if len(statements) == 0 {
		fmt.Fprintln(w, "   (up to date)")
		return
	}
	for _, s := range statements {
		switch {
		case strings.Contains(s, " DROP "):
			destroyColor.Fprintf(w, "   %s\n", s)
		case strings.HasPrefix(s, "ALTER "):
			alterColor.Fprintf(w, "   %s\n", s)
		default:
			createColor.Fprintf(w, "   %s\n", s)
		}
	}
}

// destructive reports whether any statement discards data.
func destructive(statements []string) bool {
	for _, s := range statements {
		if strings.Contains(s, " DROP ") || strings.HasPrefix(s, "DROP ") {
			return true
		}
	}
	return false
}
