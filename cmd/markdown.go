package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/costbasis/renderer"
	"golang.org/x/term"
)

// printMarkdown prints md on stdout, rendered for the terminal when stdout
// is one.
func printMarkdown(md string) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fmt.Print(md)
		return
	}
	width := 100
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err == nil {
		if out, err := r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}

// printJSON prints v as indented JSON on stdout.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(b))
	return err
}

// printReport prints a markdown report in the given format: md, html, or
// json which prints data instead.
func printReport(format, md string, data any) error {
	switch format {
	case "md", "":
		printMarkdown(md)
		return nil
	case "html":
		html, err := renderer.HTML(md)
		if err != nil {
			return err
		}
		fmt.Print(html)
		return nil
	case "json":
		return printJSON(data)
	default:
		return fmt.Errorf("unknown format %q (want md, json or html)", format)
	}
}
