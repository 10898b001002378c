// Package renderer turns engine results into markdown reports.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
	"time"

	"github.com/etnz/costbasis"
)

//go:embed templates/*.md
var templates embed.FS

// Options holds configuration for rendering a report.
type Options struct {
	Currency string // ISO code used to display amounts, plain decimals when empty
}

// funcs returns the template helpers for opts.
func funcs(opts Options) template.FuncMap {
	return template.FuncMap{
		"money":  func(m costbasis.Money) string { return m.Format(opts.Currency) },
		"signed": func(m costbasis.Money) string { return m.SignedFormat(opts.Currency) },
		"holdingsCost": func(r *costbasis.GainsLossesResult) costbasis.Money {
			var total costbasis.Money
			for _, h := range r.Holdings {
				total = total.Add(h.TotalCostBasis)
			}
			return total
		},
		"day": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return costbasis.DateOf(t).String()
		},
	}
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, opts Options, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs(opts)).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, "templates/"+file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
