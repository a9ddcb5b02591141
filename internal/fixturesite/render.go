package fixturesite

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// renderer holds one parsed template set per page. Full pages are rendered
// through "base"; fragments are executed by their file name.
type renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

var fragmentNames = map[string]bool{"application.html": true}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template)}

	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	var fragmentFiles []string
	for _, name := range names {
		base := path.Base(name)
		switch {
		case base == "base.html":
		case fragmentNames[base]:
			fragmentFiles = append(fragmentFiles, name)
		default:
			tmpl, err := template.New("base").ParseFS(templateFS, "templates/base.html", name)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", base, err)
			}
			r.pages[base] = tmpl
		}
	}
	if len(fragmentFiles) > 0 {
		r.fragments, err = template.ParseFS(templateFS, fragmentFiles...)
		if err != nil {
			return nil, fmt.Errorf("parse fragments: %w", err)
		}
	}
	return r, nil
}

func (r *renderer) page(w http.ResponseWriter, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("execute template %q: %w", name, err)
	}
	return nil
}

func (r *renderer) fragment(w http.ResponseWriter, name string, data any) error {
	if r.fragments == nil || r.fragments.Lookup(name) == nil {
		return fmt.Errorf("fragment %q not found", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := r.fragments.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("execute fragment %q: %w", name, err)
	}
	return nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}
