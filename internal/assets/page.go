package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

const (
	// PageName is the file name of the generated HTML page.
	PageName     = "index.html"
	defaultTitle = "App"
)

//go:embed templates/index.html
var defaultPage string

// Page is the data the HTML template is rendered with.
type Page struct {
	Title      string
	Scripts    []string
	Preloads   []string
	Styles     []string
	Module     bool
	LiveReload bool
}

func loadPageTemplate(opts *PageOptions) (*template.Template, error) {
	if opts == nil {
		return nil, nil
	}
	if opts.Template != "" {
		tmpl, err := template.ParseFiles(opts.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to load page template: %w", err)
		}
		return tmpl, nil
	}
	return template.New(PageName).Parse(defaultPage)
}

// Page assembles the page data from the latest build.
func (p *Pipeline) Page() (Page, error) {
	page := Page{
		Title:      defaultTitle,
		Module:     p.plan.Options.Format == api.FormatESModule,
		LiveReload: p.plan.LiveReload,
	}
	if p.plan.HTML != nil && p.plan.HTML.Title != "" {
		page.Title = p.plan.HTML.Title
	}

	seen := map[string]bool{}
	for _, ref := range p.plan.Entries {
		scripts, entrypoint, err := p.LoadScripts(ref.Name)
		if err != nil {
			return Page{}, err
		}
		page.Scripts = append(page.Scripts, entrypoint)
		for _, s := range scripts[1:] {
			if !seen[s] {
				seen[s] = true
				page.Preloads = append(page.Preloads, s)
			}
		}
		if css, ok := p.Stylesheet(ref.Name); ok {
			page.Styles = append(page.Styles, css)
		}
	}
	return page, nil
}

// RenderPage renders the HTML page of the latest build.
func (p *Pipeline) RenderPage() ([]byte, error) {
	if p.tmpl == nil {
		return nil, fmt.Errorf("page generation is not configured")
	}
	page, err := p.Page()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) writePage() (string, error) {
	data, err := p.RenderPage()
	if err != nil {
		return "", err
	}
	path := filepath.Join(p.plan.OutputDir, PageName)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return "", fmt.Errorf("failed to write page: %w", err)
	}
	return path, nil
}

// Handler serves the HTML page of the latest build.
func (p *Pipeline) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := p.RenderPage()
		if err != nil {
			log.Error().Err(err).Msg("Failed to render page")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	}
}
