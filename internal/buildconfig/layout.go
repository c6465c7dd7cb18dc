package buildconfig

import "path/filepath"

// Layout describes where a project's sources live. It supplies paths only;
// mode-dependent policy is fixed by the resolver.
type Layout struct {
	// Project root, the base for every other path.
	Root string `yaml:"root" json:"root"`
	// Application entry point relative to Root.
	Entry string `yaml:"entry" json:"entry"`
	// Output directory relative to Root.
	OutputDir string `yaml:"output" json:"output"`
	// Third-party modules bundled into the vendor entry of production builds.
	Vendor []string `yaml:"vendor" json:"vendor"`
	// Title and template for the generated HTML page.
	Title    string `yaml:"title" json:"title"`
	Template string `yaml:"template" json:"template"`
	// Whether production outputs are precompressed, defaults to true.
	Compress *bool `yaml:"compress" json:"compress"`
}

// DefaultLayout returns the conventional project layout
func DefaultLayout() Layout {
	compress := true
	return Layout{
		Root:      ".",
		Entry:     "src/index.js",
		OutputDir: "dist",
		Vendor:    []string{"vue"},
		Compress:  &compress,
	}
}

// EntryPath is the application entry point joined to the root.
func (l Layout) EntryPath() string {
	return filepath.Join(l.Root, l.Entry)
}

// OutputPath is the output directory joined to the root.
func (l Layout) OutputPath() string {
	return filepath.Join(l.Root, l.OutputDir)
}

// TemplatePath is the HTML template joined to the root, or empty when the
// built-in page is used.
func (l Layout) TemplatePath() string {
	if l.Template == "" {
		return ""
	}
	return filepath.Join(l.Root, l.Template)
}

func (l Layout) ShouldCompress() bool {
	return l.Compress == nil || *l.Compress
}
