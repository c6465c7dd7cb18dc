// Package project loads the optional project settings file that tells the
// resolver where sources and outputs live.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
	"github.com/wolfeidau/buildcfg/internal/buildconfig"
	"gopkg.in/yaml.v3"
)

// Filenames are the settings files looked up in a project directory, in
// order of preference.
var Filenames = []string{"buildcfg.yaml", "buildcfg.yml", "buildcfg.jsonc"}

// ErrNoSettings is returned by Find when the directory has no settings file.
var ErrNoSettings = errors.New("no project settings file found")

// Find returns the path of the first settings file present in dir.
func Find(fs afero.Fs, dir string) (string, error) {
	for _, name := range Filenames {
		path := filepath.Join(dir, name)
		ok, err := afero.Exists(fs, path)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if ok {
			return path, nil
		}
	}
	return "", ErrNoSettings
}

// Load returns the layout for the project in dir. Fields the settings file
// leaves unset take their defaults, and a missing file yields the default
// layout rooted at dir.
func Load(fs afero.Fs, dir string) (buildconfig.Layout, error) {
	path, err := Find(fs, dir)
	if errors.Is(err, ErrNoSettings) {
		log.Debug().Str("dir", dir).Msg("No project settings, using defaults")
		return withDefaults(buildconfig.Layout{}, dir)
	}
	if err != nil {
		return buildconfig.Layout{}, err
	}
	return LoadFile(fs, path)
}

// LoadFile reads a settings file, YAML or JSONC by extension.
func LoadFile(fs afero.Fs, path string) (buildconfig.Layout, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return buildconfig.Layout{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	layout, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return buildconfig.Layout{}, fmt.Errorf("%s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("Loaded project settings")
	return withDefaults(layout, filepath.Dir(path))
}

// Parse decodes settings in the format named by ext (".yaml", ".yml" or
// ".jsonc"/".json").
func Parse(data []byte, ext string) (buildconfig.Layout, error) {
	var layout buildconfig.Layout

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &layout); err != nil {
			return layout, fmt.Errorf("parsing yaml settings: %w", err)
		}
	case ".jsonc", ".json":
		if err := json.Unmarshal(jsonc.ToJSON(data), &layout); err != nil {
			return layout, fmt.Errorf("parsing jsonc settings: %w", err)
		}
	default:
		return layout, fmt.Errorf("unsupported settings format %q", ext)
	}
	return layout, nil
}

func withDefaults(layout buildconfig.Layout, dir string) (buildconfig.Layout, error) {
	// mergo treats an explicit false behind the pointer as empty
	compress := layout.Compress
	if err := mergo.Merge(&layout, buildconfig.DefaultLayout()); err != nil {
		return buildconfig.Layout{}, fmt.Errorf("failed to apply default settings: %w", err)
	}
	if compress != nil {
		layout.Compress = compress
	}
	if !filepath.IsAbs(layout.Root) {
		layout.Root = filepath.Join(dir, layout.Root)
	}
	return layout, nil
}
