// Package render encodes build options records in the formats bundler
// engines load their configuration from, and validates such documents
// against the record's JSON schema.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/wolfeidau/buildcfg/internal/buildconfig"
	"sigs.k8s.io/yaml"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Format is an encoding of a build options record.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	// JS is a CommonJS webpack configuration module.
	JS Format = "js"
)

// Formats lists the supported formats.
var Formats = []Format{JSON, YAML, JS}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, YAML, JS:
		return f, nil
	case "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatForPath infers the format from a file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Render writes opts to w in the given format.
func Render(w io.Writer, opts buildconfig.BuildOptions, format Format) error {
	data, err := Marshal(opts, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Marshal encodes opts in the given format.
func Marshal(opts buildconfig.BuildOptions, format Format) ([]byte, error) {
	switch format {
	case JSON:
		return marshalJSON(opts)
	case YAML:
		data, err := json.Marshal(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to encode build options: %w", err)
		}
		// keeps the JSON field names of the contract
		out, err := yaml.JSONToYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to convert build options to yaml: %w", err)
		}
		return out, nil
	case JS:
		return marshalJS(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func marshalJSON(opts buildconfig.BuildOptions) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(opts); err != nil {
		return nil, fmt.Errorf("failed to encode build options: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders opts into path, creating parent directories.
func WriteFile(fs afero.Fs, path string, opts buildconfig.BuildOptions, format Format) error {
	data, err := Marshal(opts, format)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
