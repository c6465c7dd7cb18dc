package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/wolfeidau/buildcfg/internal/buildconfig"
)

const jsTemplateName = "webpack.config.js.tmpl"

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	jsTemplateOnce sync.Once
	jsTemplate     *template.Template
	jsTemplateErr  error
)

type jsConfig struct {
	Mode        string
	Target      string
	Entry       string
	Output      string
	Rules       []string
	Plugins     []string
	Devtool     string
	DevServer   *buildconfig.DevServer
	UsesHTML    bool
	UsesExtract bool
}

func marshalJS(opts buildconfig.BuildOptions) ([]byte, error) {
	tmpl, err := loadJSTemplate()
	if err != nil {
		return nil, err
	}

	entry, err := jsEntry(opts.Entry)
	if err != nil {
		return nil, err
	}
	output, err := jsOutput(opts.Output)
	if err != nil {
		return nil, err
	}

	data := jsConfig{
		Mode:      opts.Mode.String(),
		Target:    opts.Target,
		Entry:     entry,
		Output:    output,
		Devtool:   opts.Devtool,
		DevServer: opts.DevServer,
		UsesHTML:  opts.HasPlugin(buildconfig.HTMLPlugin),
	}

	for _, r := range opts.Module.Rules {
		expr, err := jsRule(r)
		if err != nil {
			return nil, err
		}
		data.Rules = append(data.Rules, expr)
		data.UsesExtract = data.UsesExtract || r.Extracts()
	}

	for _, p := range opts.Plugins {
		expr, err := jsPlugin(p)
		if err != nil {
			return nil, err
		}
		data.Plugins = append(data.Plugins, expr)
		data.UsesExtract = data.UsesExtract || p.Kind == buildconfig.ExtractTextPlugin
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render js config: %w", err)
	}
	return buf.Bytes(), nil
}

func loadJSTemplate() (*template.Template, error) {
	jsTemplateOnce.Do(func() {
		jsTemplate, jsTemplateErr = template.New(jsTemplateName).
			Funcs(sprig.TxtFuncMap()).
			ParseFS(templateFS, "templates/"+jsTemplateName)
	})
	return jsTemplate, jsTemplateErr
}

// jsPath renders a file path. Relative paths are anchored to the directory
// of the generated config.
func jsPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return jsValue(path)
	}
	rel, err := jsValue(filepath.ToSlash(path))
	if err != nil {
		return "", err
	}
	return "path.join(__dirname, " + rel + ")", nil
}

func jsEntry(entry buildconfig.Entry) (string, error) {
	if entry.IsSingle() {
		return jsPath(entry.Path())
	}

	fields := make([]string, 0, len(entry.Named()))
	for _, n := range entry.Named() {
		key, err := jsValue(n.Name)
		if err != nil {
			return "", err
		}
		var value string
		if n.Modules != nil {
			value, err = jsValue(n.Modules)
		} else {
			value, err = jsPath(n.Path)
		}
		if err != nil {
			return "", err
		}
		fields = append(fields, key+": "+value)
	}
	return "{ " + strings.Join(fields, ", ") + " }", nil
}

func jsOutput(output buildconfig.Output) (string, error) {
	filename, err := jsValue(output.Filename)
	if err != nil {
		return "", err
	}
	path, err := jsPath(output.Path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("{ filename: %s, path: %s }", filename, path), nil
}

// regexLiteral renders a pattern as a JS regular expression literal.
func regexLiteral(p buildconfig.Pattern) string {
	return "/" + strings.ReplaceAll(string(p), "/", `\/`) + "/"
}

func jsRule(r buildconfig.Rule) (string, error) {
	test := regexLiteral(r.Test)

	switch {
	case r.Loader != "":
		loader, err := jsValue(r.Loader)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("{ test: %s, loader: %s }", test, loader), nil
	case r.Extract != nil:
		extract, err := jsValue(r.Extract)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("{ test: %s, use: ExtractPlugin.extract(%s) }", test, extract), nil
	default:
		use, err := jsValue(r.Use)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("{ test: %s, use: %s }", test, use), nil
	}
}

func jsPlugin(p buildconfig.Plugin) (string, error) {
	switch p.Kind {
	case buildconfig.HotModuleReplacementPlugin:
		return "new webpack.HotModuleReplacementPlugin()", nil
	case buildconfig.NoEmitOnErrorsPlugin:
		return "new webpack.NoEmitOnErrorsPlugin()", nil
	case buildconfig.HTMLPlugin:
		if p.Options == nil {
			return "new HTMLPlugin()", nil
		}
		opts, err := jsValue(p.Options)
		if err != nil {
			return "", err
		}
		return "new HTMLPlugin(" + opts + ")", nil
	}

	if p.Options == nil {
		return "", fmt.Errorf("plugin %s requires options", p.Kind)
	}

	var (
		format string
		arg    any
	)
	switch p.Kind {
	case buildconfig.DefinePlugin:
		format, arg = "new webpack.DefinePlugin(%s)", p.Options.Definitions
	case buildconfig.ExtractTextPlugin:
		format, arg = "new ExtractPlugin(%s)", p.Options.Filename
	case buildconfig.CommonsChunkPlugin:
		format, arg = "new webpack.optimize.CommonsChunkPlugin({ name: %s })", p.Options.Name
	default:
		return "", fmt.Errorf("plugin %s has no js form", p.Kind)
	}

	value, err := jsValue(arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(format, value), nil
}

// jsValue encodes v as JSON, which is also a valid JS expression.
func jsValue(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return string(data), nil
}
