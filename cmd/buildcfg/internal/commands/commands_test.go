package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/buildcfg/internal/assets"
	"github.com/wolfeidau/buildcfg/internal/buildconfig"
	"github.com/wolfeidau/buildcfg/internal/render"
)

func memGlobals(t *testing.T, mode string) *Globals {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/project", 0o755))
	return &Globals{Mode: mode, Dir: "/project", FS: fs}
}

func TestResolveCmd_Run(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		out      string
		format   string
		contains string
	}{
		{name: "development json", mode: "development", out: "/project/options.json", contains: `"devServer"`},
		{name: "production yaml", mode: "production", out: "/project/options.yaml", contains: "CommonsChunkPlugin"},
		{name: "unknown mode is production", mode: "staging", out: "/project/options.yml", contains: "mode: production"},
		{name: "explicit format wins", mode: "development", out: "/project/webpack.config.txt", format: "js", contains: "module.exports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			globals := memGlobals(t, tt.mode)
			cmd := &ResolveCmd{Out: tt.out, Format: tt.format}

			require.NoError(t, cmd.Run(context.Background(), globals))

			data, err := afero.ReadFile(globals.FS, tt.out)
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.contains)
		})
	}
}

func TestResolveCmd_outputValidates(t *testing.T) {
	for _, mode := range []string{"development", "production"} {
		t.Run(mode, func(t *testing.T) {
			globals := memGlobals(t, mode)
			require.NoError(t, (&ResolveCmd{Out: "/project/options.yaml"}).Run(context.Background(), globals))
			require.NoError(t, (&ValidateCmd{File: "/project/options.yaml"}).Run(context.Background(), globals))
		})
	}
}

func TestResolveCmd_strict(t *testing.T) {
	globals := memGlobals(t, "staging")
	globals.Strict = true

	err := (&ResolveCmd{Out: "/project/options.json"}).Run(context.Background(), globals)
	require.ErrorIs(t, err, buildconfig.ErrUnknownMode)

	exists, err := afero.Exists(globals.FS, "/project/options.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestResolveCmd_unknownFormat(t *testing.T) {
	globals := memGlobals(t, "production")
	err := (&ResolveCmd{Out: "/project/options.toml"}).Run(context.Background(), globals)
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestResolveCmd_projectSettings(t *testing.T) {
	globals := memGlobals(t, "production")
	require.NoError(t, afero.WriteFile(globals.FS, "/project/buildcfg.yaml", []byte("entry: app/main.js\nvendor: [vue, vuex]\n"), 0o644))

	require.NoError(t, (&ResolveCmd{Out: "/project/options.json"}).Run(context.Background(), globals))

	data, err := afero.ReadFile(globals.FS, "/project/options.json")
	require.NoError(t, err)

	var doc struct {
		Entry map[string]any `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, filepath.Join("/project", "app", "main.js"), doc.Entry["app"])
	assert.Equal(t, []any{"vue", "vuex"}, doc.Entry["vendor"])
}

func TestValidateCmd_Run(t *testing.T) {
	globals := memGlobals(t, "")
	require.NoError(t, afero.WriteFile(globals.FS, "/project/bad.json", []byte(`{"mode":"development"}`), 0o644))

	err := (&ValidateCmd{File: "/project/bad.json"}).Run(context.Background(), globals)
	require.ErrorIs(t, err, render.ErrInvalidDocument)

	err = (&ValidateCmd{File: "/project/missing.json"}).Run(context.Background(), globals)
	require.Error(t, err)
}

func TestBuildCmd_Run(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"src/index.js":                  `import Vue from "vue"; console.log(Vue.name);`,
		"node_modules/vue/package.json": `{"name":"vue","main":"index.js"}`,
		"node_modules/vue/index.js":     `export default { name: "vue" };`,
		"buildcfg.yaml":                 "title: Demo\ncompress: false\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	reportPath := filepath.Join(root, "report.json")
	globals := &Globals{Mode: "production", Dir: root}
	require.NoError(t, (&BuildCmd{Report: reportPath}).Run(context.Background(), globals))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var report assets.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, buildconfig.Production, report.Mode)
	assert.NotEmpty(t, report.Fingerprint)
	assert.Empty(t, report.Compressed)

	var sawApp bool
	for _, out := range report.Outputs {
		if strings.HasPrefix(out.Path, "app.") {
			sawApp = true
		}
	}
	assert.True(t, sawApp)

	page, err := os.ReadFile(filepath.Join(root, "dist", assets.PageName))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Demo</title>")
}

func TestServeCmd_requiresDevelopment(t *testing.T) {
	globals := &Globals{Mode: "production", Dir: t.TempDir()}
	err := (&ServeCmd{NoOpen: true}).Run(context.Background(), globals)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dev server")
}
