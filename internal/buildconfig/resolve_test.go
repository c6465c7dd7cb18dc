package buildconfig

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_development(t *testing.T) {
	opts := Resolve("development", DefaultLayout())

	require.Equal(t, Development, opts.Mode)
	require.True(t, opts.Entry.IsSingle())
	require.Equal(t, filepath.Join("src", "index.js"), opts.Entry.Path())
	require.Equal(t, ContentHash, opts.Output.Naming)
	require.Equal(t, "bundle.[hash:8].js", opts.Output.Filename)
	require.Equal(t, Devtool, opts.Devtool)

	require.NotNil(t, opts.DevServer)
	assert.Equal(t, 8000, opts.DevServer.Port)
	assert.Equal(t, "127.0.0.1", opts.DevServer.Host)
	assert.True(t, opts.DevServer.Overlay.Errors)
	assert.True(t, opts.DevServer.Hot)
	assert.True(t, opts.DevServer.Open)

	style, ok := opts.StyleRule()
	require.True(t, ok)
	require.False(t, style.Extracts())
	require.Equal(t, []string{StyleLoader, CSSLoader, PostCSSLoader, StylusLoader}, style.Chain())
	require.True(t, style.Use[2].Options.SourceMap)

	assert.True(t, opts.HasPlugin(HotModuleReplacementPlugin))
	assert.True(t, opts.HasPlugin(NoEmitOnErrorsPlugin))
	assert.False(t, opts.HasPlugin(ExtractTextPlugin))
	assert.False(t, opts.HasPlugin(CommonsChunkPlugin))

	require.Equal(t, map[string]string{"process.env.NODE_ENV": `"development"`}, opts.Definitions())
	require.NoError(t, opts.Validate())
}

func TestResolve_production(t *testing.T) {
	for _, flag := range []string{"production", "staging", ""} {
		t.Run(flag, func(t *testing.T) {
			opts := Resolve(flag, DefaultLayout())

			require.Equal(t, Production, opts.Mode)
			require.False(t, opts.Entry.IsSingle())

			named := opts.Entry.Named()
			require.Len(t, named, 2)
			require.Equal(t, AppEntry, named[0].Name)
			require.Equal(t, filepath.Join("src", "index.js"), named[0].Path)
			require.Equal(t, VendorChunk, named[1].Name)
			require.Equal(t, []string{"vue"}, named[1].Modules)

			require.Equal(t, ChunkHash, opts.Output.Naming)
			require.Equal(t, "[name].[chunkhash:8].js", opts.Output.Filename)
			require.Nil(t, opts.DevServer)
			require.Empty(t, opts.Devtool)

			style, ok := opts.StyleRule()
			require.True(t, ok)
			require.True(t, style.Extracts())
			require.Equal(t, StyleLoader, style.Extract.Fallback)
			require.Equal(t, []string{CSSLoader, PostCSSLoader, StylusLoader}, style.Chain())

			extract := opts.PluginsOf(ExtractTextPlugin)
			require.Len(t, extract, 1)
			require.Equal(t, ExtractedStylesFilename, extract[0].Options.Filename)
			require.Equal(t, []string{VendorChunk, RuntimeChunk}, opts.SharedChunks())

			assert.False(t, opts.HasPlugin(HotModuleReplacementPlugin))
			assert.False(t, opts.HasPlugin(NoEmitOnErrorsPlugin))

			require.Equal(t, map[string]string{"process.env.NODE_ENV": `"production"`}, opts.Definitions())
			require.NoError(t, opts.Validate())
		})
	}
}

func TestResolve_assetInliningAlwaysPresent(t *testing.T) {
	for _, flag := range []string{"development", "production", "staging", ""} {
		opts := Resolve(flag, DefaultLayout())

		rule, loader, ok := opts.AssetInlining()
		require.True(t, ok, flag)
		require.Equal(t, ImagePattern, rule.Test)
		require.Equal(t, 1024, loader.Options.Limit)
		require.Equal(t, "[name].[ext]", loader.Options.Name)
	}
}

func TestResolve_ruleOrder(t *testing.T) {
	for _, mode := range []Mode{Development, Production} {
		opts := ResolveMode(mode, DefaultLayout())

		var tests []Pattern
		for _, r := range opts.Module.Rules {
			tests = append(tests, r.Test)
		}
		require.Equal(t, []Pattern{VuePattern, JSXPattern, ImagePattern, StylusPattern}, tests)
	}
}

func TestResolve_pluginOrder(t *testing.T) {
	kinds := func(opts BuildOptions) []PluginKind {
		var out []PluginKind
		for _, p := range opts.Plugins {
			out = append(out, p.Kind)
		}
		return out
	}

	require.Equal(t,
		[]PluginKind{DefinePlugin, HTMLPlugin, HotModuleReplacementPlugin, NoEmitOnErrorsPlugin},
		kinds(ResolveMode(Development, DefaultLayout())))
	require.Equal(t,
		[]PluginKind{DefinePlugin, HTMLPlugin, ExtractTextPlugin, CommonsChunkPlugin, CommonsChunkPlugin},
		kinds(ResolveMode(Production, DefaultLayout())))
}

func TestResolve_idempotent(t *testing.T) {
	for _, flag := range []string{"development", "production"} {
		first := Resolve(flag, DefaultLayout())
		second := Resolve(flag, DefaultLayout())
		require.Equal(t, first, second)

		a, err := Fingerprint(first)
		require.NoError(t, err)
		b, err := Fingerprint(second)
		require.NoError(t, err)
		require.Equal(t, a, b)
		require.Len(t, a, 64)
	}

	dev, err := Fingerprint(Resolve("development", DefaultLayout()))
	require.NoError(t, err)
	prod, err := Fingerprint(Resolve("production", DefaultLayout()))
	require.NoError(t, err)
	require.NotEqual(t, dev, prod)
}

func TestResolve_resultsDoNotShareState(t *testing.T) {
	layout := DefaultLayout()
	first := Resolve("production", layout)

	first.Plugins[0].Options.Definitions["extra"] = "1"
	first.Module.Rules[0].Loader = "changed"
	layout.Vendor[0] = "react"

	second := Resolve("production", DefaultLayout())
	require.NotContains(t, second.Definitions(), "extra")
	require.Equal(t, VueLoader, second.Module.Rules[0].Loader)

	vendor, ok := first.Entry.Lookup(VendorChunk)
	require.True(t, ok)
	require.Equal(t, []string{"vue"}, vendor.Modules)
}

func TestResolve_layout(t *testing.T) {
	layout := Layout{
		Root:      "/srv/app",
		Entry:     "client/main.js",
		OutputDir: "public",
		Vendor:    []string{"vue", "vue-router"},
		Title:     "Todo",
	}

	opts := Resolve("production", layout)
	app, ok := opts.Entry.Lookup(AppEntry)
	require.True(t, ok)
	require.Equal(t, "/srv/app/client/main.js", app.Path)

	vendor, ok := opts.Entry.Lookup(VendorChunk)
	require.True(t, ok)
	require.Equal(t, []string{"vue", "vue-router"}, vendor.Modules)
	require.Equal(t, "/srv/app/public", opts.Output.Path)

	html := opts.PluginsOf(HTMLPlugin)
	require.Len(t, html, 1)
	require.Equal(t, "Todo", html[0].Options.Title)
}

func TestBuildOptions_jsonContract(t *testing.T) {
	data, err := json.Marshal(Resolve("development", DefaultLayout()))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	require.Equal(t, "development", doc["mode"])
	require.Equal(t, "web", doc["target"])
	require.Equal(t, filepath.Join("src", "index.js"), doc["entry"])
	require.Equal(t, "bundle.[hash:8].js", doc["output"].(map[string]any)["filename"])
	require.JSONEq(t, `{"port":8000,"host":"127.0.0.1","overlay":{"errors":true},"hot":true,"open":true}`,
		mustJSON(t, doc["devServer"]))

	data, err = json.Marshal(Resolve("production", DefaultLayout()))
	require.NoError(t, err)
	doc = map[string]any{}
	require.NoError(t, json.Unmarshal(data, &doc))

	require.NotContains(t, doc, "devServer")
	require.NotContains(t, doc, "devtool")
	require.JSONEq(t, `{"app":"`+filepath.Join("src", "index.js")+`","vendor":["vue"]}`, mustJSON(t, doc["entry"]))
	require.Equal(t, "[name].[chunkhash:8].js", doc["output"].(map[string]any)["filename"])
}

func TestEntry_MarshalJSON_keepsOrder(t *testing.T) {
	entry := NamedEntries(
		NamedEntry{Name: "zeta", Path: "z.js"},
		NamedEntry{Name: "alpha", Modules: []string{"a", "b"}},
	)

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	require.Equal(t, `{"zeta":"z.js","alpha":["a","b"]}`, string(data))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
