package buildconfig

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// AssetInlineLimit is the size in bytes below which binary assets are
	// embedded as data URLs. It is the same for both modes.
	AssetInlineLimit = 1024

	DevServerHost = "127.0.0.1"
	DevServerPort = 8000

	Target = "web"

	// Devtool is the source map style used by development builds.
	Devtool = "#cheap-module-eval-source-map"

	// ExtractedStylesFilename names the standalone stylesheet of production builds.
	ExtractedStylesFilename = "styles.[contentHash:8].css"

	VendorChunk  = "vendor"
	RuntimeChunk = "runtime"
	AppEntry     = "app"
)

// Loader names used in transform rules.
const (
	VueLoader     = "vue-loader"
	BabelLoader   = "babel-loader"
	URLLoader     = "url-loader"
	StyleLoader   = "style-loader"
	CSSLoader     = "css-loader"
	PostCSSLoader = "postcss-loader"
	StylusLoader  = "stylus-loader"
)

// Rule patterns.
const (
	VuePattern    Pattern = `\.vue$`
	JSXPattern    Pattern = `\.jsx$`
	ImagePattern  Pattern = `\.(gif|jpg|jpeg|png|svg)$`
	StylusPattern Pattern = `\.styl$`
)

// BuildOptions is the complete record handed to the bundler engine. The JSON
// field names are the engine's configuration contract.
type BuildOptions struct {
	Mode      Mode       `json:"mode"`
	Target    string     `json:"target"`
	Entry     Entry      `json:"entry"`
	Output    Output     `json:"output"`
	Module    Module     `json:"module"`
	Plugins   []Plugin   `json:"plugins"`
	Devtool   string     `json:"devtool,omitempty"`
	DevServer *DevServer `json:"devServer,omitempty"`
}

// HashScheme is the cache-busting strategy encoded in output filenames.
type HashScheme int

const (
	// ContentHash is a single hash per build.
	ContentHash HashScheme = iota
	// ChunkHash is a distinct hash per output chunk.
	ChunkHash
)

func (h HashScheme) String() string {
	if h == ChunkHash {
		return "chunkhash"
	}
	return "hash"
}

// Placeholder returns the filename token for the scheme.
func (h HashScheme) Placeholder() string {
	return "[" + h.String() + ":8]"
}

// Output controls where and under which names bundles are written.
type Output struct {
	Filename string     `json:"filename"`
	Path     string     `json:"path"`
	Naming   HashScheme `json:"-"`
}

// NamedEntry is one named bundle. Exactly one of Path or Modules is set.
type NamedEntry struct {
	Name    string
	Path    string
	Modules []string
}

// Entry is either a single unnamed source path or an ordered set of named
// entries. It encodes as a JSON string or object respectively.
type Entry struct {
	path  string
	named []NamedEntry
}

func SingleEntry(path string) Entry {
	return Entry{path: path}
}

func NamedEntries(entries ...NamedEntry) Entry {
	named := make([]NamedEntry, len(entries))
	copy(named, entries)
	return Entry{named: named}
}

func (e Entry) IsSingle() bool {
	return len(e.named) == 0
}

// Path returns the source path of a single entry.
func (e Entry) Path() string {
	return e.path
}

// Named returns a copy of the named entries.
func (e Entry) Named() []NamedEntry {
	named := make([]NamedEntry, len(e.named))
	copy(named, e.named)
	return named
}

// Lookup returns the named entry called name.
func (e Entry) Lookup(name string) (NamedEntry, bool) {
	for _, n := range e.named {
		if n.Name == name {
			return n, true
		}
	}
	return NamedEntry{}, false
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.IsSingle() {
		return json.Marshal(e.path)
	}

	// object keys keep declaration order
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range e.named {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var value []byte
		if n.Modules != nil {
			value, err = json.Marshal(n.Modules)
		} else {
			value, err = json.Marshal(n.Path)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Pattern is a file pattern in regular expression syntax.
type Pattern string

// Regexp compiles the pattern.
func (p Pattern) Regexp() (*regexp.Regexp, error) {
	return regexp.Compile(string(p))
}

// Match reports whether the file path matches the pattern.
func (p Pattern) Match(path string) bool {
	re, err := p.Regexp()
	if err != nil {
		return false
	}
	return re.MatchString(filepath.ToSlash(path))
}

// Extensions returns the file extensions (with leading dot) named by an
// extension pattern such as `\.jsx$` or `\.(png|svg)$`. Patterns of any
// other shape return nil.
func (p Pattern) Extensions() []string {
	s, ok := strings.CutPrefix(string(p), `\.`)
	if !ok {
		return nil
	}
	s, ok = strings.CutSuffix(s, "$")
	if !ok {
		return nil
	}
	if inner, ok := strings.CutPrefix(s, "("); ok {
		inner, ok = strings.CutSuffix(inner, ")")
		if !ok {
			return nil
		}
		s = inner
	}

	var exts []string
	for _, ext := range strings.Split(s, "|") {
		if ext == "" || strings.ContainsAny(ext, `\.*+?[](){}^$`) {
			return nil
		}
		exts = append(exts, "."+ext)
	}
	return exts
}

// Module holds the ordered transform rules.
type Module struct {
	Rules []Rule `json:"rules"`
}

// Rule pairs a file pattern with a handler chain. A rule uses exactly one of
// Loader, Use or Extract.
type Rule struct {
	Test    Pattern  `json:"test"`
	Loader  string   `json:"loader,omitempty"`
	Use     []Loader `json:"use,omitempty"`
	Extract *Extract `json:"extract,omitempty"`
}

// Chain returns the loader names of the rule in application order.
func (r Rule) Chain() []string {
	switch {
	case r.Loader != "":
		return []string{r.Loader}
	case r.Extract != nil:
		return loaderNames(r.Extract.Use)
	default:
		return loaderNames(r.Use)
	}
}

// Extracts reports whether the rule writes its output to a standalone file.
func (r Rule) Extracts() bool {
	return r.Extract != nil
}

func loaderNames(loaders []Loader) []string {
	names := make([]string, 0, len(loaders))
	for _, l := range loaders {
		names = append(names, l.Loader)
	}
	return names
}

// Extract moves the processed output of a chain into a standalone file.
type Extract struct {
	Fallback string   `json:"fallback"`
	Use      []Loader `json:"use"`
}

type Loader struct {
	Loader  string         `json:"loader"`
	Options *LoaderOptions `json:"options,omitempty"`
}

type LoaderOptions struct {
	Limit     int    `json:"limit,omitempty"`
	Name      string `json:"name,omitempty"`
	SourceMap bool   `json:"sourceMap,omitempty"`
}

// PluginKind identifies a build-time plugin.
type PluginKind int

const (
	DefinePlugin PluginKind = iota + 1
	HTMLPlugin
	HotModuleReplacementPlugin
	NoEmitOnErrorsPlugin
	ExtractTextPlugin
	CommonsChunkPlugin
)

var pluginNames = map[PluginKind]string{
	DefinePlugin:               "DefinePlugin",
	HTMLPlugin:                 "HtmlWebpackPlugin",
	HotModuleReplacementPlugin: "HotModuleReplacementPlugin",
	NoEmitOnErrorsPlugin:       "NoEmitOnErrorsPlugin",
	ExtractTextPlugin:          "ExtractTextPlugin",
	CommonsChunkPlugin:         "CommonsChunkPlugin",
}

func (k PluginKind) String() string {
	if name, ok := pluginNames[k]; ok {
		return name
	}
	return "UnknownPlugin"
}

func (k PluginKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

type Plugin struct {
	Kind    PluginKind     `json:"plugin"`
	Options *PluginOptions `json:"options,omitempty"`
}

type PluginOptions struct {
	Definitions map[string]string `json:"definitions,omitempty"`
	Filename    string            `json:"filename,omitempty"`
	Name        string            `json:"name,omitempty"`
	Title       string            `json:"title,omitempty"`
	Template    string            `json:"template,omitempty"`
}

// DevServer configures the development server. It is only present in
// development records.
type DevServer struct {
	Port    int     `json:"port"`
	Host    string  `json:"host"`
	Overlay Overlay `json:"overlay"`
	Hot     bool    `json:"hot"`
	Open    bool    `json:"open"`
}

type Overlay struct {
	Errors bool `json:"errors"`
}

// HasPlugin reports whether a plugin of the given kind is configured.
func (o BuildOptions) HasPlugin(kind PluginKind) bool {
	return len(o.PluginsOf(kind)) > 0
}

// PluginsOf returns the configured plugins of the given kind in order.
func (o BuildOptions) PluginsOf(kind PluginKind) []Plugin {
	var plugins []Plugin
	for _, p := range o.Plugins {
		if p.Kind == kind {
			plugins = append(plugins, p)
		}
	}
	return plugins
}

// SharedChunks returns the names of the shared-chunk extraction plugins.
func (o BuildOptions) SharedChunks() []string {
	var names []string
	for _, p := range o.PluginsOf(CommonsChunkPlugin) {
		if p.Options != nil {
			names = append(names, p.Options.Name)
		}
	}
	return names
}

// Definitions returns the compile-time constants of the define plugin.
func (o BuildOptions) Definitions() map[string]string {
	defs := map[string]string{}
	for _, p := range o.PluginsOf(DefinePlugin) {
		if p.Options == nil {
			continue
		}
		for k, v := range p.Options.Definitions {
			defs[k] = v
		}
	}
	return defs
}

// AssetInlining returns the url-loader configuration of the asset rule.
func (o BuildOptions) AssetInlining() (Rule, Loader, bool) {
	for _, r := range o.Module.Rules {
		for _, l := range r.Use {
			if l.Loader == URLLoader && l.Options != nil {
				return r, l, true
			}
		}
	}
	return Rule{}, Loader{}, false
}

// StyleRule returns the stylesheet transform rule.
func (o BuildOptions) StyleRule() (Rule, bool) {
	return o.Rule(StylusPattern)
}

// Rule returns the transform rule for the given pattern.
func (o BuildOptions) Rule(test Pattern) (Rule, bool) {
	for _, r := range o.Module.Rules {
		if r.Test == test {
			return r, true
		}
	}
	return Rule{}, false
}
