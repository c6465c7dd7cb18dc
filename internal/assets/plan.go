package assets

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/buildcfg/internal/buildconfig"
)

// Plan is the esbuild configuration derived from a build options record.
type Plan struct {
	Mode        buildconfig.Mode
	Fingerprint string
	Options     api.BuildOptions
	// Entries in the order their scripts appear on the generated page.
	Entries []EntryRef
	// Rules whose handler chain has no esbuild equivalent.
	Unsupported []string
	// FailFast suppresses every write when a build reports errors.
	FailFast bool
	// LiveReload injects the reload client into the generated page.
	LiveReload bool
	Compress   bool
	HTML       *PageOptions
	Root       string
	OutputDir  string
}

// EntryRef ties a bundle name to the key esbuild uses for it in the metafile.
type EntryRef struct {
	Name    string
	MetaKey string
}

// PageOptions configures the generated HTML page.
type PageOptions struct {
	Title    string
	Template string
}

// Translate maps a build options record onto esbuild.
func Translate(opts buildconfig.BuildOptions, layout buildconfig.Layout) (Plan, error) {
	root, err := filepath.Abs(layout.Root)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to resolve project root: %w", err)
	}
	outdir, err := filepath.Abs(opts.Output.Path)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to resolve output dir: %w", err)
	}
	fingerprint, err := buildconfig.Fingerprint(opts)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Mode:        opts.Mode,
		Fingerprint: fingerprint,
		Root:        root,
		OutputDir:   outdir,
		Compress:    !opts.Mode.IsDev() && layout.ShouldCompress(),
		Options: api.BuildOptions{
			AbsWorkingDir: root,
			Outdir:        outdir,
			Bundle:        true,
			Write:         true,
			Metafile:      true,
			Platform:      api.PlatformBrowser,
			Format:        api.FormatIIFE,
			EntryNames:    entryNames(opts.Output.Filename),
			Loader:        map[string]api.Loader{},
			LogLevel:      api.LogLevelSilent,
		},
	}

	if err := plan.addEntries(opts.Entry, root); err != nil {
		return Plan{}, err
	}
	plan.addRules(opts.Module.Rules)
	plan.addPlugins(opts)

	if opts.Devtool != "" {
		plan.Options.Sourcemap = api.SourceMapInline
	}
	if !opts.Mode.IsDev() {
		plan.Options.MinifyWhitespace = true
		plan.Options.MinifyIdentifiers = true
		plan.Options.MinifySyntax = true
	}
	if plan.FailFast {
		plan.Options.Write = false
	}
	if opts.DevServer != nil {
		plan.LiveReload = plan.LiveReload && opts.DevServer.Hot
	} else {
		plan.LiveReload = false
	}

	return plan, nil
}

// entryNames turns "bundle.[hash:8].js" or "[name].[chunkhash:8].js" into
// the esbuild template "bundle.[hash]" or "[name].[hash]".
func entryNames(filename string) string {
	name := strings.TrimSuffix(filename, ".js")
	for _, scheme := range []buildconfig.HashScheme{buildconfig.ContentHash, buildconfig.ChunkHash} {
		name = strings.ReplaceAll(name, scheme.Placeholder(), "[hash]")
	}
	return name
}

func (p *Plan) addEntries(entry buildconfig.Entry, root string) error {
	if entry.IsSingle() {
		input, key, err := fileEntry(root, entry.Path())
		if err != nil {
			return err
		}
		p.Options.EntryPointsAdvanced = []api.EntryPoint{{InputPath: input}}
		p.Entries = []EntryRef{{Name: "bundle", MetaKey: key}}
		return nil
	}

	vendors := map[string][]string{}
	for _, named := range entry.Named() {
		ref := EntryRef{Name: named.Name}
		var input string
		if named.Modules != nil {
			input = vendorNamespace + ":" + named.Name
			vendors[named.Name] = named.Modules
			ref.MetaKey = input
		} else {
			abs, key, err := fileEntry(root, named.Path)
			if err != nil {
				return err
			}
			input, ref.MetaKey = abs, key
		}
		p.Options.EntryPointsAdvanced = append(p.Options.EntryPointsAdvanced, api.EntryPoint{
			InputPath:  input,
			OutputPath: named.Name,
		})
		p.Entries = append(p.Entries, ref)
	}

	if len(vendors) > 0 {
		p.Options.Plugins = append(p.Options.Plugins, vendorPlugin(vendors, root))
	}
	return nil
}

// fileEntry returns the absolute input path of a file entry and the key
// esbuild reports for it in the metafile.
func fileEntry(root, path string) (string, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve entry %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve entry %s: %w", path, err)
	}
	return abs, filepath.ToSlash(rel), nil
}

func (p *Plan) addRules(rules []buildconfig.Rule) {
	for _, rule := range rules {
		chain := rule.Chain()
		exts := rule.Test.Extensions()

		switch {
		case len(chain) == 1 && chain[0] == buildconfig.BabelLoader && exts != nil:
			for _, ext := range exts {
				p.Options.Loader[ext] = api.LoaderJSX
			}
		case len(chain) == 1 && chain[0] == buildconfig.URLLoader && exts != nil:
			opts := rule.Use[0].Options
			for _, ext := range exts {
				p.Options.Loader[ext] = api.LoaderFile
			}
			if opts != nil {
				p.Options.AssetNames = assetNames(opts.Name)
				p.Options.Plugins = append(p.Options.Plugins, inlinePlugin(string(rule.Test), opts.Limit))
			}
		default:
			p.Unsupported = append(p.Unsupported, fmt.Sprintf("%s (%s)", rule.Test, strings.Join(chain, " -> ")))
		}
	}
}

// assetNames drops the extension token, esbuild appends the extension itself.
func assetNames(name string) string {
	if name == "" {
		return ""
	}
	return strings.ReplaceAll(strings.TrimSuffix(name, ".[ext]"), "[ext]", "")
}

func (p *Plan) addPlugins(opts buildconfig.BuildOptions) {
	if defs := opts.Definitions(); len(defs) > 0 {
		p.Options.Define = defs
	}

	for _, plugin := range opts.Plugins {
		switch plugin.Kind {
		case buildconfig.HTMLPlugin:
			page := &PageOptions{}
			if plugin.Options != nil {
				page.Title = plugin.Options.Title
				page.Template = plugin.Options.Template
			}
			p.HTML = page
		case buildconfig.HotModuleReplacementPlugin:
			p.LiveReload = true
		case buildconfig.NoEmitOnErrorsPlugin:
			p.FailFast = true
		case buildconfig.CommonsChunkPlugin:
			// shared code lands in split chunks, which esbuild only
			// supports for ESM output
			p.Options.Splitting = true
			p.Options.Format = api.FormatESModule
			p.Options.ChunkNames = "chunks/[name].[hash]"
		}
	}

	p.orderEntries(opts.SharedChunks())
}

// orderEntries moves shared-chunk entries ahead of the application entry.
func (p *Plan) orderEntries(shared []string) {
	if len(shared) == 0 {
		return
	}
	var first, rest []EntryRef
	for _, ref := range p.Entries {
		if slices.Contains(shared, ref.Name) {
			first = append(first, ref)
		} else {
			rest = append(rest, ref)
		}
	}
	p.Entries = append(first, rest...)
}
