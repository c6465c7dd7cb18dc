package buildconfig

import (
	"slices"
	"strconv"
)

// Resolve builds the options record for the given environment flag. Any flag
// other than "development" resolves to the production branch.
func Resolve(flag string, layout Layout) BuildOptions {
	return ResolveMode(ParseMode(flag), layout)
}

// ResolveMode builds the options record for mode. Every call returns a fresh
// record that shares no slices or pointers with earlier results.
func ResolveMode(mode Mode, layout Layout) BuildOptions {
	if mode.IsDev() {
		return development(base(mode, layout))
	}
	return production(base(mode, layout), layout)
}

// base is the mode-invariant part of the record.
func base(mode Mode, layout Layout) BuildOptions {
	return BuildOptions{
		Mode:   mode,
		Target: Target,
		Entry:  SingleEntry(layout.EntryPath()),
		Output: Output{
			Filename: "bundle." + ContentHash.Placeholder() + ".js",
			Path:     layout.OutputPath(),
			Naming:   ContentHash,
		},
		Module: Module{
			Rules: []Rule{
				{Test: VuePattern, Loader: VueLoader},
				{Test: JSXPattern, Loader: BabelLoader},
				{
					Test: ImagePattern,
					Use: []Loader{{
						Loader: URLLoader,
						Options: &LoaderOptions{
							Limit: AssetInlineLimit,
							Name:  "[name].[ext]",
						},
					}},
				},
			},
		},
		Plugins: []Plugin{
			{
				Kind: DefinePlugin,
				Options: &PluginOptions{
					Definitions: map[string]string{
						"process.env.NODE_ENV": strconv.Quote(mode.String()),
					},
				},
			},
			htmlPlugin(layout),
		},
	}
}

func htmlPlugin(layout Layout) Plugin {
	if layout.Title == "" && layout.Template == "" {
		return Plugin{Kind: HTMLPlugin}
	}
	return Plugin{
		Kind: HTMLPlugin,
		Options: &PluginOptions{
			Title:    layout.Title,
			Template: layout.TemplatePath(),
		},
	}
}

func development(opts BuildOptions) BuildOptions {
	opts.Module.Rules = slices.Concat(opts.Module.Rules, []Rule{{
		Test: StylusPattern,
		Use:  stylusChain(StyleLoader),
	}})
	opts.Devtool = Devtool
	opts.DevServer = &DevServer{
		Port:    DevServerPort,
		Host:    DevServerHost,
		Overlay: Overlay{Errors: true},
		Hot:     true,
		Open:    true,
	}
	opts.Plugins = slices.Concat(opts.Plugins, []Plugin{
		{Kind: HotModuleReplacementPlugin},
		{Kind: NoEmitOnErrorsPlugin},
	})
	return opts
}

func production(opts BuildOptions, layout Layout) BuildOptions {
	opts.Entry = NamedEntries(
		NamedEntry{Name: AppEntry, Path: layout.EntryPath()},
		NamedEntry{Name: VendorChunk, Modules: slices.Clone(vendorModules(layout))},
	)
	opts.Output.Naming = ChunkHash
	opts.Output.Filename = "[name]." + ChunkHash.Placeholder() + ".js"
	opts.Module.Rules = slices.Concat(opts.Module.Rules, []Rule{{
		Test: StylusPattern,
		Extract: &Extract{
			Fallback: StyleLoader,
			Use:      stylusChain(),
		},
	}})
	opts.Plugins = slices.Concat(opts.Plugins, []Plugin{
		{Kind: ExtractTextPlugin, Options: &PluginOptions{Filename: ExtractedStylesFilename}},
		{Kind: CommonsChunkPlugin, Options: &PluginOptions{Name: VendorChunk}},
		{Kind: CommonsChunkPlugin, Options: &PluginOptions{Name: RuntimeChunk}},
	})
	return opts
}

// stylusChain is css -> postcss -> stylus, preceded by the given loaders.
func stylusChain(prefix ...string) []Loader {
	chain := make([]Loader, 0, len(prefix)+3)
	for _, name := range prefix {
		chain = append(chain, Loader{Loader: name})
	}
	return append(chain,
		Loader{Loader: CSSLoader},
		Loader{Loader: PostCSSLoader, Options: &LoaderOptions{SourceMap: true}},
		Loader{Loader: StylusLoader},
	)
}

func vendorModules(layout Layout) []string {
	if len(layout.Vendor) == 0 {
		return DefaultLayout().Vendor
	}
	return layout.Vendor
}
