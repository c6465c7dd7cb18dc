package assets

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/buildcfg/internal/telemetry"
)

const vendorNamespace = "vendor-entry"

// vendorPlugin serves each vendor entry as a virtual module that imports the
// listed packages, so esbuild can split them into a shared chunk.
func vendorPlugin(vendors map[string][]string, resolveDir string) api.Plugin {
	return api.Plugin{
		Name: vendorNamespace,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + vendorNamespace + ":"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:      strings.TrimPrefix(args.Path, vendorNamespace+":"),
						Namespace: vendorNamespace,
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: vendorNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					modules, ok := vendors[args.Path]
					if !ok {
						return api.OnLoadResult{}, fmt.Errorf("unknown vendor entry %q", args.Path)
					}
					contents := vendorSource(modules)
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: resolveDir,
						Loader:     api.LoaderJS,
					}, nil
				})
		},
	}
}

func vendorSource(modules []string) string {
	var b strings.Builder
	for _, m := range modules {
		b.WriteString("import " + strconv.Quote(m) + ";\n")
	}
	return b.String()
}

// inlinePlugin embeds matching files smaller than limit bytes as data URLs
// and emits the rest as separate files.
func inlinePlugin(filter string, limit int) api.Plugin {
	return api.Plugin{
		Name: "inline-assets",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: filter, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					data, err := os.ReadFile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					contents := string(data)

					if len(data) < limit {
						telemetry.GetMetrics().AssetsInlinedTotal.Add(context.Background(), 1)
						return api.OnLoadResult{Contents: &contents, Loader: api.LoaderDataURL}, nil
					}
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderFile}, nil
				})
		},
	}
}

// hookPlugin calls onStart before and onEnd after every build, including
// watch rebuilds.
func hookPlugin(onStart func(), onEnd func(result *api.BuildResult)) api.Plugin {
	return api.Plugin{
		Name: "buildcfg-hooks",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				onStart()
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				onEnd(result)
				return api.OnEndResult{}, nil
			})
		},
	}
}
