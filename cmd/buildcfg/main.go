package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/buildcfg/cmd/buildcfg/internal/commands"
	"github.com/wolfeidau/buildcfg/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool   `help:"Enable debug mode." env:"BUILDCFG_DEBUG"`
		Mode    string `help:"Build mode, development or production. Anything else resolves to production." env:"NODE_ENV"`
		Strict  bool   `help:"Reject modes other than development and production." env:"BUILDCFG_STRICT"`
		Dir     string `help:"Project directory." default:"." type:"existingdir" env:"BUILDCFG_DIR"`
		Version kong.VersionFlag

		Resolve  commands.ResolveCmd  `cmd:"" help:"Print the resolved build options"`
		Validate commands.ValidateCmd `cmd:"" help:"Validate a build options document"`
		Build    commands.BuildCmd    `cmd:"" help:"Bundle the project with esbuild"`
		Serve    commands.ServeCmd    `cmd:"" help:"Start the development server"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("buildcfg"),
		kong.Description("Resolve and run front-end build configurations."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		Mode:    cli.Mode,
		Strict:  cli.Strict,
		Dir:     cli.Dir,
	})
	cmd.FatalIfErrorf(err)
}
