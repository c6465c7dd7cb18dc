package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/wolfeidau/buildcfg/internal/buildconfig"
	"github.com/wolfeidau/buildcfg/internal/project"
	"github.com/wolfeidau/buildcfg/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Version string
	Mode    string
	Strict  bool
	Dir     string

	// FS defaults to the OS filesystem.
	FS afero.Fs
}

func (g *Globals) fs() afero.Fs {
	if g.FS == nil {
		return afero.NewOsFs()
	}
	return g.FS
}

// resolve loads the project layout and resolves the options for the
// selected mode.
func (g *Globals) resolve() (buildconfig.BuildOptions, buildconfig.Layout, error) {
	layout, err := project.Load(g.fs(), g.dir())
	if err != nil {
		return buildconfig.BuildOptions{}, buildconfig.Layout{}, err
	}

	mode := buildconfig.ParseMode(g.Mode)
	if g.Strict {
		mode, err = buildconfig.ParseModeStrict(g.Mode)
		if err != nil {
			return buildconfig.BuildOptions{}, buildconfig.Layout{}, err
		}
	} else if g.Mode != mode.String() {
		log.Debug().Str("mode", g.Mode).Msg("Unrecognised mode, resolving production")
	}

	opts := buildconfig.ResolveMode(mode, layout)
	if err := opts.Validate(); err != nil {
		return buildconfig.BuildOptions{}, buildconfig.Layout{}, err
	}
	return opts, layout, nil
}

func (g *Globals) dir() string {
	if g.Dir == "" {
		return "."
	}
	return g.Dir
}

// setupTelemetry installs the OTLP exporters when enabled and returns the
// function that flushes them.
func setupTelemetry(ctx context.Context, enabled bool, version string) func() {
	if !enabled {
		return func() {}
	}

	log.Info().Msg("Tracing is enabled")
	shutdown, err := telemetry.Init(ctx, telemetry.Config{ServiceName: "buildcfg", Version: version})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}
