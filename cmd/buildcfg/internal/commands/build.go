package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/wolfeidau/buildcfg/internal/assets"
)

// BuildCmd bundles the project once with esbuild.
type BuildCmd struct {
	Tracing bool   `help:"enable tracing" default:"false" env:"BUILDCFG_TRACING"`
	Report  string `help:"Write the build report as JSON to this file." type:"path"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	shutdown := setupTelemetry(ctx, c.Tracing, globals.Version)
	defer shutdown()

	opts, layout, err := globals.resolve()
	if err != nil {
		return err
	}

	plan, err := assets.Translate(opts, layout)
	if err != nil {
		return err
	}
	pipeline, err := assets.New(plan)
	if err != nil {
		return err
	}

	report, err := pipeline.Build(ctx)
	if err != nil {
		return err
	}

	for _, out := range report.Outputs {
		log.Info().Str("file", out.Path).Int64("bytes", out.Bytes).Msg("Output")
	}

	if c.Report != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := afero.WriteFile(globals.fs(), c.Report, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}
