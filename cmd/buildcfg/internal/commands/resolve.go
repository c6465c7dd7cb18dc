package commands

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/buildcfg/internal/buildconfig"
	"github.com/wolfeidau/buildcfg/internal/render"
)

// ResolveCmd prints the build options record for the selected mode.
type ResolveCmd struct {
	Format string `help:"Output format (json, yaml, js), inferred from --out when unset."`
	Out    string `help:"Write to this file instead of stdout." type:"path"`
}

func (c *ResolveCmd) Run(ctx context.Context, globals *Globals) error {
	opts, _, err := globals.resolve()
	if err != nil {
		return err
	}

	format, err := c.format()
	if err != nil {
		return err
	}

	fingerprint, err := buildconfig.Fingerprint(opts)
	if err != nil {
		return err
	}
	log.Debug().
		Str("mode", opts.Mode.String()).
		Str("format", string(format)).
		Str("fingerprint", fingerprint).
		Msg("Resolved build options")

	if c.Out == "" {
		return render.Render(os.Stdout, opts, format)
	}

	if err := render.WriteFile(globals.fs(), c.Out, opts, format); err != nil {
		return err
	}
	log.Info().Str("path", c.Out).Str("format", string(format)).Msg("Wrote build options")
	return nil
}

func (c *ResolveCmd) format() (render.Format, error) {
	switch {
	case c.Format != "":
		return render.ParseFormat(c.Format)
	case c.Out != "":
		return render.FormatForPath(c.Out)
	default:
		return render.JSON, nil
	}
}
