package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/wolfeidau/buildcfg/internal/render"
)

// ValidateCmd checks a JSON or YAML build options document against the
// contract schema.
type ValidateCmd struct {
	File string `arg:"" help:"Document to validate." type:"path"`
}

func (c *ValidateCmd) Run(ctx context.Context, globals *Globals) error {
	doc, err := afero.ReadFile(globals.fs(), c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}

	if err := render.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}

	log.Info().Str("path", c.File).Msg("Build options are valid")
	return nil
}
