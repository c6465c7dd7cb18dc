package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/buildcfg/internal/devserver"
)

// ServeCmd runs the development server. The mode must resolve to
// development.
type ServeCmd struct {
	Tracing     bool     `help:"enable tracing" default:"false" env:"BUILDCFG_TRACING"`
	CORSOrigins []string `help:"allowed CORS origins" env:"BUILDCFG_CORS_ORIGINS"`
	NoOpen      bool     `help:"do not open the browser" default:"false"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := setupTelemetry(ctx, c.Tracing, globals.Version)
	defer shutdown()

	opts, layout, err := globals.resolve()
	if err != nil {
		return err
	}

	srv, err := devserver.New(opts, layout, devserver.Config{
		CORSOrigins: c.CORSOrigins,
		Tracing:     c.Tracing,
		OpenBrowser: !c.NoOpen,
	})
	if err != nil {
		return err
	}

	log.Info().Str("version", globals.Version).Str("addr", srv.Addr()).Msg("Starting dev server")
	return srv.Run(ctx)
}
