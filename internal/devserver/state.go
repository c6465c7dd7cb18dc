package devserver

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/buildcfg/internal/assets"
	"github.com/wolfeidau/buildcfg/internal/telemetry"
)

// buildState is the outcome of the latest esbuild rebuild.
type buildState struct {
	mu       sync.RWMutex
	finished bool
	errors   []string
}

func (b *buildState) record(report assets.Report, err error) {
	b.mu.Lock()
	b.finished = true
	b.errors = report.Errors
	b.mu.Unlock()

	telemetry.GetMetrics().RebuildsTotal.Add(context.Background(), 1)

	if err != nil {
		log.Error().Int("errors", len(report.Errors)).Msg("Rebuild failed")
		return
	}
	log.Info().
		Int("outputs", len(report.Outputs)).
		Int("warnings", len(report.Warnings)).
		Dur("duration", report.Duration).
		Msg("Rebuild complete")
}

func (b *buildState) built() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.finished
}

// failures returns the errors of the latest build.
func (b *buildState) failures() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.errors...)
}
