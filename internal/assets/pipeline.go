package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/buildcfg/internal/buildconfig"
	"github.com/wolfeidau/buildcfg/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MetafileName is written to the output directory after every build.
const MetafileName = "meta.json"

const tracerName = "github.com/wolfeidau/buildcfg/internal/assets"

var (
	ErrBuildFailed = errors.New("build failed")
	ErrNotBuilt    = errors.New("assets not built yet, call Build() first")
)

// Pipeline runs esbuild for a plan and keeps the metadata of the latest build.
type Pipeline struct {
	plan     Plan
	tmpl     *template.Template
	mu       sync.RWMutex
	metadata *BuildMetadata
}

// Output is a file produced by a build, relative to the output directory.
type Output struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Report summarises a single build.
type Report struct {
	ID          uuid.UUID        `json:"id"`
	Mode        buildconfig.Mode `json:"mode"`
	Fingerprint string           `json:"fingerprint"`
	Outputs     []Output         `json:"outputs"`
	Compressed  []Output         `json:"compressed,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
	Errors      []string         `json:"errors,omitempty"`
	Unsupported []string         `json:"unsupported,omitempty"`
	Duration    time.Duration    `json:"duration"`
}

// New creates a pipeline, loading the page template when the plan generates
// an HTML page.
func New(plan Plan) (*Pipeline, error) {
	tmpl, err := loadPageTemplate(plan.HTML)
	if err != nil {
		return nil, err
	}
	return &Pipeline{plan: plan, tmpl: tmpl}, nil
}

// Plan returns the esbuild plan the pipeline runs.
func (p *Pipeline) Plan() Plan {
	return p.plan
}

// Build runs esbuild once and processes the result.
func (p *Pipeline) Build(ctx context.Context) (Report, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "assets.Build", trace.WithAttributes(
		attribute.String("mode", p.plan.Mode.String()),
		attribute.String("fingerprint", p.plan.Fingerprint),
	))
	defer span.End()

	for _, rule := range p.plan.Unsupported {
		log.Warn().Str("rule", rule).Msg("Rule has no esbuild equivalent, skipping")
	}

	log.Info().
		Str("mode", p.plan.Mode.String()).
		Str("outdir", p.plan.OutputDir).
		Int("entries", len(p.plan.Entries)).
		Msg("Building assets")

	start := time.Now()
	result := api.Build(p.plan.Options)
	report, err := p.Finish(ctx, &result)
	report.Duration = time.Since(start)

	attrs := metric.WithAttributes(attribute.String("mode", p.plan.Mode.String()))
	metrics := telemetry.GetMetrics()
	metrics.BuildsTotal.Add(ctx, 1, attrs)
	metrics.BuildDuration.Record(ctx, float64(report.Duration.Milliseconds()), attrs)

	if err != nil {
		metrics.BuildErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return report, err
	}

	log.Info().
		Str("id", report.ID.String()).
		Int("outputs", len(report.Outputs)).
		Dur("duration", report.Duration).
		Msg("Build complete")
	return report, nil
}

// Finish processes a completed esbuild result. It reports messages, writes
// the outputs when esbuild did not, then writes the metafile, the page and
// the compressed outputs.
func (p *Pipeline) Finish(ctx context.Context, result *api.BuildResult) (Report, error) {
	report, err := p.observe(result)
	if err != nil {
		return report, err
	}

	if !p.plan.Options.Write {
		for _, file := range result.OutputFiles {
			if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
				return report, fmt.Errorf("failed to create output dir: %w", err)
			}
			if err := os.WriteFile(file.Path, file.Contents, 0o644); err != nil { //nolint:gosec
				return report, fmt.Errorf("failed to write output: %w", err)
			}
		}
	}

	if err := os.MkdirAll(p.plan.OutputDir, 0o755); err != nil {
		return report, fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.plan.OutputDir, MetafileName), []byte(result.Metafile), 0o600); err != nil {
		return report, fmt.Errorf("failed to write metafile: %w", err)
	}

	written := make([]string, 0, len(report.Outputs)+1)
	for _, out := range report.Outputs {
		written = append(written, filepath.Join(p.plan.OutputDir, filepath.FromSlash(out.Path)))
		telemetry.GetMetrics().OutputBytesTotal.Add(ctx, out.Bytes)
	}

	if p.tmpl != nil {
		path, err := p.writePage()
		if err != nil {
			return report, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return report, fmt.Errorf("failed to stat page: %w", err)
		}
		report.Outputs = append(report.Outputs, Output{Path: PageName, Bytes: info.Size()})
		written = append(written, path)
	}

	if p.plan.Compress {
		compressed, err := compressOutputs(ctx, written)
		if err != nil {
			return report, err
		}
		for _, path := range compressed {
			info, err := os.Stat(path)
			if err != nil {
				return report, fmt.Errorf("failed to stat compressed output: %w", err)
			}
			report.Compressed = append(report.Compressed, Output{Path: p.relOutput(path), Bytes: info.Size()})
		}
	}

	for _, out := range report.Outputs {
		log.Debug().Str("file", out.Path).Int64("bytes", out.Bytes).Msg("Built file")
	}
	return report, nil
}

// observe logs the messages of a result and, when it succeeded, caches its
// metadata.
func (p *Pipeline) observe(result *api.BuildResult) (Report, error) {
	report := Report{
		ID:          uuid.New(),
		Mode:        p.plan.Mode,
		Fingerprint: p.plan.Fingerprint,
		Unsupported: p.plan.Unsupported,
	}

	for _, msg := range result.Warnings {
		text := formatMessage(msg)
		log.Warn().Str("warning", text).Msg("Build warning")
		report.Warnings = append(report.Warnings, text)
	}

	if len(result.Errors) > 0 {
		errs := []error{ErrBuildFailed}
		for _, msg := range result.Errors {
			text := formatMessage(msg)
			log.Error().Str("error", text).Msg("Build error")
			report.Errors = append(report.Errors, text)
			errs = append(errs, errors.New(text))
		}
		return report, errors.Join(errs...)
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return report, fmt.Errorf("failed to parse metafile: %w", err)
	}

	for _, key := range slices.Sorted(maps.Keys(metadata.Outputs)) {
		report.Outputs = append(report.Outputs, Output{
			Path:  strings.TrimPrefix(p.href(key), "/"),
			Bytes: int64(metadata.Outputs[key].Bytes),
		})
	}

	p.mu.Lock()
	p.metadata = &metadata
	p.mu.Unlock()

	return report, nil
}

// Hook returns an esbuild plugin that processes every build of a long running
// esbuild context and passes the outcome to fn. The reported duration runs
// from the start of the esbuild build to the end of post processing.
func (p *Pipeline) Hook(fn func(Report, error)) api.Plugin {
	var (
		mu    sync.Mutex
		start time.Time
	)
	return hookPlugin(func() {
		mu.Lock()
		start = time.Now()
		mu.Unlock()
	}, func(result *api.BuildResult) {
		report, err := p.observe(result)
		mu.Lock()
		report.Duration = time.Since(start)
		mu.Unlock()
		fn(report, err)
	})
}

// LoadScripts returns the ordered list of script paths needed for the named
// entry and the entry's own script path.
func (p *Pipeline) LoadScripts(name string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info, key, err := p.entryOutput(name)
	if err != nil {
		return nil, "", err
	}

	entrypoint := p.href(key)
	scripts := []string{entrypoint}
	visited := map[string]bool{key: true}
	p.addDependencies(info, &scripts, visited)
	return scripts, entrypoint, nil
}

// Stylesheet returns the path of the stylesheet bundled for the named entry.
func (p *Pipeline) Stylesheet(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info, _, err := p.entryOutput(name)
	if err != nil || info.CSSBundle == "" {
		return "", false
	}
	return p.href(info.CSSBundle), true
}

func (p *Pipeline) entryOutput(name string) (OutputInfo, string, error) {
	if p.metadata == nil {
		return OutputInfo{}, "", ErrNotBuilt
	}

	var metaKey string
	for _, ref := range p.plan.Entries {
		if ref.Name == name {
			metaKey = ref.MetaKey
		}
	}
	if metaKey == "" {
		return OutputInfo{}, "", fmt.Errorf("unknown entry %q", name)
	}

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == metaKey && strings.HasSuffix(outputPath, ".js") {
			return info, outputPath, nil
		}
	}
	return OutputInfo{}, "", fmt.Errorf("entry %q not found in metadata", name)
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.External || visited[imp.Path] || !strings.HasSuffix(imp.Path, ".js") {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, p.href(imp.Path))

		if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
			p.addDependencies(chunkInfo, scripts, visited)
		}
	}
}

// href maps a metafile output path onto a URL path rooted at the output dir.
func (p *Pipeline) href(key string) string {
	return "/" + p.relOutput(filepath.Join(p.plan.Root, filepath.FromSlash(key)))
}

func (p *Pipeline) relOutput(path string) string {
	rel, err := filepath.Rel(p.plan.OutputDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}
