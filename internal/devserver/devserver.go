package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/buildcfg/internal/assets"
	"github.com/wolfeidau/buildcfg/internal/buildconfig"
)

var ErrNotDevelopment = errors.New("build options have no dev server, resolve in development mode")

// Config holds the settings that are not part of the build options.
type Config struct {
	CORSOrigins []string
	Tracing     bool
	// OpenBrowser is ANDed with devServer.open.
	OpenBrowser bool
	// ReadyTimeout bounds the wait for the first build.
	ReadyTimeout time.Duration
}

// Server serves a development build: esbuild watches and serves the bundle on
// a private loopback port, the front server proxies to it on devServer
// host and port.
type Server struct {
	devServer buildconfig.DevServer
	pipeline  *assets.Pipeline
	cfg       Config
	state     *buildState
}

// New creates a dev server for a development options record.
func New(opts buildconfig.BuildOptions, layout buildconfig.Layout, cfg Config) (*Server, error) {
	if opts.DevServer == nil {
		return nil, ErrNotDevelopment
	}

	plan, err := assets.Translate(opts, layout)
	if err != nil {
		return nil, err
	}
	pipeline, err := assets.New(plan)
	if err != nil {
		return nil, err
	}

	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}

	return &Server{
		devServer: *opts.DevServer,
		pipeline:  pipeline,
		cfg:       cfg,
		state:     &buildState{},
	}, nil
}

// Addr is the listen address of the front server.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.devServer.Host, strconv.Itoa(s.devServer.Port))
}

// URL is the address users open in the browser.
func (s *Server) URL() string {
	return "http://" + s.Addr() + "/"
}

// Run starts esbuild and the front server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	plan := s.pipeline.Plan()
	for _, rule := range plan.Unsupported {
		log.Warn().Str("rule", rule).Msg("Rule has no esbuild equivalent, skipping")
	}

	options := plan.Options
	options.Plugins = append(slices.Clone(options.Plugins), s.pipeline.Hook(s.state.record))

	esbuild, ctxErr := api.Context(options)
	if ctxErr != nil {
		return fmt.Errorf("failed to create esbuild context: %w", ctxErr)
	}
	defer esbuild.Dispose()

	if err := esbuild.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watch: %w", err)
	}

	port, err := freePort(upstreamHost)
	if err != nil {
		return err
	}
	serveOpts := api.ServeOptions{Host: upstreamHost}
	setPort(&serveOpts.Port, port)

	served, err := esbuild.Serve(serveOpts)
	if err != nil {
		return fmt.Errorf("failed to start esbuild server: %w", err)
	}
	upstream := &url.URL{Scheme: "http", Host: net.JoinHostPort(upstreamHost, strconv.Itoa(int(served.Port)))}
	log.Debug().Str("upstream", upstream.String()).Msg("esbuild serving")

	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}

	srv := configureHTTPServer(s.Addr(), s.Handler(upstream))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	if err := s.waitReady(ctx, upstream); err != nil {
		_ = srv.Close()
		return err
	}

	log.Info().
		Str("url", s.URL()).
		Bool("hot", s.devServer.Hot).
		Bool("overlay", s.devServer.Overlay.Errors).
		Msg("Dev server ready")

	if s.devServer.Open && s.cfg.OpenBrowser {
		if err := openURL(s.URL()); err != nil {
			log.Warn().Err(err).Msg("Failed to open browser")
		}
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	}

	log.Info().Msg("Shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// waitReady polls until the first build finished and esbuild answers.
func (s *Server) waitReady(ctx context.Context, upstream *url.URL) error {
	client := &http.Client{Timeout: time.Second}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if !s.state.built() {
			return struct{}{}, errors.New("waiting for first build")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, upstream.String(), nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		resp.Body.Close()
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(s.cfg.ReadyTimeout),
	)
	if err != nil {
		return fmt.Errorf("dev server did not become ready: %w", err)
	}
	return nil
}

const upstreamHost = "127.0.0.1"

// freePort asks the kernel for an unused port for the esbuild server. The
// listener is closed before esbuild binds the port, so another process can
// take it in between. Leaving the port to esbuild would pick 8000 and collide
// with the front server.
func freePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("failed to find a free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// setPort assigns the esbuild serve port whichever integer type it has.
func setPort[T ~int | ~uint16](dst *T, port int) {
	*dst = T(port)
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		// the live reload event stream stays open
		WriteTimeout:   0,
		IdleTimeout:    5 * time.Minute,
		MaxHeaderBytes: 8 * 1024, // 8KiB
	}
}
