package devserver

import (
	"html/template"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/buildcfg/internal/http"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// eventsPath is the esbuild change event stream used for live reload.
const eventsPath = "/esbuild"

var overlayTemplate = template.Must(template.New("overlay").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Build failed</title>
  <style>body{margin:0;background:#1e1e1e;color:#e8e8e8;font-family:monospace}h1{color:#ff5555;padding:1rem 2rem 0}pre{padding:0 2rem;white-space:pre-wrap}</style>
</head>
<body>
  <h1>Failed to compile</h1>
{{- range .Errors }}
  <pre>{{ . }}</pre>
{{- end }}
{{- if .LiveReload }}
  <script>new EventSource("/esbuild").addEventListener("change", () => location.reload())</script>
{{- end }}
</body>
</html>
`))

// Handler routes front server requests: the page is rendered from the latest
// build, the event stream and bundle files are proxied to esbuild.
func (s *Server) Handler(upstream *url.URL) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.FlushInterval = -1

	var page http.Handler = proxy
	if s.pipeline.Plan().HTML != nil {
		page = s.pipeline.Handler()
	}

	mux := http.NewServeMux()
	mux.Handle(eventsPath, proxy)
	mux.Handle("/", gzhttp.GzipHandler(s.overlay(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || r.URL.Path == "/index.html" {
			page.ServeHTTP(w, r)
			return
		}
		proxy.ServeHTTP(w, r)
	}))))

	var handler http.Handler = mux
	handler = httpmiddleware.RequestLogger(log.Logger)(handler)

	if len(s.cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		}).Handler(handler)
	}

	if s.cfg.Tracing {
		handler = otelhttp.NewHandler(handler, "devserver")
	}

	return handler
}

// overlay replaces page navigations with an error listing while the latest
// build failed.
func (s *Server) overlay(next http.Handler) http.Handler {
	if !s.devServer.Overlay.Errors {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failures := s.state.failures()
		if len(failures) == 0 || !isNavigation(r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusInternalServerError)
		err := overlayTemplate.Execute(w, map[string]any{
			"Errors":     failures,
			"LiveReload": s.devServer.Hot,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to render overlay")
		}
	})
}

func isNavigation(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}
