package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/filmjoin/catalog"
	"github.com/jonwraymond/filmjoin/health"
	"github.com/jonwraymond/filmjoin/join"
	"github.com/jonwraymond/filmjoin/observe"
)

// NoDataMessage is the body returned when aggregation fails.
const NoDataMessage = "No data found"

//go:embed templates/*.html
var templateFS embed.FS

var moviesTemplate = template.Must(template.ParseFS(templateFS, "templates/movies.html"))

// WorksProvider yields enriched works. *catalog.Service satisfies it.
type WorksProvider interface {
	EnrichedWorks(ctx context.Context) ([]join.Work, error)
}

// Server routes HTTP requests to the catalog.
type Server struct {
	works      WorksProvider
	health     *health.Aggregator
	mw         *observe.Middleware
	prometheus bool
}

// Option configures a Server.
type Option func(*Server)

// WithMiddleware instruments every request with mw.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(s *Server) {
		if mw != nil {
			s.mw = mw
		}
	}
}

// WithHealth serves the health endpoints from agg.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) {
		s.health = agg
	}
}

// WithPrometheus mounts /metrics on the default Prometheus registry.
func WithPrometheus() Option {
	return func(s *Server) {
		s.prometheus = true
	}
}

// New creates a Server for works.
func New(works WorksProvider, opts ...Option) *Server {
	s := &Server{
		works: works,
		mw:    observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the root handler with every route mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.instrument("index", http.RedirectHandler("/movies", http.StatusFound)))
	mux.Handle("GET /movies", s.instrument("movies", http.HandlerFunc(s.handleMovies)))
	mux.Handle("GET /api/movies", s.instrument("api_movies", http.HandlerFunc(s.handleAPIMovies)))

	if s.health != nil {
		health.RegisterHandlers(mux, s.health)
	}
	if s.prometheus {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	return mux
}

func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	works, err := s.works.EnrichedWorks(r.Context())
	if err != nil {
		s.logFailure(r.Context(), err)
		http.Error(w, NoDataMessage, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := moviesTemplate.Execute(w, struct{ Works []join.Work }{works}); err != nil {
		s.mw.Logger().Error(r.Context(), "render movies", observe.F("error", err))
	}
}

// errorResponse is the JSON body of a failed API call.
type errorResponse struct {
	Error    string `json:"error"`
	Resource string `json:"resource,omitempty"`
}

func (s *Server) handleAPIMovies(w http.ResponseWriter, r *http.Request) {
	works, err := s.works.EnrichedWorks(r.Context())
	if err != nil {
		s.logFailure(r.Context(), err)
		resp := errorResponse{Error: NoDataMessage}
		var aggErr *catalog.AggregationError
		if errors.As(err, &aggErr) {
			resp.Resource = aggErr.Resource.String()
		}
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, works)
}

func (s *Server) logFailure(ctx context.Context, err error) {
	fields := []observe.Field{observe.F("error", err)}
	var aggErr *catalog.AggregationError
	if errors.As(err, &aggErr) {
		fields = append(fields, observe.F("resource", aggErr.Resource.String()))
	}
	s.mw.Logger().Warn(ctx, "aggregation failed", fields...)
}
