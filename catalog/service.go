package catalog

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/filmjoin/ident"
	"github.com/jonwraymond/filmjoin/join"
	"github.com/jonwraymond/filmjoin/observe"
	"github.com/jonwraymond/filmjoin/upstream"
)

// Source yields one collection per resource. *cache.ResponseCache satisfies it.
//
//go:generate mockgen -source=service.go -destination=mocks/mock_source.go -package=mocks
type Source interface {
	Get(ctx context.Context, r upstream.Resource) (upstream.Collection, error)
}

// Service produces enriched works.
//
// Contract:
//   - Concurrency: safe for concurrent use; each call aggregates independently.
//   - Context: cancellation is passed to both fetches.
//   - Errors: failures are *AggregationError; no partial results, no retries.
type Service struct {
	source    Source
	extractor *ident.Extractor
	mw        *observe.Middleware
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor sets how agent film references are resolved to work ids.
func WithExtractor(x *ident.Extractor) Option {
	return func(s *Service) {
		if x != nil {
			s.extractor = x
		}
	}
}

// WithMiddleware instruments each aggregation with mw.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(s *Service) {
		if mw != nil {
			s.mw = mw
		}
	}
}

// New creates a Service reading from source.
func New(source Source, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	s := &Service{
		source:    source,
		extractor: ident.New(ident.DefaultMarker),
		mw:        observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnrichedWorks fetches both collections and returns the works with their people.
func (s *Service) EnrichedWorks(ctx context.Context) ([]join.Work, error) {
	var out []join.Work
	err := s.mw.Run(ctx, observe.Op{Component: "catalog", Name: "aggregate"}, func(ctx context.Context) error {
		var err error
		out, err = s.aggregate(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) aggregate(ctx context.Context) ([]join.Work, error) {
	state := StateIdle
	span := trace.SpanFromContext(ctx)
	defer func() {
		span.SetAttributes(attribute.String("catalog.state", state.String()))
	}()

	state = StateFetching
	var works, agents upstream.Collection
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		works, err = s.fetch(gctx, upstream.Works)
		return err
	})
	g.Go(func() error {
		var err error
		agents, err = s.fetch(gctx, upstream.Agents)
		return err
	})
	if err := g.Wait(); err != nil {
		state = StateFailed
		return nil, err
	}

	state = StateJoining
	result := join.Join(s.decodeWorks(works), s.decodeAgents(ctx, agents))

	state = StateDone
	return result, nil
}

func (s *Service) fetch(ctx context.Context, r upstream.Resource) (upstream.Collection, error) {
	coll, err := s.source.Get(ctx, r)
	if err != nil {
		return nil, &AggregationError{Resource: r, Err: err}
	}
	return coll, nil
}

func (s *Service) decodeWorks(coll upstream.Collection) []join.Work {
	works := make([]join.Work, len(coll))
	for i, rec := range coll {
		works[i] = join.Work{ID: rec.ID, Title: rec.Title, People: []string{}}
	}
	return works
}

func (s *Service) decodeAgents(ctx context.Context, coll upstream.Collection) []join.Agent {
	logger := s.mw.Logger()
	agents := make([]join.Agent, len(coll))
	for i, rec := range coll {
		films := s.extractor.ExtractAll(rec.Films, func(ref string, err error) {
			logger.Warn(ctx, "skipping unresolvable film reference",
				observe.F("agent_id", rec.ID),
				observe.F("ref", ref),
				observe.F("error", err),
			)
		})
		agents[i] = join.Agent{ID: rec.ID, Name: rec.Name, Films: films}
	}
	return agents
}
