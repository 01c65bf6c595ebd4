package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jonwraymond/filmjoin/catalog"
	"github.com/jonwraymond/filmjoin/catalog/mocks"
	"github.com/jonwraymond/filmjoin/ident"
	"github.com/jonwraymond/filmjoin/join"
	"github.com/jonwraymond/filmjoin/observe"
	"github.com/jonwraymond/filmjoin/upstream"
)

var worksA = upstream.Collection{{ID: "1", Title: "A"}}

func newService(t *testing.T, src catalog.Source, opts ...catalog.Option) *catalog.Service {
	t.Helper()
	svc, err := catalog.New(src, opts...)
	require.NoError(t, err)
	return svc
}

func TestNew_NilSource(t *testing.T) {
	_, err := catalog.New(nil)
	assert.ErrorIs(t, err, catalog.ErrNilSource)
}

func TestEnrichedWorks(t *testing.T) {
	tests := []struct {
		name   string
		works  upstream.Collection
		agents upstream.Collection
		want   []join.Work
	}{
		{
			name:   "matched reference",
			works:  worksA,
			agents: upstream.Collection{{ID: "p1", Name: "Bob", Films: []string{"http://x/films/1"}}},
			want:   []join.Work{{ID: "1", Title: "A", People: []string{"Bob"}}},
		},
		{
			name:   "dangling reference",
			works:  worksA,
			agents: upstream.Collection{{ID: "p2", Name: "Sue", Films: []string{"http://x/films/2"}}},
			want:   []join.Work{{ID: "1", Title: "A", People: []string{}}},
		},
		{
			name:  "many to many",
			works: upstream.Collection{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}},
			agents: upstream.Collection{
				{ID: "p1", Name: "Bob", Films: []string{"http://x/films/1", "http://x/films/2", "http://x/films/1"}},
				{ID: "p2", Name: "Sue", Films: []string{"http://x/films/2"}},
			},
			want: []join.Work{
				{ID: "1", Title: "A", People: []string{"Bob"}},
				{ID: "2", Title: "B", People: []string{"Bob", "Sue"}},
			},
		},
		{
			name:   "empty collections",
			works:  upstream.Collection{},
			agents: upstream.Collection{},
			want:   []join.Work{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src := mocks.NewMockSource(ctrl)
			src.EXPECT().Get(gomock.Any(), upstream.Works).Return(tt.works, nil)
			src.EXPECT().Get(gomock.Any(), upstream.Agents).Return(tt.agents, nil)

			got, err := newService(t, src).EnrichedWorks(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnrichedWorks_AllOrNothing(t *testing.T) {
	down := &upstream.NetworkError{Resource: upstream.Agents, StatusCode: 503, Err: upstream.ErrStatus}

	tests := []struct {
		name      string
		worksErr  error
		agentsErr error
		failed    upstream.Resource
	}{
		{"works fail", &upstream.NetworkError{Resource: upstream.Works, Err: upstream.ErrRequest}, nil, upstream.Works},
		{"agents fail", nil, down, upstream.Agents},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src := mocks.NewMockSource(ctrl)
			var works, agents upstream.Collection
			if tt.worksErr == nil {
				works = worksA
			}
			if tt.agentsErr == nil {
				agents = upstream.Collection{{ID: "p1", Name: "Bob"}}
			}
			src.EXPECT().Get(gomock.Any(), upstream.Works).Return(works, tt.worksErr).MaxTimes(1)
			src.EXPECT().Get(gomock.Any(), upstream.Agents).Return(agents, tt.agentsErr).MaxTimes(1)

			got, err := newService(t, src).EnrichedWorks(context.Background())

			assert.Nil(t, got)
			var aggErr *catalog.AggregationError
			require.ErrorAs(t, err, &aggErr)
			assert.Equal(t, tt.failed, aggErr.Resource)

			var netErr *upstream.NetworkError
			require.ErrorAs(t, err, &netErr)
			assert.Equal(t, tt.failed, netErr.Resource)
		})
	}
}

func TestEnrichedWorks_NoRetryOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().Get(gomock.Any(), upstream.Works).Return(nil, errors.New("down")).Times(1)
	src.EXPECT().Get(gomock.Any(), upstream.Agents).Return(upstream.Collection{}, nil).MaxTimes(1)

	_, err := newService(t, src).EnrichedWorks(context.Background())

	assert.EqualError(t, err, "catalog: fetch films: down")
}

func TestEnrichedWorks_SkipsBadReferences(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().Get(gomock.Any(), upstream.Works).Return(worksA, nil)
	src.EXPECT().Get(gomock.Any(), upstream.Agents).Return(upstream.Collection{
		{ID: "p1", Name: "Bob", Films: []string{"http://x/species/7", "http://x/films/1", "http://x/films/"}},
	}, nil)

	var buf bytes.Buffer
	mw := observe.NewMiddleware(nil, nil, observe.NewLoggerWithWriter("warn", &buf))

	got, err := newService(t, src, catalog.WithMiddleware(mw)).EnrichedWorks(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, got[0].People)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "p1", entry["agent_id"])
	assert.Equal(t, "http://x/species/7", entry["ref"])
}

func TestEnrichedWorks_CustomMarker(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().Get(gomock.Any(), upstream.Works).Return(worksA, nil)
	src.EXPECT().Get(gomock.Any(), upstream.Agents).Return(upstream.Collection{
		{ID: "p1", Name: "Bob", Films: []string{"http://x/movies/1"}},
	}, nil)

	svc := newService(t, src, catalog.WithExtractor(ident.New("movies/")))
	got, err := svc.EnrichedWorks(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, got[0].People)
}

func TestEnrichedWorks_ReferencesMatchVerbatim(t *testing.T) {
	agents := upstream.Collection{
		{ID: "p1", Name: "Bob", Films: []string{"http://x/films/1/"}},
		{ID: "p2", Name: "Sue", Films: []string{"http://x/films/1?lang=en"}},
	}

	tests := []struct {
		name string
		opts []catalog.Option
		want []string
	}{
		{"default extractor", nil, []string{}},
		{"normalizing extractor", []catalog.Option{catalog.WithExtractor(ident.New(ident.DefaultMarker, ident.WithNormalize()))}, []string{"Bob", "Sue"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src := mocks.NewMockSource(ctrl)
			src.EXPECT().Get(gomock.Any(), upstream.Works).Return(worksA, nil)
			src.EXPECT().Get(gomock.Any(), upstream.Agents).Return(agents, nil)

			got, err := newService(t, src, tt.opts...).EnrichedWorks(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.want, got[0].People)
		})
	}
}

func TestState_String(t *testing.T) {
	want := map[catalog.State]string{
		catalog.StateIdle:     "idle",
		catalog.StateFetching: "fetching",
		catalog.StateJoining:  "joining",
		catalog.StateDone:     "done",
		catalog.StateFailed:   "failed",
		catalog.State(99):     "unknown",
	}
	for s, w := range want {
		assert.Equal(t, w, s.String())
	}
}
