package inkwell

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eringen/inkwell/query"
)

// memGateway serves posts from memory, evaluating predicates with Matches.
type memGateway struct {
	posts []Post
	err   error
	calls atomic.Int32
}

func (g *memGateway) List(ctx context.Context, where query.Predicate, skip, take int) ([]Post, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	var out []Post
	for _, p := range g.posts {
		if where.Matches(p) {
			out = append(out, p)
		}
	}
	if skip >= len(out) {
		return nil, nil
	}
	return out[skip:min(skip+take, len(out))], nil
}

func (g *memGateway) Count(ctx context.Context, where query.Predicate) (int64, error) {
	if g.err != nil {
		return 0, g.err
	}
	var n int64
	for _, p := range g.posts {
		if where.Matches(p) {
			n++
		}
	}
	return n, nil
}

type stubSidebar struct {
	cats []Category
	tags []Tag
	err  error
}

func (s stubSidebar) Sidebar(ctx context.Context) ([]Category, []Tag, error) {
	return s.cats, s.tags, s.err
}

func corpus() []Post {
	tech := Category{Name: "Tech", Slug: "tech"}
	return []Post{
		{Slug: "go", Title: "Go", Published: true, Categories: []Category{tech}},
		{Slug: "draft", Title: "Go draft", Published: false, Categories: []Category{tech}},
		{Slug: "pasta", Title: "Pasta", Content: "al dente", Published: true},
	}
}

func TestListingAttachesSidebar(t *testing.T) {
	side := stubSidebar{cats: []Category{{Slug: "tech", PostCount: 1}}, tags: []Tag{{Slug: "go"}}}
	svc := NewListingService(&memGateway{posts: corpus()}, nil, side, nil, zaptest.NewLogger(t))

	l, err := svc.Listing(context.Background(), query.FilterRequest{Category: "tech", Page: 1})
	require.NoError(t, err)

	require.Len(t, l.Posts, 1)
	assert.Equal(t, "go", l.Posts[0].Slug)
	assert.Empty(t, l.Empty)
	assert.Equal(t, side.cats, l.Categories)
	assert.Equal(t, side.tags, l.Tags)
	assert.Equal(t, int64(1), l.Pager.TotalCount)
}

func TestListingEmptyState(t *testing.T) {
	svc := NewListingService(&memGateway{posts: corpus()}, nil, nil, nil, nil)

	l, err := svc.Listing(context.Background(), query.FilterRequest{Term: "rust"})
	require.NoError(t, err)
	assert.Empty(t, l.Posts)
	assert.Equal(t, `No posts found for "rust"`, l.Empty)
	assert.False(t, l.Pager.ShowPager())
}

func TestListingSurvivesSidebarFailure(t *testing.T) {
	svc := NewListingService(&memGateway{posts: corpus()}, nil, stubSidebar{err: errors.New("db locked")}, nil, zaptest.NewLogger(t))

	l, err := svc.Listing(context.Background(), query.FilterRequest{})
	require.NoError(t, err)
	assert.Len(t, l.Posts, 2)
	assert.Nil(t, l.Categories)
}

func TestListingFailureIsOpaque(t *testing.T) {
	m := NewMetrics()
	svc := NewListingService(&memGateway{err: errors.New("disk I/O error")}, nil, nil, m, zaptest.NewLogger(t))

	l, err := svc.Listing(context.Background(), query.FilterRequest{Tag: "go"})
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.NotContains(t, err.Error(), "disk")
	assert.Equal(t, "go", l.Filter.Tag)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ListingDuration))
}

func TestEmptyMessage(t *testing.T) {
	tests := []struct {
		f    query.FilterRequest
		want string
	}{
		{query.FilterRequest{}, "No posts have been published yet."},
		{query.FilterRequest{Term: "go", Category: "tech", Tag: "x"}, `No posts found for "go"`},
		{query.FilterRequest{Category: "tech", Tag: "x"}, `No posts in category "tech"`},
		{query.FilterRequest{Tag: "x"}, "No posts tagged #x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EmptyMessage(tt.f))
	}
}
