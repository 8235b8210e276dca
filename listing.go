package inkwell

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/inkwell/query"
)

// sidebarSource supplies the popular taxonomy shown next to a listing.
type sidebarSource interface {
	Sidebar(ctx context.Context) ([]Category, []Tag, error)
}

// ListingService answers listing requests: it builds the query once, fetches
// the page through the gateway (optionally via the redis cache) and attaches
// the sidebar and empty-state message.
type ListingService struct {
	posts   query.Gateway[Post]
	cache   *ListingCache
	sidebar sidebarSource
	metrics *Metrics
	log     *zap.Logger
}

// NewListingService wires a listing service. cache, sidebar and metrics may
// be nil.
func NewListingService(posts query.Gateway[Post], cache *ListingCache, sidebar sidebarSource, m *Metrics, log *zap.Logger) *ListingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingService{posts: posts, cache: cache, sidebar: sidebar, metrics: m, log: log.Named("listing")}
}

// Page returns one page of published posts for f. Any failure is reported
// as ErrFetchFailed; the cause is logged.
func (l *ListingService) Page(ctx context.Context, f query.FilterRequest) (query.Page[Post], error) {
	start := time.Now()
	q := query.Build(f)
	page, err := l.cache.Fetch(ctx, q, func(ctx context.Context) (query.Page[Post], error) {
		return query.Fetch(ctx, l.posts, q)
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if l.metrics != nil {
		l.metrics.ListingDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		l.log.Error("listing fetch failed", zap.Stringer("where", q.Where), zap.Int("page", q.Page), zap.Error(err))
		return query.Page[Post]{}, ErrFetchFailed
	}
	return page, nil
}

// Listing returns the full listing view model for f. A sidebar failure is
// logged and leaves the sidebar empty.
func (l *ListingService) Listing(ctx context.Context, f query.FilterRequest) (Listing, error) {
	page, err := l.Page(ctx, f)
	if err != nil {
		return Listing{Filter: f}, err
	}
	out := Listing{
		Filter: f,
		Posts:  page.Items,
		Pager:  page.Meta,
	}
	if len(out.Posts) == 0 {
		out.Empty = EmptyMessage(f)
	}
	if l.sidebar != nil {
		cats, tags, err := l.sidebar.Sidebar(ctx)
		if err != nil {
			l.log.Warn("sidebar unavailable", zap.Error(err))
		} else {
			out.Categories, out.Tags = cats, tags
		}
	}
	return out, nil
}

// EmptyMessage explains an empty listing in terms of the most specific
// filter present: search term, then category, then tag.
func EmptyMessage(f query.FilterRequest) string {
	switch {
	case f.Term != "":
		return `No posts found for "` + f.Term + `"`
	case f.Category != "":
		return `No posts in category "` + f.Category + `"`
	case f.Tag != "":
		return "No posts tagged #" + f.Tag
	default:
		return "No posts have been published yet."
	}
}
