package query

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Gateway is the slice of a store a listing needs. Both methods receive the
// same predicate for a given fetch.
type Gateway[T any] interface {
	List(ctx context.Context, where Predicate, skip, take int) ([]T, error)
	Count(ctx context.Context, where Predicate) (int64, error)
}

// Page is one page of listing results plus its metadata.
type Page[T any] struct {
	Items []T          `json:"items"`
	Meta  PageMetadata `json:"meta"`
}

// Fetch runs the list and count calls for q concurrently and joins them.
// If either call fails the whole fetch fails.
func Fetch[T any](ctx context.Context, gw Gateway[T], q Query) (Page[T], error) {
	var (
		items []T
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = gw.List(gctx, q.Where, q.Skip, q.Take)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = gw.Count(gctx, q.Where)
		return err
	})
	if err := g.Wait(); err != nil {
		return Page[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Meta:  NewPager(total, q.Page, q.Take),
	}, nil
}
