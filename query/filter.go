package query

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// PageSize is the number of posts shown per listing page.
const PageSize = 9

// MaxPage is the highest page number whose offset still fits in an int.
const MaxPage = math.MaxInt / PageSize

// FilterRequest holds the optional listing inputs of a single request.
// Empty strings mean the dimension is absent.
type FilterRequest struct {
	Term     string
	Category string
	Tag      string
	Page     int
}

// Query is the store-ready form of a FilterRequest.
type Query struct {
	Where Predicate
	Skip  int
	Take  int
	Page  int
}

// Key identifies the query for caching; equal queries produce equal keys.
func (q Query) Key() string {
	return fmt.Sprintf("%s|skip=%d|take=%d", q.Where, q.Skip, q.Take)
}

// ParsePage converts a raw page parameter to a 1-based page number.
// Anything that is not a positive integer becomes 1; numbers above MaxPage
// are capped.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case errors.Is(err, strconv.ErrRange) && n > 0:
		return MaxPage
	case err != nil || n < 1:
		return 1
	case n > MaxPage:
		return MaxPage
	}
	return n
}

// ParseFilter reads q, category, tag and page from query-string values.
func ParseFilter(values url.Values) FilterRequest {
	return FilterRequest{
		Term:     strings.TrimSpace(values.Get("q")),
		Category: strings.TrimSpace(values.Get("category")),
		Tag:      strings.TrimSpace(values.Get("tag")),
		Page:     ParsePage(values.Get("page")),
	}
}

// Filtered reports whether any narrowing dimension is present.
func (f FilterRequest) Filtered() bool {
	return f.Term != "" || f.Category != "" || f.Tag != ""
}

// Values encodes f back to query-string form, omitting absent dimensions and
// page 1.
func (f FilterRequest) Values() url.Values {
	v := url.Values{}
	if f.Term != "" {
		v.Set("q", f.Term)
	}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.Tag != "" {
		v.Set("tag", f.Tag)
	}
	if f.Page > 1 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	return v
}

// WithPage returns a copy of f pointing at page.
func (f FilterRequest) WithPage(page int) FilterRequest {
	f.Page = page
	return f
}

// Build translates f into a Query. The published condition is always the
// first clause; category, tag and text search narrow it in that order.
func Build(f FilterRequest) Query {
	clauses := []Predicate{Published()}
	if c := strings.TrimSpace(f.Category); c != "" {
		clauses = append(clauses, HasRelated(FieldCategories, c))
	}
	if t := strings.TrimSpace(f.Tag); t != "" {
		clauses = append(clauses, HasRelated(FieldTags, t))
	}
	if term := strings.TrimSpace(f.Term); term != "" {
		clauses = append(clauses, Or(
			ContainsFold(FieldTitle, term),
			ContainsFold(FieldContent, term),
		))
	}

	page := min(max(f.Page, 1), MaxPage)
	return Query{
		Where: And(clauses...),
		Skip:  (page - 1) * PageSize,
		Take:  PageSize,
		Page:  page,
	}
}
