package query

// WindowSize is the maximum number of page links rendered at once.
const WindowSize = 5

// PageMetadata describes where a listing page sits within its result set.
type PageMetadata struct {
	TotalCount  int64 `json:"totalCount"`
	PageSize    int   `json:"pageSize"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Pages       []int `json:"pages"`
	HasPrev     bool  `json:"hasPrev"`
	HasNext     bool  `json:"hasNext"`
	PrevPage    int   `json:"prevPage"`
	NextPage    int   `json:"nextPage"`
}

// NewPager computes page metadata for totalCount items viewed at currentPage.
func NewPager(totalCount int64, currentPage, pageSize int) PageMetadata {
	if pageSize < 1 {
		pageSize = PageSize
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if totalCount < 0 {
		totalCount = 0
	}
	size := int64(pageSize)
	totalPages := int(totalCount / size)
	if totalCount%size != 0 {
		totalPages++
	}

	m := PageMetadata{
		TotalCount:  totalCount,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		CurrentPage: currentPage,
		Pages:       Window(currentPage, totalPages, WindowSize),
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
	}
	if m.HasPrev {
		m.PrevPage = currentPage - 1
	}
	if m.HasNext {
		m.NextPage = currentPage + 1
	}
	return m
}

// ShowPager reports whether pager controls are worth rendering.
func (m PageMetadata) ShowPager() bool {
	return m.TotalPages > 1
}

// Window returns up to width consecutive page numbers around current, shifted
// to stay within [1, totalPages].
func Window(current, totalPages, width int) []int {
	if totalPages < 1 || width < 1 {
		return []int{}
	}
	if current < 1 {
		current = 1
	}
	start := current - width/2
	if last := totalPages - width + 1; start > last {
		start = last
	}
	if start < 1 {
		start = 1
	}
	end := start + width - 1
	if end > totalPages {
		end = totalPages
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}
