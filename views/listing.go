package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/inkwell"
	"github.com/eringen/inkwell/markdown"
	"github.com/eringen/inkwell/query"
)

// Listing is the blog index with sidebar, results and pager.
func Listing(p inkwell.ListingPage) templ.Component {
	body := component(func(hw *writer) {
		l := p.Listing
		hw.raw(`<div class="listing"><div>`)
		hw.tag("h1", "", listingHeading(l.Filter))
		hw.raw(`<div id="results">`)
		hw.component(ListingResults(p))
		hw.raw(`</div></div>`)
		sidebar(hw, l)
		hw.raw(`</div>`)
	})
	return Layout(p.Chrome, "", body)
}

func listingHeading(f query.FilterRequest) string {
	switch {
	case f.Term != "":
		return `Results for "` + f.Term + `"`
	case f.Category != "":
		return "Category: " + f.Category
	case f.Tag != "":
		return "#" + f.Tag
	}
	return "Latest posts"
}

// ListingResults is the part of the listing replaced on in-page search.
func ListingResults(p inkwell.ListingPage) templ.Component {
	return component(func(hw *writer) {
		l := p.Listing
		if len(l.Posts) == 0 {
			hw.tag("p", "empty", l.Empty)
			return
		}
		hw.raw(`<div class="cards">`)
		for _, post := range l.Posts {
			card(hw, post)
		}
		hw.raw(`</div>`)
		pager(hw, l.Filter, l.Pager)
	})
}

func card(hw *writer, p inkwell.Post) {
	hw.raw(`<article class="card">`)
	if p.FeaturedImage != "" {
		hw.raw(`<a`)
		hw.href(p.Link())
		hw.raw(`><img loading="lazy" src="`, markdown.SafeURL(p.FeaturedImage), `"`)
		hw.attr("alt", p.Title)
		hw.raw(`></a>`)
	}
	hw.raw(`<div class="body"><h2><a`)
	hw.href(p.Link())
	hw.raw(`>`)
	hw.text(p.Title)
	hw.raw(`</a></h2>`)
	hw.tag("p", "", p.Summary)
	postMeta(hw, p)
	taxonomy(hw, p)
	hw.raw(`</div></article>`)
}

func postMeta(hw *writer, p inkwell.Post) {
	hw.raw(`<p class="meta">`)
	if p.Author.Name != "" {
		hw.text(p.Author.Name)
		hw.raw(" &middot; ")
	}
	hw.raw(`<time`)
	hw.attr("datetime", p.CreatedAt.UTC().Format("2006-01-02"))
	hw.raw(`>`)
	hw.text(formatDate(p.CreatedAt))
	hw.raw(`</time> &middot; `)
	hw.num(markdown.ReadingTime(p.Content))
	hw.raw(` min read`)
	if p.AIGenerated {
		hw.raw(` <span class="badge ai">AI</span>`)
	}
	hw.raw(`</p>`)
}

func taxonomy(hw *writer, p inkwell.Post) {
	if len(p.Categories) == 0 && len(p.Tags) == 0 {
		return
	}
	hw.raw(`<p class="meta">`)
	for _, c := range p.Categories {
		hw.raw(`<a class="badge"`)
		hw.href("/blog/category/" + inkwell.PathEscape(c.Slug) + "/")
		hw.raw(`>`)
		hw.text(c.Name)
		hw.raw(`</a> `)
	}
	for _, t := range p.Tags {
		hw.raw(`<a`)
		hw.href("/blog/tag/" + inkwell.PathEscape(t.Slug) + "/")
		hw.raw(`>#`)
		hw.text(t.Name)
		hw.raw(`</a> `)
	}
	hw.raw(`</p>`)
}

// pageURL links to page of the listing described by f.
func pageURL(f query.FilterRequest, page int) string {
	if qs := f.WithPage(page).Values().Encode(); qs != "" {
		return "/blog/?" + qs
	}
	return "/blog/"
}

func pager(hw *writer, f query.FilterRequest, m query.PageMetadata) {
	if !m.ShowPager() {
		return
	}
	hw.raw(`<nav class="pager" aria-label="Pagination">`)
	if m.HasPrev {
		hw.raw(`<a rel="prev"`)
		hw.href(pageURL(f, m.PrevPage))
		hw.raw(`>&larr; Prev</a>`)
	} else {
		hw.raw(`<span class="disabled">&larr; Prev</span>`)
	}
	for _, n := range m.Pages {
		if n == m.CurrentPage {
			hw.raw(`<span class="current" aria-current="page">`)
			hw.num(n)
			hw.raw(`</span>`)
			continue
		}
		hw.raw(`<a`)
		hw.href(pageURL(f, n))
		hw.raw(`>`)
		hw.num(n)
		hw.raw(`</a>`)
	}
	if m.HasNext {
		hw.raw(`<a rel="next"`)
		hw.href(pageURL(f, m.NextPage))
		hw.raw(`>Next &rarr;</a>`)
	} else {
		hw.raw(`<span class="disabled">Next &rarr;</span>`)
	}
	hw.raw(`</nav>`)
}

func sidebar(hw *writer, l inkwell.Listing) {
	hw.raw(`<aside class="sidebar"><section><h3>Search</h3>`)
	hw.raw(`<form class="search" method="get" action="/blog/" data-fragment="#results" data-partial="results">`)
	hw.raw(`<input type="search" name="q" placeholder="Search posts"`)
	hw.attr("value", l.Filter.Term)
	hw.raw(`>`)
	if l.Filter.Category != "" {
		hw.raw(`<input type="hidden" name="category"`)
		hw.attr("value", l.Filter.Category)
		hw.raw(`>`)
	}
	if l.Filter.Tag != "" {
		hw.raw(`<input type="hidden" name="tag"`)
		hw.attr("value", l.Filter.Tag)
		hw.raw(`>`)
	}
	hw.raw(`<button type="submit">Search</button></form></section>`)

	if len(l.Categories) > 0 {
		hw.raw(`<section><h3>Categories</h3><ul>`)
		for _, c := range l.Categories {
			hw.raw(`<li><a`)
			if c.Slug == l.Filter.Category {
				hw.attr("class", "active")
			}
			hw.href("/blog/category/" + inkwell.PathEscape(c.Slug) + "/")
			hw.raw(`>`)
			hw.text(c.Name)
			hw.raw(`</a><span class="meta">`)
			hw.num(int(c.PostCount))
			hw.raw(`</span></li>`)
		}
		hw.raw(`</ul></section>`)
	}
	if len(l.Tags) > 0 {
		hw.raw(`<section><h3>Tags</h3><div class="tags">`)
		for _, t := range l.Tags {
			hw.raw(`<a`)
			class := "badge"
			if t.Slug == l.Filter.Tag {
				class += " active"
			}
			hw.attr("class", class)
			hw.href("/blog/tag/" + inkwell.PathEscape(t.Slug) + "/")
			hw.raw(`>#`)
			hw.text(t.Name)
			hw.raw(`</a>`)
		}
		hw.raw(`</div></section>`)
	}
	hw.raw(`</aside>`)
}
