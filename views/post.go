package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/inkwell"
	"github.com/eringen/inkwell/markdown"
)

// PostDetail renders one published post with its author and related posts.
func PostDetail(p inkwell.PostPage) templ.Component {
	body := component(func(hw *writer) {
		post := p.Post
		hw.raw(`<article class="post">`)
		if post.FeaturedImage != "" {
			hw.raw(`<img class="cover" src="`, markdown.SafeURL(post.FeaturedImage), `"`)
			hw.attr("alt", post.Title)
			hw.raw(`>`)
		}
		hw.tag("h1", "", post.Title)
		postMeta(hw, post)
		if post.Author.Name != "" {
			hw.raw(`<div class="author">`)
			if post.Author.Image != "" {
				hw.raw(`<img src="`, markdown.SafeURL(post.Author.Image), `" alt="">`)
			}
			hw.raw(`<div><strong>`)
			hw.text(post.Author.Name)
			hw.raw(`</strong>`)
			if post.Author.Bio != "" {
				hw.tag("p", "meta", post.Author.Bio)
			}
			hw.raw(`</div></div>`)
		}
		hw.raw(`<div class="content">`)
		hw.component(markdown.Markdown(post.Content))
		hw.raw(`</div>`)
		taxonomy(hw, post)

		if len(p.Related) > 0 {
			hw.raw(`<section class="related"><h2>Related posts</h2><div class="cards">`)
			for _, r := range p.Related {
				card(hw, r)
			}
			hw.raw(`</div></section>`)
		}
		hw.raw(`</article>`)
	})
	return Layout(p.Chrome, p.JSONLD, body)
}
