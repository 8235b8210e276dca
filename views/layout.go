// Package views is the default set of inkwell page components. Every
// component is a templ.Component so sites can mix these with their own
// templ templates.
package views

import (
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/inkwell"
)

// Default returns the complete default view set.
func Default() inkwell.ViewFuncs {
	return inkwell.ViewFuncs{
		Listing:        Listing,
		ListingPartial: ListingResults,
		Post:           PostDetail,
		SignIn:         SignIn,
		AuthError:      AuthError,
		Dashboard:      Dashboard,
		PostForm:       PostForm,
		AIResult:       AIResult,
		Images:         Images,
		NotFound:       NotFound,
		ServerError:    ServerError,
	}
}

const dateLayout = "Jan 2, 2006"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// Layout wraps body in the site chrome. jsonLD, when set, is emitted as a
// structured-data script.
func Layout(ch inkwell.Chrome, jsonLD string, body templ.Component) templ.Component {
	return component(func(hw *writer) {
		hw.raw("<!doctype html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.tag("title", "", ch.Meta.Title)
		hw.raw(`<meta name="description"`)
		hw.attr("content", ch.Meta.Description)
		hw.raw(`><link rel="canonical"`)
		hw.attr("href", ch.Meta.URL)
		hw.raw(`><meta property="og:title"`)
		hw.attr("content", ch.Meta.Title)
		hw.raw(`><meta property="og:description"`)
		hw.attr("content", ch.Meta.Description)
		hw.raw(`><meta property="og:url"`)
		hw.attr("content", ch.Meta.URL)
		hw.raw(`><meta property="og:type"`)
		hw.attr("content", ch.Meta.OGType)
		hw.raw(`><meta property="og:site_name"`)
		hw.attr("content", ch.Site.Name)
		hw.raw(">")
		if ch.Meta.Image != "" {
			hw.raw(`<meta property="og:image"`)
			hw.attr("content", ch.Meta.Image)
			hw.raw(">")
		}
		if ch.CSRF != "" {
			hw.raw(`<meta name="csrf-token"`)
			hw.attr("content", ch.CSRF)
			hw.raw(">")
		}
		hw.raw(`<link rel="icon" href="/favicon.svg" type="image/svg+xml">`)
		hw.raw(`<link rel="alternate" type="application/rss+xml" href="/feed.xml"`)
		hw.attr("title", ch.Site.Name)
		hw.raw(`><link rel="stylesheet" href="/public/inkwell.css">`)
		hw.raw(`<script src="/public/inkwell.js" defer></script>`)
		hw.raw(`<script type="application/ld+json">`, inkwell.WebsiteJsonLD(ch.Site), `</script>`)
		if jsonLD != "" {
			// json.Marshal escapes <, > and &, so the payload cannot close the script.
			hw.raw(`<script type="application/ld+json">`, jsonLD, `</script>`)
		}
		hw.raw("</head><body>")

		hw.raw(`<header class="site-header"><a class="brand" href="/blog/">`)
		hw.text(ch.Site.Name)
		hw.raw(`</a><a href="/blog/">Blog</a>`)
		if ch.SignedIn {
			hw.raw(`<a href="/dashboard/">Dashboard</a><span class="meta">`)
			hw.text(ch.Viewer.Name)
			hw.raw(`</span><form method="post" action="/auth/signout/">`)
			csrfField(hw, ch.CSRF)
			hw.raw(`<button type="submit">Sign out</button></form>`)
		} else {
			hw.raw(`<a href="/auth/signin/">Sign in</a>`)
		}
		hw.raw("</header><main>")
		hw.component(body)
		hw.raw(`</main><footer class="site-footer"><span>&copy; `)
		hw.num(time.Now().Year())
		hw.raw(" ")
		hw.text(ch.Site.Name)
		hw.raw(`</span><a href="/feed.xml">RSS</a></footer></body></html>`)
	})
}

func csrfField(hw *writer, token string) {
	if token == "" {
		return
	}
	hw.raw(`<input type="hidden" name="_csrf"`)
	hw.attr("value", token)
	hw.raw(">")
}
