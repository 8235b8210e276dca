package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/inkwell"
)

// SignIn lists the configured identity providers.
func SignIn(providers []inkwell.ProviderLink, csrfToken string) templ.Component {
	return standalone("Sign in", component(func(hw *writer) {
		hw.raw(`<div class="providers"><h1>Sign in</h1>`)
		if len(providers) == 0 {
			hw.tag("p", "notice", "No sign-in providers are configured.")
		}
		for _, p := range providers {
			hw.raw(`<a class="button"`)
			hw.href(p.URL)
			hw.raw(`>Continue with `)
			hw.text(p.Label)
			hw.raw(`</a>`)
		}
		hw.raw(`</div>`)
	}))
}

// AuthError explains a failed sign-in.
func AuthError(message string) templ.Component {
	return standalone("Sign-in failed", component(func(hw *writer) {
		hw.raw(`<div class="error"><h1>Sign-in failed</h1>`)
		hw.tag("p", "", message)
		hw.raw(`<p><a href="/auth/signin/">Try again</a></p></div>`)
	}))
}

// NotFound is the 404 page.
func NotFound(ch inkwell.Chrome) templ.Component {
	return Layout(ch, "", component(func(hw *writer) {
		hw.raw(`<div class="error"><h1>Page not found</h1>`)
		hw.raw(`<p>The page you are looking for does not exist or is not published.</p>`)
		hw.raw(`<p><a href="/blog/">Back to the blog</a></p></div>`)
	}))
}

// ServerError is the page shown for failures the reader can only retry.
func ServerError(ch inkwell.Chrome, message string) templ.Component {
	return Layout(ch, "", component(func(hw *writer) {
		hw.raw(`<div class="error"><h1>Something went wrong</h1>`)
		hw.tag("p", "", message)
		hw.raw(`</div>`)
	}))
}

// standalone is a minimal page for screens rendered without site chrome.
func standalone(title string, body templ.Component) templ.Component {
	return component(func(hw *writer) {
		hw.raw("<!doctype html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.tag("title", "", title)
		hw.raw(`<link rel="stylesheet" href="/public/inkwell.css"></head><body><main>`)
		hw.component(body)
		hw.raw(`</main></body></html>`)
	})
}
