package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/inkwell"
	"github.com/eringen/inkwell/ai"
	"github.com/eringen/inkwell/query"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func testChrome() inkwell.Chrome {
	return inkwell.Chrome{
		Site: inkwell.SiteConfig{Name: "Inkwell", URL: "https://example.com", Description: "Notes"},
		Meta: inkwell.PageMeta{Title: "Inkwell", URL: "https://example.com/blog/", OGType: "website"},
		CSRF: "tok123",
	}
}

func samplePost() inkwell.Post {
	return inkwell.Post{
		ID:          "p1",
		Title:       "Go <generics>",
		Slug:        "go-generics",
		Summary:     "Type parameters in practice",
		Content:     "Hello **world**",
		Published:   true,
		AIGenerated: true,
		Author:      inkwell.User{Name: "Ada"},
		Categories:  []inkwell.Category{{ID: "c1", Name: "Tech", Slug: "tech"}},
		Tags:        []inkwell.Tag{{ID: "t1", Name: "go", Slug: "go"}},
		CreatedAt:   time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestListingRendersPostsAndPager(t *testing.T) {
	f := query.FilterRequest{Category: "tech", Page: 2}
	page := inkwell.ListingPage{
		Chrome: testChrome(),
		Listing: inkwell.Listing{
			Filter:     f,
			Posts:      []inkwell.Post{samplePost()},
			Pager:      query.NewPager(20, 2, query.PageSize),
			Categories: []inkwell.Category{{Name: "Tech", Slug: "tech", PostCount: 20}},
			Tags:       []inkwell.Tag{{Name: "go", Slug: "go", PostCount: 3}},
		},
	}
	out := render(t, Listing(page))

	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, "Go &lt;generics&gt;")
	assert.NotContains(t, out, "<generics>")
	assert.Contains(t, out, `href="/blog/go-generics/"`)
	assert.Contains(t, out, `<span class="badge ai">AI</span>`)
	assert.Contains(t, out, `href="/blog/?category=tech&amp;page=3"`)
	assert.Contains(t, out, `href="/blog/?category=tech"`)
	assert.Contains(t, out, `<span class="current" aria-current="page">2</span>`)
	assert.Contains(t, out, `name="category" value="tech"`)
	assert.Contains(t, out, `<meta name="csrf-token" content="tok123">`)
	assert.Contains(t, out, `class="active"`)
}

func TestListingResultsEmptyState(t *testing.T) {
	page := inkwell.ListingPage{Listing: inkwell.Listing{
		Filter: query.FilterRequest{Term: "rust"},
		Pager:  query.NewPager(0, 1, query.PageSize),
		Empty:  inkwell.EmptyMessage(query.FilterRequest{Term: "rust"}),
	}}
	out := render(t, ListingResults(page))

	assert.Equal(t, `<p class="empty">No posts found for &#34;rust&#34;</p>`, out)
}

func TestPagerHiddenForSinglePage(t *testing.T) {
	page := inkwell.ListingPage{Listing: inkwell.Listing{
		Posts: []inkwell.Post{samplePost()},
		Pager: query.NewPager(4, 1, query.PageSize),
	}}
	out := render(t, ListingResults(page))

	assert.NotContains(t, out, "pager")
}

func TestPostDetailRendersMarkdownAndJSONLD(t *testing.T) {
	post := samplePost()
	out := render(t, PostDetail(inkwell.PostPage{
		Chrome:  testChrome(),
		Post:    post,
		Related: []inkwell.Post{{Title: "Other", Slug: "other"}},
		JSONLD:  inkwell.BlogPostingJsonLD(post, testChrome().Site),
	}))

	assert.Contains(t, out, "<strong>world</strong>")
	assert.Contains(t, out, `"@type":"BlogPosting"`)
	assert.Contains(t, out, "Related posts")
	assert.Contains(t, out, `href="/blog/other/"`)
	assert.Contains(t, out, `href="/blog/category/tech/"`)
}

func TestLayoutShowsSignOutForViewer(t *testing.T) {
	ch := testChrome()
	ch.SignedIn = true
	ch.Viewer = inkwell.Identity{ID: "u1", Name: "Ada"}
	out := render(t, NotFound(ch))

	assert.Contains(t, out, `action="/auth/signout/"`)
	assert.Contains(t, out, `name="_csrf" value="tok123"`)
	assert.Contains(t, out, "Page not found")
}

func TestSignInListsProviders(t *testing.T) {
	out := render(t, SignIn([]inkwell.ProviderLink{
		{Name: "github", Label: "GitHub", URL: "/auth/github/login/"},
	}, ""))

	assert.Contains(t, out, `href="/auth/github/login/"`)
	assert.Contains(t, out, "Continue with GitHub")
}

func TestSignInWithoutProviders(t *testing.T) {
	out := render(t, SignIn(nil, ""))
	assert.Contains(t, out, "No sign-in providers are configured.")
}

func TestDashboardBadges(t *testing.T) {
	draft := samplePost()
	draft.ID = "p2"
	draft.Published = false
	draft.AIGenerated = false
	out := render(t, Dashboard(inkwell.DashboardPage{
		Chrome:  testChrome(),
		Posts:   []inkwell.Post{samplePost(), draft},
		Message: "Saved.",
	}))

	assert.Contains(t, out, `<p class="notice">Saved.</p>`)
	assert.Contains(t, out, `<span class="badge">Published</span>`)
	assert.Contains(t, out, `<span class="badge draft">Draft</span>`)
	assert.Contains(t, out, `data-delete="/dashboard/post/p2/"`)
}

func TestPostFormPrefillsTaxonomy(t *testing.T) {
	out := render(t, PostForm(inkwell.PostFormPage{
		Chrome:     testChrome(),
		Post:       samplePost(),
		Categories: []inkwell.Category{{Name: "Tech"}, {Name: "Design"}},
		TaskTypes:  ai.TaskTypes,
		AIEnabled:  true,
	}))

	assert.Contains(t, out, `name="categories" value="Tech"`)
	assert.Contains(t, out, `name="tags" value="go"`)
	assert.Contains(t, out, "Existing categories: Tech, Design")
	assert.Contains(t, out, `value="SUMMARIZER"`)
	assert.Contains(t, out, `name="published" checked`)
}

func TestPostFormWithoutAI(t *testing.T) {
	out := render(t, PostForm(inkwell.PostFormPage{Chrome: testChrome()}))
	assert.Contains(t, out, "New post")
	assert.NotContains(t, out, "AI assist")
}

func TestAIResult(t *testing.T) {
	out := render(t, AIResult(inkwell.AIResult{Task: ai.TaskSummary, Result: "A <b>short</b> summary"}))
	assert.Contains(t, out, "A &lt;b&gt;short&lt;/b&gt; summary")
	assert.Contains(t, out, `data-into="#summary"`)

	out = render(t, AIResult(inkwell.AIResult{Error: "Prompt is required."}))
	assert.Equal(t, `<p class="error">Prompt is required.</p>`, out)
}

func TestImagesFragment(t *testing.T) {
	imgs := []inkwell.Image{{Filename: "cat.jpg", OriginalName: "Cat.png", Width: 800, Height: 600}}

	frag := render(t, Images(inkwell.ImagesPage{Images: imgs, Fragment: true}))
	assert.NotContains(t, frag, "<!doctype html>")
	assert.Contains(t, frag, `src="/public/uploads/cat.jpg"`)

	full := render(t, Images(inkwell.ImagesPage{Chrome: testChrome(), Images: imgs}))
	assert.Contains(t, full, "<!doctype html>")
	assert.Contains(t, full, `enctype="multipart/form-data"`)
}

func TestUnsafeImageURLDropped(t *testing.T) {
	post := samplePost()
	post.FeaturedImage = "javascript:alert(1)"
	out := render(t, ListingResults(inkwell.ListingPage{Listing: inkwell.Listing{Posts: []inkwell.Post{post}}}))
	assert.NotContains(t, out, "javascript:")
}

func TestDefaultCoversEveryView(t *testing.T) {
	v := Default()
	assert.NotNil(t, v.Listing)
	assert.NotNil(t, v.ListingPartial)
	assert.NotNil(t, v.Post)
	assert.NotNil(t, v.SignIn)
	assert.NotNil(t, v.AuthError)
	assert.NotNil(t, v.Dashboard)
	assert.NotNil(t, v.PostForm)
	assert.NotNil(t, v.AIResult)
	assert.NotNil(t, v.Images)
	assert.NotNil(t, v.NotFound)
	assert.NotNil(t, v.ServerError)
}
