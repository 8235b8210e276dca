package inkwell

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/inkwell/ai"
)

// ViewFuncs holds the templ components the App calls when rendering pages.
// The views package provides the default set; sites may swap any of them.
type ViewFuncs struct {
	Listing        func(p ListingPage) templ.Component
	ListingPartial func(p ListingPage) templ.Component
	Post           func(p PostPage) templ.Component
	SignIn         func(providers []ProviderLink, csrfToken string) templ.Component
	AuthError      func(message string) templ.Component
	Dashboard      func(p DashboardPage) templ.Component
	PostForm       func(p PostFormPage) templ.Component
	AIResult       func(r AIResult) templ.Component
	Images         func(p ImagesPage) templ.Component
	NotFound       func(ch Chrome) templ.Component
	ServerError    func(ch Chrome, message string) templ.Component
}

// Chrome is what every full page layout needs besides its own content.
type Chrome struct {
	Site     SiteConfig
	Meta     PageMeta
	Viewer   Identity
	SignedIn bool
	CSRF     string
}

// ListingPage is the blog index, a category or tag page, or search results.
type ListingPage struct {
	Chrome
	Listing Listing
}

// PostPage is the detail page of one published post.
type PostPage struct {
	Chrome
	Post    Post
	Related []Post
	JSONLD  string
}

// DashboardPage lists the posts the viewer may manage.
type DashboardPage struct {
	Chrome
	Posts   []Post
	Message string
}

// PostFormPage is the create and edit form.
type PostFormPage struct {
	Chrome
	Post       Post
	Categories []Category
	Tags       []Tag
	TaskTypes  []ai.TaskType
	AIEnabled  bool
}

// ImagesPage is the upload manager. Fragment is set when only the image
// grid is wanted.
type ImagesPage struct {
	Chrome
	Images   []Image
	Fragment bool
}

// AIResult is the answer of one AI assist request.
type AIResult struct {
	Task   ai.TaskType
	Result string
	Error  string
}

func (a *App) chrome(c echo.Context, meta PageMeta) Chrome {
	id, ok := a.CurrentIdentity(c)
	if meta.Title == "" {
		meta.Title = a.Config.Name
	}
	if meta.Description == "" {
		meta.Description = a.Config.Description
	}
	if meta.URL == "" {
		meta.URL = strings.TrimRight(a.Config.URL, "/") + c.Request().URL.Path
	}
	if meta.OGType == "" {
		meta.OGType = "website"
	}
	return Chrome{
		Site:     a.Config,
		Meta:     meta,
		Viewer:   id,
		SignedIn: ok,
		CSRF:     CsrfToken(c),
	}
}
