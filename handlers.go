package inkwell

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/inkwell/query"
)

const relatedPostsLimit = 3

func handleRootRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/blog/")
}

func (a *App) handleBlog(c echo.Context) error {
	return a.renderListing(c, query.ParseFilter(c.QueryParams()))
}

func (a *App) handleBlogCategory(c echo.Context) error {
	f := query.ParseFilter(c.QueryParams())
	f.Category = c.Param("slug")
	return a.renderListing(c, f)
}

func (a *App) handleBlogTag(c echo.Context) error {
	f := query.ParseFilter(c.QueryParams())
	f.Tag = c.Param("slug")
	return a.renderListing(c, f)
}

func (a *App) renderListing(c echo.Context, f query.FilterRequest) error {
	listing, err := a.Listings.Listing(c.Request().Context(), f)
	ch := a.chrome(c, listingMeta(a.Config, f))
	if err != nil {
		return RenderStatus(c, http.StatusInternalServerError,
			a.Views.ServerError(ch, "Failed to fetch posts. Please try again."))
	}
	page := ListingPage{Chrome: ch, Listing: listing}
	if isFragment(c) && c.QueryParam("partial") == "results" {
		return Render(c, a.Views.ListingPartial(page))
	}
	return Render(c, a.Views.Listing(page))
}

func listingMeta(cfg SiteConfig, f query.FilterRequest) PageMeta {
	switch {
	case f.Term != "":
		return PageMeta{Title: fmt.Sprintf("Search: %s | %s", f.Term, cfg.Name)}
	case f.Category != "":
		return PageMeta{Title: fmt.Sprintf("Category: %s | %s", f.Category, cfg.Name)}
	case f.Tag != "":
		return PageMeta{Title: fmt.Sprintf("#%s | %s", f.Tag, cfg.Name)}
	}
	return PageMeta{Title: cfg.Name, Description: cfg.Description}
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Store.GetPublishedPost(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	related, err := a.Store.RelatedPosts(ctx, post, relatedPostsLimit)
	if err != nil {
		a.Log.Warn("related posts unavailable", zap.String("post", post.ID), zap.Error(err))
		related = nil
	}
	meta := PageMeta{
		Title:       post.Title + " | " + a.Config.Name,
		Description: post.Summary,
		URL:         BuildURL(a.Config.URL, "blog", post.Slug),
		OGType:      "article",
		Image:       absoluteURL(a.Config.URL, post.FeaturedImage),
	}
	return Render(c, a.Views.Post(PostPage{
		Chrome:  a.chrome(c, meta),
		Post:    post,
		Related: related,
		JSONLD:  BlogPostingJsonLD(post, a.Config),
	}))
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Store.ListPublished(ctx, 0)
	if err != nil {
		return err
	}
	cats, err := a.Store.PopularCategories(ctx, 1000)
	if err != nil {
		return err
	}
	tags, err := a.Store.PopularTags(ctx, 1000)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts, cats, tags)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Store.ListPublished(c.Request().Context(), feedSize)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.staticDir, "favicon.svg"))
}

func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	body := "User-agent: *\nDisallow: /dashboard/\nDisallow: /auth/\nDisallow: /api/\n\nSitemap: " +
		BuildURL(a.Config.URL) + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if errors.Is(err, ErrForbidden) {
		err = echo.NewHTTPError(http.StatusForbidden, "You cannot change this post.")
	}
	he, ok := err.(*echo.HTTPError)
	if errors.Is(err, ErrNotFound) || (ok && he.Code == http.StatusNotFound) {
		if isAPI(c) {
			_ = jsonError(c, http.StatusNotFound, "Not found")
			return
		}
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.chrome(c, PageMeta{Title: "Not found | " + a.Config.Name})))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error("server error",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err),
		)
		if isAPI(c) {
			_ = jsonError(c, code, "Internal server error")
			return
		}
		_ = RenderStatus(c, code, a.Views.ServerError(a.chrome(c, PageMeta{Title: "Error | " + a.Config.Name}), "Something went wrong."))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
