package inkwell

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/inkwell/ai"
)

func (a *App) handleDashboard(c echo.Context) error {
	return a.renderDashboard(c, c.QueryParam("msg"))
}

func (a *App) renderDashboard(c echo.Context, msg string) error {
	id, _ := a.CurrentIdentity(c)
	authorID := id.ID
	if id.IsAdmin() {
		authorID = ""
	}
	posts, err := a.Store.ListPostsByAuthor(c.Request().Context(), authorID)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Dashboard(DashboardPage{
		Chrome:  a.chrome(c, PageMeta{Title: "Dashboard | " + a.Config.Name}),
		Posts:   posts,
		Message: msg,
	}))
}

func (a *App) handleDashboardCreate(c echo.Context) error {
	return a.renderPostForm(c, Post{}, "New post")
}

func (a *App) handleDashboardPost(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if id, _ := a.CurrentIdentity(c); !id.CanEdit(post) {
		return ErrForbidden
	}
	return a.renderPostForm(c, post, "Edit: "+post.Title)
}

func (a *App) renderPostForm(c echo.Context, post Post, title string) error {
	ctx := c.Request().Context()
	cats, err := a.Store.ListCategories(ctx)
	if err != nil {
		return err
	}
	tags, err := a.Store.ListTags(ctx)
	if err != nil {
		return err
	}
	return Render(c, a.Views.PostForm(PostFormPage{
		Chrome:     a.chrome(c, PageMeta{Title: title + " | " + a.Config.Name}),
		Post:       post,
		Categories: cats,
		Tags:       tags,
		TaskTypes:  ai.TaskTypes,
		AIEnabled:  a.Generator != nil,
	}))
}

// postFormInput reads the editor form. Categories and tags are
// comma-separated names.
func postFormInput(c echo.Context) PostInput {
	return PostInput{
		Title:         c.FormValue("title"),
		Slug:          c.FormValue("slug"),
		Summary:       c.FormValue("summary"),
		Content:       c.FormValue("content"),
		FeaturedImage: c.FormValue("featured_image"),
		Published:     c.FormValue("published") != "",
		AIGenerated:   c.FormValue("ai_generated") != "",
		Categories:    SplitList(c.FormValue("categories")),
		Tags:          SplitList(c.FormValue("tags")),
	}
}

func dashboardRedirect(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/dashboard/?msg="+url.QueryEscape(msg))
}

func (a *App) handleDashboardSave(c echo.Context) error {
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id, _ := a.CurrentIdentity(c)
	in := postFormInput(c)

	postID := strings.TrimSpace(c.FormValue("id"))
	var (
		post Post
		err  error
		op   = "create"
	)
	if postID == "" {
		post, err = a.Store.CreatePost(ctx, id.ID, in)
	} else {
		op = "update"
		existing, gerr := a.Store.GetPost(ctx, postID)
		if gerr != nil {
			return gerr
		}
		if !id.CanEdit(existing) {
			return ErrForbidden
		}
		post, err = a.Store.UpdatePost(ctx, postID, in)
	}
	switch {
	case errors.Is(err, ErrInvalidPost):
		return dashboardRedirect(c, "Title is required.")
	case errors.Is(err, ErrSlugTaken):
		return dashboardRedirect(c, "Slug is already in use. Choose another one.")
	case err != nil:
		return err
	}
	a.postsChanged(ctx, op)
	a.Log.Info("post saved", zap.String("op", op), zap.String("post", post.ID), zap.String("user", id.ID))
	return dashboardRedirect(c, "Saved \""+post.Title+"\".")
}

func (a *App) handleDashboardDelete(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Store.GetPost(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	id, _ := a.CurrentIdentity(c)
	if !id.CanEdit(post) {
		return ErrForbidden
	}
	if err := a.Store.DeletePost(ctx, post.ID); err != nil {
		return err
	}
	a.postsChanged(ctx, "delete")
	return a.renderDashboard(c, "Post deleted.")
}

// handleDashboardAI answers the editor's assist panel with an HTML fragment.
func (a *App) handleDashboardAI(c echo.Context) error {
	task := ai.ParseTaskType(c.FormValue("type"))
	prompt := strings.TrimSpace(c.FormValue("prompt"))
	res := AIResult{Task: task}
	switch {
	case prompt == "":
		res.Error = "Prompt is required."
		return RenderStatus(c, http.StatusBadRequest, a.Views.AIResult(res))
	case !a.aiLimiter.Allow(c.RealIP()):
		res.Error = "Too many requests. Try again in a minute."
		return RenderStatus(c, http.StatusTooManyRequests, a.Views.AIResult(res))
	}
	id, _ := a.CurrentIdentity(c)
	result, err := a.generate(c.Request().Context(), id.ID, task, prompt)
	if err != nil {
		res.Error = "Failed to generate AI content."
		if errors.Is(err, errGeneratorDisabled) {
			res.Error = "AI generation is not configured."
		}
		return Render(c, a.Views.AIResult(res))
	}
	res.Result = result
	return Render(c, a.Views.AIResult(res))
}
