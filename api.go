package inkwell

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/inkwell/ai"
	"github.com/eringen/inkwell/query"
)

const promptSaveTimeout = 10 * time.Second

// APIError is the body of every JSON error response.
type APIError struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, code int, msg string) error {
	return c.JSON(code, APIError{Error: msg})
}

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// PostList is the body of GET /api/posts.
type PostList struct {
	Posts []Post             `json:"posts"`
	Pager query.PageMetadata `json:"pager"`
}

// PostEnvelope wraps a single post.
type PostEnvelope struct {
	Post Post `json:"post"`
}

// PostPatch is a partial update; nil fields keep their current value.
type PostPatch struct {
	Title         *string   `json:"title"`
	Content       *string   `json:"content"`
	Summary       *string   `json:"summary"`
	Slug          *string   `json:"slug"`
	FeaturedImage *string   `json:"featuredImage"`
	Published     *bool     `json:"published"`
	CategoryIDs   *[]string `json:"categoryIds"`
	TagIDs        *[]string `json:"tagIds"`
}

// Apply merges the patch over in.
func (p PostPatch) Apply(in PostInput) PostInput {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Content != nil {
		in.Content = *p.Content
	}
	if p.Summary != nil {
		in.Summary = *p.Summary
	}
	if p.Slug != nil {
		in.Slug = *p.Slug
	}
	if p.FeaturedImage != nil {
		in.FeaturedImage = *p.FeaturedImage
	}
	if p.Published != nil {
		in.Published = *p.Published
	}
	if p.CategoryIDs != nil {
		in.CategoryIDs = *p.CategoryIDs
	}
	if p.TagIDs != nil {
		in.TagIDs = *p.TagIDs
	}
	return in
}

// GenerateRequest is the body of POST /api/ai/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// GenerateResponse carries the generated text.
type GenerateResponse struct {
	Result string `json:"result"`
}

func (a *App) handleAPIListPosts(c echo.Context) error {
	page, err := a.Listings.Page(c.Request().Context(), query.ParseFilter(c.QueryParams()))
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to fetch posts")
	}
	return c.JSON(http.StatusOK, PostList{Posts: page.Items, Pager: page.Meta})
}

func (a *App) handleAPICreatePost(c echo.Context) error {
	id, _ := a.CurrentIdentity(c)
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	post, err := a.Store.CreatePost(c.Request().Context(), id.ID, in)
	if err != nil {
		return a.postWriteError(c, err, "Failed to create post")
	}
	a.postsChanged(c.Request().Context(), "create")
	return c.JSON(http.StatusCreated, PostEnvelope{Post: post})
}

func (a *App) handleAPIGetPost(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "Post not found")
		}
		return jsonError(c, http.StatusInternalServerError, "Failed to fetch post")
	}
	if !post.Published {
		if id, _ := a.CurrentIdentity(c); !id.CanEdit(post) {
			return jsonError(c, http.StatusNotFound, "Post not found")
		}
	}
	return c.JSON(http.StatusOK, PostEnvelope{Post: post})
}

func (a *App) handleAPIUpdatePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, ok, err := a.editablePost(c)
	if !ok {
		return err
	}
	var patch PostPatch
	if err := c.Bind(&patch); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	updated, err := a.Store.UpdatePost(ctx, post.ID, patch.Apply(post.Input()))
	if err != nil {
		return a.postWriteError(c, err, "Failed to update post")
	}
	a.postsChanged(ctx, "update")
	return c.JSON(http.StatusOK, PostEnvelope{Post: updated})
}

func (a *App) handleAPIDeletePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, ok, err := a.editablePost(c)
	if !ok {
		return err
	}
	if err := a.Store.DeletePost(ctx, post.ID); err != nil {
		return a.postWriteError(c, err, "Failed to delete post")
	}
	a.postsChanged(ctx, "delete")
	return c.JSON(http.StatusOK, map[string]string{"message": "Post deleted"})
}

// editablePost loads the :id post and checks the caller may change it.
// When ok is false the JSON error response has been written and err is the
// result of writing it.
func (a *App) editablePost(c echo.Context) (post Post, ok bool, err error) {
	post, err = a.Store.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Post{}, false, jsonError(c, http.StatusNotFound, "Post not found")
		}
		return Post{}, false, jsonError(c, http.StatusInternalServerError, "Failed to fetch post")
	}
	if id, _ := a.CurrentIdentity(c); !id.CanEdit(post) {
		return Post{}, false, jsonError(c, http.StatusForbidden, "Forbidden")
	}
	return post, true, nil
}

func (a *App) postWriteError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrInvalidPost):
		return jsonError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSlugTaken):
		return jsonError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return jsonError(c, http.StatusNotFound, "Post not found")
	}
	a.Log.Error("post write failed", zap.Error(err))
	return jsonError(c, http.StatusInternalServerError, fallback)
}

// postsChanged drops every cached view of the post collection.
func (a *App) postsChanged(ctx context.Context, op string) {
	a.Taxonomy.Invalidate()
	a.ListingCache.Invalidate(ctx)
	a.Metrics.PostWrites.WithLabelValues(op).Inc()
}

func (a *App) handleAPIGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return jsonError(c, http.StatusBadRequest, "Prompt is required")
	}
	if !a.aiLimiter.Allow(c.RealIP()) {
		return jsonError(c, http.StatusTooManyRequests, "Too many requests. Try again later.")
	}
	if caller, ok := a.CurrentIdentity(c); ok {
		if req.UserID == "" {
			req.UserID = caller.ID
		} else if req.UserID != caller.ID {
			return jsonError(c, http.StatusForbidden, "Forbidden")
		}
	}
	result, err := a.generate(c.Request().Context(), req.UserID, ai.ParseTaskType(req.Type), req.Prompt)
	if err != nil {
		if errors.Is(err, errGeneratorDisabled) {
			return jsonError(c, http.StatusServiceUnavailable, "AI generation is not configured")
		}
		return jsonError(c, http.StatusInternalServerError, "Failed to generate AI content")
	}
	return c.JSON(http.StatusOK, GenerateResponse{Result: result})
}

var errGeneratorDisabled = errors.New("ai generation is not configured")

// generate runs one generation. When userID is set the prompt and answer
// are stored in the background; the response does not wait for it.
func (a *App) generate(ctx context.Context, userID string, task ai.TaskType, prompt string) (string, error) {
	if a.Generator == nil {
		return "", errGeneratorDisabled
	}
	result, err := a.Generator.Generate(ctx, task, prompt)
	if err != nil {
		a.Metrics.AIGenerations.WithLabelValues(string(task), "error").Inc()
		a.Log.Error("ai generation failed", zap.String("type", string(task)), zap.Error(err))
		return "", err
	}
	a.Metrics.AIGenerations.WithLabelValues(string(task), "ok").Inc()
	if userID != "" {
		a.savePrompt(ctx, AIPrompt{Prompt: prompt, Response: result, Type: task, UserID: userID})
	}
	return result, nil
}

func (a *App) savePrompt(ctx context.Context, p AIPrompt) {
	ctx = context.WithoutCancel(ctx)
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		ctx, cancel := context.WithTimeout(ctx, promptSaveTimeout)
		defer cancel()
		if err := a.Store.SaveAIPrompt(ctx, &p); err != nil {
			a.Log.Warn("ai prompt not saved", zap.String("user", p.UserID), zap.Error(err))
		}
	}()
}
