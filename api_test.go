package inkwell

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/inkwell/ai"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func jsonBody(s string) *strings.Reader { return strings.NewReader(s) }

const jsonHeader = "Content-Type"

func (a *testApp) doJSON(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	return a.do(method, target, jsonBody(body), append([]string{jsonHeader, "application/json"}, headers...)...)
}

func TestAPIListPosts(t *testing.T) {
	a := newTestApp(t)
	seedListing(t, a.Store)

	rec := a.do(http.MethodGet, "/api/posts?category=tech&page=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	list := decode[PostList](t, rec)
	assert.Equal(t, "go-generics,rust-ownership", postSlugs(list.Posts))
	assert.Equal(t, int64(2), list.Pager.TotalCount)
	assert.Equal(t, 1, list.Pager.TotalPages)
	assert.Equal(t, "Tech", list.Posts[0].Categories[0].Name)
	assert.NotContains(t, rec.Body.String(), "ada@example.com")
}

func TestAPIListPostsFailure(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Store.Close())

	rec := a.do(http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch posts", decode[APIError](t, rec).Error)
}

func TestAPIPostLifecycle(t *testing.T) {
	a := newTestApp(t)
	ada := mustAuthor(t, a.Store, "ada@example.com")
	bob := mustAuthor(t, a.Store, "bob@example.com")

	rec := a.doJSON(http.MethodPost, "/api/posts", `{"title":"Anon"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	a.signIn(ada)
	rec = a.doJSON(http.MethodPost, "/api/posts",
		`{"title":"API post","content":"Body text","categories":["Go"],"tags":["api"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[PostEnvelope](t, rec).Post
	assert.Equal(t, "api-post", created.Slug)
	assert.Equal(t, ada.ID, created.AuthorID)
	assert.False(t, created.Published)

	a.signOut()
	rec = a.do(http.MethodGet, "/api/posts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "drafts are hidden from anonymous callers")

	a.signIn(ada)
	rec = a.do(http.MethodGet, "/api/posts/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.doJSON(http.MethodPatch, "/api/posts/"+created.ID, `{"published":true,"summary":"Short"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[PostEnvelope](t, rec).Post
	assert.True(t, patched.Published)
	assert.Equal(t, "Short", patched.Summary)
	assert.Equal(t, "API post", patched.Title)
	assert.Equal(t, "Body text", patched.Content)
	require.Len(t, patched.Categories, 1, "absent taxonomy is kept")
	require.Len(t, patched.Tags, 1)

	rec = a.doJSON(http.MethodPatch, "/api/posts/"+created.ID, `{"tagIds":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[PostEnvelope](t, rec).Post.Tags)

	a.signIn(bob)
	rec = a.doJSON(http.MethodPatch, "/api/posts/"+created.ID, `{"title":"Hijacked"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodDelete, "/api/posts/"+created.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	a.signIn(ada)
	rec = a.do(http.MethodDelete, "/api/posts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Post deleted"}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/posts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodDelete, "/api/posts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.PostWrites.WithLabelValues("create")))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.Metrics.PostWrites.WithLabelValues("update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.PostWrites.WithLabelValues("delete")))
}

func TestAPIAdminCanEditAnyPost(t *testing.T) {
	a := newTestApp(t)
	ada := mustAuthor(t, a.Store, "ada@example.com")
	p := mustPost(t, a.Store, ada.ID, PostInput{Title: "Ada's"}, 0)

	a.who.id = Identity{ID: "admin-1", Role: RoleAdmin}
	rec := a.doJSON(http.MethodPatch, "/api/posts/"+p.ID, `{"title":"Edited by admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Edited by admin", decode[PostEnvelope](t, rec).Post.Title)
}

func TestAPIPostValidation(t *testing.T) {
	a := newTestApp(t)
	ada := mustAuthor(t, a.Store, "ada@example.com")
	a.signIn(ada)

	rec := a.doJSON(http.MethodPost, "/api/posts", `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.doJSON(http.MethodPost, "/api/posts", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode[APIError](t, rec).Error)

	rec = a.doJSON(http.MethodPost, "/api/posts", `{"title":"Dup"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.doJSON(http.MethodPost, "/api/posts", `{"title":"Other","slug":"dup"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.doJSON(http.MethodPatch, "/api/posts/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIUnknownRouteIsJSON(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[APIError](t, rec).Error)
}

func echoGenerator() ai.Generator {
	return ai.GeneratorFunc(func(ctx context.Context, task ai.TaskType, prompt string) (string, error) {
		return string(task) + ":" + prompt, nil
	})
}

func TestAPIGenerate(t *testing.T) {
	a := newTestApp(t, WithGenerator(echoGenerator()))
	ada := mustAuthor(t, a.Store, "ada@example.com")

	rec := a.doJSON(http.MethodPost, "/api/ai/generate", `{"prompt":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Prompt is required", decode[APIError](t, rec).Error)

	rec = a.doJSON(http.MethodPost, "/api/ai/generate", `{"prompt":"Go tips","type":"summarizer","userId":"`+ada.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SUMMARIZER:Go tips", decode[GenerateResponse](t, rec).Result)

	rec = a.doJSON(http.MethodPost, "/api/ai/generate", `{"prompt":"Anything","type":"bogus"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GENERAL:Anything", decode[GenerateResponse](t, rec).Result)

	a.signIn(ada)
	rec = a.doJSON(http.MethodPost, "/api/ai/generate", `{"prompt":"Mine"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.doJSON(http.MethodPost, "/api/ai/generate", `{"prompt":"Theirs","userId":"someone-else"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	a.background.Wait()
	prompts, err := a.Store.ListAIPrompts(context.Background(), ada.ID, 10)
	require.NoError(t, err)
	require.Len(t, prompts, 2, "anonymous prompts without a user are not stored")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.AIGenerations.WithLabelValues("SUMMARIZER", "ok")))
}

func TestAPIGenerateFailures(t *testing.T) {
	a := newTestApp(t)
	rec := a.doJSON(http.MethodPost, "/api/ai/generate", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	failing := ai.GeneratorFunc(func(ctx context.Context, task ai.TaskType, prompt string) (string, error) {
		return "", errors.New("upstream quota exceeded")
	})
	b := newTestApp(t, WithGenerator(failing))
	rec = b.doJSON(http.MethodPost, "/api/ai/generate", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate AI content", decode[APIError](t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "quota")
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Metrics.AIGenerations.WithLabelValues("GENERAL", "error")))
}

func TestAPIGenerateRateLimit(t *testing.T) {
	a := newTestApp(t, WithGenerator(echoGenerator()), func(a *App) { a.Config.AIRateLimit = 2 })

	for i := 0; i < 2; i++ {
		rec := a.doJSON(http.MethodPost, "/api/ai/generate", `{"prompt":"x"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := a.doJSON(http.MethodPost, "/api/ai/generate", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate", jsonBody(`{"prompt":"x"}`))
	req.Header.Set(jsonHeader, "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	req.RemoteAddr = "127.0.0.1:40000"
	rec = httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per client address")
}

func TestPostPatchApply(t *testing.T) {
	title := "New"
	published := true
	ids := []string{"c2"}
	in := PostInput{Title: "Old", Content: "Body", CategoryIDs: []string{"c1"}, TagIDs: []string{"t1"}}

	out := PostPatch{Title: &title, Published: &published, CategoryIDs: &ids}.Apply(in)

	assert.Equal(t, PostInput{
		Title:       "New",
		Content:     "Body",
		Published:   true,
		CategoryIDs: []string{"c2"},
		TagIDs:      []string{"t1"},
	}, out)
}
