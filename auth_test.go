package inkwell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"
)

// fakeIdP is an OAuth provider with a token and a profile endpoint.
func fakeIdP(t *testing.T, profile string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" || r.Form.Get("code_verifier") == "" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(profile))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server) *Provider {
	return &Provider{
		Name:  "test",
		Label: "Test",
		OAuth: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"},
			RedirectURL:  "https://blog.example.com/auth/test/callback/",
		},
		UserInfoURL: srv.URL + "/user",
		ParseProfile: func(b []byte) (Profile, error) {
			var p Profile
			err := json.Unmarshal(b, &p)
			return p, err
		},
	}
}

// browser replays cookies between requests like a user agent would.
type browser struct {
	t   *testing.T
	app *App
	jar *cookiejar.Jar
}

var siteURL, _ = url.Parse("http://example.com/")

func newBrowser(t *testing.T, a *App) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, app: a, jar: jar}
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range b.jar.Cookies(siteURL) {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.app.Echo.ServeHTTP(rec, req)
	b.jar.SetCookies(siteURL, rec.Result().Cookies())
	return rec
}

func newOAuthApp(t *testing.T, p *Provider) *App {
	t.Helper()
	cfg := testConfig()
	cfg.AdminEmails = []string{"Admin@Example.com"}
	a := New(cfg, stubViews(),
		WithStore(newTestStore(t)),
		WithStaticDir(t.TempDir()),
		WithLogger(zaptest.NewLogger(t)),
		WithProvider(p),
	)
	require.NoError(t, a.Setup(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestOAuthSignInFlow(t *testing.T) {
	srv := fakeIdP(t, `{"ID":"77","Name":"Grace","Email":"ADMIN@example.com","Image":"https://img.example.com/g.png"}`)
	a := newOAuthApp(t, testProvider(srv))
	b := newBrowser(t, a)

	rec := b.get("/auth/signin/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "signin:/auth/test/login/", rec.Body.String())

	rec = b.get("/auth/test/login/")
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/authorize", loc.Scheme+"://"+loc.Host+loc.Path)
	assert.Equal(t, "S256", loc.Query().Get("code_challenge_method"))
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	rec = b.get("/auth/test/callback/?code=good-code&state=" + url.QueryEscape(state))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard/", rec.Header().Get("Location"))

	rec = b.get("/dashboard/")
	require.Equal(t, http.StatusOK, rec.Code)

	var u User
	require.NoError(t, a.Store.DB().Where("email = ?", "admin@example.com").First(&u).Error)
	assert.Equal(t, "Grace", u.Name)
	assert.True(t, u.IsAdmin())

	rec = b.get("/auth/signin/")
	assert.Equal(t, http.StatusSeeOther, rec.Code, "signed-in users skip the sign-in page")
}

func TestOAuthCallbackRejectsBadState(t *testing.T) {
	srv := fakeIdP(t, `{"ID":"77"}`)
	a := newOAuthApp(t, testProvider(srv))
	b := newBrowser(t, a)

	b.get("/auth/test/login/")
	rec := b.get("/auth/test/callback/?code=good-code&state=forged")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/error/?error=OAuthState", rec.Header().Get("Location"))

	rec = b.get("/dashboard/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin/", rec.Header().Get("Location"))
}

func TestOAuthCallbackFailures(t *testing.T) {
	srv := fakeIdP(t, `{"Name":"no id"}`)
	a := newOAuthApp(t, testProvider(srv))
	b := newBrowser(t, a)

	rec := b.get("/auth/test/callback/?error=access_denied")
	assert.Equal(t, "/auth/error/?error=access_denied", rec.Header().Get("Location"))

	rec = b.get("/auth/error/?error=access_denied")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "auth-error:Sign-in was cancelled.", rec.Body.String())

	loc, err := url.Parse(b.get("/auth/test/login/").Header().Get("Location"))
	require.NoError(t, err)
	rec = b.get("/auth/test/callback/?code=good-code&state=" + url.QueryEscape(loc.Query().Get("state")))
	assert.Equal(t, "/auth/error/?error=OAuthCallback", rec.Header().Get("Location"), "profiles without an id are refused")

	rec = b.get("/auth/nobody/login/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionsIssueAndParse(t *testing.T) {
	s := NewSessions("secret-one", time.Hour)
	token, err := s.Issue(User{ID: "u1", Name: "Ada", Role: RoleAdmin})
	require.NoError(t, err)

	id, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "u1", Name: "Ada", Role: RoleAdmin}, id)

	_, err = NewSessions("secret-two", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Parse(token)
	assert.ErrorIs(t, err, ErrUnauthenticated, "expired")
}

func TestSessionsRejectForeignTokens(t *testing.T) {
	s := NewSessions("secret", time.Hour)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer: tokenIssuer, Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Parse(unsigned)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer: "someone-else", Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := other.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.Parse(signed)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBearerTokenAuthenticatesAPI(t *testing.T) {
	a := New(testConfig(), stubViews(), WithStore(newTestStore(t)), WithStaticDir(t.TempDir()))
	require.NoError(t, a.Setup(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	ta := &testApp{App: a}
	ada := mustAuthor(t, a.Store, "ada@example.com")

	token, err := a.sessions.Issue(ada)
	require.NoError(t, err)
	bearer := []string{"Authorization", "Bearer " + token}

	rec := ta.doJSON(http.MethodPost, "/api/token", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ta.doJSON(http.MethodPost, "/api/token", `{}`, bearer...)
	require.Equal(t, http.StatusOK, rec.Code)
	issued := decode[Token](t, rec)
	id, err := a.sessions.Parse(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, id.ID)

	rec = ta.doJSON(http.MethodPost, "/api/posts", `{"title":"Via token"}`, bearer...)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ta.doJSON(http.MethodPost, "/api/posts", `{"title":"Bad"}`, "Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProviderProfiles(t *testing.T) {
	gh := GitHubProvider(OAuthCredentials{ClientID: "id", ClientSecret: "s"}, "https://blog.example.com")
	assert.Equal(t, "https://blog.example.com/auth/github/callback/", gh.OAuth.RedirectURL)
	p, err := gh.ParseProfile([]byte(`{"id":12,"login":"octo","avatar_url":"https://a/x.png"}`))
	require.NoError(t, err)
	assert.Equal(t, Profile{ID: "12", Name: "octo", Image: "https://a/x.png"}, p)

	g := GoogleProvider(OAuthCredentials{}, "https://blog.example.com")
	p, err = g.ParseProfile([]byte(`{"sub":"g-1","name":"G","email":"g@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "g-1", p.ID)

	fb := FacebookProvider(OAuthCredentials{}, "https://blog.example.com")
	p, err = fb.ParseProfile([]byte(`{"id":"f-1","picture":{"data":{"url":"https://f/p.jpg"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "https://f/p.jpg", p.Image)

	cfg := testConfig()
	cfg.OAuth.GitHub = OAuthCredentials{ClientID: "id", ClientSecret: "s"}
	cfg.OAuth.Google = OAuthCredentials{ClientID: "id"}
	providers := configuredProviders(cfg, nil)
	assert.Len(t, providers, 1)
	assert.Contains(t, providers, "github")
}
