package inkwell

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateKey    = "oauth_state"
	oauthVerifierKey = "oauth_verifier"
	maxProfileBytes  = 1 << 20
)

// Profile is the identity a provider reports for the signed-in account.
type Profile struct {
	ID    string
	Name  string
	Email string
	Image string
}

// Provider is an OAuth 2.0 identity provider.
type Provider struct {
	Name        string // URL segment, e.g. "github"
	Label       string // button text
	OAuth       *oauth2.Config
	UserInfoURL string
	// ParseProfile decodes the body returned by UserInfoURL.
	ParseProfile func([]byte) (Profile, error)
}

// FetchProfile exchanges code for a token and loads the account profile.
func (p *Provider) FetchProfile(ctx context.Context, code, verifier string) (Profile, *oauth2.Token, error) {
	opts := []oauth2.AuthCodeOption{}
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	tok, err := p.OAuth.Exchange(ctx, code, opts...)
	if err != nil {
		return Profile{}, nil, fmt.Errorf("%s: exchange code: %w", p.Name, err)
	}
	resp, err := p.OAuth.Client(ctx, tok).Get(p.UserInfoURL)
	if err != nil {
		return Profile{}, nil, fmt.Errorf("%s: fetch profile: %w", p.Name, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return Profile{}, nil, fmt.Errorf("%s: read profile: %w", p.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, nil, fmt.Errorf("%s: profile status %d", p.Name, resp.StatusCode)
	}
	prof, err := p.ParseProfile(body)
	if err != nil {
		return Profile{}, nil, fmt.Errorf("%s: decode profile: %w", p.Name, err)
	}
	if prof.ID == "" {
		return Profile{}, nil, fmt.Errorf("%s: profile has no id", p.Name)
	}
	return prof, tok, nil
}

func callbackURL(base, provider string) string {
	return BuildURL(base, "auth", provider, "callback")
}

// GoogleProvider signs users in with Google accounts.
func GoogleProvider(creds OAuthCredentials, siteURL string) *Provider {
	return &Provider{
		Name:  "google",
		Label: "Google",
		OAuth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  callbackURL(siteURL, "google"),
			Scopes:       []string{"openid", "profile", "email"},
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
		ParseProfile: func(b []byte) (Profile, error) {
			var v struct {
				Sub     string `json:"sub"`
				Name    string `json:"name"`
				Email   string `json:"email"`
				Picture string `json:"picture"`
			}
			if err := json.Unmarshal(b, &v); err != nil {
				return Profile{}, err
			}
			return Profile{ID: v.Sub, Name: v.Name, Email: v.Email, Image: v.Picture}, nil
		},
	}
}

// GitHubProvider signs users in with GitHub accounts.
func GitHubProvider(creds OAuthCredentials, siteURL string) *Provider {
	return &Provider{
		Name:  "github",
		Label: "GitHub",
		OAuth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  callbackURL(siteURL, "github"),
			Scopes:       []string{"read:user", "user:email"},
		},
		UserInfoURL: "https://api.github.com/user",
		ParseProfile: func(b []byte) (Profile, error) {
			var v struct {
				ID        int64  `json:"id"`
				Login     string `json:"login"`
				Name      string `json:"name"`
				Email     string `json:"email"`
				AvatarURL string `json:"avatar_url"`
			}
			if err := json.Unmarshal(b, &v); err != nil {
				return Profile{}, err
			}
			name := v.Name
			if name == "" {
				name = v.Login
			}
			id := ""
			if v.ID != 0 {
				id = strconv.FormatInt(v.ID, 10)
			}
			return Profile{ID: id, Name: name, Email: v.Email, Image: v.AvatarURL}, nil
		},
	}
}

// FacebookProvider signs users in with Facebook accounts.
func FacebookProvider(creds OAuthCredentials, siteURL string) *Provider {
	return &Provider{
		Name:  "facebook",
		Label: "Facebook",
		OAuth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     facebook.Endpoint,
			RedirectURL:  callbackURL(siteURL, "facebook"),
			Scopes:       []string{"public_profile", "email"},
		},
		UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email,picture",
		ParseProfile: func(b []byte) (Profile, error) {
			var v struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Email   string `json:"email"`
				Picture struct {
					Data struct {
						URL string `json:"url"`
					} `json:"data"`
				} `json:"picture"`
			}
			if err := json.Unmarshal(b, &v); err != nil {
				return Profile{}, err
			}
			return Profile{ID: v.ID, Name: v.Name, Email: v.Email, Image: v.Picture.Data.URL}, nil
		},
	}
}

// configuredProviders returns the built-in providers that have credentials,
// overridden or extended by extra.
func configuredProviders(cfg SiteConfig, extra []*Provider) map[string]*Provider {
	out := map[string]*Provider{}
	if c := cfg.OAuth.Google; c.ClientID != "" && c.ClientSecret != "" {
		out["google"] = GoogleProvider(c, cfg.URL)
	}
	if c := cfg.OAuth.GitHub; c.ClientID != "" && c.ClientSecret != "" {
		out["github"] = GitHubProvider(c, cfg.URL)
	}
	if c := cfg.OAuth.Facebook; c.ClientID != "" && c.ClientSecret != "" {
		out["facebook"] = FacebookProvider(c, cfg.URL)
	}
	for _, p := range extra {
		out[p.Name] = p
	}
	return out
}

// ProviderLink is a sign-in button.
type ProviderLink struct {
	Name  string
	Label string
	URL   string
}

func (a *App) providerLinks() []ProviderLink {
	links := make([]ProviderLink, 0, len(a.providers))
	for _, p := range a.providers {
		links = append(links, ProviderLink{Name: p.Name, Label: p.Label, URL: "/auth/" + p.Name + "/login/"})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Label < links[j].Label })
	return links
}

func (a *App) handleSignIn(c echo.Context) error {
	if _, ok := a.CurrentIdentity(c); ok {
		return c.Redirect(http.StatusSeeOther, "/dashboard/")
	}
	return Render(c, a.Views.SignIn(a.providerLinks(), CsrfToken(c)))
}

func (a *App) handleOAuthLogin(c echo.Context) error {
	p, ok := a.providers[c.Param("provider")]
	if !ok {
		return echo.ErrNotFound
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	sess.Values[oauthStateKey] = p.Name + ":" + state
	sess.Values[oauthVerifierKey] = verifier
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, p.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier)))
}

func (a *App) handleOAuthCallback(c echo.Context) error {
	p, ok := a.providers[c.Param("provider")]
	if !ok {
		return echo.ErrNotFound
	}
	if e := c.QueryParam("error"); e != "" {
		return authError(c, e)
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	want, _ := sess.Values[oauthStateKey].(string)
	verifier, _ := sess.Values[oauthVerifierKey].(string)
	delete(sess.Values, oauthStateKey)
	delete(sess.Values, oauthVerifierKey)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	if want == "" || want != p.Name+":"+c.QueryParam("state") {
		return authError(c, "OAuthState")
	}
	code := c.QueryParam("code")
	if code == "" {
		return authError(c, "OAuthCallback")
	}

	ctx := c.Request().Context()
	prof, tok, err := p.FetchProfile(ctx, code, verifier)
	if err != nil {
		a.Log.Warn("oauth sign-in failed", zap.String("provider", p.Name), zap.Error(err))
		return authError(c, "OAuthCallback")
	}

	acct := Account{
		Provider:          p.Name,
		ProviderAccountID: prof.ID,
		AccessToken:       tok.AccessToken,
		RefreshToken:      tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		acct.ExpiresAt = &exp
	}
	profile := User{Name: prof.Name, Image: prof.Image, Role: RoleUser}
	if prof.Email != "" {
		email := strings.ToLower(prof.Email)
		profile.Email = &email
		if a.isAdminEmail(email) {
			profile.Role = RoleAdmin
		}
	}
	user, err := a.Store.UpsertOAuthUser(ctx, acct, profile)
	if err != nil {
		return err
	}
	if err := a.sessions.SignIn(c, user); err != nil {
		return err
	}
	a.Log.Info("signed in", zap.String("provider", p.Name), zap.String("user", user.ID))
	return c.Redirect(http.StatusSeeOther, "/dashboard/")
}

func (a *App) isAdminEmail(email string) bool {
	return slices.ContainsFunc(a.Config.AdminEmails, func(e string) bool {
		return strings.EqualFold(strings.TrimSpace(e), email)
	})
}

func authError(c echo.Context, code string) error {
	return c.Redirect(http.StatusSeeOther, "/auth/error/?error="+url.QueryEscape(code))
}

func (a *App) handleSignOut(c echo.Context) error {
	if err := a.sessions.SignOut(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/blog/")
}

func (a *App) handleAuthError(c echo.Context) error {
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AuthError(authErrorMessage(c.QueryParam("error"))))
}

func authErrorMessage(code string) string {
	switch code {
	case "OAuthState":
		return "The sign-in request expired or was tampered with. Please try again."
	case "OAuthCallback":
		return "The identity provider did not complete the sign-in."
	case "access_denied":
		return "Sign-in was cancelled."
	case "":
		return "Sign-in failed."
	default:
		return "Sign-in failed: " + code
	}
}

// Token is the response of the token endpoint.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleAPIToken issues a Bearer token for the signed-in session user, for
// scripts that call the JSON API.
func (a *App) handleAPIToken(c echo.Context) error {
	id, _ := a.CurrentIdentity(c)
	user, err := a.Store.GetUser(c.Request().Context(), id.ID)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "Unauthorized")
	}
	token, err := a.sessions.Issue(user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Token{Token: token, ExpiresAt: time.Now().Add(a.Config.SessionTTL).UTC()})
}
