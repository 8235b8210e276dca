package inkwell

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	sessionName    = "inkwell_session"
	sessionToken   = "token"
	identityCtxKey = "inkwell.identity"
	tokenIssuer    = "inkwell"
)

// Identity is the signed-in caller.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanEdit reports whether the caller may modify p.
func (i Identity) CanEdit(p Post) bool {
	return i.IsAdmin() || (i.ID != "" && i.ID == p.AuthorID)
}

// SessionProvider answers who the current caller is.
type SessionProvider interface {
	CurrentUser(c echo.Context) (Identity, bool)
}

// Claims is the payload of an inkwell session token.
type Claims struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues HS256 tokens and resolves them from the session cookie or
// an Authorization: Bearer header.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a token issuer signing with secret.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for u.
func (s *Sessions) Issue(u User) (string, error) {
	now := s.now()
	claims := Claims{
		Name: u.Name,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates token and returns the identity it carries.
func (s *Sessions) Parse(token string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return Identity{ID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}

// CurrentUser resolves the caller from a Bearer token first, then from the
// session cookie. The result is memoized on the request context.
func (s *Sessions) CurrentUser(c echo.Context) (Identity, bool) {
	if id, ok := c.Get(identityCtxKey).(Identity); ok {
		return id, id.ID != ""
	}
	id, err := s.resolve(c)
	if err != nil {
		id = Identity{}
	}
	c.Set(identityCtxKey, id)
	return id, id.ID != ""
}

func (s *Sessions) resolve(c echo.Context) (Identity, error) {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return Identity{}, ErrUnauthenticated
		}
		return s.Parse(strings.TrimSpace(token))
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return Identity{}, err
	}
	token, _ := sess.Values[sessionToken].(string)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	return s.Parse(token)
}

// SignIn stores a fresh token for u in the session cookie.
func (s *Sessions) SignIn(c echo.Context, u User) error {
	token, err := s.Issue(u)
	if err != nil {
		return err
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessionToken] = token
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	c.Set(identityCtxKey, Identity{ID: u.ID, Name: u.Name, Role: u.Role})
	return nil
}

// SignOut expires the session cookie.
func (s *Sessions) SignOut(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, sessionToken)
	sess.Options.MaxAge = -1
	c.Set(identityCtxKey, Identity{})
	return sess.Save(c.Request(), c.Response())
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(a.Config.SessionTTL / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// CurrentIdentity returns the caller as resolved by the App's session
// provider.
func (a *App) CurrentIdentity(c echo.Context) (Identity, bool) {
	return a.identity.CurrentUser(c)
}

// requireUser guards HTML pages: anonymous callers are sent to sign in.
func (a *App) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := a.CurrentIdentity(c); !ok {
			return c.Redirect(http.StatusSeeOther, "/auth/signin/")
		}
		return next(c)
	}
}

// requireAPIUser guards JSON endpoints with a 401.
func (a *App) requireAPIUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := a.CurrentIdentity(c); !ok {
			return jsonError(c, http.StatusUnauthorized, "Unauthorized")
		}
		return next(c)
	}
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
