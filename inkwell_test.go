package inkwell

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestStore opens a migrated sqlite database in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "inkwell.db"),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.AutoMigrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustAuthor(t *testing.T, s *Store, email string) User {
	t.Helper()
	u, err := EnsureAuthor(context.Background(), s, "", email)
	require.NoError(t, err)
	return u
}

// mustPost creates a post, dating it age before a fixed reference time so
// listing order is deterministic.
func mustPost(t *testing.T, s *Store, authorID string, in PostInput, age time.Duration) Post {
	t.Helper()
	in.CreatedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Add(-age)
	p, err := s.CreatePost(context.Background(), authorID, in)
	require.NoError(t, err)
	return p
}

func testConfig() SiteConfig {
	return SiteConfig{
		Name:          "Inkwell Test",
		URL:           "https://blog.example.com",
		Description:   "A test blog",
		Author:        "Test Author",
		SessionSecret: "test-session-secret-which-is-long-enough",
	}
}
