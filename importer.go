package inkwell

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/eringen/inkwell/markdown"
)

// localProvider marks accounts created from the command line.
const localProvider = "local"

// ImportResult summarizes one markdown import run.
type ImportResult struct {
	Created int
	Updated int
	Skipped []string
}

// EnsureAuthor returns the user with email, creating it when missing.
func EnsureAuthor(ctx context.Context, s *Store, name, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, errors.New("author email is required")
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return s.UpsertOAuthUser(ctx,
		Account{Provider: localProvider, ProviderAccountID: email},
		User{Name: name, Email: &email},
	)
}

// ImportMarkdown stores every .md file under fsys as a post by authorID.
// Posts are matched by slug, so running the import again updates them.
// Files that cannot be turned into a post are skipped and reported.
func ImportMarkdown(ctx context.Context, s *Store, fsys fs.FS, authorID string, log *zap.Logger) (ImportResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var res ImportResult
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".md") {
			return nil
		}
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		doc, err := markdown.ParseDocument(src)
		if err != nil {
			log.Warn("skipping file", zap.String("file", p), zap.Error(err))
			res.Skipped = append(res.Skipped, p)
			return nil
		}
		created, err := importDocument(ctx, s, authorID, p, doc)
		switch {
		case errors.Is(err, ErrInvalidPost), errors.Is(err, ErrSlugTaken):
			log.Warn("skipping file", zap.String("file", p), zap.Error(err))
			res.Skipped = append(res.Skipped, p)
			return nil
		case err != nil:
			return fmt.Errorf("import %s: %w", p, err)
		case created:
			res.Created++
		default:
			res.Updated++
		}
		log.Debug("imported", zap.String("file", p), zap.Bool("created", created))
		return nil
	})
	return res, err
}

func importDocument(ctx context.Context, s *Store, authorID, file string, doc markdown.Document) (bool, error) {
	base := strings.TrimSuffix(path.Base(file), path.Ext(file))
	in := PostInput{
		Title:         doc.Meta.Title,
		Content:       doc.Body,
		Summary:       doc.Meta.Summary,
		Slug:          doc.Meta.Slug,
		FeaturedImage: doc.Meta.FeaturedImage,
		Published:     !doc.Meta.Draft,
		Categories:    doc.Meta.Categories,
		Tags:          doc.Meta.Tags,
		CreatedAt:     doc.Meta.Date,
	}
	if in.Title == "" {
		in.Title = titleFromBody(doc.Body)
	}
	if in.Slug == "" {
		in.Slug = base
	}

	existing, err := s.GetPostBySlug(ctx, Slugify(in.Slug))
	switch {
	case err == nil:
		_, err = s.UpdatePost(ctx, existing.ID, in)
		return false, err
	case errors.Is(err, ErrNotFound):
		_, err = s.CreatePost(ctx, authorID, in)
		return true, err
	default:
		return false, err
	}
}

// titleFromBody returns the text of the first level-one heading.
func titleFromBody(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(t)
		}
	}
	return ""
}
