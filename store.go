package inkwell

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	msqlite "modernc.org/sqlite"

	"github.com/eringen/inkwell/markdown"
	"github.com/eringen/inkwell/query"
)

// unicodeLower is registered on the sqlite driver because its built-in
// LOWER only folds ASCII.
const unicodeLower = "unicode_lower"

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(unicodeLower, 1,
		func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			}
			return args[0], nil
		})
}

// Store wraps a gorm database and provides the persistence operations of
// the blog: posts with their taxonomy, users, AI prompts and images.
type Store struct {
	db *gorm.DB
}

// OpenStore connects to the configured database. For sqlite the data
// directory is created and the pure-Go driver is used with WAL enabled.
func OpenStore(cfg DatabaseConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		if dir := filepath.Dir(cfg.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: sqliteDSN(cfg.DSN)})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Driver == "postgres" {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	} else {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(4)
	}
	return &Store{db: db}, nil
}

// sqliteDSN adds the connection pragmas unless the caller supplied its own
// query string.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
}

// NewStoreFromDB wraps an already opened gorm handle.
func NewStoreFromDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// lowerFunc names the SQL function that folds text like strings.ToLower.
func (s *Store) lowerFunc() string {
	if s.db.Dialector.Name() == "sqlite" {
		return unicodeLower
	}
	return "LOWER"
}

// DB exposes the underlying handle for commands that need raw access.
func (s *Store) DB() *gorm.DB { return s.db }

// AutoMigrate creates or updates the schema for every model.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(
		&User{},
		&Account{},
		&Category{},
		&Tag{},
		&Post{},
		&AIPrompt{},
		&Image{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func withPostRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.name") }).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") })
}

// ListPosts returns one page of posts matching where, newest first, with
// author, categories and tags loaded.
func (s *Store) ListPosts(ctx context.Context, where query.Predicate, skip, take int) ([]Post, error) {
	cond, args, err := compileWhere(where, s.lowerFunc())
	if err != nil {
		return nil, err
	}
	var posts []Post
	err = withPostRelations(s.db.WithContext(ctx).Model(&Post{})).
		Where(cond, args...).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset(skip).
		Limit(take).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// CountPosts returns the number of posts matching where.
func (s *Store) CountPosts(ctx context.Context, where query.Predicate) (int64, error) {
	cond, args, err := compileWhere(where, s.lowerFunc())
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&Post{}).Where(cond, args...).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// Posts adapts the store to the listing gateway.
func (s *Store) Posts() query.Gateway[Post] { return postGateway{s} }

type postGateway struct{ s *Store }

func (g postGateway) List(ctx context.Context, where query.Predicate, skip, take int) ([]Post, error) {
	return g.s.ListPosts(ctx, where, skip, take)
}

func (g postGateway) Count(ctx context.Context, where query.Predicate) (int64, error) {
	return g.s.CountPosts(ctx, where)
}

// GetPublishedPost returns a published post by slug.
func (s *Store) GetPublishedPost(ctx context.Context, slug string) (Post, error) {
	var p Post
	err := withPostRelations(s.db.WithContext(ctx)).
		Where("posts.slug = ? AND posts.published = ?", slug, true).
		First(&p).Error
	if err != nil {
		return Post{}, notFound(err)
	}
	return p, nil
}

// GetPost returns a post by id regardless of its published state.
func (s *Store) GetPost(ctx context.Context, id string) (Post, error) {
	var p Post
	if err := withPostRelations(s.db.WithContext(ctx)).Where("posts.id = ?", id).First(&p).Error; err != nil {
		return Post{}, notFound(err)
	}
	return p, nil
}

// GetPostBySlug returns a post by slug regardless of its published state.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	var p Post
	if err := withPostRelations(s.db.WithContext(ctx)).Where("posts.slug = ?", slug).First(&p).Error; err != nil {
		return Post{}, notFound(err)
	}
	return p, nil
}

// ListPublished returns the newest published posts. A limit of zero returns
// all of them.
func (s *Store) ListPublished(ctx context.Context, limit int) ([]Post, error) {
	tx := withPostRelations(s.db.WithContext(ctx)).
		Where("posts.published = ?", true).
		Order("posts.created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var posts []Post
	if err := tx.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return posts, nil
}

// ListPostsByAuthor returns every post, drafts included, written by
// authorID. An empty authorID lists all posts.
func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	tx := withPostRelations(s.db.WithContext(ctx)).Order("posts.created_at DESC")
	if authorID != "" {
		tx = tx.Where("posts.author_id = ?", authorID)
	}
	var posts []Post
	if err := tx.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return posts, nil
}

// RelatedPosts returns up to limit published posts sharing a category with
// p, excluding p itself.
func (s *Store) RelatedPosts(ctx context.Context, p Post, limit int) ([]Post, error) {
	if len(p.Categories) == 0 || limit <= 0 {
		return []Post{}, nil
	}
	ids := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		ids[i] = c.ID
	}
	var posts []Post
	err := withPostRelations(s.db.WithContext(ctx)).
		Where("posts.published = ? AND posts.id <> ?", true, p.ID).
		Where("EXISTS (SELECT 1 FROM post_categories WHERE post_categories.post_id = posts.id AND post_categories.category_id IN ?)", ids).
		Order("posts.created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("related posts: %w", err)
	}
	return posts, nil
}

// PostInput is the writable part of a post. Categories and tags may be
// given as existing ids or as names, which are created on demand.
type PostInput struct {
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Summary       string    `json:"summary"`
	Slug          string    `json:"slug"`
	FeaturedImage string    `json:"featuredImage"`
	Published     bool      `json:"published"`
	AIGenerated   bool      `json:"aiGenerated"`
	CategoryIDs   []string  `json:"categoryIds"`
	TagIDs        []string  `json:"tagIds"`
	Categories    []string  `json:"categories,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	CreatedAt     time.Time `json:"-"`
}

// Input returns the writable fields of p, with taxonomy given by id.
func (p Post) Input() PostInput {
	in := PostInput{
		Title:         p.Title,
		Content:       p.Content,
		Summary:       p.Summary,
		Slug:          p.Slug,
		FeaturedImage: p.FeaturedImage,
		Published:     p.Published,
		AIGenerated:   p.AIGenerated,
		CategoryIDs:   []string{},
		TagIDs:        []string{},
	}
	for _, c := range p.Categories {
		in.CategoryIDs = append(in.CategoryIDs, c.ID)
	}
	for _, t := range p.Tags {
		in.TagIDs = append(in.TagIDs, t.ID)
	}
	return in
}

const summaryLength = 160

func (in PostInput) normalize() (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title is required", ErrInvalidPost)
	}
	if s := strings.TrimSpace(in.Slug); s != "" {
		in.Slug = Slugify(s)
	} else {
		in.Slug = Slugify(in.Title)
	}
	if in.Slug == "" {
		return in, fmt.Errorf("%w: slug is required", ErrInvalidPost)
	}
	in.Summary = strings.TrimSpace(in.Summary)
	if in.Summary == "" {
		in.Summary = markdown.Excerpt(in.Content, summaryLength)
	}
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	return in, nil
}

func checkSlug(tx *gorm.DB, slug, exceptID string) error {
	var n int64
	q := tx.Model(&Post{}).Where("slug = ?", slug)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrSlugTaken, slug)
	}
	return nil
}

// CreatePost stores a new post written by authorID and returns it with its
// relations loaded.
func (s *Store) CreatePost(ctx context.Context, authorID string, in PostInput) (Post, error) {
	in, err := in.normalize()
	if err != nil {
		return Post{}, err
	}
	var id string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkSlug(tx, in.Slug, ""); err != nil {
			return err
		}
		cats, err := resolveCategories(tx, in.CategoryIDs, in.Categories)
		if err != nil {
			return err
		}
		tags, err := resolveTags(tx, in.TagIDs, in.Tags)
		if err != nil {
			return err
		}
		p := Post{
			Title:         in.Title,
			Content:       in.Content,
			Summary:       in.Summary,
			Slug:          in.Slug,
			FeaturedImage: in.FeaturedImage,
			Published:     in.Published,
			AIGenerated:   in.AIGenerated,
			AuthorID:      authorID,
			Categories:    cats,
			Tags:          tags,
			CreatedAt:     in.CreatedAt,
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		id = p.ID
		return nil
	})
	if err != nil {
		return Post{}, err
	}
	return s.GetPost(ctx, id)
}

// UpdatePost replaces the writable fields and taxonomy of post id.
func (s *Store) UpdatePost(ctx context.Context, id string, in PostInput) (Post, error) {
	in, err := in.normalize()
	if err != nil {
		return Post{}, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Post
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return notFound(err)
		}
		if err := checkSlug(tx, in.Slug, id); err != nil {
			return err
		}
		cats, err := resolveCategories(tx, in.CategoryIDs, in.Categories)
		if err != nil {
			return err
		}
		tags, err := resolveTags(tx, in.TagIDs, in.Tags)
		if err != nil {
			return err
		}
		err = tx.Model(&p).Select("title", "content", "summary", "slug", "featured_image", "published", "ai_generated").
			Updates(Post{
				Title:         in.Title,
				Content:       in.Content,
				Summary:       in.Summary,
				Slug:          in.Slug,
				FeaturedImage: in.FeaturedImage,
				Published:     in.Published,
				AIGenerated:   in.AIGenerated,
			}).Error
		if err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		if err := replaceAssociation(tx, &p, "Categories", cats); err != nil {
			return err
		}
		return replaceAssociation(tx, &p, "Tags", tags)
	})
	if err != nil {
		return Post{}, err
	}
	return s.GetPost(ctx, id)
}

func replaceAssociation[T any](tx *gorm.DB, p *Post, name string, values []T) error {
	assoc := tx.Model(p).Association(name)
	var err error
	if len(values) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(values)
	}
	if err != nil {
		return fmt.Errorf("replace %s: %w", strings.ToLower(name), err)
	}
	return nil
}

// DeletePost removes a post and its taxonomy links.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Select("Categories", "Tags").Delete(&Post{ID: id})
	if res.Error != nil {
		return fmt.Errorf("delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func resolveCategories(tx *gorm.DB, ids, names []string) ([]Category, error) {
	var out []Category
	if ids = FilterEmpty(ids); len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&out).Error; err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
	}
	for _, name := range FilterEmpty(names) {
		slug := Slugify(name)
		if slug == "" {
			continue
		}
		var c Category
		if err := tx.Where(Category{Slug: slug}).Attrs(Category{Name: name}).FirstOrCreate(&c).Error; err != nil {
			return nil, fmt.Errorf("ensure category %q: %w", name, err)
		}
		out = append(out, c)
	}
	return dedupeByID(out, func(c Category) string { return c.ID }), nil
}

func resolveTags(tx *gorm.DB, ids, names []string) ([]Tag, error) {
	var out []Tag
	if ids = FilterEmpty(ids); len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&out).Error; err != nil {
			return nil, fmt.Errorf("load tags: %w", err)
		}
	}
	for _, name := range FilterEmpty(names) {
		slug := Slugify(name)
		if slug == "" {
			continue
		}
		var t Tag
		if err := tx.Where(Tag{Slug: slug}).Attrs(Tag{Name: name}).FirstOrCreate(&t).Error; err != nil {
			return nil, fmt.Errorf("ensure tag %q: %w", name, err)
		}
		out = append(out, t)
	}
	return dedupeByID(out, func(t Tag) string { return t.ID }), nil
}

func dedupeByID[T any](items []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[id(it)]; ok {
			continue
		}
		seen[id(it)] = struct{}{}
		out = append(out, it)
	}
	return out
}

// PopularCategories returns the categories with the most published posts.
func (s *Store) PopularCategories(ctx context.Context, limit int) ([]Category, error) {
	var cats []Category
	err := s.db.WithContext(ctx).Model(&Category{}).
		Select("categories.*, COUNT(posts.id) AS post_count").
		Joins("JOIN post_categories ON post_categories.category_id = categories.id").
		Joins("JOIN posts ON posts.id = post_categories.post_id AND posts.published = ?", true).
		Group("categories.id").
		Order("post_count DESC").
		Order("categories.name").
		Limit(limit).
		Find(&cats).Error
	if err != nil {
		return nil, fmt.Errorf("popular categories: %w", err)
	}
	return cats, nil
}

// PopularTags returns the tags with the most published posts.
func (s *Store) PopularTags(ctx context.Context, limit int) ([]Tag, error) {
	var tags []Tag
	err := s.db.WithContext(ctx).Model(&Tag{}).
		Select("tags.*, COUNT(posts.id) AS post_count").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("JOIN posts ON posts.id = post_tags.post_id AND posts.published = ?", true).
		Group("tags.id").
		Order("post_count DESC").
		Order("tags.name").
		Limit(limit).
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("popular tags: %w", err)
	}
	return tags, nil
}

// ListCategories returns every category ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if err := s.db.WithContext(ctx).Order("name").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// ListTags returns every tag ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// SaveAIPrompt records a generation request and its answer.
func (s *Store) SaveAIPrompt(ctx context.Context, p *AIPrompt) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("save ai prompt: %w", err)
	}
	return nil
}

// ListAIPrompts returns the most recent prompts of userID.
func (s *Store) ListAIPrompts(ctx context.Context, userID string, limit int) ([]AIPrompt, error) {
	var out []AIPrompt
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list ai prompts: %w", err)
	}
	return out, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}

// UpsertOAuthUser finds or creates the user behind a provider account and
// stores the account's latest tokens. Users are matched by provider account
// first, then by email. A profile carrying RoleAdmin promotes the user.
func (s *Store) UpsertOAuthUser(ctx context.Context, acct Account, profile User) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Account
		err := tx.Where("provider = ? AND provider_account_id = ?", acct.Provider, acct.ProviderAccountID).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Where("id = ?", existing.UserID).First(&user).Error; err != nil {
				return fmt.Errorf("load account user: %w", err)
			}
			err = tx.Model(&existing).Updates(map[string]any{
				"access_token":  acct.AccessToken,
				"refresh_token": acct.RefreshToken,
				"expires_at":    acct.ExpiresAt,
			}).Error
			if err != nil {
				return fmt.Errorf("update account: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			found := false
			if profile.Email != nil && *profile.Email != "" {
				err := tx.Where("email = ?", *profile.Email).First(&user).Error
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("find user by email: %w", err)
				}
				found = err == nil
			}
			if !found {
				user = User{Name: profile.Name, Email: profile.Email, Image: profile.Image, Role: RoleUser}
				if err := tx.Create(&user).Error; err != nil {
					return fmt.Errorf("create user: %w", err)
				}
			}
			acct.ID = ""
			acct.UserID = user.ID
			if err := tx.Omit("User").Create(&acct).Error; err != nil {
				return fmt.Errorf("create account: %w", err)
			}
		default:
			return fmt.Errorf("find account: %w", err)
		}

		updates := map[string]any{}
		if user.Image == "" && profile.Image != "" {
			updates["image"] = profile.Image
		}
		if user.Name == "" && profile.Name != "" {
			updates["name"] = profile.Name
		}
		if profile.Role == RoleAdmin && user.Role != RoleAdmin {
			updates["role"] = RoleAdmin
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return fmt.Errorf("update user: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, user.ID)
}

// SaveImage stores image metadata.
func (s *Store) SaveImage(ctx context.Context, img Image) error {
	if err := s.db.WithContext(ctx).Create(&img).Error; err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

// ListImages returns image metadata, newest first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	var images []Image
	if err := s.db.WithContext(ctx).Order("uploaded_at DESC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return images, nil
}

// ImageExists reports whether metadata for filename is stored.
func (s *Store) ImageExists(ctx context.Context, filename string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Image{}).Where("filename = ?", filename).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check image: %w", err)
	}
	return n > 0, nil
}

// DeleteImage removes image metadata by filename.
func (s *Store) DeleteImage(ctx context.Context, filename string) error {
	if err := s.db.WithContext(ctx).Where("filename = ?", filename).Delete(&Image{}).Error; err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
