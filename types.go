package inkwell

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eringen/inkwell/ai"
	"github.com/eringen/inkwell/query"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is an author or reader who signed in through an identity provider.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `json:"name"`
	Email     *string   `gorm:"uniqueIndex" json:"-"`
	Image     string    `json:"image,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Role      Role      `gorm:"size:16;default:USER" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Account links an identity-provider account to a User.
type Account struct {
	ID                string `gorm:"primaryKey;size:36"`
	UserID            string `gorm:"size:36;index"`
	User              User   `gorm:"constraint:OnDelete:CASCADE"`
	Provider          string `gorm:"uniqueIndex:idx_provider_account"`
	ProviderAccountID string `gorm:"uniqueIndex:idx_provider_account"`
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Post is the core content type: markdown body plus taxonomy and author.
type Post struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Title         string     `gorm:"not null" json:"title"`
	Content       string     `gorm:"type:text" json:"content"`
	Summary       string     `json:"summary"`
	Slug          string     `gorm:"uniqueIndex;not null" json:"slug"`
	FeaturedImage string     `json:"featuredImage,omitempty"`
	Published     bool       `gorm:"default:false;index" json:"published"`
	AIGenerated   bool       `gorm:"column:ai_generated;default:false" json:"aiGenerated"`
	AuthorID      string     `gorm:"size:36;index" json:"authorId"`
	Author        User       `json:"author"`
	Categories    []Category `gorm:"many2many:post_categories;constraint:OnDelete:CASCADE" json:"categories"`
	Tags          []Tag      `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"tags"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Link is the public URL path of the post.
func (p Post) Link() string { return "/blog/" + p.Slug + "/" }

// Bool, Text and Slugs let a Post be evaluated by a query.Predicate.
func (p Post) Bool(f query.Field) bool {
	return f == query.FieldPublished && p.Published
}

func (p Post) Text(f query.Field) string {
	switch f {
	case query.FieldTitle:
		return p.Title
	case query.FieldContent:
		return p.Content
	}
	return ""
}

func (p Post) Slugs(f query.Field) []string {
	var out []string
	switch f {
	case query.FieldCategories:
		for _, c := range p.Categories {
			out = append(out, c.Slug)
		}
	case query.FieldTags:
		for _, t := range p.Tags {
			out = append(out, t.Slug)
		}
	}
	return out
}

// Category groups posts by topic.
type Category struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `json:"description,omitempty"`
	PostCount   int64     `gorm:"-:migration;->" json:"postCount,omitempty"`
	CreatedAt   time.Time `json:"-"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Tag is a free-form label on posts.
type Tag struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	PostCount int64     `gorm:"-:migration;->" json:"postCount,omitempty"`
	CreatedAt time.Time `json:"-"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AIPrompt records a prompt sent to the content generator and its answer.
type AIPrompt struct {
	ID        string      `gorm:"primaryKey;size:36" json:"id"`
	Prompt    string      `gorm:"type:text" json:"prompt"`
	Response  string      `gorm:"type:text" json:"response"`
	Type      ai.TaskType `gorm:"size:32" json:"type"`
	UserID    string      `gorm:"size:36;index" json:"userId"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (a *AIPrompt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Image is the metadata of an uploaded image file.
type Image struct {
	Filename     string    `gorm:"primaryKey" json:"filename"`
	OriginalName string    `json:"originalName"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Size         int       `json:"size"`
	UploaderID   string    `gorm:"size:36" json:"uploaderId"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// URL is the public path of the image.
func (i Image) URL() string { return "/public/" + uploadsSubdir + "/" + i.Filename }

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// Listing is one rendered page of the public post list.
type Listing struct {
	Filter     query.FilterRequest
	Posts      []Post
	Pager      query.PageMetadata
	Categories []Category
	Tags       []Tag
	Empty      string
}
