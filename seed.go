package inkwell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// SeedOptions controls the demo content written by Seed.
type SeedOptions struct {
	Authors int
	Posts   int
	// Drafts is the share of posts left unpublished, between 0 and 1.
	Drafts  float64
	MaxDays int
	// Seed makes runs reproducible; zero picks a random seed.
	Seed int64
}

func (o *SeedOptions) setDefaults() {
	if o.Authors <= 0 {
		o.Authors = 3
	}
	if o.Posts <= 0 {
		o.Posts = 30
	}
	if o.Drafts < 0 || o.Drafts > 1 {
		o.Drafts = 0.2
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 120
	}
}

// SeedResult reports what Seed created.
type SeedResult struct {
	Authors   []User
	Published int
	Drafts    int
}

var seedCategories = []string{"Technology", "AI", "Design", "Productivity", "Travel", "Food"}

const seedSlugAttempts = 3

// Seed fills the store with fake authors and posts for local development.
func Seed(ctx context.Context, s *Store, opts SeedOptions) (SeedResult, error) {
	opts.setDefaults()
	faker := gofakeit.New(opts.Seed)

	var res SeedResult
	for i := 0; i < opts.Authors; i++ {
		email := strings.ToLower(faker.Email())
		u, err := EnsureAuthor(ctx, s, faker.Name(), email)
		if err != nil {
			return res, fmt.Errorf("seed author: %w", err)
		}
		res.Authors = append(res.Authors, u)
	}

	tagPool := make([]string, 15)
	for i := range tagPool {
		tagPool[i] = faker.Word()
	}

	now := time.Now()
	for i := 0; i < opts.Posts; i++ {
		author := res.Authors[faker.Number(0, len(res.Authors)-1)]
		in := fakePost(faker, tagPool)
		in.Published = faker.Float64Range(0, 1) >= opts.Drafts
		in.CreatedAt = now.Add(-time.Duration(faker.Number(0, opts.MaxDays*24*60)) * time.Minute)

		var err error
		for attempt := 0; attempt < seedSlugAttempts; attempt++ {
			in.Slug = fmt.Sprintf("%s-%d", Slugify(in.Title), faker.Number(100, 99999))
			_, err = s.CreatePost(ctx, author.ID, in)
			if !errors.Is(err, ErrSlugTaken) {
				break
			}
		}
		if err != nil {
			return res, fmt.Errorf("seed post: %w", err)
		}
		if in.Published {
			res.Published++
		} else {
			res.Drafts++
		}
	}
	return res, nil
}

func fakePost(faker *gofakeit.Faker, tagPool []string) PostInput {
	title := strings.TrimSuffix(faker.Sentence(faker.Number(3, 7)), ".")

	var body strings.Builder
	body.WriteString(faker.Paragraph(1, 3, 12, " "))
	for s := faker.Number(1, 3); s > 0; s-- {
		body.WriteString("\n\n## ")
		body.WriteString(strings.TrimSuffix(faker.Sentence(4), "."))
		body.WriteString("\n\n")
		body.WriteString(faker.Paragraph(2, 4, 14, "\n\n"))
	}

	in := PostInput{
		Title:       title,
		Content:     body.String(),
		AIGenerated: faker.Number(1, 4) == 1,
		Categories:  []string{seedCategories[faker.Number(0, len(seedCategories)-1)]},
	}
	for t := faker.Number(1, 3); t > 0; t-- {
		in.Tags = append(in.Tags, tagPool[faker.Number(0, len(tagPool)-1)])
	}
	if faker.Bool() {
		in.FeaturedImage = fmt.Sprintf("https://picsum.photos/seed/%s/1200/675", faker.UUID())
	}
	return in
}
