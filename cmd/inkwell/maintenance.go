package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/inkwell"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("schema up to date")
		return nil
	},
}

var seedOpts inkwell.SeedOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with demo authors and posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := inkwell.Seed(cmd.Context(), store, seedOpts)
		if err != nil {
			return err
		}
		invalidateListings(cmd.Context(), cfg)
		logger.Info("seeded",
			zap.Int("authors", len(res.Authors)),
			zap.Int("published", res.Published),
			zap.Int("drafts", res.Drafts),
		)
		return nil
	},
}

var (
	importEmail string
	importName  string
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import Markdown files with front matter as posts",
	Long: `import walks dir for .md files and creates or updates one post per file,
matched by slug. Front matter keys: title, slug, summary, date, draft,
categories, tags, featured_image.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importEmail == "" {
			return fmt.Errorf("--author-email is required")
		}
		cfg, store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		author, err := inkwell.EnsureAuthor(ctx, store, importName, importEmail)
		if err != nil {
			return err
		}
		res, err := inkwell.ImportMarkdown(ctx, store, os.DirFS(args[0]), author.ID, logger)
		if err != nil {
			return err
		}
		invalidateListings(ctx, cfg)
		logger.Info("import finished",
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Strings("skipped", res.Skipped),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.Authors, "authors", 3, "Number of authors")
	seedCmd.Flags().IntVar(&seedOpts.Posts, "posts", 30, "Number of posts")
	seedCmd.Flags().Float64Var(&seedOpts.Drafts, "drafts", 0.2, "Share of posts left as drafts")
	seedCmd.Flags().Int64Var(&seedOpts.Seed, "seed", 0, "Random seed (0 picks one)")

	importCmd.Flags().StringVar(&importEmail, "author-email", "", "Email of the author the posts belong to")
	importCmd.Flags().StringVar(&importName, "author-name", "", "Display name when the author is created")
}

// openStore loads the database configuration, connects and migrates.
func openStore() (inkwell.SiteConfig, *inkwell.Store, error) {
	cfg, err := inkwell.LoadMaintenanceConfig(configPath)
	if err != nil {
		return cfg, nil, err
	}
	store, err := inkwell.OpenStore(cfg.Database, logger)
	if err != nil {
		return cfg, nil, err
	}
	if err := store.AutoMigrate(); err != nil {
		store.Close()
		return cfg, nil, err
	}
	return cfg, store, nil
}

// invalidateListings retires listing pages a running server cached in redis.
func invalidateListings(ctx context.Context, cfg inkwell.SiteConfig) {
	if cfg.RedisURL == "" {
		return
	}
	client, err := inkwell.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Warn("skipping cache invalidation", zap.Error(err))
		return
	}
	defer client.Close()
	inkwell.NewListingCache(client, cfg.ListingCacheTTL, nil, logger).Invalidate(ctx)
}
