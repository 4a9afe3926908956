package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inevitablewiki/internal/app"
	"inevitablewiki/internal/content"
	"inevitablewiki/internal/content/fsstore"
	"inevitablewiki/internal/content/mysqlstore"
)

var (
	importFrom      string
	importOverwrite bool
	importAll       bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy articles from a content directory into the MySQL store",
	Long: `import reads every record of a content directory and stores it in MySQL,
keeping the directory listing order. Records that fail validation are skipped
unless --all is set. Existing rows are kept unless --overwrite is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store != app.StoreMySQL {
			return fmt.Errorf("import needs CONTENT_STORE=mysql, got %q", cfg.Store)
		}
		ctx := cmd.Context()

		src, err := fsstore.Open(importFrom)
		if err != nil {
			return err
		}
		checker := content.NewRepository(src, content.WithSchema(content.NewSchema(cfg.Categories...)))

		db, err := app.NewDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		dst := mysqlstore.New(db)
		if err := dst.EnsureSchema(ctx); err != nil {
			return err
		}

		categories, err := src.Categories(ctx)
		if err != nil {
			return err
		}
		var imported, skipped, existing int
		for _, category := range categories {
			slugs, err := src.Slugs(ctx, category)
			if err != nil {
				return err
			}
			for position, slug := range slugs {
				if !importAll {
					if _, err := checker.Load(ctx, category, slug); err != nil {
						logger.Warn("skipping article", zap.String("source", category+"/"+slug), zap.Error(err))
						skipped++
						continue
					}
				}
				raw, err := src.Get(ctx, category, slug)
				if err != nil {
					return err
				}
				rec := mysqlstore.Record{Category: category, Slug: slug, Source: raw, Position: position}
				err = dst.Put(ctx, rec, importOverwrite)
				switch {
				case errors.Is(err, mysqlstore.ErrDuplicate):
					existing++
				case err != nil:
					return err
				default:
					imported++
				}
			}
		}

		logger.Info("import finished",
			zap.Int("imported", imported),
			zap.Int("existing", existing),
			zap.Int("skipped", skipped))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", "content", "content directory to import")
	importCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "replace rows that already exist")
	importCmd.Flags().BoolVar(&importAll, "all", false, "import records that fail validation")
}
