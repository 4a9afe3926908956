package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"inevitablewiki/internal/relations"
)

var (
	checkPartial bool
	checkRoutes  []string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate every article and report broken internal links",
	Long: `check validates each record against the frontmatter schema and lists all
violations per record. --partial applies the relaxed schema used for drafts.
Internal links that match no article, category, tag or known route are
reported as broken. The command fails when anything is reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closer, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		invalid, err := repo.Audit(ctx, checkPartial)
		if err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		for _, verr := range invalid {
			for _, v := range verr.Violations {
				fmt.Fprintf(out, "%s: %s\n", verr.SourceID, v)
			}
		}

		broken, err := relations.NewResolver(repo, relations.WithLogger(logger)).BrokenLinks(ctx, checkRoutes...)
		if err != nil {
			return fmt.Errorf("broken links: %w", err)
		}
		for _, b := range broken {
			fmt.Fprintf(out, "%s: broken link %s\n", b.Source, b.Link)
		}

		if len(invalid) > 0 || len(broken) > 0 {
			return fmt.Errorf("%d invalid records, %d broken links", len(invalid), len(broken))
		}
		fmt.Fprintln(out, "all records valid")
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkPartial, "partial", false, "validate with the relaxed draft schema")
	checkCmd.Flags().StringSliceVar(&checkRoutes, "route", nil, "additional site routes treated as valid link targets")
}
