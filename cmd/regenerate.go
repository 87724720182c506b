package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// regenerateCmd 重建缩略图
var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Rebuild thumbnails from the stored images",
	Long: `Rebuild thumbnails for every record from its stored image using the
current thumbnail_size. Use --missing to only rebuild thumbnails that are absent.`,
	Run: func(cmd *cobra.Command, args []string) {
		missing, _ := cmd.Flags().GetBool("missing")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if err := runRegenerate(cmd.Context(), missing, dryRun); err != nil {
			log.Fatalf("Regenerate failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(regenerateCmd)
	regenerateCmd.Flags().Bool("missing", false, "only rebuild thumbnails that do not exist")
	regenerateCmd.Flags().Bool("dry-run", false, "only show what would be rebuilt")
}

func runRegenerate(ctx context.Context, missing, dryRun bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	container := newContainer()
	defer container.Close()

	if container.ImageField().Options().ThumbnailSize == nil {
		return fmt.Errorf("thumbnail_size is not configured")
	}

	stats, err := container.Regenerator(missing, dryRun).Run(ctx)
	if err != nil {
		return err
	}

	verb := "Regenerated"
	if dryRun {
		verb = "Would regenerate"
	}
	fmt.Printf("%s %d of %d thumbnails (%d skipped, %d failed)\n",
		verb, stats.Regenerated, stats.Scanned, stats.Skipped, stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d thumbnails failed, see log for details", stats.Failed)
	}
	return nil
}
