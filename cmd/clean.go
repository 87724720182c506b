package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/anoixa/image-helper/storage"
	"github.com/anoixa/image-helper/utils/generator"
)

// cleanCmd 清理孤儿缩略图
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove orphan thumbnails from local storage",
	Long: `Remove orphan files from local storage.
This includes:
  - Thumbnails whose image is not referenced by any record
  - Images not referenced by any record (only with --images)`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		images, _ := cmd.Flags().GetBool("images")

		if err := runClean(cmd.Context(), dryRun, images); err != nil {
			log.Fatalf("Clean failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("dry-run", false, "Only show what would be cleaned, don't actually delete")
	cleanCmd.Flags().Bool("images", false, "Also delete images not referenced by any record")
}

// storedFile 存储中的文件
type storedFile struct {
	name string
	size int64
}

// orphanReport 孤儿文件统计
type orphanReport struct {
	thumbnails []storedFile
	images     []storedFile
}

// findOrphans 找出没有记录引用的缩略图和原图
// 名称被记录直接引用的文件总是保留，即使它看起来像缩略图
func findOrphans(files []storedFile, referenced map[string]struct{}, suffix string) orphanReport {
	var report orphanReport
	for _, f := range files {
		if _, ok := referenced[f.name]; ok {
			continue
		}
		primary, isThumb := generator.PrimaryName(f.name, suffix)
		if !isThumb {
			report.images = append(report.images, f)
			continue
		}
		if _, ok := referenced[primary]; ok {
			continue
		}
		report.thumbnails = append(report.thumbnails, f)
	}
	sort.Slice(report.thumbnails, func(i, j int) bool { return report.thumbnails[i].name < report.thumbnails[j].name })
	sort.Slice(report.images, func(i, j int) bool { return report.images[i].name < report.images[j].name })
	return report
}

// localStorage 取出缓存包装下的本地存储
func localStorage(p storage.Provider) (*storage.LocalStorage, error) {
	if u, ok := p.(interface{ Unwrap() storage.Provider }); ok {
		p = u.Unwrap()
	}
	local, ok := p.(*storage.LocalStorage)
	if !ok {
		return nil, fmt.Errorf("clean only supports local storage, current storage is %s", p.Name())
	}
	return local, nil
}

func runClean(ctx context.Context, dryRun, images bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	container := newContainer()
	defer container.Close()

	st := container.Storage()
	local, err := localStorage(st)
	if err != nil {
		return err
	}

	referenced, err := container.PhotosRepo.ImageNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to load image names: %w", err)
	}

	var files []storedFile
	err = local.Walk(func(name string, size int64) error {
		files = append(files, storedFile{name: name, size: size})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", local.BasePath(), err)
	}

	report := findOrphans(files, referenced, container.ImageField().Options().ThumbnailSuffix)
	targets := report.thumbnails
	if images {
		targets = append(targets, report.images...)
	}

	var freed uint64
	var errs []error
	for _, f := range targets {
		if dryRun {
			fmt.Printf("would delete %s (%s)\n", f.name, humanize.IBytes(uint64(f.size)))
			freed += uint64(f.size)
			continue
		}
		if err := st.DeleteWithContext(ctx, f.name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		fmt.Printf("deleted %s\n", f.name)
		freed += uint64(f.size)
	}

	fmt.Println()
	if dryRun {
		fmt.Println("[DRY RUN MODE]")
	}
	fmt.Printf("Scanned files:        %d\n", len(files))
	fmt.Printf("Orphan thumbnails:    %d\n", len(report.thumbnails))
	fmt.Printf("Unreferenced images:  %d\n", len(report.images))
	fmt.Printf("Space freed:          %s\n", humanize.IBytes(freed))

	if len(errs) > 0 {
		return fmt.Errorf("encountered %d errors during cleanup: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
