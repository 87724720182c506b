package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/anoixa/image-helper/storage"
)

// showCmd 查看记录
var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "List records or show one record with its image and thumbnail",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")

		var err error
		if len(args) == 1 {
			err = runShow(cmd.Context(), args[0])
		} else {
			err = runList(cmd.Context(), page, pageSize)
		}
		if err != nil {
			log.Fatalf("Show failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Int("page", 1, "page number")
	showCmd.Flags().Int("page-size", 20, "records per page")
}

func runShow(ctx context.Context, idArg string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := parseID(idArg)
	if err != nil {
		return err
	}

	container := newContainer()
	defer container.Close()

	photo, err := container.PhotosRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if photo == nil {
		return fmt.Errorf("photo %d not found", id)
	}

	printPhoto(ctx, photo)
	if p, err := photo.Image.Path(); err == nil {
		fmt.Printf("Path:       %s\n", p)
	}
	fmt.Printf("Created:    %s\n", humanize.Time(photo.CreatedAt))
	return nil
}

func runList(ctx context.Context, page, pageSize int) error {
	if ctx == nil {
		ctx = context.Background()
	}

	container := newContainer()
	defer container.Close()

	list, total, err := container.PhotosRepo.List(ctx, page, pageSize)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tIMAGE\tSIZE\tTHUMBNAIL\tCREATED")
	for _, photo := range list {
		thumbSize := "-"
		if thumb := photo.Image.Thumbnail(); thumb != nil {
			thumbSize = sizeString(thumb.Size(ctx))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			photo.ID,
			photo.Name,
			photo.Image.Name,
			sizeString(photo.Image.Size(ctx)),
			thumbSize,
			humanize.Time(photo.CreatedAt),
		)
	}
	_ = w.Flush()
	fmt.Printf("\n%s records, page %d\n", humanize.Comma(total), page)
	return nil
}

// sizeString 文件大小的可读形式，文件缺失时显示 missing
func sizeString(size int64, err error) string {
	switch {
	case err == nil:
		return humanize.IBytes(uint64(size))
	case errors.Is(err, storage.ErrNotFound):
		return "missing"
	default:
		return "error: " + err.Error()
	}
}
