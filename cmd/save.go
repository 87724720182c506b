package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anoixa/image-helper/database/models"
)

// saveCmd 上传图片并创建记录
var saveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Resize an image, generate its thumbnail and store a new record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		if err := runSave(cmd.Context(), args[0], name); err != nil {
			log.Fatalf("Save failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().String("name", "", "record name (defaults to the file name without extension)")
}

func runSave(ctx context.Context, file, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	filename := filepath.Base(file)
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	container := newContainer()
	defer container.Close()

	photo, err := container.PhotosRepo.CreateFromUpload(ctx, name, filename, f)
	if err != nil {
		return err
	}

	printPhoto(ctx, photo)
	return nil
}

// replaceCmd 替换已有记录的图片
var replaceCmd = &cobra.Command{
	Use:   "replace <id> <file>",
	Short: "Replace the image of an existing record",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReplace(cmd.Context(), args[0], args[1]); err != nil {
			log.Fatalf("Replace failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(replaceCmd)
}

func runReplace(ctx context.Context, idArg, file string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := parseID(idArg)
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	container := newContainer()
	defer container.Close()

	photo, err := container.PhotosRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if photo == nil {
		return fmt.Errorf("photo %d not found", id)
	}

	if err := container.PhotosRepo.ReplaceImage(ctx, photo, filepath.Base(file), f); err != nil {
		return err
	}
	printPhoto(ctx, photo)
	return nil
}

// printPhoto 输出记录和图片信息
func printPhoto(ctx context.Context, photo *models.Photo) {
	fmt.Printf("ID:         %d\n", photo.ID)
	fmt.Printf("Name:       %s\n", photo.Name)
	fmt.Printf("Image:      %s (%dx%d, %s)\n", photo.Image.Name, photo.ImageWidth, photo.ImageHeight, sizeString(photo.Image.Size(ctx)))
	if url, err := photo.Image.URL(); err == nil {
		fmt.Printf("URL:        %s\n", url)
	}

	thumb := photo.Image.Thumbnail()
	if thumb == nil {
		fmt.Println("Thumbnail:  -")
		return
	}
	fmt.Printf("Thumbnail:  %s (%s)\n", thumb.Name(), sizeString(thumb.Size(ctx)))
	if url, err := thumb.URL(); err == nil {
		fmt.Printf("Thumb URL:  %s\n", url)
	}
}
