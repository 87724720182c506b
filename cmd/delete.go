package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/anoixa/image-helper/config"
)

// deleteCmd 删除记录
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record (files are removed when delete_with_model is enabled)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDelete(cmd.Context(), args[0]); err != nil {
			log.Fatalf("Delete failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(ctx context.Context, idArg string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id, err := parseID(idArg)
	if err != nil {
		return err
	}

	container := newContainer()
	defer container.Close()

	deleted, err := container.PhotosRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("photo %d not found", id)
	}

	if config.Get().DeleteWithModel {
		fmt.Printf("Deleted photo %d and its files\n", id)
	} else {
		fmt.Printf("Deleted photo %d, files kept in storage\n", id)
	}
	return nil
}
