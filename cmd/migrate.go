package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/anoixa/image-helper/config"
	"github.com/anoixa/image-helper/internal/app"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		container := app.NewContainer(config.Get())
		if err := container.InitDatabase(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		defer container.Close()
		log.Printf("Database schema is up to date (%s)", config.Get().DBType)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
