package cmd

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anoixa/image-helper/config"
	"github.com/anoixa/image-helper/internal/app"
	"github.com/anoixa/image-helper/utils"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "image-helper",
	Short:   "Resize uploaded images and manage their thumbnails",
	Version: config.VersionString(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("config")
		config.SetConfigFile(path)
		config.InitConfig()

		cfg := config.Get()
		utils.InitLogger(utils.LogOptions{
			Level:      cfg.LogLevel,
			File:       cfg.LogFile,
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		})
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (eg: /etc/image-helper/.env)")
}

// newContainer 初始化容器，失败直接退出
func newContainer() *app.Container {
	container := app.NewContainer(config.Get())
	if err := container.Init(); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	return container
}

// parseID 解析记录 ID 参数
func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint(id), nil
}
