package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mp4tomp3/config"
	"mp4tomp3/logger"
	"mp4tomp3/server"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mp4tomp3",
	Short: "mp4tomp3 converts MP4 videos to MP3 audio through a web form.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		})
	},
	// Running the bare binary starts the server, matching how the tool is
	// normally deployed.
	Run: func(cmd *cobra.Command, args []string) {
		if err := server.Start(cfg); err != nil {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
