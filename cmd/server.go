package cmd

import (
	"github.com/spf13/cobra"

	"mp4tomp3/logger"
	"mp4tomp3/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the conversion web server",
	Long:  `Start the HTTP server exposing the MP4 upload form and the conversion API.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := server.Start(cfg); err != nil {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
