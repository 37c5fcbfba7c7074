package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mp4tomp3/core/media"
)

var checkInstall bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether ffmpeg and ffprobe are available",
	Long: `Check the external binaries the converter depends on. With --install,
attempt the best-effort automatic ffmpeg install (Windows only).`,
	Run: func(cmd *cobra.Command, args []string) {
		deps := media.NewDeps(cfg.FFmpegPath, cfg.FFprobePath)
		ctx := context.Background()

		if checkInstall {
			if deps.Provision(ctx) {
				fmt.Println("ffmpeg: available")
			} else {
				fmt.Println("ffmpeg: NOT available")
				os.Exit(1)
			}
		} else {
			printStatus("ffmpeg", deps.EncoderAvailable(ctx))
		}
		printStatus("ffprobe", deps.ProberAvailable(ctx))
	},
}

func printStatus(name string, ok bool) {
	if ok {
		fmt.Printf("%s: available\n", name)
	} else {
		fmt.Printf("%s: NOT available\n", name)
	}
}

func init() {
	checkCmd.Flags().BoolVar(&checkInstall, "install", false, "attempt automatic ffmpeg install if missing")
	rootCmd.AddCommand(checkCmd)
}
