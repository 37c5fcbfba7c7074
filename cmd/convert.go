package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mp4tomp3/core/media"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.mp4>",
	Short: "Convert a local MP4 file to MP3 without starting the server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		converter := media.NewConverter(cfg.FFmpegPath, cfg.FFprobePath)

		outputPath, err := converter.Convert(context.Background(), args[0],
			func(fraction float64, label string) {
				fmt.Printf("[%3.0f%%] %s\n", fraction*100, label)
			})
		if err != nil {
			if ce, ok := err.(*media.ConversionError); ok {
				fmt.Fprintln(os.Stderr, "Error:", ce.UserMessage())
			} else {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
			os.Exit(1)
		}

		fmt.Println("Conversion successful:", outputPath)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
