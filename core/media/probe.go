package media

import (
	"context"
	"encoding/json"
	"strings"

	"mp4tomp3/logger"
)

// Prober inspects media files for audio streams using ffprobe, with an
// ffmpeg-based textual fallback.
type Prober struct {
	FFmpegPath  string
	FFprobePath string
	Runner      CommandRunner
}

// NewProber creates a Prober for the given binary paths.
func NewProber(ffmpegPath, ffprobePath string) *Prober {
	return &Prober{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		Runner:      &ExecCommandRunner{},
	}
}

type probeReport struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// HasAudioStream reports whether path contains at least one audio stream.
//
// Primary method: ffprobe restricted to audio streams with JSON output.
// Fallback when ffprobe exits non-zero or its output does not parse: run
// ffmpeg in inspection-only mode and scan its banner for an audio stream
// marker. If the fallback cannot run either, the answer defaults to true:
// the encoder invocation downstream is the authority on whether extraction
// is actually possible, and a broken probe must not block it.
func (p *Prober) HasAudioStream(ctx context.Context, path string) bool {
	stdout, _, err := p.Runner.Run(ctx, p.FFprobePath,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "json",
		path,
	)
	if err == nil {
		var report probeReport
		if jsonErr := json.Unmarshal(stdout, &report); jsonErr == nil {
			return len(report.Streams) > 0
		}
		logger.Warn("ffprobe output did not parse, falling back to ffmpeg inspection",
			logger.String("file", path))
	}

	// ffmpeg with no output file exits non-zero by design; only the captured
	// banner on stderr matters here.
	_, stderr, err := p.Runner.Run(ctx, p.FFmpegPath, "-i", path, "-hide_banner")
	banner := string(stderr)
	if err != nil && banner == "" {
		logger.Error("audio stream probe failed, assuming audio is present",
			logger.String("file", path), logger.ErrorField(err))
		return true
	}

	return strings.Contains(banner, "Stream #") && strings.Contains(banner, "Audio:")
}
