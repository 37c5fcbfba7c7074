package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mp4tomp3/logger"
)

const (
	// SourceExt is the only accepted input extension, compared case-insensitively.
	SourceExt = ".mp4"
	// TargetExt is the produced audio extension.
	TargetExt = ".mp3"

	// noStreamMarker is the ffmpeg diagnostic emitted when the mapped output
	// would contain no streams at all.
	noStreamMarker = "Output file #0 does not contain any stream"

	defaultPollInterval = 500 * time.Millisecond
)

// ProgressFunc receives coarse progress updates during a conversion. The
// fraction is a fixed heuristic keyed to pipeline stages and poll ticks; it is
// NOT derived from real encode progress, and consumers must not treat it as a
// time estimate.
type ProgressFunc func(fraction float64, label string)

// Converter turns an MP4 file into an MP3 by driving the external ffmpeg
// binary. A Converter is stateless across calls and safe for concurrent use.
type Converter struct {
	deps         *Deps
	prober       *Prober
	runner       CommandRunner
	pollInterval time.Duration
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithRunner sets a custom command runner (for testing). The runner is shared
// with the dependency checker and the prober.
func WithRunner(runner CommandRunner) ConverterOption {
	return func(c *Converter) {
		c.runner = runner
		c.deps.Runner = runner
		c.prober.Runner = runner
	}
}

// WithPollInterval overrides the liveness poll interval.
func WithPollInterval(d time.Duration) ConverterOption {
	return func(c *Converter) {
		c.pollInterval = d
	}
}

// NewConverter creates a Converter invoking the given ffmpeg/ffprobe binaries.
func NewConverter(ffmpegPath, ffprobePath string, opts ...ConverterOption) *Converter {
	c := &Converter{
		deps:         NewDeps(ffmpegPath, ffprobePath),
		prober:       NewProber(ffmpegPath, ffprobePath),
		runner:       &ExecCommandRunner{},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateExtension checks that path carries the expected source extension.
// It returns nil when valid. Pure function, no I/O.
func ValidateExtension(path string) *ConversionError {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, SourceExt) {
		return nil
	}
	return newError(ErrInvalidInput,
		fmt.Sprintf("Please upload a valid MP4 file. The file you uploaded has extension '%s'.", ext),
		nil)
}

// OutputPath derives the output file path for an input: a sibling of the
// source with the same base name and the target extension.
func OutputPath(inputPath string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(filepath.Dir(inputPath), base+TargetExt)
}

// Convert extracts the audio track of inputPath into a sibling MP3 file.
//
// The pipeline runs in fixed order: encoder availability, extension
// validation, audio-stream probe, then the encoder invocation. The returned
// error, when non-nil, is always a *ConversionError whose kind classifies the
// failure; the output path is empty in that case. On success the returned
// path exists and is non-empty at the moment of return.
//
// The call blocks until the encoder exits. No timeout is enforced beyond what
// ctx carries; cancelling ctx kills the encoder process.
func (c *Converter) Convert(ctx context.Context, inputPath string, onProgress ProgressFunc) (string, error) {
	if onProgress == nil {
		onProgress = func(float64, string) {}
	}

	onProgress(0, "Checking FFmpeg installation...")
	if !c.deps.EncoderAvailable(ctx) {
		return "", newError(ErrMissingEncoder,
			"FFmpeg is not installed and could not be automatically installed. Please install FFmpeg manually. Download from ffmpeg.org.",
			nil)
	}

	if err := ValidateExtension(inputPath); err != nil {
		return "", err
	}

	outputPath := OutputPath(inputPath)
	logger.Info("processing file",
		logger.String("input", inputPath), logger.String("output", outputPath))

	onProgress(0.1, "Checking audio streams...")
	if !c.prober.HasAudioStream(ctx, inputPath) {
		return "", newError(ErrNoAudioStream,
			"The MP4 file does not contain any audio streams. Cannot convert to MP3. Please choose a video with audio.",
			nil)
	}

	onProgress(0.2, "Preparing conversion...")
	args := []string{
		"-i", inputPath,
		"-vn",                   // Disable video
		"-acodec", "libmp3lame", // MP3 codec
		"-q:a", "2",             // Quality (0-9, lower is better)
		"-y",                    // Overwrite output file
		outputPath,
	}

	logger.Info("running ffmpeg", logger.String("args", strings.Join(args, " ")))
	onProgress(0.3, "Starting conversion...")

	proc, err := c.runner.Start(ctx, c.deps.FFmpegPath, args...)
	if err != nil {
		return "", newError(ErrUnexpected, "Conversion failed to start.", err)
	}

	// Coarse liveness polling. The 0.5 fraction repeated on every tick is a
	// deliberate placeholder while the encoder runs; see ProgressFunc.
	for !proc.Done() {
		onProgress(0.5, "Converting...")
		time.Sleep(c.pollInterval)
	}

	onProgress(0.8, "Finalizing...")
	runErr := proc.Wait()
	stderr := proc.Stderr()

	// Classification order is fixed: the exit code dominates, and only then
	// is the output file inspected.
	if runErr != nil {
		logger.Error("ffmpeg failed", logger.String("stderr", stderr), logger.ErrorField(runErr))
		if strings.Contains(stderr, noStreamMarker) {
			return "", newError(ErrNoAudioStream,
				"The MP4 file does not contain any audio streams. Cannot convert to MP3. Please choose a different file with audio.",
				runErr)
		}
		return "", newError(ErrEncodingFailed,
			"FFmpeg conversion failed. The file may be corrupted or use an unsupported codec.",
			runErr)
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		logger.Error("output file was not created or is empty", logger.String("output", outputPath))
		return "", newError(ErrEmptyOutput,
			"MP3 file could not be created. The MP4 may not contain valid audio.",
			statErr)
	}

	onProgress(1.0, "Conversion complete!")
	logger.Info("conversion successful", logger.String("output", outputPath))
	return outputPath, nil
}

// Deps exposes the dependency checker sharing this converter's runner.
func (c *Converter) Deps() *Deps {
	return c.deps
}
