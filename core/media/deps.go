package media

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"mp4tomp3/core/utils"
	"mp4tomp3/logger"
)

// Windows release build used by the best-effort auto-provision.
const windowsFFmpegURL = "https://github.com/GyanD/codexffmpeg/releases/download/5.1.2/ffmpeg-5.1.2-essentials_build.zip"

// Deps checks and provisions the external ffmpeg/ffprobe binaries.
type Deps struct {
	FFmpegPath  string
	FFprobePath string
	Runner      CommandRunner
}

// NewDeps creates a dependency checker for the given binary paths.
func NewDeps(ffmpegPath, ffprobePath string) *Deps {
	return &Deps{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		Runner:      &ExecCommandRunner{},
	}
}

// EncoderAvailable reports whether ffmpeg can be invoked. This is the cheap
// check used on every conversion; it never attempts installation.
func (d *Deps) EncoderAvailable(ctx context.Context) bool {
	_, _, err := d.Runner.Run(ctx, d.FFmpegPath, "-version")
	return err == nil
}

// ProberAvailable reports whether ffprobe can be invoked.
func (d *Deps) ProberAvailable(ctx context.Context) bool {
	_, _, err := d.Runner.Run(ctx, d.FFprobePath, "-version")
	return err == nil
}

// Provision ensures ffmpeg is present, attempting a best-effort download and
// install on Windows. It is meant to run once at process start, not from the
// request path. Returns true when the encoder is usable afterwards.
func (d *Deps) Provision(ctx context.Context) bool {
	if d.EncoderAvailable(ctx) {
		return true
	}
	logger.Warn("ffmpeg not found in PATH", logger.String("ffmpegPath", d.FFmpegPath))

	if runtime.GOOS != "windows" {
		logger.Error("ffmpeg must be installed manually",
			logger.String("linux", "sudo apt-get install ffmpeg"),
			logger.String("macos", "brew install ffmpeg"),
			logger.String("windows", "https://ffmpeg.org/download.html#build-windows"))
		return false
	}

	logger.Info("attempting to download ffmpeg for windows")
	if err := d.installWindows(ctx); err != nil {
		logger.Error("ffmpeg auto-install failed", logger.ErrorField(err))
		return false
	}
	return d.EncoderAvailable(ctx)
}

// installWindows downloads the release zip, extracts it, locates ffmpeg.exe
// and copies it into a directory next to the running executable, which is
// then prepended to PATH for this process.
func (d *Deps) installWindows(ctx context.Context) error {
	tempDir, err := os.MkdirTemp("", "ffmpeg-install-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	archivePath := filepath.Join(tempDir, "ffmpeg.zip")
	if err := utils.DownloadFile(ctx, windowsFFmpegURL, archivePath); err != nil {
		return fmt.Errorf("failed to download ffmpeg archive: %w", err)
	}

	extractDir := filepath.Join(tempDir, "ffmpeg")
	if err := extractZip(archivePath, extractDir); err != nil {
		return fmt.Errorf("failed to extract ffmpeg archive: %w", err)
	}

	exePath, err := findExecutable(extractDir, "ffmpeg.exe")
	if err != nil {
		return err
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate own executable: %w", err)
	}
	binDir := filepath.Join(filepath.Dir(self), "bin")
	if err := utils.EnsureDir(binDir); err != nil {
		return err
	}

	installed := filepath.Join(binDir, "ffmpeg.exe")
	if err := utils.CopyFile(exePath, installed); err != nil {
		return fmt.Errorf("failed to install ffmpeg: %w", err)
	}

	// Make the new binary visible to subsequent exec lookups in this process.
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH")); err != nil {
		return fmt.Errorf("failed to update PATH: %w", err)
	}

	logger.Info("ffmpeg installed", logger.String("path", installed))
	return nil
}

// extractZip unpacks src into destDir, refusing entries that escape it.
func extractZip(src, destDir string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(destDir, file.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		rc, err := file.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		out.Close()
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// findExecutable walks root looking for a file named name.
func findExecutable(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("could not find %s in the downloaded package", name)
	}
	return found, nil
}
