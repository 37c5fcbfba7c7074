package media

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeps(runner *fakeRunner) *Deps {
	d := NewDeps("ffmpeg", "ffprobe")
	d.Runner = runner
	return d
}

func TestEncoderAvailable(t *testing.T) {
	assert.True(t, newTestDeps(&fakeRunner{}).EncoderAvailable(context.Background()))
	assert.False(t, newTestDeps(&fakeRunner{
		versionErr: errors.New("exec: ffmpeg: not found"),
	}).EncoderAvailable(context.Background()))
}

func TestProvision_AlreadyAvailable(t *testing.T) {
	deps := newTestDeps(&fakeRunner{})
	assert.True(t, deps.Provision(context.Background()))
}

func TestProvision_MissingOnNonWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("auto-install path is exercised on windows only")
	}
	deps := newTestDeps(&fakeRunner{versionErr: errors.New("exec: ffmpeg: not found")})
	assert.False(t, deps.Provision(context.Background()))
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")

	out, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	f, err := zw.Create("ffmpeg-build/bin/ffmpeg.exe")
	require.NoError(t, err)
	_, err = f.Write([]byte("binary payload"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	destDir := filepath.Join(dir, "extracted")
	require.NoError(t, extractZip(archivePath, destDir))

	data, err := os.ReadFile(filepath.Join(destDir, "ffmpeg-build", "bin", "ffmpeg.exe"))
	require.NoError(t, err)
	assert.Equal(t, "binary payload", string(data))
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")

	out, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	f, err := zw.Create("../escape.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	err = extractZip(archivePath, filepath.Join(dir, "extracted"))
	assert.Error(t, err)
}

func TestFindExecutable(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "bin")
	require.NoError(t, os.MkdirAll(nested, 0755))
	target := filepath.Join(nested, "ffmpeg.exe")
	require.NoError(t, writeFile(target, "bin"))

	found, err := findExecutable(dir, "ffmpeg.exe")
	require.NoError(t, err)
	assert.Equal(t, target, found)

	_, err = findExecutable(dir, "ffprobe.exe")
	assert.Error(t, err)
}
