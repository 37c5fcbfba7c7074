package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestProber(runner *fakeRunner) *Prober {
	p := NewProber("ffmpeg", "ffprobe")
	p.Runner = runner
	return p
}

func TestHasAudioStream_ProbeReportsAudio(t *testing.T) {
	runner := &fakeRunner{probeStdout: `{"streams":[{"codec_type":"audio"}]}`}
	p := newTestProber(runner)
	assert.True(t, p.HasAudioStream(context.Background(), "movie.mp4"))
}

func TestHasAudioStream_ProbeReportsNone(t *testing.T) {
	runner := &fakeRunner{probeStdout: `{"streams":[]}`}
	p := newTestProber(runner)
	assert.False(t, p.HasAudioStream(context.Background(), "silent.mp4"))
}

func TestHasAudioStream_FallbackOnBadJSON(t *testing.T) {
	tests := []struct {
		name   string
		banner string
		want   bool
	}{
		{
			name:   "banner mentions audio stream",
			banner: "Input #0, mov,mp4\n  Stream #0:1(und): Audio: aac (LC), 44100 Hz, stereo",
			want:   true,
		},
		{
			name:   "banner has video only",
			banner: "Input #0, mov,mp4\n  Stream #0:0(und): Video: h264",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{
				probeStdout:  "not json at all",
				bannerStderr: tt.banner,
				// ffmpeg exits non-zero when no output file is given.
				bannerErr: errors.New("exit status 1"),
			}
			p := newTestProber(runner)
			assert.Equal(t, tt.want, p.HasAudioStream(context.Background(), "movie.mp4"))
		})
	}
}

func TestHasAudioStream_FallbackOnProbeError(t *testing.T) {
	runner := &fakeRunner{
		probeErr:     errors.New("exit status 1"),
		bannerStderr: "Stream #0:1(und): Audio: aac",
		bannerErr:    errors.New("exit status 1"),
	}
	p := newTestProber(runner)
	assert.True(t, p.HasAudioStream(context.Background(), "movie.mp4"))
}

func TestHasAudioStream_FailsOpen(t *testing.T) {
	// Both methods unusable: assume audio is present and let the encoder be
	// the authority.
	runner := &fakeRunner{
		probeErr:  errors.New("exec: ffprobe: not found"),
		bannerErr: errors.New("exec: ffmpeg: not found"),
	}
	p := newTestProber(runner)
	assert.True(t, p.HasAudioStream(context.Background(), "movie.mp4"))
}
