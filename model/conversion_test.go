package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusView(t *testing.T) {
	job := &ConversionJob{
		ID:         "abc",
		SourceName: "movie.mp4",
		SourcePath: "/srv/uploads/abc/movie.mp4",
		OutputPath: "/srv/uploads/abc/movie.mp3",
		State:      JobConverting,
		Fraction:   0.5,
		Label:      "Converting...",
	}

	s := job.Status()
	assert.Equal(t, "abc", s.ID)
	assert.Empty(t, s.DownloadURL, "unfinished jobs expose no download")

	job.State = JobDone
	assert.Equal(t, "/api/jobs/abc/download", job.Status().DownloadURL)

	job.ArchiveURL = "https://minio.example/bucket/converted/abc/movie.mp3?sig"
	assert.Equal(t, job.ArchiveURL, job.Status().DownloadURL)

	job.State = JobFailed
	assert.Empty(t, job.Status().DownloadURL)
}
