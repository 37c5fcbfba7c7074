package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mp4tomp3/model"
)

func TestMemoryJobStore_PutGet(t *testing.T) {
	s := NewMemoryJobStore(time.Minute)
	ctx := context.Background()

	job := &model.ConversionJob{
		ID:         "job-1",
		SourceName: "movie.mp4",
		State:      model.JobPending,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.Put(ctx, job))

	got, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "movie.mp4", got.SourceName)
	assert.Equal(t, model.JobPending, got.State)
}

func TestMemoryJobStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryJobStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &model.ConversionJob{ID: "job-1", State: model.JobPending}))

	first, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	first.State = model.JobFailed

	second, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, second.State)
}

func TestMemoryJobStore_Missing(t *testing.T) {
	s := NewMemoryJobStore(time.Minute)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryJobStore_Expiry(t *testing.T) {
	s := NewMemoryJobStore(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &model.ConversionJob{ID: "job-1"}))
	time.Sleep(20 * time.Millisecond)

	_, err := s.Get(ctx, "job-1")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryJobStore_Overwrite(t *testing.T) {
	s := NewMemoryJobStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &model.ConversionJob{ID: "job-1", State: model.JobPending}))
	require.NoError(t, s.Put(ctx, &model.ConversionJob{ID: "job-1", State: model.JobDone}))

	got, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobDone, got.State)
}
