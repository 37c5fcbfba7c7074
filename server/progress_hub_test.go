package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mp4tomp3/model"
)

func TestProgressHub_PublishReachesSubscribers(t *testing.T) {
	hub := NewProgressHub()
	ch := hub.Subscribe("job-1")
	defer hub.Unsubscribe("job-1", ch)

	hub.Publish(model.ProgressEvent{JobID: "job-1", Fraction: 0.5, Label: "Converting..."})

	select {
	case event := <-ch:
		assert.Equal(t, 0.5, event.Fraction)
		assert.Equal(t, "Converting...", event.Label)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
}

func TestProgressHub_OtherJobsUnaffected(t *testing.T) {
	hub := NewProgressHub()
	ch := hub.Subscribe("job-1")
	defer hub.Unsubscribe("job-1", ch)

	hub.Publish(model.ProgressEvent{JobID: "job-2", Fraction: 1.0})

	select {
	case <-ch:
		t.Fatal("event for another job must not be delivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProgressHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewProgressHub()
	ch := hub.Subscribe("job-1")
	defer hub.Unsubscribe("job-1", ch)

	// More events than the channel buffers; Publish must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Publish(model.ProgressEvent{JobID: "job-1", Fraction: 0.5})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestWSProgressHandler_StreamsUntilTerminal(t *testing.T) {
	h, jobs := newTestHandler(t, &fakeConverter{})
	router := NewRouter(h)

	job := &model.ConversionJob{
		ID:       "ws-job",
		State:    model.JobConverting,
		Fraction: 0.3,
		Label:    "Starting conversion...",
	}
	require.NoError(t, jobs.Put(context.Background(), job))

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/jobs/ws-job"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First frame is the snapshot of the stored job.
	var snapshot model.ProgressEvent
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, 0.3, snapshot.Fraction)
	assert.Equal(t, model.JobConverting, snapshot.State)

	job.State = model.JobDone
	job.Fraction = 1.0
	job.Message = "Conversion successful!"
	h.publish(context.Background(), job)

	var final model.ProgressEvent
	require.NoError(t, conn.ReadJSON(&final))
	assert.Equal(t, model.JobDone, final.State)
	assert.Equal(t, "Conversion successful!", final.Message)

	// The handler closes the stream after the terminal event.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	assert.Error(t, conn.ReadJSON(&model.ProgressEvent{}))
}

func TestWSProgressHandler_UnknownJob(t *testing.T) {
	h, _ := newTestHandler(t, &fakeConverter{})
	router := NewRouter(h)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/jobs/nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
