package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"mp4tomp3/logger"
	"mp4tomp3/model"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// WSProgressHandler streams a job's progress events over a websocket. The
// current job snapshot is sent first, then live events until a terminal state
// is reached or the client goes away.
func (h *APIHandler) WSProgressHandler(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	// Subscribe before sending the snapshot so no event can fall in between.
	events := h.hub.Subscribe(jobID)
	defer h.hub.Unsubscribe(jobID, events)

	snapshot := model.ProgressEvent{
		JobID:    job.ID,
		Fraction: job.Fraction,
		Label:    job.Label,
		State:    job.State,
		Message:  job.Message,
	}
	if err := writeEvent(conn, snapshot); err != nil {
		return
	}
	if isTerminal(job.State) {
		return
	}

	// Drop the subscription when the client disconnects.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
			if isTerminal(event.State) {
				return
			}
		case <-clientGone:
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, event model.ProgressEvent) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(event)
}

func isTerminal(state model.JobState) bool {
	return state == model.JobDone || state == model.JobFailed
}
