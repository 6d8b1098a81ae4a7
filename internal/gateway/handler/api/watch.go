package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"appforge/internal/gateway/run"
)

const (
	watchWSWriteWait = 10 * time.Second
	watchWSPongWait  = 60 * time.Second
	watchWSPingEvery = (watchWSPongWait * 9) / 10
)

var watchWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleWatchRun streams a run's events over a websocket. A run whose
// channel already expired but whose final state is still known gets that
// state as a single terminal event.
func (h *Handler) HandleWatchRun(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.PathValue("runId"))

	events, ok := h.runs.Watch(runID)
	if !ok {
		st, found := h.runs.Status(runID)
		if !found || st.Status == run.StatusRunning {
			writeError(w, http.StatusNotFound, codeRunNotFound, "run "+runID+" not found")
			return
		}
		h.serveFinishedRun(w, r, st)
		return
	}

	conn, err := watchWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(watchWSPongWait)); err != nil {
		h.logger.Printf("watch ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchWSPongWait))
	})

	writeCh := make(chan run.Event, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(watchWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case out, ok := <-writeCh:
				if !ok {
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reads serve only pong processing and disconnect detection.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			close(writeCh)
			<-writerDone
			return
		case ev, open := <-events:
			if !open {
				close(writeCh)
				<-writerDone
				return
			}
			select {
			case writeCh <- ev:
			case <-writerDone:
				return
			}
			if ev.Type == run.EventCompleted || ev.Type == run.EventFailed {
				close(writeCh)
				<-writerDone
				return
			}
		}
	}
}

// serveFinishedRun upgrades and replays the terminal event for a run that
// ended before the watcher arrived.
func (h *Handler) serveFinishedRun(w http.ResponseWriter, r *http.Request, st run.RunState) {
	conn, err := watchWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ev := run.Event{Type: run.EventCompleted, RunID: st.RunID, StatePatch: st.StatePatch, Logs: st.Logs}
	if st.Status == run.StatusFailed {
		ev = run.Event{Type: run.EventFailed, RunID: st.RunID, Error: st.Error}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(watchWSWriteWait))
	_ = conn.WriteJSON(ev)
}
