package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

type executeRequest struct {
	State map[string]any `json:"state"`
}

// decodeState reads the optional request body. An empty body means an
// empty state snapshot; validation nodes decide whether that is enough.
func decodeState(r *http.Request) (map[string]any, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var req executeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errors.New("invalid json body")
	}
	if req.State == nil {
		req.State = map[string]any{}
	}
	return req.State, nil
}

// HandleExecuteEvent runs one event synchronously and returns the patch
// and log, or a mapped error.
func (h *Handler) HandleExecuteEvent(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.PathValue("id"))
	eventID := strings.TrimSpace(r.PathValue("eventId"))
	state, err := decodeState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	res, err := h.runs.Execute(r.Context(), appID, eventID, state)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleStartEvent launches one event asynchronously and returns the run
// id for watching or polling.
func (h *Handler) HandleStartEvent(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.PathValue("id"))
	eventID := strings.TrimSpace(r.PathValue("eventId"))
	state, err := decodeState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	runID, err := h.runs.Start(r.Context(), appID, eventID, state)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"runId": runID})
}

func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.PathValue("runId"))
	st, ok := h.runs.Status(runID)
	if !ok {
		writeError(w, http.StatusNotFound, codeRunNotFound, "run "+runID+" not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) HandleRunTrace(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.PathValue("runId"))
	events, err := h.runs.Trace(runID)
	if err != nil {
		h.logger.Printf("read trace %s: %v", runID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "read trace failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runId":  runID,
		"events": events,
	})
}
