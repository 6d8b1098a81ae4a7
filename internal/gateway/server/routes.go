package server

import (
	"net/http"

	"appforge/internal/gateway/handler/api"
	"appforge/internal/gateway/middleware"
)

func NewMux(h *api.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.HandleHealthz)

	// Definition CRUD and compilation
	mux.HandleFunc("PUT /v1/apps/{id}", h.HandleSaveApp)
	mux.HandleFunc("GET /v1/apps/{id}", h.HandleGetApp)
	mux.HandleFunc("GET /v1/apps", h.HandleListApps)
	mux.HandleFunc("DELETE /v1/apps/{id}", h.HandleDeleteApp)
	mux.HandleFunc("POST /v1/apps/{id}/compile", h.HandleCompileApp)

	// Bundles
	mux.HandleFunc("POST /v1/apps/{id}/bundle", h.HandleBundleApp)
	mux.HandleFunc("GET /v1/apps/{id}/artifacts/{path...}", h.HandleGetArtifact)

	// Event execution
	mux.HandleFunc("POST /v1/apps/{id}/events/{eventId}/execute", h.HandleExecuteEvent)
	mux.HandleFunc("POST /v1/apps/{id}/events/{eventId}/start", h.HandleStartEvent)
	mux.HandleFunc("GET /v1/runs/{runId}", h.HandleGetRun)
	mux.HandleFunc("GET /v1/runs/{runId}/watch", h.HandleWatchRun)
	mux.HandleFunc("GET /v1/runs/{runId}/trace", h.HandleRunTrace)

	// Debug
	mux.HandleFunc("GET /debug/providers", h.HandleDebugProviders)

	return middleware.CORS(mux)
}
