package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"appforge/internal/codegen"
	"appforge/internal/compile"
	"appforge/internal/gateway/repository/appstore"
	"appforge/internal/gateway/repository/artifact"
)

type appSummary struct {
	AppID     string    `json:"appId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HandleSaveApp stores a definition under the URL id and reports its
// compile diagnostics. Drafts with errors are saved anyway; the compile
// gate applies when the app is bundled or executed, not while the builder
// is still editing.
func (h *Handler) HandleSaveApp(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.PathValue("id"))
	if appID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "app id is required")
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "read body: "+err.Error())
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "definition body is required")
		return
	}

	res := compile.Compile(raw)
	if res.App != nil && res.App.AppID != appID {
		writeError(w, http.StatusBadRequest, codeBadRequest,
			"definition appId "+res.App.AppID+" does not match URL id "+appID)
		return
	}

	rec := appstore.Record{AppID: appID, Definition: raw}
	if err := h.apps.Put(r.Context(), rec); err != nil {
		h.logger.Printf("save app %s: %v", appID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "save definition failed")
		return
	}
	h.cache.Invalidate(appID)

	writeJSON(w, http.StatusOK, map[string]any{
		"appId":       appID,
		"ok":          res.OK(),
		"image":       res.Image,
		"diagnostics": res.Diagnostics,
	})
}

func (h *Handler) HandleGetApp(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.PathValue("id"))
	rec, err := h.apps.Get(r.Context(), appID)
	if err != nil {
		if errors.Is(err, appstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeAppNotFound, "app "+appID+" not found")
			return
		}
		h.logger.Printf("get app %s: %v", appID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "load definition failed")
		return
	}
	// Drafts may hold invalid JSON; those go back as a string.
	var def any = json.RawMessage(rec.Definition)
	if !json.Valid(rec.Definition) {
		def = string(rec.Definition)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appId":      rec.AppID,
		"updatedAt":  rec.UpdatedAt,
		"definition": def,
	})
}

func (h *Handler) HandleListApps(w http.ResponseWriter, r *http.Request) {
	recs, err := h.apps.List(r.Context())
	if err != nil {
		h.logger.Printf("list apps: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "list definitions failed")
		return
	}
	apps := make([]appSummary, 0, len(recs))
	for _, rec := range recs {
		apps = append(apps, appSummary{AppID: rec.AppID, UpdatedAt: rec.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"apps": apps})
}

func (h *Handler) HandleDeleteApp(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.PathValue("id"))
	if err := h.apps.Delete(r.Context(), appID); err != nil {
		if errors.Is(err, appstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeAppNotFound, "app "+appID+" not found")
			return
		}
		h.logger.Printf("delete app %s: %v", appID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "delete definition failed")
		return
	}
	h.cache.Invalidate(appID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCompileApp compiles the stored definition and reports the outcome
// without touching it.
func (h *Handler) HandleCompileApp(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.PathValue("id"))
	res, err := h.runs.Compile(r.Context(), appID)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appId":       appID,
		"ok":          res.OK(),
		"image":       res.Image,
		"diagnostics": res.Diagnostics,
	})
}

type bundleFile struct {
	Path string `json:"path"`
	Size int    `json:"size"`
	URL  string `json:"url,omitempty"`
}

// HandleBundleApp generates the static bundle for a clean definition and
// persists it to the artifact store.
func (h *Handler) HandleBundleApp(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.PathValue("id"))
	res, err := h.runs.Compile(r.Context(), appID)
	if err != nil {
		writeRunError(w, err)
		return
	}
	if !res.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:       "definition has compile errors",
			Code:        codeCompileRejected,
			Diagnostics: res.Diagnostics,
		})
		return
	}

	files, err := h.bundle(r, appID, res)
	if err != nil {
		h.logger.Printf("bundle app %s: %v", appID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "bundle generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appId": appID,
		"image": res.Image,
		"files": files,
	})
}

func (h *Handler) bundle(r *http.Request, appID string, res *compile.Result) ([]bundleFile, error) {
	generated, err := codegen.Generate(res.App)
	if err != nil {
		return nil, err
	}
	out := make([]bundleFile, 0, len(generated))
	for _, f := range generated {
		if err := h.artifacts.Put(r.Context(), appID, f.Path, f.Content); err != nil {
			return nil, err
		}
		entry := bundleFile{Path: f.Path, Size: len(f.Content)}
		if url, err := h.artifacts.GetURL(r.Context(), appID, f.Path); err == nil && url != "" {
			entry.URL = url
		}
		out = append(out, entry)
	}
	return out, nil
}

// HandleGetArtifact serves one stored bundle file.
func (h *Handler) HandleGetArtifact(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimSpace(r.PathValue("id"))
	path := strings.TrimSpace(r.PathValue("path"))
	if path == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "artifact path is required")
		return
	}
	content, err := h.artifacts.Get(r.Context(), appID, path)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeArtifactNotFound, "artifact "+path+" not found")
			return
		}
		h.logger.Printf("get artifact %s/%s: %v", appID, path, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "load artifact failed")
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(path))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
