package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"appforge/internal/cache/compiled"
	"appforge/internal/gateway/handler/api"
	"appforge/internal/gateway/repository/appstore"
	"appforge/internal/gateway/repository/artifact"
	"appforge/internal/gateway/run"
	"appforge/internal/gateway/server"
	"appforge/internal/llm"
	"appforge/internal/runner"
)

const scenarioJSON = `{
  "appId": "complaint-desk",
  "version": "1.0.0",
  "components": [
    {"id": "cmp_input", "type": "textArea", "label": "Customer Complaint", "stateKey": "customerComplaint"},
    {"id": "cmp_analyze", "type": "button", "label": "Analyze", "onClick": "evt_analyze_click"},
    {"id": "cmp_results", "type": "dataTable", "label": "Analysis", "dataKey": "analysisRows"}
  ],
  "stateModel": {
    "customerComplaint": {"type": "string", "minLength": 1},
    "analysisRows": {"type": "array", "items": {"fields": [
      {"name": "sentiment", "type": "string", "enum": ["positive", "neutral", "negative"]},
      {"name": "reply", "type": "string", "minLength": 1}
    ]}}
  },
  "events": [
    {
      "id": "evt_analyze_click",
      "trigger": {"componentId": "cmp_analyze", "on": "onClick"},
      "graph": {
        "nodes": [
          {"id": "check", "type": "validate", "stateKeys": ["customerComplaint"]},
          {"id": "prompt", "type": "promptTask",
           "template": "Analyze this complaint: {{customerComplaint}}",
           "variables": ["customerComplaint"],
           "model": {"provider": "fake", "model": "test-model"},
           "output": {"name": "analysis", "fields": [
             {"name": "sentiment", "type": "string", "enum": ["positive", "neutral", "negative"]},
             {"name": "reply", "type": "string", "minLength": 1}
           ]}},
          {"id": "apply", "type": "transform", "assign": {"analysisRows": "[$prompt.output]"}}
        ],
        "edges": [
          {"from": "check", "to": "prompt"},
          {"from": "prompt", "to": "apply"}
        ]
      }
    }
  ]
}`

const fakeAnalysis = `{"sentiment": "negative", "reply": "We are sorry about the delay."}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := llm.NewRegistry()
	require.NoError(t, reg.Register(llm.NewFakeProvider("fake", fakeAnalysis)))
	t.Cleanup(func() { _ = reg.Close() })

	quiet := log.New(io.Discard, "", 0)
	apps := appstore.NewMemoryStore()
	cache := compiled.New(compiled.DefaultCacheConfig())
	runSvc := run.New(apps, cache, runner.New(reg, quiet), run.NewTraceLogger(t.TempDir()), quiet)
	h := api.New(apps, artifact.NewMemoryStore(), cache, runSvc, reg, quiet)

	srv := httptest.NewServer(server.NewMux(h))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return res
}

func decodeBody(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	defer res.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func saveScenario(t *testing.T, srv *httptest.Server) {
	t.Helper()
	res := doRequest(t, http.MethodPut, srv.URL+"/v1/apps/complaint-desk", []byte(scenarioJSON))
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, true, body["ok"], "diagnostics: %v", body["diagnostics"])
}

func TestSaveCompileGetApp(t *testing.T) {
	srv := newTestServer(t)
	saveScenario(t, srv)

	res := doRequest(t, http.MethodGet, srv.URL+"/v1/apps/complaint-desk", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, "complaint-desk", body["appId"])
	def, ok := body["definition"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "complaint-desk", def["appId"])

	res = doRequest(t, http.MethodPost, srv.URL+"/v1/apps/complaint-desk/compile", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body = decodeBody(t, res)
	require.Equal(t, true, body["ok"])
	require.Equal(t, "app-complaint-desk", body["image"])

	res = doRequest(t, http.MethodGet, srv.URL+"/v1/apps", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body = decodeBody(t, res)
	apps, ok := body["apps"].([]any)
	require.True(t, ok)
	require.Len(t, apps, 1)
}

func TestSaveRejectsMismatchedID(t *testing.T) {
	srv := newTestServer(t)

	res := doRequest(t, http.MethodPut, srv.URL+"/v1/apps/other-app", []byte(scenarioJSON))
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()
}

func TestSaveKeepsDraftWithDiagnostics(t *testing.T) {
	srv := newTestServer(t)

	res := doRequest(t, http.MethodPut, srv.URL+"/v1/apps/draft", []byte(`{"appId": `))
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, false, body["ok"])
	diags, ok := body["diagnostics"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, diags)

	res = doRequest(t, http.MethodGet, srv.URL+"/v1/apps/draft", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body = decodeBody(t, res)
	def, ok := body["definition"].(string)
	require.True(t, ok, "broken drafts come back as text: %#v", body["definition"])
	require.Equal(t, `{"appId": `, def)
}

func TestDeleteApp(t *testing.T) {
	srv := newTestServer(t)
	saveScenario(t, srv)

	res := doRequest(t, http.MethodDelete, srv.URL+"/v1/apps/complaint-desk", nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	res.Body.Close()

	res = doRequest(t, http.MethodGet, srv.URL+"/v1/apps/complaint-desk", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()

	res = doRequest(t, http.MethodDelete, srv.URL+"/v1/apps/complaint-desk", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()
}

func TestCompileUnknownApp(t *testing.T) {
	srv := newTestServer(t)

	res := doRequest(t, http.MethodPost, srv.URL+"/v1/apps/ghost/compile", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, "APP_NOT_FOUND", body["code"])
}

func TestBundleAndFetchArtifact(t *testing.T) {
	srv := newTestServer(t)
	saveScenario(t, srv)

	res := doRequest(t, http.MethodPost, srv.URL+"/v1/apps/complaint-desk/bundle", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, "app-complaint-desk", body["image"])
	files, ok := body["files"].([]any)
	require.True(t, ok)
	require.Len(t, files, 4)

	res = doRequest(t, http.MethodGet, srv.URL+"/v1/apps/complaint-desk/artifacts/index.html", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/html")
	content, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(content), "<!doctype html>")

	res = doRequest(t, http.MethodGet, srv.URL+"/v1/apps/complaint-desk/artifacts/missing.txt", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()
}

func TestBundleRejectsBrokenDefinition(t *testing.T) {
	srv := newTestServer(t)

	res := doRequest(t, http.MethodPut, srv.URL+"/v1/apps/draft", []byte(`{"appId": `))
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	res = doRequest(t, http.MethodPost, srv.URL+"/v1/apps/draft/bundle", nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, "COMPILE_REJECTED", body["code"])
	require.NotEmpty(t, body["diagnostics"])
}

func TestExecuteEvent(t *testing.T) {
	srv := newTestServer(t)
	saveScenario(t, srv)

	payload := []byte(`{"state": {"customerComplaint": "Your parcel arrived late."}}`)
	res := doRequest(t, http.MethodPost, srv.URL+"/v1/apps/complaint-desk/events/evt_analyze_click/execute", payload)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)

	runID, ok := body["runId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, runID)
	patch, ok := body["statePatch"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, patch, "analysisRows")
	logs, ok := body["logs"].([]any)
	require.True(t, ok)
	require.Len(t, logs, 3)

	res = doRequest(t, http.MethodGet, srv.URL+"/v1/runs/"+runID, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body = decodeBody(t, res)
	require.Equal(t, "completed", body["status"])

	res = doRequest(t, http.MethodGet, srv.URL+"/v1/runs/"+runID+"/trace", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body = decodeBody(t, res)
	events, ok := body["events"].([]any)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(events), 5)
}

func TestExecuteValidationFailure(t *testing.T) {
	srv := newTestServer(t)
	saveScenario(t, srv)

	res := doRequest(t, http.MethodPost, srv.URL+"/v1/apps/complaint-desk/events/evt_analyze_click/execute", []byte(`{"state": {}}`))
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, "RUN_VALIDATION_FAILED", body["code"])
}

func TestExecuteUnknownEvent(t *testing.T) {
	srv := newTestServer(t)
	saveScenario(t, srv)

	res := doRequest(t, http.MethodPost, srv.URL+"/v1/apps/complaint-desk/events/evt_missing/execute", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, "RUN_UNKNOWN_EVENT", body["code"])
}

func TestGetRunUnknown(t *testing.T) {
	srv := newTestServer(t)

	res := doRequest(t, http.MethodGet, srv.URL+"/v1/runs/no-such-run", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, "RUN_NOT_FOUND", body["code"])
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestStartAndWatchRun(t *testing.T) {
	srv := newTestServer(t)
	saveScenario(t, srv)

	payload := []byte(`{"state": {"customerComplaint": "The app crashed twice."}}`)
	res := doRequest(t, http.MethodPost, srv.URL+"/v1/apps/complaint-desk/events/evt_analyze_click/start", payload)
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	body := decodeBody(t, res)
	runID, ok := body["runId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, runID)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/runs/"+runID+"/watch"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var terminal map[string]any
	for {
		var ev map[string]any
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		if ev["type"] == "completed" || ev["type"] == "failed" {
			terminal = ev
			break
		}
		require.Equal(t, "log", ev["type"])
	}
	require.NotNil(t, terminal, "no terminal event received")
	require.Equal(t, "completed", terminal["type"])
	patch, ok := terminal["statePatch"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, patch, "analysisRows")
}

func TestWatchUnknownRun(t *testing.T) {
	srv := newTestServer(t)

	_, res, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/runs/no-such-run/watch"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, res)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()
}

func TestHealthzAndDebugProviders(t *testing.T) {
	srv := newTestServer(t)

	res := doRequest(t, http.MethodGet, srv.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody(t, res)
	require.Equal(t, "ok", body["status"])

	res = doRequest(t, http.MethodGet, srv.URL+"/debug/providers", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body = decodeBody(t, res)
	providers, ok := body["providers"].([]any)
	require.True(t, ok)
	require.Contains(t, providers, "fake")
}
