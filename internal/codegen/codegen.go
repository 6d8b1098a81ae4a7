// Package codegen turns a compiled application into its static runnable
// bundle: an HTML shell, a bootstrap script with the normalized definition
// embedded, the definition itself, and a Dockerfile for nginx serving.
// Output is deterministic for a given definition.
package codegen

import (
	"fmt"
	"strings"

	"appforge/internal/appdef"
	"appforge/internal/compile"
	"appforge/internal/util/jsonutil"
)

// File is one generated bundle entry. Paths are relative to the bundle
// root and never contain separators today.
type File struct {
	Path    string
	Content []byte
}

const indexTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>__APP_ID__</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 48rem; padding: 0 1rem; }
label { display: block; margin: 1rem 0 0.25rem; font-weight: 600; }
textarea { width: 100%; min-height: 6rem; box-sizing: border-box; }
button { margin-top: 1rem; padding: 0.5rem 1.25rem; }
table { border-collapse: collapse; margin-top: 1rem; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
</style>
</head>
<body>
<main id="app" data-app="__APP_ID__"></main>
<script src="app.js"></script>
</body>
</html>
`

const appJSTemplate = `"use strict";

const APP = __APP_DEFINITION__;
const API_BASE = window.APPFORGE_API || "";
const state = {};

function render() {
  const root = document.getElementById("app");
  root.textContent = "";
  const title = document.createElement("h1");
  title.textContent = APP.appId;
  root.appendChild(title);
  for (const c of APP.components) {
    root.appendChild(renderComponent(c));
  }
}

function renderComponent(c) {
  const wrap = document.createElement("div");
  if (c.type === "textArea") {
    const label = document.createElement("label");
    label.textContent = c.label || c.stateKey;
    const input = document.createElement("textarea");
    input.placeholder = c.placeholder || "";
    input.value = state[c.stateKey] || "";
    input.addEventListener("input", () => { state[c.stateKey] = input.value; });
    wrap.append(label, input);
  } else if (c.type === "button") {
    const button = document.createElement("button");
    button.textContent = c.label || c.id;
    button.addEventListener("click", () => fire(c.onClick, button));
    wrap.appendChild(button);
  } else if (c.type === "dataTable") {
    const label = document.createElement("label");
    label.textContent = c.label || c.dataKey;
    wrap.append(label, renderTable(state[c.dataKey]));
  }
  return wrap;
}

function renderTable(rows) {
  const table = document.createElement("table");
  if (!Array.isArray(rows) || rows.length === 0) {
    const empty = document.createElement("caption");
    empty.textContent = "no rows yet";
    table.appendChild(empty);
    return table;
  }
  const columns = Object.keys(rows[0]);
  const head = table.insertRow();
  for (const col of columns) {
    const th = document.createElement("th");
    th.textContent = col;
    head.appendChild(th);
  }
  for (const row of rows) {
    const tr = table.insertRow();
    for (const col of columns) {
      tr.insertCell().textContent = row[col] == null ? "" : String(row[col]);
    }
  }
  return table;
}

async function fire(eventId, button) {
  button.disabled = true;
  try {
    const url = API_BASE + "/v1/apps/" + encodeURIComponent(APP.appId) +
      "/events/" + encodeURIComponent(eventId) + "/execute";
    const res = await fetch(url, {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ state: state }),
    });
    const body = await res.json();
    if (!res.ok) {
      alert(body.error || res.statusText);
      return;
    }
    Object.assign(state, body.statePatch || {});
    render();
  } finally {
    button.disabled = false;
  }
}

document.addEventListener("DOMContentLoaded", render);
`

// Generate produces the bundle files for a normalized definition, in a
// fixed order: index.html, app.js, app.json, Dockerfile.
func Generate(app *appdef.AppDefinition) ([]File, error) {
	if app == nil {
		return nil, fmt.Errorf("codegen: nil app definition")
	}

	embedded, err := jsonutil.MarshalNoEscape(app)
	if err != nil {
		return nil, fmt.Errorf("codegen: encode definition: %w", err)
	}
	pretty, err := jsonutil.MarshalNoEscapeIndent(app, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("codegen: encode definition: %w", err)
	}

	index := strings.ReplaceAll(indexTemplate, "__APP_ID__", app.AppID)
	appJS := strings.ReplaceAll(appJSTemplate, "__APP_DEFINITION__", string(embedded))

	return []File{
		{Path: "index.html", Content: []byte(index)},
		{Path: "app.js", Content: []byte(appJS)},
		{Path: "app.json", Content: append(pretty, '\n')},
		{Path: "Dockerfile", Content: []byte(dockerfile(app.AppID))},
	}, nil
}

// dockerfile renders the static-serve image recipe, labeled with the
// deterministic image name the compile facade reports.
func dockerfile(appID string) string {
	image := compile.ImageName(appID)
	return fmt.Sprintf(`# docker build -t %s .
FROM nginx:1.27-alpine
LABEL org.opencontainers.image.title=%q
COPY index.html app.js app.json /usr/share/nginx/html/
EXPOSE 80
`, image, image)
}
