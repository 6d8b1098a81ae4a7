// Command forge compiles an app definition, writes its static bundle, and
// optionally executes one event against a state snapshot.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"appforge/internal/appdef"
	"appforge/internal/codegen"
	"appforge/internal/compile"
	"appforge/internal/llm"
	"appforge/internal/runner"
	"appforge/internal/safeio"
)

func main() {
	appPath := flag.String("app", "", "path to the app definition JSON")
	outDir := flag.String("out", "out", "bundle output directory")
	eventID := flag.String("event", "", "event id to execute after compiling")
	stateJSON := flag.String("state", "{}", "state snapshot for -event, as JSON")
	catalogPath := flag.String("providers", "", "provider catalog YAML (default catalog when empty)")
	fake := flag.Bool("fake", false, "answer every prompt with -fake-reply instead of a real provider")
	fakeReply := flag.String("fake-reply", "{}", "canned model reply for -fake, as JSON")
	flag.Parse()
	if *appPath == "" {
		log.Fatal("-app is required")
	}

	_ = godotenv.Load()

	raw, err := os.ReadFile(*appPath)
	if err != nil {
		log.Fatal(err)
	}

	res := compile.Compile(raw)
	for _, d := range res.Diagnostics {
		fmt.Printf("%s %s: %s (%s)\n", d.Severity, d.Code, d.Message, d.Path)
	}
	if !res.OK() {
		log.Fatalf("%s does not compile", *appPath)
	}
	log.Printf("compiled %s as image %s", res.App.AppID, res.Image)

	writeBundle(res.App, *outDir)

	if *eventID != "" {
		executeEvent(res.App, *eventID, *stateJSON, *catalogPath, *fake, *fakeReply)
	}
}

func writeBundle(app *appdef.AppDefinition, outDir string) {
	files, err := codegen.Generate(app)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatal(err)
	}
	fsys, err := safeio.NewSafeFS(outDir)
	if err != nil {
		log.Fatal(err)
	}
	for _, f := range files {
		if err := fsys.WriteFile(f.Path, f.Content, 0o644); err != nil {
			log.Fatalf("write %s: %v", f.Path, err)
		}
		log.Printf("wrote %s (%d bytes)", f.Path, len(f.Content))
	}
}

func executeEvent(app *appdef.AppDefinition, eventID, stateJSON, catalogPath string, fake bool, fakeReply string) {
	var state map[string]any
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		log.Fatalf("parse -state: %v", err)
	}

	ctx := context.Background()
	reg, err := buildRegistry(ctx, app, catalogPath, fake, fakeReply)
	if err != nil {
		log.Fatal(err)
	}
	defer reg.Close()

	interp := runner.New(reg, log.Default())
	out, err := interp.Execute(ctx, app, eventID, state)
	if err != nil {
		log.Fatalf("execute %s: %v", eventID, err)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}

// buildRegistry assembles the provider set for one execution. With -fake,
// every provider the definition references answers with the canned reply;
// otherwise the catalog decides.
func buildRegistry(ctx context.Context, app *appdef.AppDefinition, catalogPath string, fake bool, fakeReply string) (*llm.Registry, error) {
	if fake {
		reg := llm.NewRegistry()
		for _, name := range promptProviders(app) {
			if err := reg.Register(llm.NewFakeProvider(name, fakeReply)); err != nil {
				return nil, err
			}
		}
		return reg, nil
	}

	catalog := llm.DefaultCatalog()
	if catalogPath != "" {
		var err error
		catalog, err = llm.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
	}
	return catalog.Build(ctx, log.Default())
}

func promptProviders(app *appdef.AppDefinition) []string {
	seen := map[string]bool{}
	var names []string
	for _, ev := range app.Events {
		for i := range ev.Graph.Nodes {
			n := &ev.Graph.Nodes[i]
			if n.Prompt == nil {
				continue
			}
			name := n.Prompt.Model.Provider
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
