package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"animlab/internal/catalog"
	"animlab/internal/mirror"
	"animlab/internal/scene"
	"animlab/internal/tts"
)

const importGraph = `[
  {"scene_id": 1, "concept": "Linear Regression", "visual": "linear_regression", "narration": "Fit a line"},
  {"scene_id": 2, "concept": "Gradient Descent", "visual": "gradient_descent", "narration": "Walk downhill"},
  {"scene_id": 3, "concept": "Summary", "narration": ""}
]`

func writeGraph(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	path := filepath.Join(env.baseDir, "import.json")
	if err := os.WriteFile(path, []byte(importGraph), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type sceneList struct {
	Scenes []scene.Scene `json:"scenes"`
	Total  int           `json:"total"`
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "sqlite:"+filepath.Join(env.dataDir, "animlab.db"))

	target := filepath.Join(t.TempDir(), "config.toml")
	out = env.mustRun(t, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	env.mustRun(t, "config", "init", "--path", target, "--overwrite")
}

func TestScenesImportListShowSearch(t *testing.T) {
	env := setupCLITestEnv(t)
	graph := writeGraph(t, env)

	out := env.mustRun(t, "scenes", "import", graph)
	var summary importSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode import summary: %v (%s)", err, out)
	}
	if summary.Added != 3 || summary.Skipped != 0 {
		t.Fatalf("unexpected import summary %+v", summary)
	}

	// Importing again adds nothing.
	out = env.mustRun(t, "scenes", "import", graph)
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode import summary: %v", err)
	}
	if summary.Added != 0 || summary.Skipped != 3 {
		t.Fatalf("unexpected second import summary %+v", summary)
	}

	var list sceneList
	if err := json.Unmarshal([]byte(env.mustRun(t, "scenes", "list")), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 3 || list.Scenes[0].ID != 1 || list.Scenes[2].ID != 3 {
		t.Fatalf("unexpected list %+v", list)
	}

	var sc scene.Scene
	if err := json.Unmarshal([]byte(env.mustRun(t, "scenes", "show", "2")), &sc); err != nil {
		t.Fatalf("decode scene: %v", err)
	}
	if sc.Concept != "Gradient Descent" {
		t.Fatalf("unexpected scene %+v", sc)
	}
	if _, _, err := env.run(t, "scenes", "show", "99"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}

	if err := json.Unmarshal([]byte(env.mustRun(t, "scenes", "search", "DOWNHILL")), &list); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if list.Total != 1 || list.Scenes[0].ID != 2 {
		t.Fatalf("unexpected search result %+v", list)
	}

	mirrored, err := mirror.ReadFile(filepath.Join(env.dataDir, "scene_graph.json"))
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if len(mirrored) != 3 {
		t.Fatalf("expected import to sync the mirror, got %d scenes", len(mirrored))
	}
}

func TestScenesExport(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "scenes", "import", writeGraph(t, env))

	target := filepath.Join(env.baseDir, "export", "scenes.json")
	env.mustRun(t, "scenes", "export", "--output", target)
	exported, err := mirror.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if len(exported) != 3 || exported[1].Concept != "Gradient Descent" {
		t.Fatalf("unexpected export %+v", exported)
	}

	out := env.mustRun(t, "scenes", "export")
	var fromStdout []scene.Scene
	if err := json.Unmarshal([]byte(out), &fromStdout); err != nil {
		t.Fatalf("decode stdout export: %v", err)
	}
	if len(fromStdout) != 3 {
		t.Fatalf("unexpected stdout export %+v", fromStdout)
	}
}

func TestAudioGenerateAndStats(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "scenes", "import", writeGraph(t, env))

	var result tts.BatchResult
	if err := json.Unmarshal([]byte(env.mustRun(t, "audio", "generate")), &result); err != nil {
		t.Fatalf("decode audio result: %v", err)
	}
	if result.Generated != 2 || result.Skipped != 1 || result.Failed != 0 {
		t.Fatalf("unexpected audio result %+v", result)
	}
	data, err := os.ReadFile(filepath.Join(env.dataDir, "audio", "scene_1.wav"))
	if err != nil {
		t.Fatalf("expected narration file: %v", err)
	}
	if string(data) != "Fit a line" {
		t.Fatalf("unexpected narration content %q", data)
	}

	if err := json.Unmarshal([]byte(env.mustRun(t, "audio", "generate", "--scene", "2")), &result); err != nil {
		t.Fatalf("decode audio result: %v", err)
	}
	if result.Generated != 1 {
		t.Fatalf("expected one scene generated, got %+v", result)
	}

	var stats catalog.Stats
	if err := json.Unmarshal([]byte(env.mustRun(t, "stats")), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalScenes != 3 || stats.AudioFiles != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRenderWritesPlan(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "scenes", "import", writeGraph(t, env))

	out := env.mustRun(t, "render", "--scene", "1", "--scene", "2", "--quality", "low")
	var result struct {
		RenderID string `json:"render_id"`
		Plan     string `json:"plan"`
		Scenes   int    `json:"scenes"`
		Executed bool   `json:"executed"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode render result: %v (%s)", err, out)
	}
	if result.RenderID == "" || result.Scenes != 2 || result.Executed {
		t.Fatalf("unexpected render result %+v", result)
	}
	if _, err := os.Stat(result.Plan); err != nil {
		t.Fatalf("expected plan file: %v", err)
	}

	if _, _, err := env.run(t, "render", "--quality", "ultra"); err == nil {
		t.Fatal("expected invalid quality to fail")
	}
}

func TestVisualLabel(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{in: "", want: "-"},
		{in: "gradient_descent", want: "Gradient Descent"},
		{in: "neural_network", want: "Neural Network"},
		{in: " linear_regression", want: "Linear Regression"},
	}
	for _, tc := range cases {
		if got := visualLabel(tc.in); got != tc.want {
			t.Fatalf("visualLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSceneTable(t *testing.T) {
	table := sceneTable([]scene.Scene{{ID: 7, Concept: "Loss Curves", Visual: "loss_curve", Narration: "Watch it fall"}})
	for _, want := range []string{"ID", "Loss Curves", "Loss Curve", "Watch it fall"} {
		requireContains(t, table, want)
	}
}
