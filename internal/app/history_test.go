package app

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/blackwell-systems/depaudit/internal/config"
	"github.com/blackwell-systems/depaudit/internal/output"
	"github.com/blackwell-systems/depaudit/internal/store"
)

func resetHistoryFlags(t *testing.T) {
	t.Helper()
	manifest, limit, format, keep := historyManifest, historyLimit, historyFormat, historyKeep
	historyManifest, historyLimit, historyFormat, historyKeep = "", 20, config.FormatTable, 10
	t.Cleanup(func() {
		historyManifest, historyLimit, historyFormat, historyKeep = manifest, limit, format, keep
	})
}

// auditOnce records one heuristic audit of path in cfg's database.
func auditOnce(t *testing.T, cfg *config.Config, path string) {
	t.Helper()
	cmd, _ := newTestCommand(t, cfg)
	if err := runAudit(cmd, []string{path}); err != nil {
		t.Fatalf("runAudit: %v", err)
	}
}

func TestRunHistory_NotInitialized(t *testing.T) {
	resetHistoryFlags(t)
	resetAuditFlags(t)

	cmd, _ := newTestCommand(t, testConfig(t))
	if err := runHistory(cmd, nil); !errors.Is(err, store.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestRunHistory_ListsRuns(t *testing.T) {
	resetHistoryFlags(t)
	resetAuditFlags(t)
	cfg := testConfig(t)
	dir := t.TempDir()
	app := writeManifest(t, dir, "app.gradle.kts", testManifest)
	lib := writeManifest(t, dir, "lib.gradle.kts", testManifest)

	auditOnce(t, cfg, app)
	auditOnce(t, cfg, lib)

	cmd, buf := newTestCommand(t, cfg)
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory: %v", err)
	}
	if !strings.Contains(buf.String(), app) || !strings.Contains(buf.String(), lib) {
		t.Errorf("expected both manifests listed:\n%s", buf.String())
	}

	historyManifest = lib
	cmd, buf = newTestCommand(t, cfg)
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory: %v", err)
	}
	if strings.Contains(buf.String(), app) {
		t.Errorf("expected only %s listed:\n%s", lib, buf.String())
	}
}

func TestRunHistoryShow(t *testing.T) {
	resetHistoryFlags(t)
	resetAuditFlags(t)
	cfg := testConfig(t)
	path := writeManifest(t, t.TempDir(), "build.gradle.kts", testManifest)
	auditOnce(t, cfg, path)

	st, err := store.New(cfg.History.DBPath)
	if err != nil {
		t.Fatal(err)
	}
	runs, err := st.ListRuns("", 0)
	st.Close()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run, got %d (%v)", len(runs), err)
	}

	cmd, buf := newTestCommand(t, cfg)
	if err := runHistoryShow(cmd, []string{runs[0].ShortID()}); err != nil {
		t.Fatalf("runHistoryShow: %v", err)
	}
	if !strings.Contains(buf.String(), "com.google.guava:guava:33.0.0-jre") ||
		!strings.Contains(buf.String(), "Flagged: 1 of 4 dependencies") {
		t.Errorf("unexpected show output:\n%s", buf.String())
	}

	historyFormat = config.FormatJSON
	cmd, buf = newTestCommand(t, cfg)
	if err := runHistoryShow(cmd, []string{runs[0].ID}); err != nil {
		t.Fatalf("runHistoryShow: %v", err)
	}
	var rep output.Report
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rep.RunID != runs[0].ID || len(rep.Findings) != 4 {
		t.Errorf("unexpected report: %+v", rep)
	}

	historyFormat = "sarif"
	cmd, _ = newTestCommand(t, cfg)
	if err := runHistoryShow(cmd, []string{runs[0].ID}); err == nil {
		t.Error("expected an error for an unsupported format")
	}

	cmd, _ = newTestCommand(t, cfg)
	historyFormat = config.FormatTable
	if err := runHistoryShow(cmd, []string{"ffffffff"}); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunHistoryDiff(t *testing.T) {
	resetHistoryFlags(t)
	resetAuditFlags(t)
	cfg := testConfig(t)
	dir := t.TempDir()
	path := writeManifest(t, dir, "build.gradle.kts", testManifest)

	auditOnce(t, cfg, path)

	cmd, _ := newTestCommand(t, cfg)
	if err := runHistoryDiff(cmd, []string{path}); err == nil {
		t.Error("expected an error with a single recorded audit")
	}

	edited := strings.Replace(testManifest,
		`    implementation("com.google.guava:guava:33.0.0-jre")`,
		`    implementation("commons-io:commons-io:2.15.1")`, 1)
	writeManifest(t, dir, "build.gradle.kts", edited)
	auditOnce(t, cfg, path)

	cmd, buf := newTestCommand(t, cfg)
	if err := runHistoryDiff(cmd, []string{path}); err != nil {
		t.Fatalf("runHistoryDiff: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Newly flagged:",
		"commons-io:commons-io:2.15.1",
		"Removed declarations:",
		"com.google.guava:guava:33.0.0-jre",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected diff to contain %q\n%s", want, out)
		}
	}
}

func TestRunHistoryPrune(t *testing.T) {
	resetHistoryFlags(t)
	resetAuditFlags(t)
	cfg := testConfig(t)
	path := writeManifest(t, t.TempDir(), "build.gradle.kts", testManifest)
	for i := 0; i < 3; i++ {
		auditOnce(t, cfg, path)
	}

	historyKeep = 1
	cmd, buf := newTestCommand(t, cfg)
	if err := runHistoryPrune(cmd, nil); err != nil {
		t.Fatalf("runHistoryPrune: %v", err)
	}
	if !strings.Contains(buf.String(), "Deleted 2 runs.") {
		t.Errorf("unexpected prune output: %q", buf.String())
	}

	historyKeep = 0
	if err := runHistoryPrune(cmd, nil); err == nil {
		t.Error("expected an error for --keep 0")
	}
}
