package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunDoctor_FreshSetupWarnsOnly(t *testing.T) {
	resetAuditFlags(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	chdir(t, dir)

	cmd, buf := newTestCommand(t, testConfig(t))
	if err := runDoctor(cmd, nil); err != nil {
		t.Fatalf("expected warnings only, got %v\n%s", err, buf.String())
	}

	out := buf.String()
	for _, want := range []string{
		"✓ Configuration valid",
		"⚠ No history database yet",
		"⚠ No build script in the current directory",
		"All critical checks passed (2 warnings).",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestRunDoctor_AllChecksPass(t *testing.T) {
	resetAuditFlags(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	path := writeManifest(t, dir, "build.gradle.kts", testManifest)
	chdir(t, dir)

	cfg := testConfig(t)
	auditOnce(t, cfg, path)

	cmd, buf := newTestCommand(t, cfg)
	if err := runDoctor(cmd, nil); err != nil {
		t.Fatalf("runDoctor: %v\n%s", err, buf.String())
	}

	out := buf.String()
	if !strings.Contains(out, "(4 declarations)") {
		t.Errorf("expected declaration count:\n%s", out)
	}
	if !strings.Contains(out, "(1 run)") {
		t.Errorf("expected run count:\n%s", out)
	}
	if !strings.Contains(out, "All checks passed.") {
		t.Errorf("expected all checks to pass:\n%s", out)
	}
}

func TestRunDoctor_InvalidConfigIsCritical(t *testing.T) {
	resetAuditFlags(t)
	dir := t.TempDir()
	chdir(t, dir)

	cfg := testConfig(t)
	cfg.Audit.Jobs = 0

	cmd, buf := newTestCommand(t, cfg)
	err := runDoctor(cmd, nil)
	if !errors.Is(err, ErrDoctorFailed) {
		t.Fatalf("expected ErrDoctorFailed, got %v", err)
	}
	if !strings.Contains(buf.String(), "✗ Configuration invalid") {
		t.Errorf("expected the config failure to be reported:\n%s", buf.String())
	}
}

func TestRunDoctor_UnreadableManifestIsCritical(t *testing.T) {
	resetAuditFlags(t)
	dir := t.TempDir()
	// A directory named like the manifest passes the existence check but
	// cannot be read as a file.
	if err := os.Mkdir(filepath.Join(dir, "build.gradle.kts"), 0o755); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cmd, buf := newTestCommand(t, testConfig(t))
	if err := runDoctor(cmd, nil); !errors.Is(err, ErrDoctorFailed) {
		t.Fatalf("expected ErrDoctorFailed, got %v\n%s", err, buf.String())
	}
}
