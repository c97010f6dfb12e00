package runner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aura-studio/offline/runner"
)

func TestWithDefaultConfigFindsFile(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "runner.yaml")
	if err := os.WriteFile(p, []byte(`runner:
  plugins:
    dir: ./plugins
    watch: false
  package:
    namespace: myns
    defaultVersion: v1
`), 0o644); err != nil {
		t.Fatalf("write runner.yaml: %v", err)
	}

	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	o := runner.NewOptions(runner.WithDefaultConfig())
	if o.PluginDir != "./plugins" {
		t.Fatalf("PluginDir = %q", o.PluginDir)
	}
	if o.PackageNamespace != "myns" {
		t.Fatalf("PackageNamespace = %q", o.PackageNamespace)
	}
}

func TestFindDefaultConfigChecksNestedDir(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "runner"), 0o755); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(tmp, "runner", "runner.yml")
	if err := os.WriteFile(p, []byte("runner:\n  package:\n    namespace: nested\n"), 0o644); err != nil {
		t.Fatalf("write runner.yml: %v", err)
	}

	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	found, err := runner.FindDefaultConfigFile()
	if err != nil {
		t.Fatalf("FindDefaultConfigFile: %v", err)
	}
	if found != filepath.FromSlash("runner/runner.yml") {
		t.Fatalf("found = %q", found)
	}
}
