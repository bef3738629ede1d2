package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", configFileName, err)
	}
	return path
}

func TestLoadConfigResolvesPaths(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, `# reference sources
[audit]
dir = "src"
manifest = "api/hidden.txt"
marker = "HiddenAttribute"
suppress = ["CS0618"]
allow_unsafe = true
exclude = ["obj/**"]
jobs = 2
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Audit.Dir != filepath.Join(root, "src") {
		t.Fatalf("Dir = %q, want %q", cfg.Audit.Dir, filepath.Join(root, "src"))
	}
	if cfg.Audit.Manifest != filepath.Join(root, "api", "hidden.txt") {
		t.Fatalf("Manifest = %q", cfg.Audit.Manifest)
	}
	if cfg.Audit.Marker != "HiddenAttribute" || !cfg.Audit.AllowUnsafe || cfg.Audit.Jobs != 2 {
		t.Fatalf("unexpected audit section: %+v", cfg.Audit)
	}
	if !cfg.defined("suppress") {
		t.Fatalf("suppress should be defined")
	}
	if cfg.defined("lenient") {
		t.Fatalf("lenient should not be defined")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{"no section", "title = \"x\"\n", "unknown keys: title"},
		{"empty", "", "missing [audit]"},
		{"no dir", "[audit]\nmanifest = \"m.txt\"\n", "missing [audit].dir"},
		{"no manifest", "[audit]\ndir = \"src\"\n", "missing [audit].manifest"},
		{"unknown key", "[audit]\ndir = \"src\"\nmanifest = \"m.txt\"\nfrobnicate = true\n", "unknown keys: audit.frobnicate"},
		{"negative jobs", "[audit]\ndir = \"src\"\nmanifest = \"m.txt\"\njobs = -1\n", "must not be negative"},
		{"bad toml", "[audit\n", "failed to parse TOML"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.data)
			_, err := loadConfig(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %q, want it to contain %q", err, tc.want)
			}
		})
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[audit]\ndir = \".\"\nmanifest = \"m.txt\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := findConfig(nested)
	if err != nil {
		t.Fatalf("findConfig: %v", err)
	}
	if !ok {
		t.Fatalf("expected to find %s above %s", configFileName, nested)
	}
	want, _ := filepath.Abs(filepath.Join(root, configFileName))
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
}
