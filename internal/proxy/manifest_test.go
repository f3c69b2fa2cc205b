package proxy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifestDefaults(t *testing.T) {
	assets, err := LoadManifest("")
	if err != nil {
		t.Fatalf("load default manifest: %v", err)
	}
	if len(assets) == 0 || assets[0] != "/" {
		t.Fatalf("expected default manifest starting with /, got %v", assets)
	}
}

func TestLoadManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	content := "assets:\n  - /\n  - /index.html\n  - /manifest.json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	assets, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	want := []string{"/", "/index.html", "/manifest.json"}
	if len(assets) != len(want) {
		t.Fatalf("expected %d assets, got %d", len(want), len(assets))
	}
	for i := range want {
		if assets[i] != want[i] {
			t.Fatalf("expected asset %q at %d, got %q", want[i], i, assets[i])
		}
	}
}

func TestLoadManifestRejectsRelativePaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte("assets:\n  - index.html\n"), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected error for relative asset path")
	}
}

func TestLoadManifestRejectsEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte("assets: []\n"), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected error for empty manifest")
	}
}
