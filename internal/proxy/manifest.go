package proxy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultManifest is the pre-warm list used when no manifest file is
// configured: the application shell and the web manifest.
var DefaultManifest = []string{
	"/",
	"/index.html",
	"/manifest.json",
}

type manifestFile struct {
	Assets []string `yaml:"assets"`
}

// LoadManifest reads an ordered asset path list from a YAML file. An empty
// path returns DefaultManifest.
func LoadManifest(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultManifest, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset manifest: %w", err)
	}

	var file manifestFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse asset manifest: %w", err)
	}
	if len(file.Assets) == 0 {
		return nil, fmt.Errorf("asset manifest %q lists no assets", path)
	}

	for _, asset := range file.Assets {
		if !strings.HasPrefix(asset, "/") {
			return nil, fmt.Errorf("asset path %q must be absolute", asset)
		}
	}
	return file.Assets, nil
}
