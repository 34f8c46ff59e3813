package main

import (
	"os"
	"path/filepath"

	"github.com/ayusman/signbridge/internal/config"
)

// findWebDir returns the configured static directory when it exists, else
// the first of "web", "../web", "../../web" and ~/.signbridge/web that does.
// It returns an empty string if none is found.
func findWebDir(configured string) string {
	candidates := []string{configured, "web", "../web", "../../web", filepath.Join(config.Dir(), "web")}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
