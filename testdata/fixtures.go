// Package testdata provides recorded sign fixtures for tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

//go:embed signs/*.json
var signsFS embed.FS

// Sign is a labeled landmark vector as posted to the prediction endpoint.
type Sign struct {
	Label     string    `json:"label"`
	Landmarks []float64 `json:"landmarks"`
}

// LoadSign loads a sign fixture by name, without the .json suffix.
func LoadSign(name string) (Sign, error) {
	data, err := signsFS.ReadFile("signs/" + name + ".json")
	if err != nil {
		return Sign{}, fmt.Errorf("load sign %s: %w", name, err)
	}

	var sg Sign
	if err := json.Unmarshal(data, &sg); err != nil {
		return Sign{}, fmt.Errorf("decode sign %s: %w", name, err)
	}
	return sg, nil
}

// LoadSigns loads every sign fixture keyed by name.
func LoadSigns() (map[string]Sign, error) {
	entries, err := signsFS.ReadDir("signs")
	if err != nil {
		return nil, err
	}

	signs := make(map[string]Sign, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		sg, err := LoadSign(name)
		if err != nil {
			return nil, err
		}
		signs[name] = sg
	}
	return signs, nil
}
