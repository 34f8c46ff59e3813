package asset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadWords reads a word table from a YAML mapping of phrase to path:
//
//	HELLO: /static/animations/hello.gif
//	THANK YOU: /static/animations/thanks.gif
//
// Entries keep document order, which decides transcript matching.
func LoadWords(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word table: %w", err)
	}
	return ParseWords(data)
}

// ParseWords decodes a YAML word table, preserving key order.
func ParseWords(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse word table: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse word table: line %d: expected a mapping", root.Line)
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parse word table: line %d: value for %q must be a path", v.Line, k.Value)
		}
		entries = append(entries, Entry{Key: k.Value, Path: v.Value})
	}
	return entries, nil
}
