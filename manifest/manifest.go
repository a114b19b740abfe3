// Package manifest loads ordered list of entries to be included into the
// document.
package manifest

import (
	"fmt"
	"os"
	"path"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"hexbook/common"
)

// Load reads manifest document at path and returns entry identifiers listed
// under key in the order they are specified. Identifiers must be unique
// relative file names.
func Load(path, key string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read manifest: %w", common.ErrConfiguration, err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: unable to parse manifest '%s': %w", common.ErrConfiguration, path, err)
	}

	node, ok := doc[key]
	if !ok {
		return nil, fmt.Errorf("%w: manifest '%s' has no '%s' key", common.ErrConfiguration, path, key)
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: manifest '%s' key '%s' (line %d) must be a sequence of file names",
			common.ErrConfiguration, path, key, node.Line)
	}

	ids := make([]string, 0, len(node.Content))
	seen := make(map[string]int, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode || item.ShortTag() != "!!str" {
			return nil, fmt.Errorf("%w: manifest '%s' line %d: entry must be a string",
				common.ErrConfiguration, path, item.Line)
		}
		id := item.Value
		if !isSafeName(id) {
			return nil, fmt.Errorf("%w: manifest '%s' line %d: unsafe entry name %q (empty, absolute or contains path traversal)",
				common.ErrConfiguration, path, item.Line, id)
		}
		if prev, exists := seen[id]; exists {
			return nil, fmt.Errorf("%w: manifest '%s' line %d: entry %q already listed on line %d",
				common.ErrConfiguration, path, item.Line, id, prev)
		}
		seen[id] = item.Line
		ids = append(ids, id)
	}
	return ids, nil
}

// isSafeName returns false for names that could escape entries directory:
// absolute paths and those containing ".." components.
func isSafeName(name string) bool {
	if len(strings.TrimSpace(name)) == 0 {
		return false
	}
	name = strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(name) || (len(name) > 1 && name[1] == ':') {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
