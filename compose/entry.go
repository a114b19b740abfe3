package compose

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/gosimple/slug"
	yaml "gopkg.in/yaml.v3"

	"hexbook/common"
	"hexbook/config"
)

// LoadEntry reads entry source file and returns value stored under key. Value
// is passed to entry template as is.
func LoadEntry(fname, key string) (any, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read entry: %w", common.ErrData, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: unable to parse entry '%s': %w", common.ErrData, fname, err)
	}
	value, ok := doc[key]
	if !ok {
		return nil, fmt.Errorf("%w: entry '%s' has no '%s' key", common.ErrData, fname, key)
	}
	return value, nil
}

// fragmentName returns slash separated name of the fragment produced for
// entry id: extension is replaced with ext, directories inside id are kept.
// Leading dot of a file name does not start an extension. When requested
// base name is transliterated.
func fragmentName(id, ext string, transliterate bool) string {
	dir, file := path.Split(strings.ReplaceAll(id, `\`, "/"))
	if old := path.Ext(file); old != file {
		file = strings.TrimSuffix(file, old)
	}
	if transliterate {
		file = config.CleanFileName(slug.Make(file))
	}
	return dir + file + ext
}
