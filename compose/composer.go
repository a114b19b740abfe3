// Package compose builds LaTeX source document out of entries listed in
// manifest: every entry is rendered into its own fragment file and master
// document includes all fragments in manifest order.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"hexbook/common"
	"hexbook/config"
	"hexbook/render"
)

// Names of variables available to templates.
const (
	// EntryVar holds entry data in entry template.
	EntryVar = "hex"
	// FragmentsVar holds ordered list of fragment paths in main template.
	FragmentsVar = "hexes"
)

// Composer renders fragments and master document of a single project.
type Composer struct {
	root   string
	doc    *config.DocumentConfig
	engine *render.Engine
	log    *zap.Logger
}

// NewComposer returns composer for project in root directory. All paths in
// doc are relative to root.
func NewComposer(root string, doc *config.DocumentConfig, engine *render.Engine, log *zap.Logger) *Composer {
	return &Composer{root: root, doc: doc, engine: engine, log: log}
}

// FragmentPath returns slash separated fragment path for entry id relative
// to project directory. This is the form master template receives.
func (c *Composer) FragmentPath(id string) string {
	return path.Join(filepath.ToSlash(c.doc.Fragments.Dir), fragmentName(id, c.doc.Fragments.Ext, c.doc.Fragments.TransliterateNames))
}

// SourcePath returns location of master document on disk.
func (c *Composer) SourcePath() string {
	return c.abs(c.doc.Source)
}

// RenderFragment loads entry data, renders it with entry template and writes
// result into fragment file. Fragment file is replaced atomically, on
// failure previous content (if any) is left intact.
func (c *Composer) RenderFragment(id string) (string, error) {
	value, err := LoadEntry(c.abs(path.Join(c.doc.Entries.Dir, id)), c.doc.Entries.Key)
	if err != nil {
		return "", err
	}

	out, err := c.engine.Render(c.doc.Templates.Entry, map[string]any{EntryVar: value})
	if err != nil {
		return "", fmt.Errorf("entry '%s': %w", id, err)
	}

	fragment := c.FragmentPath(id)
	if err := writeFile(c.abs(fragment), out); err != nil {
		return "", fmt.Errorf("unable to write fragment for entry '%s': %w", id, err)
	}
	return fragment, nil
}

// Compose renders fragments for all ids in order and then master document
// which includes them. Processing stops on the first failure and master
// document is not written in that case. Returns master document path
// relative to project directory.
func (c *Composer) Compose(ctx context.Context, ids []string) (string, error) {
	fragments := make([]string, 0, len(ids))
	owners := make(map[string]string, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fragment := c.FragmentPath(id)
		if other, exists := owners[fragment]; exists {
			return "", fmt.Errorf("%w: entries '%s' and '%s' produce the same fragment '%s'", common.ErrConfiguration, other, id, fragment)
		}
		owners[fragment] = id

		start := time.Now()
		if _, err := c.RenderFragment(id); err != nil {
			return "", err
		}
		c.log.Debug("Fragment rendered", zap.String("entry", id), zap.String("fragment", fragment), zap.Duration("elapsed", time.Since(start)))
		fragments = append(fragments, fragment)
	}

	out, err := c.engine.Render(c.doc.Templates.Main, map[string]any{FragmentsVar: fragments})
	if err != nil {
		return "", fmt.Errorf("master document: %w", err)
	}
	if err := writeFile(c.SourcePath(), out); err != nil {
		return "", fmt.Errorf("unable to write master document: %w", err)
	}
	c.log.Debug("Master document rendered", zap.String("source", c.doc.Source), zap.Int("fragments", len(fragments)))
	return filepath.ToSlash(c.doc.Source), nil
}

func (c *Composer) abs(name string) string {
	return filepath.Join(c.root, filepath.FromSlash(name))
}

// writeFile creates or replaces file atomically making sure its directory exists.
func writeFile(fname string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return err
	}
	return atomic.WriteFile(fname, bytes.NewReader(data))
}
