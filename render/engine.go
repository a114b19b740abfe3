// Package render executes LaTeX oriented templates.
//
// Templates are regular text/template programs written with delimiters which
// do not collide with LaTeX control sequences: \VAR{...} prints a value,
// \BLOCK{...} holds control actions (range, if, with, end...), \#{...} is a
// comment. Lines starting with "%%" are treated as control actions and "%#"
// starts a comment which runs to the end of line. Slim-sprig functions are
// available together with "latex" which escapes LaTeX special characters.
//
// Accessing a key absent from the data is an error, use sprig "get" or
// "hasKey" for optional values.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"hexbook/common"
)

// Engine loads templates from a single directory. It is immutable after
// creation and may be shared by all rendering call sites of a build.
type Engine struct {
	dir   string
	funcs template.FuncMap
}

// NewEngine returns engine loading templates from dir.
func NewEngine(dir string) *Engine {
	funcs := sprig.TxtFuncMap()
	funcs["latex"] = escapeLaTeX
	return &Engine{dir: dir, funcs: funcs}
}

// Dir returns directory templates are loaded from.
func (e *Engine) Dir() string {
	return e.dir
}

// Load reads and parses named template.
func (e *Engine) Load(name string) (*template.Template, error) {
	data, err := os.ReadFile(filepath.Join(e.dir, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to load template: %w", common.ErrTemplate, err)
	}
	return e.Parse(name, string(data))
}

// Parse parses template text using engine dialect and functions.
func (e *Engine) Parse(name, text string) (*template.Template, error) {
	src, err := translate(name, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTemplate, err)
	}
	tmpl, err := template.New(name).
		Delims(LeftDelim, RightDelim).
		Funcs(e.funcs).
		Option("missingkey=error").
		Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to parse template: %w", common.ErrTemplate, err)
	}
	return tmpl, nil
}

// Render loads named template and executes it with data. Nothing is returned
// unless execution completes.
func (e *Engine) Render(name string, data any) ([]byte, error) {
	tmpl, err := e.Load(name)
	if err != nil {
		return nil, err
	}
	return execute(tmpl, data)
}

func execute(tmpl *template.Template, data any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("%w: unable to render template: %w", common.ErrTemplate, err)
	}
	return buf.Bytes(), nil
}
