// Package typeset runs external typesetting tool over generated source
// document.
package typeset

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"hexbook/common"
)

// Compiler turns source document into final output.
type Compiler interface {
	Compile(ctx context.Context, source string) error
}

// Command invokes external tool as a subprocess with source document path as
// the last argument.
type Command struct {
	// Name of the executable, looked up in PATH when not a path.
	Name string
	// Args are placed before source document path.
	Args []string
	// Dir is working directory of the tool, current directory when empty.
	Dir string
	Log *zap.Logger
}

// Compile runs the tool once and waits for it to finish. Tool output is
// logged at debug level, a failure includes the tail of it.
func (c *Command) Compile(ctx context.Context, source string) error {
	args := append(append([]string{}, c.Args...), source)

	cmd := exec.CommandContext(ctx, c.Name, args...)
	cmd.Dir = c.Dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("command", c.Name), zap.Strings("args", args))
	log.Debug("Typesetting starting", zap.String("dir", c.Dir))

	start := time.Now()
	err := cmd.Run()
	log.Debug("Typesetting output", zap.Duration("elapsed", time.Since(start)), zap.ByteString("output", out.Bytes()))
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w%s", common.ErrCompile, c.Name, strings.Join(args, " "), err, outputTail(out.Bytes(), 10))
	}
	return nil
}

// outputTail returns last lines of tool output suitable for error message.
func outputTail(out []byte, lines int) string {
	text := strings.TrimRight(string(out), "\r\n \t")
	if len(text) == 0 {
		return ""
	}
	parts := strings.Split(text, "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return "\n" + strings.Join(parts, "\n")
}

// Recorder is a Compiler which remembers requested compilations instead of
// running anything. Err, when set, is returned from every call.
type Recorder struct {
	Sources []string
	Err     error
}

func (r *Recorder) Compile(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Sources = append(r.Sources, source)
	return r.Err
}
