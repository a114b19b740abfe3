package compose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hexbook/manifest"
	"hexbook/render"
	"hexbook/state"
	"hexbook/typeset"
)

// Second pass resolves references produced by the first one.
const compilePasses = 2

// Run is the build command: it composes project in directory specified by
// the first argument (current directory when absent) and typesets result.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	dir := cmd.Args().Get(0)
	if len(dir) == 0 {
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if env.ProjectDir, err = filepath.Abs(dir); err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many project directories", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	if fi, err := os.Stat(env.ProjectDir); err != nil {
		return fmt.Errorf("unable to access project directory: %w", err)
	} else if !fi.IsDir() {
		return fmt.Errorf("project location is not a directory: %s", env.ProjectDir)
	}

	log.Info("Processing starting", zap.String("project", env.ProjectDir))
	defer func(start time.Time) {
		if err == nil {
			log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
		}
	}(time.Now())

	return Build(ctx, env)
}

// Build loads manifest, composes source document and typesets it. Everything
// happens sequentially and stops on the first failure, typesetting failures
// are reported after both passes are done.
func Build(ctx context.Context, env *state.LocalEnv) error {
	log := env.Log.Named("build")
	doc := &env.Cfg.Document
	root := env.ProjectDir

	manifestPath := filepath.Join(root, filepath.FromSlash(doc.Manifest.Path))
	composer := NewComposer(root, doc, render.NewEngine(filepath.Join(root, filepath.FromSlash(doc.Templates.Dir))), env.Log.Named("compose"))

	if env.Rpt != nil {
		defer storeArtifacts(env, manifestPath, composer)
	}

	ids, err := manifest.Load(manifestPath, doc.Manifest.Key)
	if err != nil {
		return err
	}
	log.Debug("Manifest loaded", zap.String("manifest", manifestPath), zap.Strings("entries", ids))

	source, err := composer.Compose(ctx, ids)
	if err != nil {
		return err
	}
	log.Info("Source document created", zap.String("source", source), zap.Int("entries", len(ids)))

	compiler := env.Compiler
	if compiler == nil {
		compiler = &typeset.Command{
			Name: env.Cfg.Compiler.Command,
			Args: env.Cfg.Compiler.Args,
			Dir:  root,
			Log:  env.Log.Named("typeset"),
		}
	}
	return compile(ctx, compiler, source, env.Cfg.Compiler.IgnoreErrors, log)
}

// compile always runs all passes unless interrupted. When failures are
// ignored they are only logged.
func compile(ctx context.Context, compiler typeset.Compiler, source string, ignore bool, log *zap.Logger) (errs error) {
	for pass := 1; pass <= compilePasses; pass++ {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		log.Info("Typesetting", zap.String("source", source), zap.Int("pass", pass))
		if err := compiler.Compile(ctx, source); err != nil {
			if ignore {
				log.Warn("Typesetting failed, ignoring", zap.Int("pass", pass), zap.Error(err))
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("pass %d: %w", pass, err))
		}
	}
	return errs
}

// storeArtifacts puts build inputs and results into debug report.
func storeArtifacts(env *state.LocalEnv, manifestPath string, c *Composer) {
	source := c.SourcePath()
	for _, path := range []string{
		manifestPath,
		c.engine.Dir(),
		c.abs(c.doc.Fragments.Dir),
		source,
		// typesetting log
		strings.TrimSuffix(source, filepath.Ext(source)) + ".log",
	} {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := env.Rpt.StoreCopy("build/"+filepath.Base(path), path); err != nil {
			env.Log.Warn("Unable to store build artifact in report", zap.String("path", path), zap.Error(err))
		}
	}
}
