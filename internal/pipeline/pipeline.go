// Package pipeline runs one exclusion pass: load config, reduce the profile
// log, filter and format the directive, and package it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/tinytelemetry/rsvexclude/internal/archive"
	"github.com/tinytelemetry/rsvexclude/internal/console"
	"github.com/tinytelemetry/rsvexclude/internal/directive"
	"github.com/tinytelemetry/rsvexclude/internal/duckdb"
	"github.com/tinytelemetry/rsvexclude/internal/logsource"
	"github.com/tinytelemetry/rsvexclude/internal/model"
	"github.com/tinytelemetry/rsvexclude/internal/output"
	"github.com/tinytelemetry/rsvexclude/internal/pathutil"
	"github.com/tinytelemetry/rsvexclude/internal/profile"
)

var (
	// ErrConfigNotFound is returned by config loaders when no config file exists.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrInputNotFound reports a missing profile log.
	ErrInputNotFound = errors.New("profile log not found")
)

// Config is the immutable input of a run. OutputDir is the parent the
// model.OutputFolder directory is created in; it is never removed itself.
type Config struct {
	ConfigPath     string
	ProfilePath    string
	ExcludePlugins []string
	OutputDir      string
	Archiver       string
	ArchiverPath   string
	StateDB        string
	MaxLineSize    int
}

// Outcome is what a run produced. Fields past the terminal state are zero.
type Outcome struct {
	State   State
	Config  Config
	Reduce  profile.Result
	Matched []*model.NPC
	Output  output.Result
}

// Runner drives the stages. LoadConfig is required; the rest are optional.
type Runner struct {
	LoadConfig func(ctx context.Context) (Config, error)
	Printer    *console.Printer
	OnState    func(State)
	Now        func() time.Time
}

func (r *Runner) enter(out *Outcome, s State) {
	out.State = s
	log.Printf("pipeline: %s", s)
	if r.OnState != nil {
		r.OnState(s)
	}
}

func (r *Runner) fail(out *Outcome, s State, err error) (Outcome, error) {
	r.enter(out, s)
	if r.Printer != nil {
		r.Printer.Failure(err)
	}
	return *out, err
}

// Run executes the pipeline until it reaches a terminal state. The error is
// non-nil exactly when the state is a failure.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	var out Outcome
	r.enter(&out, Idle)

	r.enter(&out, ConfigLoading)
	if r.LoadConfig == nil {
		return r.fail(&out, ConfigMissing, ErrConfigNotFound)
	}
	cfg, err := r.LoadConfig(ctx)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return r.fail(&out, ConfigMissing, err)
		}
		return r.fail(&out, ConfigInvalid, err)
	}

	profilePath, err := pathutil.Expand(cfg.ProfilePath)
	if err != nil {
		return r.fail(&out, ConfigInvalid, err)
	}
	cfg.ProfilePath = profilePath
	outputParent, err := pathutil.Expand(cfg.OutputDir)
	if err != nil {
		return r.fail(&out, ConfigInvalid, err)
	}
	cfg.OutputDir = outputParent
	out.Config = cfg

	arch, err := archive.New(cfg.Archiver, cfg.ArchiverPath)
	if err != nil {
		return r.fail(&out, ConfigInvalid, err)
	}
	plugins := directive.NewPluginSet(cfg.ExcludePlugins)
	if r.Printer != nil {
		r.Printer.Config(cfg.ConfigPath, cfg.ProfilePath, len(plugins))
	}

	r.enter(&out, Reducing)
	res, err := profile.ReduceFile(ctx, cfg.ProfilePath, logsource.Config{MaxLineSize: cfg.MaxLineSize})
	if err != nil {
		if errors.Is(err, logsource.ErrFileNotFound) {
			return r.fail(&out, ProfileMissing, fmt.Errorf("%w: %w", ErrInputNotFound, err))
		}
		return r.fail(&out, ReduceFailed, err)
	}
	out.Reduce = res
	out.Matched = directive.FilterMatching(res.Entities, plugins)
	r.enter(&out, Reduced)

	if r.Printer != nil {
		r.Printer.Summary(res.LineCount, res.ParseErrors, res.Entities.Len(), len(out.Matched))
	}
	r.saveSnapshot(ctx, cfg, res, plugins)

	if len(out.Matched) == 0 {
		r.enter(&out, NoMatches)
		if r.Printer != nil {
			r.Printer.NoMatches()
		}
		return out, nil
	}

	r.enter(&out, Packaging)
	packager, err := output.NewPackager(arch)
	if err != nil {
		return r.fail(&out, PackagingFailed, err)
	}
	text := directive.FormatNPCs(out.Matched)
	out.Output, err = packager.Package(ctx, text, filepath.Join(cfg.OutputDir, model.OutputFolder))
	if err != nil {
		return r.fail(&out, PackagingFailed, err)
	}

	r.enter(&out, Packaged)
	if r.Printer != nil {
		r.Printer.SampleNPCs(out.Matched)
		r.Printer.Success(len(out.Matched), out.Output.ArchivePath)
	}
	return out, nil
}

// saveSnapshot records the reduced state when a state database is set.
// Failures are logged; the snapshot never decides the outcome of a run.
func (r *Runner) saveSnapshot(ctx context.Context, cfg Config, res profile.Result, plugins directive.PluginSet) {
	if cfg.StateDB == "" {
		return
	}
	dbPath, err := pathutil.Expand(cfg.StateDB)
	if err != nil {
		log.Printf("pipeline: state db path: %v", err)
		return
	}
	store, err := duckdb.NewStore(ctx, dbPath)
	if err != nil {
		log.Printf("pipeline: open state db: %v", err)
		return
	}
	defer store.Close()

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if err := store.SaveSnapshot(ctx, duckdb.Snapshot{
		RunAt:       now(),
		ProfilePath: cfg.ProfilePath,
		LineCount:   res.LineCount,
		ParseErrors: res.ParseErrors,
		Entities:    res.Entities,
		Excluded:    plugins.Matches,
	}); err != nil {
		log.Printf("pipeline: save state snapshot: %v", err)
		return
	}
	current, pending, err := store.SchemaVersion(ctx)
	if err != nil {
		log.Printf("pipeline: state db schema: %v", err)
	}
	log.Printf("pipeline: saved state snapshot of %d NPCs to %s (schema v%d, %d pending)",
		res.Entities.Len(), store.DBPath(), current, pending)
}
