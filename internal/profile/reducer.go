// Package profile folds the EasyNPC profile log into the latest state of
// every NPC it mentions.
package profile

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/rsvexclude/internal/logsource"
	"github.com/tinytelemetry/rsvexclude/internal/model"
)

// Apply folds one entry into set. The NPC is created on first sight, its
// master is overwritten by every entry, and the slot named by the entry's
// field takes the new value. conflict reports that an existing NPC changed
// master.
func Apply(set *model.EntitySet, entry model.LogEntry) (conflict bool) {
	npc, created := set.GetOrCreate(entry.ID, entry.Master)
	if !created && npc.Master != entry.Master {
		conflict = true
	}
	npc.Master = entry.Master
	npc.Set(entry.Field, entry.NewValue)
	return conflict
}

// Reduce folds a slice of entries into a new set.
func Reduce(entries []model.LogEntry) *model.EntitySet {
	set := model.NewEntitySet()
	for _, e := range entries {
		Apply(set, e)
	}
	return set
}

// Result is the outcome of reducing a whole profile log. ParseErrors counts
// every line that did not yield an entry; BlankLines and OversizedLines are
// the parts of it that were empty or over the line size limit.
type Result struct {
	Entities        *model.EntitySet
	LineCount       int
	ParseErrors     int
	BlankLines      int
	OversizedLines  int
	MasterConflicts int
}

// Reducer consumes profile lines one at a time. It is not safe for
// concurrent use; the caller owns it for the duration of a run.
type Reducer struct {
	entities   *model.EntitySet
	conflicted map[string]struct{}

	lines       int
	parseErrors int
	blank       int
	oversized   int
}

// NewReducer returns a reducer with an empty entity set.
func NewReducer() *Reducer {
	return &Reducer{
		entities:   model.NewEntitySet(),
		conflicted: make(map[string]struct{}),
	}
}

// ProcessLine parses and applies one line. Malformed lines, blank ones
// included, are counted and returned as ErrMalformedLine.
func (r *Reducer) ProcessLine(line string) error {
	r.lines++
	if strings.TrimSpace(line) == "" {
		r.blank++
	}

	entry, err := ParseEntry(line)
	if err != nil {
		r.parseErrors++
		return err
	}

	prev := ""
	if npc, ok := r.entities.Get(entry.ID); ok {
		prev = npc.Master
	}
	if Apply(r.entities, entry) {
		if _, seen := r.conflicted[entry.ID]; !seen {
			r.conflicted[entry.ID] = struct{}{}
			log.Printf("profile: npc %s master changed %q -> %q, keeping the latest", entry.ID, prev, entry.Master)
		}
	}
	return nil
}

// processIngest applies one delivered line. An oversized line counts as a
// parse error without being parsed.
func (r *Reducer) processIngest(l model.IngestLine) {
	if l.Oversized {
		r.lines++
		r.oversized++
		r.parseErrors++
		return
	}
	_ = r.ProcessLine(l.Line)
}

// Run drains src in order. Another goroutine must be running src. Run stops
// early when ctx is cancelled or when the source reports a read error; a
// cancelled ctx is reported even when the source closed cleanly, so a partial
// state is never returned as complete.
func (r *Reducer) Run(ctx context.Context, src logsource.LogSource) (Result, error) {
	for {
		select {
		case <-ctx.Done():
			return r.Result(), ctx.Err()
		case l, ok := <-src.Lines():
			if !ok {
				if err := src.Err(); err != nil {
					return r.Result(), err
				}
				return r.Result(), ctx.Err()
			}
			r.processIngest(l)
		}
	}
}

// Result returns the counters and the entity set accumulated so far.
func (r *Reducer) Result() Result {
	return Result{
		Entities:        r.entities,
		LineCount:       r.lines,
		ParseErrors:     r.parseErrors,
		BlankLines:      r.blank,
		OversizedLines:  r.oversized,
		MasterConflicts: len(r.conflicted),
	}
}

// StdinPath names standard input as the profile log.
const StdinPath = "-"

// ReduceFile reduces the profile log at path, or stdin when path is
// StdinPath. A missing file returns an error wrapping logsource.ErrFileNotFound.
func ReduceFile(ctx context.Context, path string, conf logsource.Config) (Result, error) {
	if path == StdinPath {
		return ReduceSource(ctx, logsource.NewStdinSource(conf))
	}
	src, err := logsource.OpenFile(path, conf)
	if err != nil {
		return Result{}, err
	}
	return ReduceSource(ctx, src)
}

// ReduceSource runs src and a fresh reducer side by side under one errgroup.
// A read error cancels the reducer and a cancelled reducer stops the read.
func ReduceSource(ctx context.Context, src logsource.LogSource) (Result, error) {
	defer src.Stop()

	var res Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return src.Run(gctx)
	})
	g.Go(func() error {
		var err error
		res, err = NewReducer().Run(gctx, src)
		return err
	})
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("profile: reducing %s: %w", src.Name(), err)
	}

	if res.ParseErrors > 0 {
		log.Printf("profile: skipped %d malformed line(s) of %d (%d blank, %d oversized)",
			res.ParseErrors, res.LineCount, res.BlankLines, res.OversizedLines)
	}
	return res, nil
}
