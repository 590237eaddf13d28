package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinytelemetry/rsvexclude/internal/logsource"
	"github.com/tinytelemetry/rsvexclude/internal/model"
)

func entry(id, master string, field model.Field, value string) model.LogEntry {
	return model.LogEntry{ID: id, Master: master, Field: field, NewValue: value, Time: "2024-01-01T00:00:00Z"}
}

func logLine(id, master string, field model.Field, value string) string {
	return fmt.Sprintf(`{"master":%q,"id":%q,"time":"2024-01-01T00:00:00Z","field":%q,"oldValue":null,"newValue":%q}`,
		master, id, string(field), value)
}

func TestApplyCreatesNewNPC(t *testing.T) {
	t.Parallel()

	set := model.NewEntitySet()
	Apply(set, entry("00012345", "Skyrim.esm", model.FieldFacePlugin, "MOSRefined.esp"))

	npc, ok := set.Get("00012345")
	if !ok {
		t.Fatal("npc not created")
	}
	if npc.ID != "00012345" || npc.Master != "Skyrim.esm" {
		t.Errorf("npc = %+v", npc)
	}
	if !npc.FacePlugin.Set || npc.FacePlugin.Value != "MOSRefined.esp" {
		t.Errorf("FacePlugin = %+v", npc.FacePlugin)
	}
}

func TestApplyUpdatesExistingNPC(t *testing.T) {
	t.Parallel()

	set := model.NewEntitySet()
	Apply(set, entry("00012345", "Skyrim.esm", model.FieldFacePlugin, "OldPlugin.esp"))
	Apply(set, entry("00012345", "Skyrim.esm", model.FieldFacePlugin, "MOSRefined.esp"))

	npc, _ := set.Get("00012345")
	if npc.FacePlugin.Value != "MOSRefined.esp" {
		t.Errorf("FacePlugin = %q, want MOSRefined.esp", npc.FacePlugin.Value)
	}
	if set.Len() != 1 {
		t.Errorf("Len = %d, want 1", set.Len())
	}
}

func TestApplyHandlesEachField(t *testing.T) {
	t.Parallel()

	set := model.NewEntitySet()
	Apply(set, entry("00012345", "Skyrim.esm", model.FieldDefaultPlugin, "Default.esp"))
	Apply(set, entry("00012345", "Skyrim.esm", model.FieldFaceMod, "FaceMod.esp"))

	npc, _ := set.Get("00012345")
	if npc.DefaultPlugin.Value != "Default.esp" {
		t.Errorf("DefaultPlugin = %q", npc.DefaultPlugin.Value)
	}
	if npc.FaceMod.Value != "FaceMod.esp" {
		t.Errorf("FaceMod = %q", npc.FaceMod.Value)
	}
	if npc.FacePlugin.Set {
		t.Error("FacePlugin should be unset")
	}
}

func TestApplyLastMasterWins(t *testing.T) {
	t.Parallel()

	set := model.NewEntitySet()
	if Apply(set, entry("1", "Skyrim.esm", model.FieldFacePlugin, "A.esp")) {
		t.Error("first entry reported a conflict")
	}
	if !Apply(set, entry("1", "Dawnguard.esm", model.FieldFaceMod, "B.esp")) {
		t.Error("master change not reported as conflict")
	}
	if Apply(set, entry("1", "Dawnguard.esm", model.FieldFaceMod, "C.esp")) {
		t.Error("unchanged master reported as conflict")
	}

	npc, _ := set.Get("1")
	if npc.Master != "Dawnguard.esm" {
		t.Errorf("Master = %q, want Dawnguard.esm", npc.Master)
	}
	if npc.FacePlugin.Value != "A.esp" {
		t.Errorf("FacePlugin = %q, want A.esp", npc.FacePlugin.Value)
	}
}

// Every slot ends at the value of the last entry carrying its tag, and
// master ends at the last entry's master regardless of tag.
func TestReduceLastWritePerSlot(t *testing.T) {
	t.Parallel()

	entries := []model.LogEntry{
		entry("1", "Skyrim.esm", model.FieldFacePlugin, "F1"),
		entry("1", "Skyrim.esm", model.FieldDefaultPlugin, "D1"),
		entry("1", "Update.esm", model.FieldFacePlugin, "F2"),
		entry("1", "Skyrim.esm", model.FieldFaceMod, "M1"),
		entry("1", "Skyrim.esm", model.FieldDefaultPlugin, "D2"),
		entry("1", "Dragonborn.esm", model.FieldFaceMod, "M2"),
	}
	set := Reduce(entries)

	npc, ok := set.Get("1")
	if !ok {
		t.Fatal("npc missing")
	}
	if npc.FacePlugin.Value != "F2" || npc.DefaultPlugin.Value != "D2" || npc.FaceMod.Value != "M2" {
		t.Errorf("slots = %+v", npc)
	}
	if npc.Master != "Dragonborn.esm" {
		t.Errorf("Master = %q, want Dragonborn.esm", npc.Master)
	}
}

func TestReduceEmpty(t *testing.T) {
	t.Parallel()

	if set := Reduce(nil); set.Len() != 0 {
		t.Errorf("Len = %d, want 0", set.Len())
	}
}

func TestReduceKeepsFirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	set := Reduce([]model.LogEntry{
		entry("B", "Skyrim.esm", model.FieldFacePlugin, "x"),
		entry("A", "Skyrim.esm", model.FieldFacePlugin, "x"),
		entry("B", "Skyrim.esm", model.FieldFaceMod, "y"),
	})
	all := set.All()
	if len(all) != 2 || all[0].ID != "B" || all[1].ID != "A" {
		t.Errorf("order = %v, want [B A]", ids(all))
	}
}

func ids(npcs []*model.NPC) []string {
	out := make([]string, len(npcs))
	for i, n := range npcs {
		out[i] = n.ID
	}
	return out
}

func TestReducerSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		logLine("00000001", "Skyrim.esm", model.FieldFacePlugin, "A.esp"),
		`{"broken":`,
		logLine("00000002", "Skyrim.esm", model.FieldFacePlugin, "B.esp"),
		`{"master":"Skyrim.esm","id":"00000003","field":"Nope","newValue":"C.esp"}`,
		"",
		logLine("00000001", "Skyrim.esm", model.FieldFaceMod, "M.esp"),
	}, "\n")

	src := logsource.NewReaderSource("test", strings.NewReader(input))
	res, err := ReduceSource(context.Background(), src)
	if err != nil {
		t.Fatalf("ReduceSource: %v", err)
	}

	if res.LineCount != 6 {
		t.Errorf("LineCount = %d, want 6", res.LineCount)
	}
	if res.ParseErrors != 3 {
		t.Errorf("ParseErrors = %d, want 3", res.ParseErrors)
	}
	if res.BlankLines != 1 {
		t.Errorf("BlankLines = %d, want 1", res.BlankLines)
	}
	if res.Entities.Len() != 2 {
		t.Fatalf("entities = %v, want 2", ids(res.Entities.All()))
	}
	if _, ok := res.Entities.Get("00000003"); ok {
		t.Error("malformed entry should not create an entity")
	}
	npc, _ := res.Entities.Get("00000001")
	if npc.FaceMod.Value != "M.esp" {
		t.Errorf("line after malformed ones not applied: %+v", npc)
	}
}

func TestProcessLineReturnsMalformed(t *testing.T) {
	t.Parallel()

	r := NewReducer()
	if err := r.ProcessLine("nope"); !errors.Is(err, ErrMalformedLine) {
		t.Errorf("err = %v, want ErrMalformedLine", err)
	}
	if err := r.ProcessLine("   "); !errors.Is(err, ErrMalformedLine) {
		t.Errorf("blank line err = %v, want ErrMalformedLine", err)
	}
	res := r.Result()
	if res.LineCount != 2 || res.ParseErrors != 2 || res.BlankLines != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestReducerCountsMasterConflictsOncePerID(t *testing.T) {
	t.Parallel()

	r := NewReducer()
	for _, l := range []string{
		logLine("1", "Skyrim.esm", model.FieldFacePlugin, "A"),
		logLine("1", "Update.esm", model.FieldFacePlugin, "A"),
		logLine("1", "Skyrim.esm", model.FieldFacePlugin, "A"),
		logLine("2", "Skyrim.esm", model.FieldFacePlugin, "A"),
	} {
		if err := r.ProcessLine(l); err != nil {
			t.Fatalf("ProcessLine: %v", err)
		}
	}
	if got := r.Result().MasterConflicts; got != 1 {
		t.Errorf("MasterConflicts = %d, want 1", got)
	}
}

func TestReduceFileHandlesCRLF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lf := filepath.Join(dir, "lf.log")
	crlf := filepath.Join(dir, "crlf.log")
	lines := []string{
		logLine("00012345", "Skyrim.esm", model.FieldFacePlugin, "MOSRefined.esp"),
		logLine("00054321", "Dawnguard.esm", model.FieldFacePlugin, "TSOSRefined.esp"),
	}
	if err := os.WriteFile(lf, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(crlf, []byte(strings.Join(lines, "\r\n")+"\r\n"), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := ReduceFile(context.Background(), lf, logsource.Config{})
	if err != nil {
		t.Fatalf("ReduceFile(lf): %v", err)
	}
	b, err := ReduceFile(context.Background(), crlf, logsource.Config{})
	if err != nil {
		t.Fatalf("ReduceFile(crlf): %v", err)
	}
	if a.ParseErrors != 0 || b.ParseErrors != 0 {
		t.Errorf("parse errors lf=%d crlf=%d", a.ParseErrors, b.ParseErrors)
	}
	if a.LineCount != 2 || b.LineCount != 2 {
		t.Errorf("line counts lf=%d crlf=%d", a.LineCount, b.LineCount)
	}
	for _, id := range []string{"00012345", "00054321"} {
		x, _ := a.Entities.Get(id)
		y, _ := b.Entities.Get(id)
		if x == nil || y == nil || *x != *y {
			t.Errorf("npc %s differs: lf=%+v crlf=%+v", id, x, y)
		}
	}
}

func TestReduceFileMissing(t *testing.T) {
	t.Parallel()

	_, err := ReduceFile(context.Background(), filepath.Join(t.TempDir(), "Profile.log"), logsource.Config{})
	if !errors.Is(err, logsource.ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

func TestReduceSourceCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer func() { _ = w.Close() }()

	src := logsource.NewReaderSource("pipe", r)
	_, err = ReduceSource(ctx, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReduceSourceCountsBlankLinesAsParseErrors(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		logLine("1", "Skyrim.esm", model.FieldFacePlugin, "A.esp"),
		"",
		"   ",
		logLine("2", "Skyrim.esm", model.FieldFacePlugin, "B.esp"),
	}, "\n")
	res, err := ReduceSource(context.Background(), logsource.NewReaderSource("test", strings.NewReader(input)))
	if err != nil {
		t.Fatalf("ReduceSource: %v", err)
	}
	if res.LineCount != 4 || res.ParseErrors != 2 || res.BlankLines != 2 {
		t.Errorf("result = %+v, want 4 lines, 2 parse errors, 2 blank", res)
	}
	if res.Entities.Len() != 2 {
		t.Errorf("entities = %v", ids(res.Entities.All()))
	}
}

func TestReduceSourceContinuesPastOversizedLine(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		maxLine int
		size    int
	}{
		{name: "default limit", maxLine: 0, size: 2 * logsource.DefaultMaxLineSize},
		{name: "small limit", maxLine: 1024, size: 2000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			input := strings.Join([]string{
				logLine("1", "Skyrim.esm", model.FieldFacePlugin, "A.esp"),
				logLine("2", "Skyrim.esm", model.FieldFacePlugin, strings.Repeat("x", tc.size)),
				logLine("3", "Skyrim.esm", model.FieldFacePlugin, "C.esp"),
			}, "\n")
			src := logsource.NewReaderSource("test", strings.NewReader(input), logsource.Config{MaxLineSize: tc.maxLine})
			res, err := ReduceSource(context.Background(), src)
			if err != nil {
				t.Fatalf("ReduceSource: %v", err)
			}
			if res.LineCount != 3 || res.ParseErrors != 1 || res.OversizedLines != 1 {
				t.Errorf("result = %+v, want 3 lines, 1 oversized parse error", res)
			}
			if _, ok := res.Entities.Get("2"); ok {
				t.Error("oversized line created an entity")
			}
			if _, ok := res.Entities.Get("3"); !ok {
				t.Error("line after the oversized one was not reduced")
			}
		})
	}
}

// closedSource has already delivered all of its lines.
type closedSource struct {
	ch  chan model.IngestLine
	err error
}

func newClosedSource(lines ...string) *closedSource {
	ch := make(chan model.IngestLine, len(lines))
	for i, l := range lines {
		ch <- model.IngestLine{Source: "closed", Number: i + 1, Line: l}
	}
	close(ch)
	return &closedSource{ch: ch}
}

func (s *closedSource) Run(context.Context) error      { return s.err }
func (s *closedSource) Lines() <-chan model.IngestLine { return s.ch }
func (s *closedSource) Err() error                     { return s.err }
func (s *closedSource) Stop()                          {}
func (s *closedSource) Name() string                   { return "closed" }

func TestReduceSourceCancelledNeverReportsSuccess(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 200; i++ {
		src := newClosedSource(
			logLine("1", "Skyrim.esm", model.FieldFacePlugin, "A.esp"),
			logLine("2", "Skyrim.esm", model.FieldFacePlugin, "B.esp"),
		)
		if _, err := ReduceSource(ctx, src); !errors.Is(err, context.Canceled) {
			t.Fatalf("run %d: err = %v, want context.Canceled", i, err)
		}
	}
}

// failingSource reports a read error without ever closing its lines.
type failingSource struct {
	ch chan model.IngestLine
}

func (s *failingSource) Run(context.Context) error      { return errRead }
func (s *failingSource) Lines() <-chan model.IngestLine { return s.ch }
func (s *failingSource) Err() error                     { return errRead }
func (s *failingSource) Stop()                          {}
func (s *failingSource) Name() string                   { return "failing" }

var errRead = errors.New("disk on fire")

func TestReduceSourceReadErrorCancelsReducer(t *testing.T) {
	t.Parallel()

	src := &failingSource{ch: make(chan model.IngestLine)}
	_, err := ReduceSource(context.Background(), src)
	if !errors.Is(err, errRead) {
		t.Fatalf("err = %v, want the read error", err)
	}
}
