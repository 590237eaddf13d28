// Package console prints the user-facing messages of a run.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/rsvexclude/internal/model"
	"github.com/tinytelemetry/rsvexclude/internal/pathutil"
)

const (
	ruleWidth   = 60
	sampleLimit = 5
)

var (
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	bold   = lipgloss.NewStyle().Bold(true)
)

// Printer writes styled messages to an output stream.
type Printer struct {
	w io.Writer
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) println(lines ...string) {
	fmt.Fprintln(p.w, strings.Join(lines, "\n"))
}

func rule() string {
	return dim.Render(strings.Repeat("=", ruleWidth))
}

// Banner prints the tool header.
func (p *Printer) Banner(version string) {
	p.println(
		rule(),
		"  "+cyan.Bold(true).Render("EasyNPC RSV Excluder")+"  "+dim.Render("v"+version),
		"  Generates RSV exclusion file from EasyNPC choices",
		rule(),
		"",
	)
}

// Config prints where the run reads from and writes to.
func (p *Printer) Config(configPath, profilePath string, plugins int) {
	p.println(
		fmt.Sprintf("Config:   %s", dim.Render(pathutil.Shorten(configPath))),
		fmt.Sprintf("Profile:  %s", dim.Render(pathutil.Shorten(profilePath))),
		fmt.Sprintf("Plugins:  %d to exclude", plugins),
	)
}

// Summary prints reduction counters.
func (p *Printer) Summary(lines, parseErrors, npcs, matched int) {
	errs := fmt.Sprintf("%d", parseErrors)
	if parseErrors > 0 {
		errs = yellow.Render(errs)
	}
	p.println(
		"",
		fmt.Sprintf("Processed %d lines (%s parse errors)", lines, errs),
		fmt.Sprintf("Found %d NPCs, %d matching excluded plugins", npcs, matched),
	)
}

// SampleNPCs lists up to five excluded NPCs.
func (p *Printer) SampleNPCs(npcs []*model.NPC) {
	if len(npcs) == 0 {
		return
	}
	lines := []string{"", "Sample excluded NPCs:"}
	for _, npc := range npcs[:min(len(npcs), sampleLimit)] {
		lines = append(lines, fmt.Sprintf("  - %s (%s) -> %s", npc.ID, npc.Master, npc.FacePlugin.Value))
	}
	if len(npcs) > sampleLimit {
		lines = append(lines, dim.Render(fmt.Sprintf("  ... and %d more", len(npcs)-sampleLimit)))
	}
	p.println(lines...)
}

// NoMatches explains why nothing was written.
func (p *Printer) NoMatches() {
	p.println("", yellow.Render("No NPCs use any of the excluded plugins. Nothing to write."))
}

// Success prints the archive location and install steps.
func (p *Printer) Success(npcCount int, archivePath string) {
	p.println(
		"",
		rule(),
		"  "+green.Bold(true).Render("SUCCESS!"),
		rule(),
		"",
		fmt.Sprintf("Excluded %s NPCs from RSV.", bold.Render(fmt.Sprintf("%d", npcCount))),
		"",
		"Output archive created at:",
		"  "+cyan.Render(archivePath),
		"",
		"To install:",
		"  1. Install the archive as a new mod",
		"  2. Enable it!",
	)
}

// Failure prints a diagnostic for a failed run.
func (p *Printer) Failure(err error) {
	p.println("", red.Bold(true).Render("Error: ")+err.Error())
}
