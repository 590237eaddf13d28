// Package directive selects excluded NPCs and renders them in the RSV
// exclusion grammar:
//
//	Keyword = RSVignore|NONE|0x12345~Skyrim.esm,0x54321~Dawnguard.esm
package directive

import (
	"strings"

	"github.com/tinytelemetry/rsvexclude/internal/model"
)

// PluginSet is a membership set of plugin names.
type PluginSet map[string]struct{}

// NewPluginSet builds a set from names. Order and duplicates do not matter.
func NewPluginSet(names []string) PluginSet {
	s := make(PluginSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s PluginSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Matches reports whether npc's face plugin is set, non-empty, and belongs to s.
func (s PluginSet) Matches(npc *model.NPC) bool {
	return npc.FacePlugin.Set && npc.FacePlugin.Value != "" && s.Has(npc.FacePlugin.Value)
}

// FilterMatching returns the NPCs whose face plugin is in plugins, in set order.
func FilterMatching(set *model.EntitySet, plugins PluginSet) []*model.NPC {
	var out []*model.NPC
	set.Each(func(npc *model.NPC) bool {
		if plugins.Matches(npc) {
			out = append(out, npc)
		}
		return true
	})
	return out
}

// Format renders the directive for the NPCs in set that match plugins.
func Format(set *model.EntitySet, plugins PluginSet) string {
	return FormatNPCs(FilterMatching(set, plugins))
}

// FormatNPCs renders the directive for an already-filtered list.
func FormatNPCs(npcs []*model.NPC) string {
	var b strings.Builder
	b.WriteString(model.DirectivePrefix)
	for i, npc := range npcs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(TargetString(npc))
	}
	return b.String()
}

// TargetString renders one NPC as FormId~Master.
func TargetString(npc *model.NPC) string {
	return FormID(npc.ID) + "~" + npc.Master
}

// FormID strips leading zeros from id and prefixes 0x. An id of only zeros
// keeps a single "0".
func FormID(id string) string {
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "0x" + trimmed
}
