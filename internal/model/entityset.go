package model

// EntitySet maps NPC ids to their reduced state. Iteration follows the order
// in which each id was first inserted. Entries are never removed.
type EntitySet struct {
	order []string
	byID  map[string]*NPC
}

// NewEntitySet returns an empty set.
func NewEntitySet() *EntitySet {
	return &EntitySet{byID: make(map[string]*NPC)}
}

// Len returns the number of NPCs in the set.
func (s *EntitySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Get returns the NPC for id, if present.
func (s *EntitySet) Get(id string) (*NPC, bool) {
	if s == nil {
		return nil, false
	}
	npc, ok := s.byID[id]
	return npc, ok
}

// GetOrCreate returns the NPC for id, seeding a new one with master when the
// id has not been seen. created reports whether a new NPC was added.
func (s *EntitySet) GetOrCreate(id, master string) (npc *NPC, created bool) {
	if npc, ok := s.byID[id]; ok {
		return npc, false
	}
	npc = &NPC{ID: id, Master: master}
	s.byID[id] = npc
	s.order = append(s.order, id)
	return npc, true
}

// Each calls fn for every NPC in insertion order until fn returns false.
func (s *EntitySet) Each(fn func(*NPC) bool) {
	if s == nil {
		return
	}
	for _, id := range s.order {
		if !fn(s.byID[id]) {
			return
		}
	}
}

// All returns the NPCs in insertion order.
func (s *EntitySet) All() []*NPC {
	out := make([]*NPC, 0, s.Len())
	s.Each(func(n *NPC) bool {
		out = append(out, n)
		return true
	})
	return out
}
