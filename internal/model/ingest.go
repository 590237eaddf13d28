package model

// IngestLine carries one raw profile log line with its 1-based position.
// It is the transport contract between log sources and the reducer.
// Oversized lines arrive with an empty Line and Oversized set; the rest of
// such a line has already been discarded.
type IngestLine struct {
	Source    string
	Number    int
	Line      string
	Oversized bool
}
