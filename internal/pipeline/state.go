package pipeline

// State is a stage of a run. Terminal states end the run.
type State int

const (
	Idle State = iota
	ConfigLoading
	ConfigMissing
	ConfigInvalid
	ProfileMissing
	Reducing
	ReduceFailed
	Reduced
	NoMatches
	Packaging
	Packaged
	PackagingFailed
)

var stateNames = map[State]string{
	Idle:            "idle",
	ConfigLoading:   "config-loading",
	ConfigMissing:   "config-missing",
	ConfigInvalid:   "config-invalid",
	ProfileMissing:  "profile-missing",
	Reducing:        "reducing",
	ReduceFailed:    "reduce-failed",
	Reduced:         "reduced",
	NoMatches:       "no-matches",
	Packaging:       "packaging",
	Packaged:        "packaged",
	PackagingFailed: "packaging-failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	switch s {
	case ConfigMissing, ConfigInvalid, ProfileMissing, ReduceFailed, NoMatches, Packaged, PackagingFailed:
		return true
	default:
		return false
	}
}

// Failed reports whether s is a terminal failure.
func (s State) Failed() bool {
	return s.Terminal() && s != NoMatches && s != Packaged
}

// ExitCode maps a terminal state to the process exit status.
func ExitCode(s State) int {
	if s.Failed() || !s.Terminal() {
		return 1
	}
	return 0
}
