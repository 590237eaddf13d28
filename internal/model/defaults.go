package model

// Output grammar and file names shared by the CLI and the packager.
const (
	DirectivePrefix = "Keyword = RSVignore|NONE|"

	OutputFolder    = "easynpc_rsv_excluder_output"
	IniFileName     = "zzzEasyNPC RSV Exclude_DISTR.ini"
	ArchiveBaseName = "EasyNPC RSV Exclusion File"

	DefaultProfilePath = "~/AppData/Local/EasyNPC/Profile.log"
	DefaultConfigName  = "config.toml"
)

// DefaultExcludePlugins is the Cathedral/Refined plugin list used when the
// config file does not name its own.
var DefaultExcludePlugins = []string{
	"Karura's Ordinary People Refined.esp",
	"MOSRefined.esp",
	"MOSRefinedDawnguard.esp",
	"MOSRefinedDragonborn.esp",
	"TDOSRefined.esp",
	"TSOSRefined.esp",
	"TSOSRefinedDawnguard.esp",
	"TSOSRefinedDragonborn.esp",
	"TSOSRefinedHearthfire.esp",
}
