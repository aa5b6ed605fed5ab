package domain

// RootReason says which boundary check decided the project root. Values are
// listed in the priority order the locator recognizes them.
type RootReason string

const (
	ReasonEnvDSN       RootReason = "env_dsn"      // env file containing a DSN (decisive)
	ReasonVCS          RootReason = "vcs"          // version-control marker (decisive)
	ReasonCI           RootReason = "ci"           // CI configuration (decisive)
	ReasonEditorconfig RootReason = "editorconfig" // .editorconfig with root = true (decisive)
	ReasonLanguage     RootReason = "language"     // closest language manifest
	ReasonBuildSystem  RootReason = "build_system" // closest build file
	ReasonFallback     RootReason = "fallback"     // starting directory
)

// ProjectRootResult is the outcome of locating the project boundary for a
// starting directory.
type ProjectRootResult struct {
	ProjectRoot string `json:"project_root"`
	// FoundDSN is a DSN discovered incidentally while locating the root
	// (only for ReasonEnvDSN). It determines where the root is, not which
	// DSN wins: the orchestrator still applies the full priority order.
	FoundDSN        *DSN       `json:"found_dsn,omitempty"`
	Reason          RootReason `json:"reason"`
	LevelsTraversed int        `json:"levels_traversed"`
	// VcsCommit is the HEAD commit hash when the root is a readable git
	// repository. Best-effort, informational only.
	VcsCommit string `json:"vcs_commit,omitempty"`
}
