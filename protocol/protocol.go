package protocol

// Op identifies a worker operation.
type Op string

// Worker operations.
const (
	OpPing     Op = "ping"
	OpEval     Op = "eval"
	OpPkg      Op = "pkg"
	OpActivate Op = "activate"
	OpInfo     Op = "info"
)

// PkgAction identifies a package-manager verb.
type PkgAction string

// Package-manager verbs. The set is closed; the tool-handler layer validates
// incoming actions against it before a request is built, so the worker-side
// dispatcher may assume a known action.
const (
	PkgAdd         PkgAction = "add"
	PkgRemove      PkgAction = "rm"
	PkgStatus      PkgAction = "status"
	PkgUpdate      PkgAction = "update"
	PkgInstantiate PkgAction = "instantiate"
	PkgResolve     PkgAction = "resolve"
	PkgTest        PkgAction = "test"
	PkgDevelop     PkgAction = "dev"
	PkgUndevelop   PkgAction = "undev"
)

// PkgActions enumerates every valid package action.
var PkgActions = []PkgAction{
	PkgAdd, PkgRemove, PkgStatus, PkgUpdate, PkgInstantiate,
	PkgResolve, PkgTest, PkgDevelop, PkgUndevelop,
}

// ValidPkgAction reports whether action names a known package verb.
func ValidPkgAction(action string) bool {
	for _, a := range PkgActions {
		if string(a) == action {
			return true
		}
	}
	return false
}

// NeedsPackages reports whether action requires at least one package argument.
func NeedsPackages(action string) bool {
	switch PkgAction(action) {
	case PkgAdd, PkgRemove, PkgDevelop, PkgUndevelop:
		return true
	default:
		return false
	}
}

// Request is a single call to the worker. ID is unique per call and echoed
// back in the matching Response so a reply can never be confused with stale
// output from an earlier call.
type Request struct {
	ID     string   `json:"id"`
	Op     Op       `json:"op"`
	Code   string   `json:"code,omitempty"`
	Action string   `json:"action,omitempty"`
	Args   []string `json:"args,omitempty"`
	Path   string   `json:"path,omitempty"`
}

// Response is the worker's reply to one Request.
//
// Error carries failures of the requested operation (evaluation errors,
// package tool failures, bad activation paths) as data. Transport-level
// failures never appear here; they surface as channel errors on the server
// side.
type Response struct {
	ID     string       `json:"id"`
	Value  string       `json:"value,omitempty"`
	Output string       `json:"output,omitempty"`
	Error  string       `json:"error,omitempty"`
	Stdout string       `json:"stdout,omitempty"`
	Stderr string       `json:"stderr,omitempty"`
	Path   string       `json:"path,omitempty"`
	Info   *RuntimeInfo `json:"info,omitempty"`
}

// RuntimeInfo describes the worker's runtime state, reported by the info op.
type RuntimeInfo struct {
	GoVersion          string   `json:"go_version"`
	InterpreterVersion string   `json:"interpreter_version"`
	ProjectPath        string   `json:"project_path,omitempty"`
	Symbols            []string `json:"symbols,omitempty"`
	ModuleCount        int      `json:"module_count"`
}
