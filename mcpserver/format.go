package mcpserver

import (
	"fmt"
	"strings"

	"github.com/replbox/replbox/worker"
)

// formatEvalResult renders an evaluation outcome. Errors lead; output
// produced before the failure point is never discarded.
func formatEvalResult(r worker.EvalOutcome) string {
	var b strings.Builder
	if r.Error != "" {
		b.WriteString("Error: ")
		b.WriteString(r.Error)
		if r.Output != "" {
			b.WriteString("\n\nOutput before failure:\n")
			b.WriteString(r.Output)
		}
		return b.String()
	}

	b.WriteString(r.Value)
	if r.Output != "" {
		b.WriteString("\n\nOutput:\n")
		b.WriteString(r.Output)
	}
	return b.String()
}

// formatPkgResult renders a package action outcome, error first.
func formatPkgResult(r worker.PkgOutcome) string {
	var b strings.Builder
	if r.Error != "" {
		b.WriteString("Error: ")
		b.WriteString(r.Error)
	} else {
		b.WriteString("ok")
	}
	if r.Stdout != "" {
		b.WriteString("\n\nstdout:\n")
		b.WriteString(r.Stdout)
	}
	if r.Stderr != "" {
		b.WriteString("\n\nstderr:\n")
		b.WriteString(r.Stderr)
	}
	return b.String()
}

func formatActivate(r worker.ActivateOutcome) string {
	if !r.OK {
		return "Error: " + r.Error
	}
	return "Activated project: " + r.Project
}

func formatReset(r worker.ResetReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Worker reset: %s -> %s", orNone(r.OldID), r.NewID)
	if r.ProjectPath != "" {
		fmt.Fprintf(&b, "\nProject: %s", r.ProjectPath)
		if r.Reactivated {
			b.WriteString(" (re-activated)")
		} else {
			fmt.Fprintf(&b, " (re-activation failed: %s)", r.ReactivationError)
		}
	}
	return b.String()
}

func formatInfo(info worker.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Worker: %s (pid %d)\n", info.WorkerID, info.PID)
	fmt.Fprintf(&b, "Go version: %s\n", info.GoVersion)
	fmt.Fprintf(&b, "Interpreter: %s\n", info.InterpreterVersion)
	fmt.Fprintf(&b, "Project: %s\n", orNone(info.ProjectPath))
	fmt.Fprintf(&b, "Loaded modules: %d\n", info.ModuleCount)
	fmt.Fprintf(&b, "Symbols: %s", orNone(strings.Join(info.Symbols, ", ")))
	if len(info.Environments) > 0 {
		fmt.Fprintf(&b, "\nShared environments: @%s", strings.Join(info.Environments, ", @"))
	}
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// splitPackages splits a comma- or space-separated package list, dropping
// empty elements.
func splitPackages(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
