package runtime

import (
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"reflect"
	goruntime "runtime"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"github.com/replbox/replbox/protocol"
)

// DefaultMaxTraceFrames is the stack-frame budget applied to evaluation
// errors when no explicit limit is configured.
const DefaultMaxTraceFrames = 8

// EvalResult is the structured outcome of one evaluation.
//
// Error and a meaningful Value are mutually exclusive in practice: when the
// evaluated code fails, Value holds the "nothing" placeholder. Callers must
// check Error first.
type EvalResult struct {
	Value  string
	Output string
	Error  string
}

// PkgResult is the structured outcome of one package action.
type PkgResult struct {
	Error  string
	Stdout string
	Stderr string
}

// Options configures a Session.
type Options struct {
	// MaxTraceFrames bounds the stack trace attached to evaluation errors.
	// Zero means DefaultMaxTraceFrames.
	MaxTraceFrames int
	Logger         *zap.Logger

	// Stdout and Stderr receive interpreted output produced outside a
	// capture window. They default to the process streams; the worker
	// binary points both at stderr because its stdout carries the
	// response protocol.
	Stdout io.Writer
	Stderr io.Writer
}

// Session hosts the persistent interpreter. It is not safe for concurrent
// use; the server serializes calls against the single worker.
type Session struct {
	interp         *interp.Interpreter
	log            *zap.Logger
	maxTraceFrames int
	projectPath    string

	// stdout and stderr are the writers the interpreter was constructed
	// with; capture redirects their destinations per call.
	stdout *swapWriter
	stderr *swapWriter

	// imports records packages successfully imported by evaluated code,
	// keyed by import path.
	imports map[string]bool
}

// NewSession creates a Session with the full standard library available to
// evaluated code.
func NewSession(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxTraceFrames <= 0 {
		opts.MaxTraceFrames = DefaultMaxTraceFrames
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	s := &Session{
		log:            opts.Logger,
		maxTraceFrames: opts.MaxTraceFrames,
		stdout:         newSwapWriter(opts.Stdout),
		stderr:         newSwapWriter(opts.Stderr),
		imports:        make(map[string]bool),
	}

	// The interpreter latches its output streams here; all later
	// redirection goes through the swapWriters.
	i := interp.New(interp.Options{Stdout: s.stdout, Stderr: s.stderr})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib symbols: %w", err)
	}
	s.interp = i

	return s, nil
}

// Eval executes code in the persistent namespace and returns the result as
// data. Errors raised by the code — including panics inside the interpreter —
// never escape as Go errors; they come back formatted in EvalResult.Error so
// a broken evaluation still produces an interpretable answer.
func (s *Session) Eval(code string) EvalResult {
	restore := s.captureOutput()
	v, evalErr := s.evalGuarded(code)
	stdout, stderr := restore()

	if evalErr == nil {
		s.recordImports(code)
	}
	return s.result(v, stdout, stderr, evalErr)
}

func (s *Session) result(v reflect.Value, stdout, stderr string, evalErr error) EvalResult {
	out := combineOutput(stdout, stderr)
	if evalErr != nil {
		return EvalResult{Value: "nothing", Output: out, Error: s.formatError(evalErr)}
	}
	return EvalResult{Value: reprValue(v), Output: out}
}

// evalGuarded shields the caller from panics thrown by the interpreter
// itself, converting them into ordinary evaluation errors.
func (s *Session) evalGuarded(code string) (v reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()
	return s.interp.Eval(code)
}

// stderrMarker introduces captured stderr in the combined output.
const stderrMarker = "=== stderr ==="

func combineOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	out := stdout
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + stderrMarker + "\n" + stderr
}

// Activate points the session at a project directory. The directory must
// exist; on failure the previously active project is left untouched.
func (s *Session) Activate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty project path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving project path %q: %w", path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project path %q: %w", abs, err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("project path %q is not a directory", abs)
	}
	s.projectPath = abs
	return abs, nil
}

// ProjectPath returns the active project directory, or "" if none.
func (s *Session) ProjectPath() string {
	return s.projectPath
}

// Info reports the session's runtime state.
func (s *Session) Info() protocol.RuntimeInfo {
	return protocol.RuntimeInfo{
		GoVersion:          goruntime.Version(),
		InterpreterVersion: interpreterVersion(),
		ProjectPath:        s.projectPath,
		Symbols:            s.UserSymbols(),
		ModuleCount:        s.moduleCount(),
	}
}

// protectedSymbols are runtime-owned names excluded from symbol listings.
var protectedSymbols = map[string]bool{
	"init": true,
	"main": true,
}

// UserSymbols lists user-defined top-level bindings in the session package.
// The filter excludes the fixed protected set and any name beginning with an
// underscore, the convention evaluated code is expected to use for
// internal helpers it does not want surfaced.
func (s *Session) UserSymbols() []string {
	var names []string
	for _, syms := range s.interp.Symbols("main") {
		for name := range syms {
			if protectedSymbols[name] || strings.HasPrefix(name, "_") {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// moduleCount reports how many distinct packages evaluated code has
// imported so far.
func (s *Session) moduleCount() int {
	return len(s.imports)
}

// recordImports scans successfully evaluated code for import declarations
// and remembers their paths. Token scanning rather than full parsing: the
// snippets the session accepts are statement fragments, not valid files.
func (s *Session) recordImports(code string) {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(code))

	var sc scanner.Scanner
	sc.Init(file, []byte(code), nil, 0)

	inImport := false
	depth := 0
	for {
		_, tok, lit := sc.Scan()
		if tok == token.EOF {
			return
		}
		switch {
		case tok == token.IMPORT:
			inImport = true
			depth = 0
		case !inImport:
		case tok == token.LPAREN:
			depth++
		case tok == token.RPAREN:
			depth--
			if depth <= 0 {
				inImport = false
			}
		case tok == token.STRING:
			if path, err := strconv.Unquote(lit); err == nil && path != "" {
				s.imports[path] = true
			}
			if depth == 0 {
				inImport = false
			}
		case tok == token.IDENT || tok == token.PERIOD:
			// Import alias or dot import.
		case tok == token.SEMICOLON:
			if depth == 0 {
				inImport = false
			}
		default:
			inImport = false
		}
	}
}

func interpreterVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			if dep.Path == "github.com/traefik/yaegi" {
				return dep.Version
			}
		}
	}
	return "unknown"
}
