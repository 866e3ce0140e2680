package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockCommandRunner implements CommandRunner for testing
type mockCommandRunner struct {
	gotDir   string
	gotArgs  []string
	stdout   string
	stderr   string
	exitCode int
	err      error
}

func (m *mockCommandRunner) RunCommand(_ context.Context, dir string, args []string) (string, string, int, error) {
	m.gotDir = dir
	m.gotArgs = args
	return m.stdout, m.stderr, m.exitCode, m.err
}

func TestCommandFor(t *testing.T) {
	tests := []struct {
		name   string
		action string
		args   []string
		want   []string
	}{
		{"Add", "add", []string{"github.com/google/uuid"}, []string{"go", "get", "github.com/google/uuid"}},
		{"Remove", "rm", []string{"github.com/google/uuid"}, []string{"go", "get", "github.com/google/uuid@none"}},
		{"Status", "status", nil, []string{"go", "list", "-m", "all"}},
		{"UpdateAll", "update", nil, []string{"go", "get", "-u", "./..."}},
		{"UpdateOne", "update", []string{"github.com/google/uuid"}, []string{"go", "get", "-u", "github.com/google/uuid"}},
		{"Instantiate", "instantiate", nil, []string{"go", "mod", "download"}},
		{"Resolve", "resolve", nil, []string{"go", "mod", "tidy"}},
		{"Test", "test", nil, []string{"go", "test", "./..."}},
		{"Develop", "dev", []string{"example.com/m=../m"}, []string{"go", "mod", "edit", "-replace", "example.com/m=../m"}},
		{"Undevelop", "undev", []string{"example.com/m"}, []string{"go", "mod", "edit", "-dropreplace", "example.com/m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := commandFor(tt.action, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("DevelopWithoutPair", func(t *testing.T) {
		_, err := commandFor("dev", []string{"example.com/m"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "module=dir")
	})

	t.Run("UnknownAction", func(t *testing.T) {
		_, err := commandFor("explode", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown package action")
	})
}

func TestPkgRunnerRun(t *testing.T) {
	t.Run("PassesThroughOutput", func(t *testing.T) {
		runner := &mockCommandRunner{stdout: "example.com/m v1.0.0\n", stderr: "note\n"}
		p := NewPkgRunner(zaptest.NewLogger(t), WithCommandRunner(runner))

		res := p.Run(context.Background(), "status", nil, "/proj")
		assert.Empty(t, res.Error)
		assert.Equal(t, "example.com/m v1.0.0\n", res.Stdout)
		assert.Equal(t, "note\n", res.Stderr)
		assert.Equal(t, "/proj", runner.gotDir)
		assert.Equal(t, []string{"go", "list", "-m", "all"}, runner.gotArgs)
	})

	t.Run("NonZeroExitBecomesError", func(t *testing.T) {
		runner := &mockCommandRunner{stderr: "no go.mod\n", exitCode: 1}
		p := NewPkgRunner(zaptest.NewLogger(t), WithCommandRunner(runner))

		res := p.Run(context.Background(), "status", nil, "")
		assert.Contains(t, res.Error, "exited with status 1")
		assert.Equal(t, "no go.mod\n", res.Stderr)
	})

	t.Run("RunnerFailureBecomesError", func(t *testing.T) {
		runner := &mockCommandRunner{err: errors.New("exec: not found")}
		p := NewPkgRunner(zaptest.NewLogger(t), WithCommandRunner(runner))

		res := p.Run(context.Background(), "resolve", nil, "")
		assert.Contains(t, res.Error, "exec: not found")
	})

	t.Run("UnknownActionIsDataError", func(t *testing.T) {
		p := NewPkgRunner(zaptest.NewLogger(t), WithCommandRunner(&mockCommandRunner{}))

		res := p.Run(context.Background(), "explode", nil, "")
		assert.Contains(t, res.Error, "unknown package action")
	})
}
