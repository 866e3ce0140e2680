package runtime

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traefik/yaegi/interp"
)

func syntheticStack(frames int) string {
	var b strings.Builder
	b.WriteString("goroutine 1 [running]:\n")
	for i := 0; i < frames; i++ {
		fmt.Fprintf(&b, "main.f%d(...)\n", i)
		fmt.Fprintf(&b, "\t/tmp/main.go:%d +0x10\n", i+1)
	}
	return b.String()
}

func TestTruncateTrace(t *testing.T) {
	t.Run("ShortStackUnchanged", func(t *testing.T) {
		stack := syntheticStack(3)
		got := truncateTrace(stack, 8)
		assert.Equal(t, strings.TrimRight(stack, "\n"), got)
		assert.NotContains(t, got, "truncated")
	})

	t.Run("LongStackTruncated", func(t *testing.T) {
		got := truncateTrace(syntheticStack(20), 8)
		assert.Contains(t, got, "(12 more frames truncated)")

		// Header + 8 frame pairs + the truncation note.
		lines := strings.Split(got, "\n")
		assert.Len(t, lines, 1+8*2+1)
	})

	t.Run("EmptyStack", func(t *testing.T) {
		assert.Empty(t, truncateTrace("", 8))
	})
}

func TestFormatPanic(t *testing.T) {
	p := interp.Panic{Value: "boom", Stack: []byte(syntheticStack(20))}
	got := formatPanic(p, 8)
	assert.True(t, strings.HasPrefix(got, "panic: boom"))
	assert.Contains(t, got, "more frames truncated")
}

func TestFormatError(t *testing.T) {
	s := newTestSession(t)

	t.Run("PlainError", func(t *testing.T) {
		got := s.formatError(errors.New("1:1: undefined: x"))
		assert.Equal(t, "1:1: undefined: x", got)
	})

	t.Run("PanicGetsTrace", func(t *testing.T) {
		err := error(interp.Panic{Value: "boom", Stack: []byte(syntheticStack(2))})
		got := s.formatError(err)
		require.Contains(t, got, "panic: boom")
		assert.Contains(t, got, "main.f0")
	})
}
