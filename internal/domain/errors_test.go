package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Errorf(KindTimeout, "build", "command timed out after %s", 2*time.Second)
	wrapped := fmt.Errorf("site x: %w", err)

	assert.ErrorIs(t, wrapped, ErrTimeout)
	assert.NotErrorIs(t, wrapped, ErrExecutionFailure)
	assert.Equal(t, KindTimeout, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindTimeout))
	assert.Equal(t, "build: Timeout: command timed out after 2s", err.Error())
}

func TestWrapErrorKeepsInnerKind(t *testing.T) {
	inner := NewError(KindConcurrentOperation, "lock", "site busy")
	err := WrapError(KindExecutionFailure, "restart", inner)

	assert.Equal(t, KindConcurrentOperation, err.Kind)
	assert.Equal(t, "restart: lock: ConcurrentOperation: site busy", err.Error())

	plain := WrapError(KindExecutionFailure, "start", errors.New("boom"))
	assert.Equal(t, "start: ExecutionFailure: boom", plain.Error())
	assert.Nil(t, WrapError(KindExecutionFailure, "start", nil))
}

func TestExecutionLifecycle(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	exec := NewExecution("e1", SiteParent("s1"), TriggerBuild, start)
	assert.Equal(t, ExecutionRunning, exec.Status)
	assert.Zero(t, exec.Duration())

	exec.Fail(start.Add(3*time.Second), errors.New("plain"))
	assert.Equal(t, ExecutionFailed, exec.Status)
	assert.Equal(t, KindExecutionFailure, exec.FailureKind)
	assert.Equal(t, 3*time.Second, exec.Duration())
}

func TestTruncateOutput(t *testing.T) {
	s := strings.Repeat("a", 20)
	assert.Equal(t, s, TruncateOutput(s, 20))
	assert.Equal(t, strings.Repeat("a", 5)+"\n...[truncated 15 bytes]", TruncateOutput(s, 5))
}

func TestTruncateOutput_KeepsRunesWhole(t *testing.T) {
	got := TruncateOutput("héllo wörld", 2)

	assert.Equal(t, "h\n...[truncated 12 bytes]", got)
	assert.True(t, utf8.ValidString(got))

	got = TruncateOutput("日本語", 4)
	assert.Equal(t, "日\n...[truncated 6 bytes]", got)
}

func TestAppendOutput_StopsOnceTruncated(t *testing.T) {
	exec := NewExecution("e1", CronParent("j1"), TriggerManual, time.Now())

	exec.AppendOutput("start")
	exec.AppendOutput("next")
	assert.Equal(t, "start\nnext", exec.Output)

	exec.AppendOutput(strings.Repeat("x", MaxExecutionOutput))
	truncated := exec.Output
	assert.True(t, strings.HasSuffix(truncated, "\n...[truncated 11 bytes]"), truncated[len(truncated)-40:])

	exec.AppendOutput("late line")
	exec.AppendOutput("another")
	assert.Equal(t, truncated, exec.Output)
}
