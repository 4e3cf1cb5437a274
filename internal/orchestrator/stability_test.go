package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource returns each snapshot in order, then repeats the last one
// forever.
func scriptedSource(snapshots ...string) pollFunc {
	var i atomic.Int32
	return func(ctx context.Context) (string, error) {
		n := int(i.Add(1)) - 1
		if n >= len(snapshots) {
			n = len(snapshots) - 1
		}
		return snapshots[n], nil
	}
}

// fastOpts returns detector options tuned for tests: 1 ms polls, 3 quiet
// polls.
func fastOpts(minLength int, maxWait time.Duration) stabilityOptions {
	return stabilityOptions{
		interval:   time.Millisecond,
		quietPolls: 3,
		minLength:  minLength,
		maxWait:    maxWait,
	}
}

func TestAwaitStable_GrowthThenQuietCompletes(t *testing.T) {
	source := scriptedSource("The", "The capital", "The capital is Paris.")

	start := time.Now()
	got := awaitStable(context.Background(), source, fastOpts(5, time.Second), nil)
	elapsed := time.Since(start)

	assert.Equal(t, "The capital is Paris.", got)
	// Completed via the quiet period, well before the capture window closed.
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestAwaitStable_ForwardsGrowingChunks(t *testing.T) {
	source := scriptedSource("a", "ab", "abcdef")

	var chunks []string
	got := awaitStable(context.Background(), source, fastOpts(2, time.Second), func(text string) {
		chunks = append(chunks, text)
	})

	assert.Equal(t, "abcdef", got)
	assert.Equal(t, []string{"a", "ab", "abcdef"}, chunks)
}

func TestAwaitStable_BelowMinLengthRunsUntilMaxWait(t *testing.T) {
	source := scriptedSource("hi")

	start := time.Now()
	got := awaitStable(context.Background(), source, fastOpts(50, 100*time.Millisecond), nil)
	elapsed := time.Since(start)

	// The short text never completes; at timeout the last seen text comes
	// back rather than an error.
	assert.Equal(t, "hi", got)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestAwaitStable_NothingCapturedReturnsSentinel(t *testing.T) {
	source := scriptedSource("")

	got := awaitStable(context.Background(), source, fastOpts(5, 50*time.Millisecond), nil)
	assert.Equal(t, TimeoutSentinel, got)
}

func TestAwaitStable_ShrinkThenRegrowTolerated(t *testing.T) {
	// A mid-redraw shrink must not terminate the capture or corrupt the
	// final text.
	source := scriptedSource("partial answer", "par", "partial answer plus more")

	got := awaitStable(context.Background(), source, fastOpts(5, time.Second), nil)
	assert.Equal(t, "partial answer plus more", got)
}

func TestAwaitStable_PollErrorsTolerated(t *testing.T) {
	var i atomic.Int32
	source := func(ctx context.Context) (string, error) {
		if i.Add(1)%2 == 0 {
			return "", assert.AnError
		}
		return "stable answer text", nil
	}

	got := awaitStable(context.Background(), source, fastOpts(5, time.Second), nil)
	assert.Equal(t, "stable answer text", got)
}

func TestAwaitStable_ContextCancelExitsEarly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	source := scriptedSource("never finishes growing enough")

	start := time.Now()
	got := awaitStable(ctx, source, fastOpts(1000, time.Minute), nil)
	elapsed := time.Since(start)

	require.Less(t, elapsed, time.Second)
	assert.Equal(t, "never finishes growing enough", got)
}
