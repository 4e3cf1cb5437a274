package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()

	pr.Emit(StageEvent(StageGathering, "analysis started"))
	pr.Emit(ChunkEvent("chatgpt", "partial text"))
	pr.Close()

	var events []ProgressEvent
	for ev := range pr.Subscribe() {
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, StageGathering.String(), events[0].Status)
	assert.Equal(t, StatusStreaming, events[1].Status)
	assert.Equal(t, AgentID("chatgpt"), events[1].Service)
	assert.Equal(t, "partial text", events[1].Content)
}

func TestProgressReporter_DropsWhenFull(t *testing.T) {
	pr := NewProgressReporter()

	// Nobody is draining, so everything past the buffer is dropped and
	// Emit never blocks.
	for i := 0; i < 500; i++ {
		pr.Emit(ChunkEvent("chatgpt", "chunk"))
	}
	pr.Close()

	count := 0
	for range pr.Subscribe() {
		count++
	}
	assert.Equal(t, 128, count)
}
