// Package orchestrator coordinates a panel of conversational agents through
// a staged analysis pipeline: gather answers concurrently, cross-validate
// them with a designated agent, synthesize one optimal answer, and stream
// progress to observers along the way.
package orchestrator

import "context"

// AgentID names one agent. It is the single attribute distinguishing agents
// from each other.
type AgentID string

// Synthetic agent ids used to tag streaming output that does not belong to a
// gathering agent.
const (
	ServiceValidation AgentID = "validation"
	ServiceOptimal    AgentID = "optimal"
)

// Stage identifies where a run is in the pipeline. Stages only ever advance.
type Stage int

const (
	StageIdle Stage = iota
	StageGathering
	StageValidating
	StageSynthesizing
	StageDone
	StageError
)

func (s Stage) String() string {
	names := [...]string{
		"idle",
		"gathering",
		"validating",
		"synthesizing",
		"done",
		"error",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// AgentResult is the outcome of one agent's task within a run. It is created
// once when the task resolves and never mutated afterwards.
type AgentResult struct {
	Agent     AgentID `json:"agent"`
	FinalText string  `json:"finalText"`
	Succeeded bool    `json:"succeeded"`
}

// Request asks for one analysis run.
type Request struct {
	// Prompt is the question put to every enabled agent. Must be non-empty.
	Prompt string `json:"prompt"`

	// Agents is the enabled agent set for this run. Must be non-empty.
	// Disabled agents never launch and never appear in results.
	Agents []AgentID `json:"agents"`
}

// Result is what a completed run returns to the caller.
type Result struct {
	// Results maps each enabled agent to its final text.
	Results map[AgentID]string `json:"results"`

	// ValidationReport is the cross-validation agent's critique of the
	// gathered answers, or a fixed fallback when validation failed.
	ValidationReport string `json:"validationReport"`

	// OptimalAnswer is the synthesized consensus answer, or a fixed
	// fallback when synthesis failed.
	OptimalAnswer string `json:"optimalAnswer"`

	// Summary is an alias of OptimalAnswer kept for consumers that expect
	// a summary field.
	Summary string `json:"summary"`
}

// ProgressEvent is one entry in a run's append-only progress stream. It is a
// tagged union over stage transitions, streaming chunks, and terminal errors;
// Status discriminates the variants.
type ProgressEvent struct {
	// Status is a stage name for transitions, "streaming" for chunks, or
	// "analysis-error" for terminal failures.
	Status string `json:"status"`

	// Service tags streaming chunks with the emitting agent, or one of the
	// synthetic ids for validation and synthesis output.
	Service AgentID `json:"service,omitempty"`

	// Content is the text snapshot carried by a streaming chunk. Each chunk
	// supersedes the previous one for the same service.
	Content string `json:"content,omitempty"`

	// Message is the human-readable note on transitions and errors.
	Message string `json:"message,omitempty"`
}

// StatusStreaming and StatusAnalysisError are the non-stage Status values.
const (
	StatusStreaming     = "streaming"
	StatusAnalysisError = "analysis-error"
)

// StageEvent builds a stage-transition event.
func StageEvent(stage Stage, message string) ProgressEvent {
	return ProgressEvent{Status: stage.String(), Message: message}
}

// ChunkEvent builds a streaming-chunk event for the given service.
func ChunkEvent(service AgentID, content string) ProgressEvent {
	return ProgressEvent{Status: StatusStreaming, Service: service, Content: content}
}

// ErrorEvent builds a terminal-error event.
func ErrorEvent(message string) ProgressEvent {
	return ProgressEvent{Status: StatusAnalysisError, Message: message}
}

// Orchestrator runs analysis pipelines and exposes their progress stream.
type Orchestrator interface {
	// Analyze runs one full pipeline for the request. At most one run may
	// be active process-wide; concurrent requests fail with ErrBusy.
	Analyze(ctx context.Context, req Request) (*Result, error)

	// Progress returns the channel progress events are published to.
	Progress() <-chan ProgressEvent
}
