package mcptools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/conclave/internal/aggregate"
	"github.com/dusk-indust/conclave/internal/history"
	"github.com/dusk-indust/conclave/internal/orchestrator"
)

// ConclaveService handles MCP tool calls. It wraps the orchestrator, the
// aggregator configuration, and the (optional) run archive.
type ConclaveService struct {
	pipeline orchestrator.Orchestrator
	defaults []orchestrator.AgentID
	aggCfg   aggregate.Config
	store    *history.Store // may be nil
}

// NewConclaveService creates a ConclaveService. defaults is the enabled
// agent set used when a tool call names no agents.
func NewConclaveService(pipeline orchestrator.Orchestrator, defaults []orchestrator.AgentID, aggCfg aggregate.Config, store *history.Store) *ConclaveService {
	return &ConclaveService{
		pipeline: pipeline,
		defaults: defaults,
		aggCfg:   aggCfg,
		store:    store,
	}
}

// AnalyzeInput is the input for the analyze MCP tool.
type AnalyzeInput struct {
	Prompt string   `json:"prompt" jsonschema:"the question to put to the agent panel"`
	Agents []string `json:"agents,omitempty" jsonschema:"agent names to consult (default: all configured agents)"`
}

// AnalyzeOutput is the result of the analyze MCP tool.
type AnalyzeOutput struct {
	Results          map[string]string `json:"results"`
	ValidationReport string            `json:"validationReport"`
	OptimalAnswer    string            `json:"optimalAnswer"`
	Summary          string            `json:"summary"`
}

// Analyze runs one full pipeline and returns its result.
func (s *ConclaveService) Analyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, AnalyzeOutput, error) {
	agents := s.defaults
	if len(input.Agents) > 0 {
		agents = make([]orchestrator.AgentID, len(input.Agents))
		for i, a := range input.Agents {
			agents[i] = orchestrator.AgentID(a)
		}
	}

	result, err := s.pipeline.Analyze(ctx, orchestrator.Request{
		Prompt: input.Prompt,
		Agents: agents,
	})
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}

	// Archival is best-effort; the analysis itself succeeded.
	if s.store != nil {
		_, _ = s.store.Save(input.Prompt, result)
	}

	out := AnalyzeOutput{
		Results:          make(map[string]string, len(result.Results)),
		ValidationReport: result.ValidationReport,
		OptimalAnswer:    result.OptimalAnswer,
		Summary:          result.Summary,
	}
	for agent, text := range result.Results {
		out.Results[string(agent)] = text
	}
	return nil, out, nil
}

// AggregateAnswersInput is the input for the aggregate_answers MCP tool.
type AggregateAnswersInput struct {
	Answers []AnswerInput `json:"answers" jsonschema:"the {agent, answer} pairs to aggregate"`
}

// AnswerInput is one raw answer.
type AnswerInput struct {
	Agent  string `json:"agent" jsonschema:"name of the agent that produced the answer"`
	Answer string `json:"answer" jsonschema:"the raw answer text or structured record"`
}

// AggregateAnswersOutput is the result of the aggregate_answers MCP tool.
type AggregateAnswersOutput struct {
	FinalAnswer string  `json:"finalAnswer"`
	Method      string  `json:"method,omitempty"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason,omitempty"`
}

// AggregateAnswers runs the deterministic weighted vote.
func (s *ConclaveService) AggregateAnswers(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input AggregateAnswersInput,
) (*mcp.CallToolResult, AggregateAnswersOutput, error) {
	answers := make([]aggregate.Answer, len(input.Answers))
	for i, a := range input.Answers {
		answers[i] = aggregate.Answer{Agent: a.Agent, Raw: a.Answer}
	}

	outcome := aggregate.Aggregate(answers, s.aggCfg)
	return nil, AggregateAnswersOutput{
		FinalAnswer: outcome.FinalAnswer,
		Method:      outcome.Method,
		Confidence:  outcome.Confidence,
		Reason:      outcome.Reason,
	}, nil
}

// RecentRunsInput is the input for the recent_runs MCP tool.
type RecentRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 20)"`
}

// RecentRunsOutput is the result of the recent_runs MCP tool.
type RecentRunsOutput struct {
	Runs []RunSummary `json:"runs"`
}

// RunSummary is a brief view of one archived run.
type RunSummary struct {
	ID            string `json:"id"`
	Prompt        string `json:"prompt"`
	OptimalAnswer string `json:"optimalAnswer"`
	CreatedAt     string `json:"createdAt"`
}

// RecentRuns lists recently archived runs.
func (s *ConclaveService) RecentRuns(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input RecentRunsInput,
) (*mcp.CallToolResult, RecentRunsOutput, error) {
	if s.store == nil {
		return nil, RecentRunsOutput{}, fmt.Errorf("run history is not enabled")
	}

	runs, err := s.store.Recent(input.Limit)
	if err != nil {
		return nil, RecentRunsOutput{}, err
	}

	out := RecentRunsOutput{Runs: make([]RunSummary, len(runs))}
	for i, r := range runs {
		out.Runs[i] = RunSummary{
			ID:            r.ID,
			Prompt:        r.Prompt,
			OptimalAnswer: r.OptimalAnswer,
			CreatedAt:     r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return nil, out, nil
}
