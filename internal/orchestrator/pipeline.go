package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/conclave/internal/session"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Request rejections. These surface synchronously and leave no trace in any
// active run's state.
var (
	// ErrBusy means another run is already active; requests are rejected,
	// never queued.
	ErrBusy = errors.New("orchestrator: a run is already active")

	// ErrEmptyPrompt rejects a request with no prompt.
	ErrEmptyPrompt = errors.New("orchestrator: prompt must not be empty")

	// ErrNoAgents rejects a request with an empty enabled agent set.
	ErrNoAgents = errors.New("orchestrator: enabled agent set must not be empty")
)

// Fixed fallback texts recorded when the validation or synthesis agents fail
// outright. Both failures are non-fatal; the run still completes.
const (
	validationFallback = "Cross-validation was unavailable for this run."
	synthesisFallback  = "Synthesis was unavailable for this run; see the individual agent answers."
)

// Pipeline is the orchestration core: a four-stage state machine
// (gathering, validating, synthesizing, done) over a panel of agents, with
// single-flight admission and a progress stream.
type Pipeline struct {
	cfg      Config
	runner   *Runner
	progress *ProgressReporter
	busy     atomic.Bool
	log      zerolog.Logger
}

// NewPipeline creates a Pipeline that opens agent sessions via opener.
func NewPipeline(opener session.Opener, cfg Config, log zerolog.Logger) *Pipeline {
	plog := log.With().Str("component", "pipeline").Logger()
	return &Pipeline{
		cfg:      cfg,
		runner:   NewRunner(opener, cfg, log),
		progress: NewProgressReporter(),
		log:      plog,
	}
}

// Progress returns the channel progress events are published to. Transport
// code subscribes here; the pipeline never blocks on slow consumers.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress stream. Call once the pipeline is no longer
// needed and no run is in flight.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// run is the mutable state of one active PipelineRun. It lives for exactly
// one Analyze call.
type run struct {
	id      string
	prompt  string
	agents  []AgentID
	stage   Stage
	results map[AgentID]AgentResult
}

// Analyze executes one full pipeline run. It is rejected synchronously with
// ErrBusy, ErrEmptyPrompt, or ErrNoAgents when admission fails; otherwise it
// blocks until the run reaches done or error.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (result *Result, err error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if len(req.Agents) == 0 {
		return nil, ErrNoAgents
	}

	// Single-flight admission: acquire or reject, never queue.
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.busy.Store(false)

	r := &run{
		id:      uuid.NewString(),
		prompt:  req.Prompt,
		agents:  req.Agents,
		stage:   StageIdle,
		results: make(map[AgentID]AgentResult, len(req.Agents)),
	}

	// Anything unexpected inside a stage transitions the run to error,
	// emits the terminal error event, and still releases the busy flag via
	// the deferred store above.
	defer func() {
		if rec := recover(); rec != nil {
			r.stage = StageError
			msg := fmt.Sprintf("analysis failed: %v", rec)
			p.log.Error().Str("run", r.id).Interface("panic", rec).Msg("run aborted")
			p.progress.Emit(ErrorEvent(msg))
			result = nil
			err = errors.New(msg)
		}
	}()

	p.log.Info().Str("run", r.id).Int("agents", len(r.agents)).Msg("run admitted")

	p.advance(r, StageGathering, fmt.Sprintf("Consulting %d agents...", len(r.agents)))
	if p.cfg.SequentialGather {
		p.gatherSequential(ctx, r)
	} else {
		p.gatherParallel(ctx, r)
	}

	succeeded := 0
	for _, ar := range r.results {
		if ar.Succeeded {
			succeeded++
		}
	}
	p.log.Info().Str("run", r.id).Int("succeeded", succeeded).Int("of", len(r.agents)).Msg("gathering finished")

	transcript := p.combinedTranscript(r)

	p.advance(r, StageValidating, "Cross-validating gathered answers...")
	report := p.consult(ctx, p.cfg.Validator, ServiceValidation, validationPrompt(r.prompt, transcript), validationFallback)

	p.advance(r, StageSynthesizing, "Synthesizing the optimal answer...")
	optimal := p.consult(ctx, p.cfg.Synthesizer, ServiceOptimal, synthesisPrompt(r.prompt, transcript, report), synthesisFallback)

	p.advance(r, StageDone, "Analysis complete.")

	res := &Result{
		Results:          make(map[AgentID]string, len(r.results)),
		ValidationReport: report,
		OptimalAnswer:    optimal,
		Summary:          optimal,
	}
	for agent, ar := range r.results {
		res.Results[agent] = ar.FinalText
	}

	p.log.Info().Str("run", r.id).Msg("run complete")
	return res, nil
}

// advance moves the run to the next stage and emits exactly one transition
// event. Stages never regress; a stale transition would be a programming
// error, so it panics into the recover above.
func (p *Pipeline) advance(r *run, next Stage, message string) {
	if next <= r.stage {
		panic(fmt.Sprintf("stage regression: %s -> %s", r.stage, next))
	}
	r.stage = next
	p.progress.Emit(StageEvent(next, message))
}

// gatherParallel launches one task per enabled agent concurrently and waits
// for all of them. Task failures come back as inline error text, so the
// group never errors and no agent can cancel its peers.
func (p *Pipeline) gatherParallel(ctx context.Context, r *run) {
	finals := make([]string, len(r.agents))
	g, gctx := errgroup.WithContext(ctx)

	for i, agent := range r.agents {
		g.Go(func() error {
			finals[i] = p.runner.Run(gctx, agent, r.prompt, func(text string) {
				p.progress.Emit(ChunkEvent(agent, text))
			})
			return nil
		})
	}
	_ = g.Wait()

	for i, agent := range r.agents {
		r.results[agent] = AgentResult{
			Agent:     agent,
			FinalText: finals[i],
			Succeeded: taskSucceeded(finals[i]),
		}
	}
}

// gatherSequential is the alternative gathering policy: one agent at a time,
// in enabled-set order. Same results, one session at a time.
func (p *Pipeline) gatherSequential(ctx context.Context, r *run) {
	for _, agent := range r.agents {
		final := p.runner.Run(ctx, agent, r.prompt, func(text string) {
			p.progress.Emit(ChunkEvent(agent, text))
		})
		r.results[agent] = AgentResult{
			Agent:     agent,
			FinalText: final,
			Succeeded: taskSucceeded(final),
		}
	}
}

// consult runs one designated agent (validator or synthesizer) and returns
// its answer, or fallback when the task failed outright. Chunks are tagged
// with the synthetic service id.
func (p *Pipeline) consult(ctx context.Context, agent AgentID, service AgentID, prompt, fallback string) string {
	if agent == "" {
		return fallback
	}
	text := p.runner.Run(ctx, agent, prompt, func(chunk string) {
		p.progress.Emit(ChunkEvent(service, chunk))
	})
	if !taskSucceeded(text) {
		p.log.Warn().Str("service", string(service)).Str("agent", string(agent)).Msg("designated agent failed, using fallback")
		return fallback
	}
	return text
}

// combinedTranscript concatenates every gathered answer into the transcript
// fed to the validator and synthesizer.
func (p *Pipeline) combinedTranscript(r *run) string {
	var b strings.Builder
	for _, agent := range r.agents {
		ar := r.results[agent]
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", agent, ar.FinalText)
	}
	return b.String()
}

// validationPrompt builds the cross-validation request from the original
// question and the combined transcript.
func validationPrompt(question, transcript string) string {
	var b strings.Builder
	b.WriteString("Several assistants answered the question below. ")
	b.WriteString("Compare their answers: point out agreements, contradictions, and factual errors.\n\n")
	fmt.Fprintf(&b, "## Question\n\n%s\n\n## Answers\n\n%s", question, transcript)
	return b.String()
}

// synthesisPrompt builds the synthesis request from the question, the
// transcript, and the validation report.
func synthesisPrompt(question, transcript, report string) string {
	var b strings.Builder
	b.WriteString("Merge the answers below into the single best answer to the question, ")
	b.WriteString("taking the cross-validation notes into account. Reply with the final answer only.\n\n")
	fmt.Fprintf(&b, "## Question\n\n%s\n\n## Answers\n\n%s\n## Cross-validation notes\n\n%s", question, transcript, report)
	return b.String()
}
