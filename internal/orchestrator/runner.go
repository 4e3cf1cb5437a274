package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dusk-indust/conclave/internal/session"
)

// Runner executes one agent task: open a session, submit the prompt, wait
// for the streamed answer to stabilize, and return the final text. Failures
// never escape Run; they come back as inline "Error: ..." strings so one
// broken agent cannot abort a run.
type Runner struct {
	opener session.Opener
	cfg    Config
	log    zerolog.Logger
}

// NewRunner creates a Runner that opens sessions via opener and looks up
// capture profiles in cfg.
func NewRunner(opener session.Opener, cfg Config, log zerolog.Logger) *Runner {
	return &Runner{
		opener: opener,
		cfg:    cfg,
		log:    log.With().Str("component", "runner").Logger(),
	}
}

// Run executes the task for one agent. onChunk receives each growing text
// snapshot; it may be nil. The returned string is either the stabilized
// answer, the timeout sentinel, or an "Error: ..." description.
func (r *Runner) Run(ctx context.Context, agent AgentID, prompt string, onChunk func(string)) string {
	profile := r.cfg.profile(agent)

	sess, err := r.opener.Open(ctx, string(agent))
	if err != nil {
		r.log.Warn().Str("agent", string(agent)).Err(err).Msg("open session failed")
		return errorText("open session", err)
	}
	defer sess.Close()

	if err := sess.Submit(ctx, prompt); err != nil {
		r.log.Warn().Str("agent", string(agent)).Err(err).Msg("submit prompt failed")
		return errorText("submit prompt", err)
	}

	final := awaitStable(ctx,
		func(ctx context.Context) (string, error) {
			return sess.BestText(ctx, profile.ExtractionPoints)
		},
		stabilityOptions{
			interval:   r.cfg.pollInterval(),
			quietPolls: r.cfg.quietPolls(),
			minLength:  profile.MinLength,
			maxWait:    profile.MaxWait,
		},
		onChunk,
	)

	r.log.Debug().Str("agent", string(agent)).Int("len", len(final)).Msg("task resolved")
	return final
}

// errorText formats a task failure as the inline error string the pipeline
// records instead of failing the run.
func errorText(op string, err error) string {
	return fmt.Sprintf("Error: %s: %v", op, err)
}

// taskSucceeded reports whether a task's final text is a real answer rather
// than an inline failure or a timed-out capture.
func taskSucceeded(text string) bool {
	return text != TimeoutSentinel && !strings.HasPrefix(text, "Error:")
}
