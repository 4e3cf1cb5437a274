package orchestrator

import "time"

// Defaults for the stability detector and the per-agent profile table.
const (
	// DefaultPollInterval is the cadence at which a session is polled for
	// its current best text.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultQuietPolls is how many consecutive unchanged polls declare a
	// streamed answer complete (6 polls at 500 ms = 3 s of quiet).
	DefaultQuietPolls = 6

	// DefaultMaxWait bounds how long one agent task may run overall.
	DefaultMaxWait = 90 * time.Second

	// DefaultMinLength is the minimum answer length required before quiet
	// polls start counting toward completion.
	DefaultMinLength = 30
)

// AgentProfile describes how to capture one agent's streamed answer.
type AgentProfile struct {
	// ExtractionPoints are the candidate locations the session collaborator
	// reads text from; the longest non-empty one wins each poll.
	ExtractionPoints []string

	// MinLength gates completion: quiet polls only count once the captured
	// text is longer than this.
	MinLength int

	// MaxWait bounds the whole capture for this agent.
	MaxWait time.Duration
}

// withDefaults fills zero-valued profile fields.
func (p AgentProfile) withDefaults() AgentProfile {
	if len(p.ExtractionPoints) == 0 {
		p.ExtractionPoints = []string{"response"}
	}
	if p.MinLength == 0 {
		p.MinLength = DefaultMinLength
	}
	if p.MaxWait == 0 {
		p.MaxWait = DefaultMaxWait
	}
	return p
}

// Config holds runtime configuration for the pipeline.
type Config struct {
	// Profiles is the per-agent configuration table. An agent may only be
	// enabled for a run if it has a profile.
	Profiles map[AgentID]AgentProfile

	// Validator is the agent designated to cross-validate gathered answers.
	Validator AgentID

	// Synthesizer is the agent designated to merge the gathered answers and
	// the validation report into the optimal answer.
	Synthesizer AgentID

	// PollInterval overrides the detector poll cadence. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration

	// QuietPolls overrides the detector quiet period. Zero means
	// DefaultQuietPolls.
	QuietPolls int

	// SequentialGather switches gathering from fully parallel to strictly
	// sequential in enabled-set order. Results are identical either way;
	// sequential trades latency for one-session-at-a-time resource use.
	SequentialGather bool
}

// profile returns the agent's profile with defaults applied. Unknown agents
// get a pure-default profile so a misconfigured run degrades instead of
// crashing.
func (c Config) profile(agent AgentID) AgentProfile {
	return c.Profiles[agent].withDefaults()
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}

func (c Config) quietPolls() int {
	if c.QuietPolls > 0 {
		return c.QuietPolls
	}
	return DefaultQuietPolls
}
