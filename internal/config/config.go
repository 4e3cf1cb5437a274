// Package config loads the conclave YAML configuration file and maps it onto
// the runtime configuration of the orchestrator, the session opener, and the
// aggregator.
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/dusk-indust/conclave/internal/aggregate"
	"github.com/dusk-indust/conclave/internal/orchestrator"
)

// Config is the root configuration.
type Config struct {
	// Listen is the gateway bind address.
	Listen string `yaml:"listen,omitempty"`

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`

	// HistoryPath is the SQLite file completed runs are archived to.
	HistoryPath string `yaml:"history_path,omitempty"`

	// Validator and Synthesizer designate the agents used for the
	// cross-validation and synthesis stages.
	Validator   string `yaml:"validator,omitempty"`
	Synthesizer string `yaml:"synthesizer,omitempty"`

	// SequentialGather switches gathering from parallel to one agent at a
	// time.
	SequentialGather bool `yaml:"sequential_gather,omitempty"`

	// MajorityThreshold is the aggregator's winning fraction (0 = default 0.5).
	MajorityThreshold float64 `yaml:"majority_threshold,omitempty"`

	// PollIntervalMS is the stability detector cadence in milliseconds
	// (0 = default 500).
	PollIntervalMS int `yaml:"poll_interval_ms,omitempty"`

	// QuietPolls is the stability detector quiet period (0 = default 6).
	QuietPolls int `yaml:"quiet_polls,omitempty"`

	// Agents is the per-agent profile table, keyed by agent name.
	Agents map[string]AgentConfig `yaml:"agents,omitempty"`
}

// AgentConfig configures one agent's relay endpoint and capture profile.
type AgentConfig struct {
	// Endpoint is the session relay base URL for this agent.
	Endpoint string `yaml:"endpoint"`

	// ExtractionPoints name the relay locations text is read from.
	ExtractionPoints []string `yaml:"extraction_points,omitempty"`

	// MinLength gates answer completion (0 = default).
	MinLength int `yaml:"min_length,omitempty"`

	// MaxWaitSeconds bounds this agent's capture (0 = default 90).
	MaxWaitSeconds int `yaml:"max_wait_seconds,omitempty"`

	// Weight scales this agent's aggregation vote (0 = default 1).
	Weight float64 `yaml:"weight,omitempty"`

	// Disabled removes the agent from the default enabled set without
	// deleting its profile.
	Disabled bool `yaml:"disabled,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Listen:      ":8791",
		LogLevel:    "info",
		HistoryPath: "conclave.db",
	}
}

// Validate checks cross-field constraints after loading.
func (c Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("config: at least one agent must be configured")
	}
	for name, ag := range c.Agents {
		if ag.Endpoint == "" {
			return fmt.Errorf("config: agent %q has no endpoint", name)
		}
	}
	if c.Validator != "" {
		if _, ok := c.Agents[c.Validator]; !ok {
			return fmt.Errorf("config: validator %q is not a configured agent", c.Validator)
		}
	}
	if c.Synthesizer != "" {
		if _, ok := c.Agents[c.Synthesizer]; !ok {
			return fmt.Errorf("config: synthesizer %q is not a configured agent", c.Synthesizer)
		}
	}
	if c.MajorityThreshold < 0 || c.MajorityThreshold > 1 {
		return fmt.Errorf("config: majority_threshold must be in [0,1], got %v", c.MajorityThreshold)
	}
	return nil
}

// EnabledAgents returns the default enabled agent set in deterministic
// (name-sorted) order.
func (c Config) EnabledAgents() []orchestrator.AgentID {
	names := make([]string, 0, len(c.Agents))
	for name, ag := range c.Agents {
		if !ag.Disabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	agents := make([]orchestrator.AgentID, len(names))
	for i, name := range names {
		agents[i] = orchestrator.AgentID(name)
	}
	return agents
}

// Endpoints returns the agent -> relay endpoint mapping for the session
// opener.
func (c Config) Endpoints() map[string]string {
	eps := make(map[string]string, len(c.Agents))
	for name, ag := range c.Agents {
		eps[name] = ag.Endpoint
	}
	return eps
}

// Orchestrator maps the file configuration onto the pipeline configuration.
func (c Config) Orchestrator() orchestrator.Config {
	profiles := make(map[orchestrator.AgentID]orchestrator.AgentProfile, len(c.Agents))
	for name, ag := range c.Agents {
		profiles[orchestrator.AgentID(name)] = orchestrator.AgentProfile{
			ExtractionPoints: ag.ExtractionPoints,
			MinLength:        ag.MinLength,
			MaxWait:          time.Duration(ag.MaxWaitSeconds) * time.Second,
		}
	}

	return orchestrator.Config{
		Profiles:         profiles,
		Validator:        orchestrator.AgentID(c.Validator),
		Synthesizer:      orchestrator.AgentID(c.Synthesizer),
		PollInterval:     time.Duration(c.PollIntervalMS) * time.Millisecond,
		QuietPolls:       c.QuietPolls,
		SequentialGather: c.SequentialGather,
	}
}

// Aggregator maps the file configuration onto the aggregation configuration.
func (c Config) Aggregator() aggregate.Config {
	weights := make(map[string]float64)
	for name, ag := range c.Agents {
		if ag.Weight > 0 {
			weights[name] = ag.Weight
		}
	}
	return aggregate.Config{
		ModelWeights:      weights,
		MajorityThreshold: c.MajorityThreshold,
	}
}
