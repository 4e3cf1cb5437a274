package aggregate

import (
	"sort"
	"strings"
)

// Aggregation methods reported in the Outcome.
const (
	// MethodWeightedVote means one normalized answer group reached the
	// majority threshold.
	MethodWeightedVote = "weighted_vote"

	// MethodSynthesizer means no group reached the threshold and the
	// outcome is a hedged combination of the leading answers.
	MethodSynthesizer = "synthesizer"
)

// ReasonNoWeight tags the degenerate outcome produced from zero total weight.
const ReasonNoWeight = "no-weight"

// DisagreementMarker prefixes the combined answer produced when the models
// disagree.
const DisagreementMarker = "[disagreement among models]"

// maxFallbackGroups bounds how many leading answers the synthesis fallback
// combines.
const maxFallbackGroups = 3

// Config tunes aggregation.
type Config struct {
	// ModelWeights overrides the per-agent vote weight. Missing agents
	// weigh 1.
	ModelWeights map[string]float64

	// MajorityThreshold is the fraction of total weight the winning group
	// must reach. Zero means the default of 0.5.
	MajorityThreshold float64
}

// DefaultMajorityThreshold is used when Config.MajorityThreshold is zero.
const DefaultMajorityThreshold = 0.5

// Outcome is the result of one aggregation call.
type Outcome struct {
	// FinalAnswer is the winning answer, the combined disagreement answer,
	// or empty for the no-weight case.
	FinalAnswer string `json:"finalAnswer"`

	// Method is MethodWeightedVote or MethodSynthesizer; empty for the
	// no-weight case.
	Method string `json:"method,omitempty"`

	// Confidence is winning weight over total weight for a vote; zero
	// otherwise.
	Confidence float64 `json:"confidence"`

	// Reason is ReasonNoWeight for the degenerate case.
	Reason string `json:"reason,omitempty"`
}

// modelWeight returns the configured weight for an agent, defaulting to 1.
func (c Config) modelWeight(agent string) float64 {
	if w, ok := c.ModelWeights[agent]; ok {
		return w
	}
	return 1
}

func (c Config) threshold() float64 {
	if c.MajorityThreshold > 0 {
		return c.MajorityThreshold
	}
	return DefaultMajorityThreshold
}

// group is one set of near-duplicate answers sharing a normalized key.
type group struct {
	key            string
	representative string // first answer by arrival order
	weight         float64
	arrival        int // arrival index of the representative, for stable ties
}

// Aggregate standardizes, weights, groups, and votes over the raw answers.
// Empty answers carry no vote. The call is idempotent: aggregating the same
// input twice yields the same Outcome.
func Aggregate(answers []Answer, cfg Config) Outcome {
	groups := make(map[string]*group)
	order := make([]*group, 0, len(answers))
	total := 0.0

	for i, a := range answers {
		std := Standardize(a)
		if std.Answer == "" {
			continue
		}

		weight := std.Confidence * cfg.modelWeight(a.Agent)
		total += weight

		key := NormalizeKey(std.Answer)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, representative: std.Answer, arrival: i}
			groups[key] = g
			order = append(order, g)
		}
		g.weight += weight
	}

	if total <= 0 {
		return Outcome{Reason: ReasonNoWeight}
	}

	// Rank groups by weight, breaking ties by arrival order so the outcome
	// is deterministic.
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].weight != order[j].weight {
			return order[i].weight > order[j].weight
		}
		return order[i].arrival < order[j].arrival
	})

	winner := order[0]
	if winner.weight >= cfg.threshold()*total {
		return Outcome{
			FinalAnswer: winner.representative,
			Method:      MethodWeightedVote,
			Confidence:  winner.weight / total,
		}
	}

	// No majority: hedge with the leading answers instead of picking one.
	top := order
	if len(top) > maxFallbackGroups {
		top = top[:maxFallbackGroups]
	}

	seen := make(map[string]bool, len(top))
	reps := make([]string, 0, len(top))
	for _, g := range top {
		if seen[g.key] {
			continue
		}
		seen[g.key] = true
		reps = append(reps, g.representative)
	}

	return Outcome{
		FinalAnswer: DisagreementMarker + " " + strings.Join(reps, " | "),
		Method:      MethodSynthesizer,
		Confidence:  winner.weight / total,
	}
}
