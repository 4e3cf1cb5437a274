package aggregate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// structured builds a structured raw answer with an explicit confidence.
func structured(answer string, confidence float64) string {
	return fmt.Sprintf(`{"answer": %q, "confidence": %v}`, answer, confidence)
}

func TestAggregate_WeightedMajority(t *testing.T) {
	answers := []Answer{
		{Agent: "a", Raw: structured("Paris", 0.9)},
		{Agent: "b", Raw: structured("Paris", 0.8)},
		{Agent: "c", Raw: structured("Paris", 0.7)},
		{Agent: "d", Raw: structured("Lyon", 0.6)},
	}

	out := Aggregate(answers, Config{})

	assert.Equal(t, "Paris", out.FinalAnswer)
	assert.Equal(t, MethodWeightedVote, out.Method)
	assert.InDelta(t, 0.8, out.Confidence, 1e-9)
	assert.Empty(t, out.Reason)
}

func TestAggregate_NearDuplicatesGroupTogether(t *testing.T) {
	answers := []Answer{
		{Agent: "a", Raw: "Paris"},
		{Agent: "b", Raw: "  paris "},
		{Agent: "c", Raw: "PARIS"},
		{Agent: "d", Raw: "Lyon"},
	}

	out := Aggregate(answers, Config{})

	require.Equal(t, MethodWeightedVote, out.Method)
	// The first arrival represents the group, normalization is never shown.
	assert.Equal(t, "Paris", out.FinalAnswer)
	assert.InDelta(t, 0.75, out.Confidence, 1e-9)
}

func TestAggregate_DisagreementFallsBackToSynthesizer(t *testing.T) {
	answers := []Answer{
		{Agent: "a", Raw: "Paris"},
		{Agent: "b", Raw: "Lyon"},
		{Agent: "c", Raw: "Marseille"},
		{Agent: "d", Raw: "Nice"},
	}

	out := Aggregate(answers, Config{})

	assert.Equal(t, MethodSynthesizer, out.Method)
	assert.True(t, strings.HasPrefix(out.FinalAnswer, DisagreementMarker))
	// Top groups by weight with ties broken by arrival order.
	assert.Contains(t, out.FinalAnswer, "Paris")
	assert.Contains(t, out.FinalAnswer, "Lyon")
	assert.Contains(t, out.FinalAnswer, "Marseille")
}

func TestAggregate_EmptyInputReturnsNoWeight(t *testing.T) {
	out := Aggregate(nil, Config{})

	assert.Empty(t, out.FinalAnswer)
	assert.Empty(t, out.Method)
	assert.Zero(t, out.Confidence)
	assert.Equal(t, ReasonNoWeight, out.Reason)
}

func TestAggregate_BlankAnswersCarryNoWeight(t *testing.T) {
	out := Aggregate([]Answer{
		{Agent: "a", Raw: "   "},
		{Agent: "b", Raw: ""},
	}, Config{})

	assert.Equal(t, ReasonNoWeight, out.Reason)
	assert.Empty(t, out.FinalAnswer)
}

func TestAggregate_Idempotent(t *testing.T) {
	answers := []Answer{
		{Agent: "a", Raw: structured("Paris", 0.9)},
		{Agent: "b", Raw: "Lyon"},
		{Agent: "c", Raw: "answer: Marseille; confidence: 0.4"},
	}

	first := Aggregate(answers, Config{})
	second := Aggregate(answers, Config{})

	assert.Equal(t, first, second)
}

func TestAggregate_ModelWeightsShiftTheVote(t *testing.T) {
	answers := []Answer{
		{Agent: "trusted", Raw: "Paris"},
		{Agent: "noisy", Raw: "Lyon"},
	}
	cfg := Config{
		ModelWeights: map[string]float64{"trusted": 3, "noisy": 0.5},
	}

	out := Aggregate(answers, cfg)

	assert.Equal(t, MethodWeightedVote, out.Method)
	assert.Equal(t, "Paris", out.FinalAnswer)
	assert.InDelta(t, 3.0/3.5, out.Confidence, 1e-9)
}

func TestAggregate_CustomThreshold(t *testing.T) {
	answers := []Answer{
		{Agent: "a", Raw: "Paris"},
		{Agent: "b", Raw: "Paris"},
		{Agent: "c", Raw: "Lyon"},
	}

	// Two of three agree: enough at the default threshold, not at 0.9.
	relaxed := Aggregate(answers, Config{})
	assert.Equal(t, MethodWeightedVote, relaxed.Method)

	strict := Aggregate(answers, Config{MajorityThreshold: 0.9})
	assert.Equal(t, MethodSynthesizer, strict.Method)
}

func TestAggregate_FallbackDeduplicatesRepresentatives(t *testing.T) {
	// Confidence split keeps every group under the threshold while two raw
	// answers normalize into the same group.
	answers := []Answer{
		{Agent: "a", Raw: structured("Paris", 0.4)},
		{Agent: "b", Raw: structured("  paris ", 0.2)},
		{Agent: "c", Raw: structured("Lyon", 0.5)},
		{Agent: "d", Raw: structured("Marseille", 0.5)},
	}

	out := Aggregate(answers, Config{MajorityThreshold: 0.6})

	require.Equal(t, MethodSynthesizer, out.Method)
	assert.Equal(t, 1, strings.Count(out.FinalAnswer, "Paris"),
		"grouped answers appear once in the combined result")
}
