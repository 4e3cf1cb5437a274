// Package aggregate reduces several free-text agent answers to one answer by
// confidence-weighted voting, with a synthesis fallback when no answer wins a
// majority. Everything here is pure and stateless: the same input always
// produces the same outcome.
package aggregate

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultConfidence is assumed for answers that carry no confidence of their
// own.
const DefaultConfidence = 0.5

// Answer is one raw agent answer entering aggregation.
type Answer struct {
	Agent string `json:"agent"`
	Raw   string `json:"raw"`
}

// Standardized is the total, tagged parse of one raw answer: either a
// structured record the agent emitted deliberately, or the whole text taken
// as a plain answer at default confidence.
type Standardized struct {
	Agent      string  `json:"agent"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`

	// Structured distinguishes the parsed-record variant from the
	// plain-text variant.
	Structured bool `json:"structured"`
}

// structuredRecord is the JSON shape agents use for structured answers.
type structuredRecord struct {
	Answer     string   `json:"answer"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Standardize parses one raw answer. It is total: every input yields a
// Standardized value. A JSON object with an "answer" key or a single-line
// "answer: ...; confidence: ...; reasoning: ..." record is parsed as
// structured; anything else is the plain-text variant. Confidence is always
// clamped to [0,1].
func Standardize(a Answer) Standardized {
	raw := strings.TrimSpace(a.Raw)

	if rec, ok := parseJSONRecord(raw); ok {
		return rec.standardized(a.Agent)
	}
	if rec, ok := parseLineRecord(raw); ok {
		return rec.standardized(a.Agent)
	}

	return Standardized{
		Agent:      a.Agent,
		Answer:     raw,
		Confidence: DefaultConfidence,
	}
}

func (r structuredRecord) standardized(agent string) Standardized {
	conf := DefaultConfidence
	if r.Confidence != nil {
		conf = clamp01(*r.Confidence)
	}
	return Standardized{
		Agent:      agent,
		Answer:     strings.TrimSpace(r.Answer),
		Confidence: conf,
		Reasoning:  strings.TrimSpace(r.Reasoning),
		Structured: true,
	}
}

// parseJSONRecord accepts a JSON object carrying at least a non-empty
// "answer" field.
func parseJSONRecord(raw string) (structuredRecord, bool) {
	if !strings.HasPrefix(raw, "{") {
		return structuredRecord{}, false
	}
	var rec structuredRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return structuredRecord{}, false
	}
	if strings.TrimSpace(rec.Answer) == "" {
		return structuredRecord{}, false
	}
	return rec, true
}

// parseLineRecord accepts single-line "key: value" records separated by
// semicolons, e.g. `answer: Paris; confidence: 0.9; reasoning: capital`.
// Leniency over strictness: unknown keys are ignored, a malformed confidence
// falls back to the default, and anything without an answer key fails the
// parse entirely.
func parseLineRecord(raw string) (structuredRecord, bool) {
	if strings.ContainsAny(raw, "\n\r") {
		return structuredRecord{}, false
	}

	var rec structuredRecord
	found := false
	for _, field := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "answer":
			rec.Answer = value
			found = value != ""
		case "confidence":
			if c, ok := parseConfidence(value); ok {
				rec.Confidence = &c
			}
		case "reasoning":
			rec.Reasoning = value
		}
	}
	return rec, found
}

// parseConfidence reads a confidence value, accepting "0.8", ".8", and
// percentage forms like "80%".
func parseConfidence(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")

	c, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if percent {
		c /= 100
	}
	return clamp01(c), true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// NormalizeKey reduces an answer to its grouping key: lower-cased, interior
// whitespace collapsed, trimmed. Keys are never shown to the user.
func NormalizeKey(answer string) string {
	return strings.ToLower(strings.Join(strings.Fields(answer), " "))
}
