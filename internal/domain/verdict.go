package domain

import "strings"

// Verdict is the outcome label of a classification.
type Verdict string

const (
	VerdictTrue  Verdict = "TRUE"
	VerdictFalse Verdict = "FALSE"
	VerdictMixed Verdict = "MIXED"
	VerdictNoise Verdict = "NOISE"
)

// Verdicts lists every valid label.
var Verdicts = []Verdict{VerdictTrue, VerdictFalse, VerdictMixed, VerdictNoise}

// ParseVerdict validates a user supplied label.
func ParseVerdict(value string) (Verdict, bool) {
	v := Verdict(strings.ToUpper(strings.TrimSpace(value)))
	for _, known := range Verdicts {
		if v == known {
			return v, true
		}
	}
	return "", false
}

// ClassificationResult is what the classification engine returns for a post.
type ClassificationResult struct {
	Verdict    Verdict
	IsRelevant bool
	Summary    string
}

// Normalize enforces that irrelevant posts are always NOISE.
func (c ClassificationResult) Normalize() ClassificationResult {
	if !c.IsRelevant {
		c.Verdict = VerdictNoise
	}
	return c
}

// Insight reports whether the result is worth surfacing.
func (c ClassificationResult) Insight() bool {
	return c.IsRelevant && c.Verdict != VerdictNoise
}
