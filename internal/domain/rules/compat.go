package rules

import "strings"

const (
	bioTokenCeiling   = 10
	hobbyTagCeiling   = 5
	ageTightDiffYears = 2
	ageLooseDiffYears = 5
)

// ScoreWeights is the configured contribution ceiling of each sub-score.
type ScoreWeights struct {
	Age        float64
	University float64
	Bio        float64
	Hobbies    float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Age:        30,
		University: 20,
		Bio:        25,
		Hobbies:    25,
	}
}

// CompatibilityInput is the slice of a profile the score depends on.
type CompatibilityInput struct {
	Age        int
	University string
	Bio        string
	Hobbies    string
}

// CompatibilityScore is a weighted sum of independent sub-scores. Each
// sub-score is capped at its weight, so the total is bounded by the sum of
// weights. The age tier is a step function on the absolute difference, which
// makes the sub-score symmetric in the two users.
func CompatibilityScore(w ScoreWeights, a, b CompatibilityInput) float64 {
	score := w.Age * ageTier(a.Age, b.Age)

	if a.University != "" && a.University == b.University {
		score += w.University
	}

	score += w.Bio * overlapRatio(bioTokens(a.Bio), bioTokens(b.Bio), bioTokenCeiling)
	score += w.Hobbies * overlapRatio(hobbyTags(a.Hobbies), hobbyTags(b.Hobbies), hobbyTagCeiling)

	return score
}

func ageTier(a, b int) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= ageTightDiffYears:
		return 1.0
	case diff <= ageLooseDiffYears:
		return 0.7
	default:
		return 0.3
	}
}

func overlapRatio(a, b map[string]struct{}, ceiling int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	common := 0
	for token := range a {
		if _, ok := b[token]; ok {
			common++
		}
	}
	if common > ceiling {
		common = ceiling
	}

	return float64(common) / float64(ceiling)
}

func bioTokens(bio string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(bio))
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}

func hobbyTags(hobbies string) map[string]struct{} {
	parts := strings.Split(strings.ToLower(hobbies), ",")
	tags := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		tag := strings.TrimSpace(p)
		if tag == "" {
			continue
		}
		tags[tag] = struct{}{}
	}
	return tags
}
