package evaluation

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/siherrmann/hoprag/model"
)

// Score holds the metrics of one prediction against its gold answer.
type Score struct {
	ExactMatch      float64 `json:"exact_match"`
	F1              float64 `json:"token_f1"`
	Precision       float64 `json:"token_precision"`
	Recall          float64 `json:"token_recall"`
	ContainsExact   float64 `json:"contains_exact"`
	ContainsPartial float64 `json:"contains_partial"`
}

// Stat summarizes one metric over a batch.
type Stat struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Report aggregates the scores of a batch.
type Report struct {
	Count           int     `json:"num_examples"`
	Failed          int     `json:"num_failed"`
	ExactMatch      Stat    `json:"exact_match"`
	F1              Stat    `json:"token_f1"`
	Precision       Stat    `json:"token_precision"`
	Recall          Stat    `json:"token_recall"`
	ContainsExact   Stat    `json:"contains_exact"`
	ContainsPartial Stat    `json:"contains_partial"`
	Scores          []Score `json:"scores"`
}

// NormalizeText lowercases, drops punctuation and collapses whitespace.
func NormalizeText(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ExactMatch is 1 when both texts normalize to the same string.
func ExactMatch(predicted string, gold string) float64 {
	if NormalizeText(predicted) == NormalizeText(gold) {
		return 1
	}
	return 0
}

// TokenF1 compares the sets of normalized tokens.
func TokenF1(predicted string, gold string) (f1 float64, precision float64, recall float64) {
	predTokens := tokenSet(predicted)
	goldTokens := tokenSet(gold)
	if len(predTokens) == 0 || len(goldTokens) == 0 {
		return 0, 0, 0
	}

	common := 0
	for token := range predTokens {
		if goldTokens[token] {
			common++
		}
	}
	precision = float64(common) / float64(len(predTokens))
	recall = float64(common) / float64(len(goldTokens))
	if precision+recall == 0 {
		return 0, precision, recall
	}
	return 2 * precision * recall / (precision + recall), precision, recall
}

// Contains reports whether the prediction contains the whole gold answer and
// which share of gold words occur in it.
func Contains(predicted string, gold string) (exact float64, partial float64) {
	pred := NormalizeText(predicted)
	goldNorm := NormalizeText(gold)
	goldWords := strings.Fields(goldNorm)
	if len(goldWords) == 0 {
		return 0, 0
	}

	if strings.Contains(pred, goldNorm) {
		exact = 1
	}
	matches := 0
	for _, word := range goldWords {
		if strings.Contains(pred, word) {
			matches++
		}
	}
	return exact, float64(matches) / float64(len(goldWords))
}

// Evaluate scores one prediction.
func Evaluate(predicted string, gold string) Score {
	f1, precision, recall := TokenF1(predicted, gold)
	containsExact, containsPartial := Contains(predicted, gold)
	return Score{
		ExactMatch:      ExactMatch(predicted, gold),
		F1:              f1,
		Precision:       precision,
		Recall:          recall,
		ContainsExact:   containsExact,
		ContainsPartial: containsPartial,
	}
}

// EvaluateBatch scores every item with a gold answer. Failed items score zero.
func EvaluateBatch(items []*model.BatchItem) *Report {
	report := &Report{Scores: []Score{}}
	for _, item := range items {
		if item == nil || item.GoldAnswer == "" {
			continue
		}
		score := Score{}
		if item.Failed {
			report.Failed++
		} else {
			score = Evaluate(item.PredictedAnswer, item.GoldAnswer)
		}
		report.Scores = append(report.Scores, score)
	}
	report.Count = len(report.Scores)

	report.ExactMatch = summarize(report.Scores, func(s Score) float64 { return s.ExactMatch })
	report.F1 = summarize(report.Scores, func(s Score) float64 { return s.F1 })
	report.Precision = summarize(report.Scores, func(s Score) float64 { return s.Precision })
	report.Recall = summarize(report.Scores, func(s Score) float64 { return s.Recall })
	report.ContainsExact = summarize(report.Scores, func(s Score) float64 { return s.ContainsExact })
	report.ContainsPartial = summarize(report.Scores, func(s Score) float64 { return s.ContainsPartial })
	return report
}

func summarize(scores []Score, metric func(Score) float64) Stat {
	if len(scores) == 0 {
		return Stat{}
	}

	values := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		values[i] = metric(s)
		sum += values[i]
	}
	sort.Float64s(values)

	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}

	median := values[len(values)/2]
	if len(values)%2 == 0 {
		median = (values[len(values)/2-1] + values[len(values)/2]) / 2
	}

	return Stat{
		Mean:   mean,
		Std:    math.Sqrt(variance / float64(len(values))),
		Median: median,
		Min:    values[0],
		Max:    values[len(values)-1],
	}
}

func tokenSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, token := range strings.Fields(NormalizeText(text)) {
		set[token] = true
	}
	return set
}
