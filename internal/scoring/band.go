// Package scoring implements exam grading: the 20–75 point scale with its
// CEFR and approximate IELTS band mappings, and the strict speaking and
// writing evaluators that run answers through a failover chain of grader
// models.
package scoring

// ScoreMin and ScoreMax bound the raw point scale.
const (
	ScoreMin = 20
	ScoreMax = 75
)

// Clamp forces x into the [ScoreMin, ScoreMax] range.
func Clamp(x int) int {
	if x < ScoreMin {
		return ScoreMin
	}
	if x > ScoreMax {
		return ScoreMax
	}
	return x
}

// CEFRFromScore maps a raw score to its CEFR level. The input is clamped
// first, so every integer maps to a level.
func CEFRFromScore(score int) string {
	s := Clamp(score)
	switch {
	case s <= 27:
		return "A1"
	case s <= 37:
		return "A2"
	case s <= 50:
		return "B1"
	case s <= 64:
		return "B2"
	case s <= 73:
		return "C1"
	default:
		return "C2"
	}
}

// IELTSFromCEFR returns the approximate IELTS band range shown to users for
// a CEFR level. Unknown levels map to the A2 range.
func IELTSFromCEFR(cefr string) string {
	switch cefr {
	case "A1":
		return "~1.0–2.5"
	case "A2":
		return "~3.0–3.5"
	case "B1":
		return "~4.0–5.0"
	case "B2":
		return "~5.5–6.5"
	case "C1":
		return "~7.0–8.0"
	case "C2":
		return "~8.5–9.0"
	default:
		return "~3.0–3.5"
	}
}

// enforceRelevanceCaps lowers a score when the grader judged the answers
// mostly off-topic. Average relevance below 2 of 5 caps the result at the A2
// ceiling; relevance below 3 denies B1 and above.
func enforceRelevanceCaps(score int, avgRelevance float64) int {
	s := Clamp(score)
	if avgRelevance < 2.0 {
		return min(s, 37)
	}
	if avgRelevance < 3.0 && s >= 38 {
		return 37
	}
	return s
}
