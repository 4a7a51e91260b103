package scoring

import (
	"context"
	"log/slog"
	"strings"
)

// speakingSystemPrompt instructs the grader model. The reply contract is
// plain JSON so the extractor can recover it from prose-wrapped output.
const speakingSystemPrompt = "You are a VERY STRICT IELTS Speaking examiner.\n" +
	"Evaluate based on: Fluency & Coherence, Lexical Resource, Grammar Range & Accuracy.\n" +
	"Be strict: short/off-topic answers must be penalized.\n" +
	"Return ONLY JSON with keys:\n" +
	"{\n" +
	"  \"score_20_75\": number (20..75),\n" +
	"  \"feedback_uz\": string (Uzbek, practical),\n" +
	"  \"corrected_best_version\": string (English improved),\n" +
	"  \"per_question\": [\n" +
	"    {\"relevance_to_question\":0..5,\"mistakes\":[string,...]}\n" +
	"  ]\n" +
	"}\n" +
	"Mistakes must be short but specific (tense, articles, S-V agreement, word choice, cohesion, etc.).\n"

// speakingFallbackScore is the fixed score reported when every grader model
// fails. Deliberately low so an outage never inflates results.
const speakingFallbackScore = 24

// QA is one asked question paired with the transcribed answer.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SpeakingResult is the outcome of grading one speaking exam.
type SpeakingResult struct {
	// Score is the final clamped and relevance-capped score.
	Score int

	// CEFR and IELTS are the band labels derived from Score.
	CEFR  string
	IELTS string

	// FeedbackUZ is practical feedback in Uzbek.
	FeedbackUZ string

	// Corrected is an improved English rendition of the answers.
	Corrected string

	// AvgRelevance is the mean of the per-question relevance judgements,
	// 0 when none were returned.
	AvgRelevance float64

	// Mistakes lists short concrete errors, at most 10.
	Mistakes []string

	// Fallback is true when no grader model responded and the result is the
	// deterministic placeholder.
	Fallback bool
}

// speakingReply mirrors the grader's JSON contract with loose typing for the
// fields models get wrong most often.
type speakingReply struct {
	Score       any    `json:"score_20_75"`
	FeedbackUZ  string `json:"feedback_uz"`
	Corrected   string `json:"corrected_best_version"`
	PerQuestion []struct {
		Relevance any `json:"relevance_to_question"`
		Mistakes  any `json:"mistakes"`
	} `json:"per_question"`
}

// EvaluateSpeaking grades the answered questions of one speaking exam.
// When every grader model fails it degrades to a fixed low score instead of
// returning an error, so the user always gets a result.
func (g *Grader) EvaluateSpeaking(ctx context.Context, items []QA) SpeakingResult {
	var reply speakingReply
	err := g.gradeJSON(ctx, speakingSystemPrompt, map[string]any{"items": items}, &reply)
	if err != nil {
		slog.Error("speaking evaluation failed, using fallback", "error", err)
		return speakingFallback(items)
	}

	score := Clamp(asInt(reply.Score, ScoreMin))

	var (
		rels     []float64
		mistakes []string
	)
	for _, q := range reply.PerQuestion {
		if r, ok := asFloat(q.Relevance); ok {
			rels = append(rels, r)
		}
		mistakes = append(mistakes, safeStrings(q.Mistakes, 3)...)
	}

	var avgRel float64
	for _, r := range rels {
		avgRel += r
	}
	if len(rels) > 0 {
		avgRel /= float64(len(rels))
	}
	score = enforceRelevanceCaps(score, avgRel)

	if len(mistakes) > 10 {
		mistakes = mistakes[:10]
	}

	cefr := CEFRFromScore(score)
	return SpeakingResult{
		Score:        score,
		CEFR:         cefr,
		IELTS:        IELTSFromCEFR(cefr),
		FeedbackUZ:   nonBlank(reply.FeedbackUZ),
		Corrected:    nonBlank(reply.Corrected),
		AvgRelevance: avgRel,
		Mistakes:     mistakes,
	}
}

// speakingFallback builds the deterministic result used when grading is
// unavailable. The corrected text is just the raw answers joined, so the
// user still sees what was understood.
func speakingFallback(items []QA) SpeakingResult {
	var parts []string
	for _, it := range items {
		if a := strings.TrimSpace(it.Answer); a != "" {
			parts = append(parts, a)
		}
	}
	joined := strings.Join(parts, " ")

	score := Clamp(speakingFallbackScore)
	cefr := CEFRFromScore(score)
	return SpeakingResult{
		Score:      score,
		CEFR:       cefr,
		IELTS:      IELTSFromCEFR(cefr),
		FeedbackUZ: "Baholash xizmati ishlamadi. Taxminiy natija.",
		Corrected:  nonBlank(joined),
		Mistakes:   []string{"Baholash xizmati ishlamadi (fallback)"},
		Fallback:   true,
	}
}

// nonBlank substitutes an em-dash placeholder for empty strings, matching the
// bot's message formatting.
func nonBlank(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "—"
	}
	return s
}
