package scoring

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const writingSystemPrompt = "You are a VERY STRICT IELTS/CEFR Writing examiner and English teacher.\n" +
	"Evaluate 3 tasks: (1) friend message, (2) manager email, (3) essay.\n" +
	"Score must be realistic. Penalize:\n" +
	"- wrong format (email structure, greeting/closing),\n" +
	"- grammar errors (tense, S-V agreement, articles, prepositions, punctuation),\n" +
	"- weak coherence, repetition, poor vocabulary, off-topic.\n" +
	"Return ONLY valid JSON:\n" +
	"{\n" +
	"  \"score_20_75\": number (20..75),\n" +
	"  \"feedback_uz\": string (Uzbek, practical),\n" +
	"  \"overall_mistakes\": [string,...],\n" +
	"  \"corrected_best_version\": string,\n" +
	"  \"per_task\": [\n" +
	"    {\"task_no\":1|2|3,\"strengths\":[...],\"issues\":[...],\"grammar_mistakes\":[...],\"rewrite\":string}\n" +
	"  ]\n" +
	"}\n" +
	"Rules:\n" +
	"- If any task answer is missing/too short/off-topic, CAP score hard.\n" +
	"- grammar_mistakes must name exact type.\n" +
	"- rewrite must keep original meaning but be natural.\n"

// writingFallbackScore is the fixed score used when no grader model responds.
const writingFallbackScore = 30

// WritingTask pairs one prompt with the user's answer for it.
type WritingTask struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// TaskReview is the grader's per-task breakdown.
type TaskReview struct {
	TaskNo          int
	Strengths       []string
	Issues          []string
	GrammarMistakes []string
	Rewrite         string
}

// WritingResult is the outcome of grading one writing submission.
type WritingResult struct {
	Score           int
	CEFR            string
	IELTS           string
	FeedbackUZ      string
	OverallMistakes []string
	Corrected       string
	PerTask         []TaskReview

	// Fallback is true when the result is the deterministic placeholder.
	Fallback bool
}

type writingReply struct {
	Score      any    `json:"score_20_75"`
	FeedbackUZ string `json:"feedback_uz"`
	Overall    any    `json:"overall_mistakes"`
	Corrected  string `json:"corrected_best_version"`
	PerTask    []struct {
		TaskNo    any    `json:"task_no"`
		Strengths any    `json:"strengths"`
		Issues    any    `json:"issues"`
		Grammar   any    `json:"grammar_mistakes"`
		Rewrite   string `json:"rewrite"`
	} `json:"per_task"`
}

// EvaluateWriting grades a three-task writing submission. Like speaking,
// grader outage degrades to a fixed low score rather than an error.
func (g *Grader) EvaluateWriting(ctx context.Context, tasks []WritingTask) WritingResult {
	var reply writingReply
	err := g.gradeJSON(ctx, writingSystemPrompt, map[string]any{"tasks": tasks}, &reply)
	if err != nil {
		slog.Error("writing evaluation failed, using fallback", "error", err)
		return writingFallback(tasks)
	}

	score := Clamp(asInt(reply.Score, writingFallbackScore))

	var perTask []TaskReview
	for _, t := range reply.PerTask {
		perTask = append(perTask, TaskReview{
			TaskNo:          asInt(t.TaskNo, 0),
			Strengths:       safeStrings(t.Strengths, 3),
			Issues:          safeStrings(t.Issues, 3),
			GrammarMistakes: safeStrings(t.Grammar, 4),
			Rewrite:         strings.TrimSpace(t.Rewrite),
		})
	}

	cefr := CEFRFromScore(score)
	return WritingResult{
		Score:           score,
		CEFR:            cefr,
		IELTS:           IELTSFromCEFR(cefr),
		FeedbackUZ:      nonBlank(reply.FeedbackUZ),
		OverallMistakes: safeStrings(reply.Overall, 10),
		Corrected:       nonBlank(reply.Corrected),
		PerTask:         perTask,
	}
}

func writingFallback(tasks []WritingTask) WritingResult {
	var parts []string
	for _, t := range tasks {
		if a := strings.TrimSpace(t.Answer); a != "" {
			parts = append(parts, a)
		}
	}
	joined := strings.Join(parts, "\n\n")

	score := Clamp(writingFallbackScore)
	cefr := CEFRFromScore(score)
	return WritingResult{
		Score:           score,
		CEFR:            cefr,
		IELTS:           IELTSFromCEFR(cefr),
		FeedbackUZ:      "Writing tekshirish xizmati ishlamadi. Keyinroq urinib ko‘ring.",
		OverallMistakes: []string{"Baholash xizmati ishlamadi (fallback)"},
		Corrected:       nonBlank(joined),
		Fallback:        true,
	}
}

// Task list markers at line starts. Dotted numbering is normalised to the
// parenthesised form before matching.
var (
	taskMark1 = regexp.MustCompile(`(?m)^\s*1\)\s*`)
	taskMark2 = regexp.MustCompile(`(?m)^\s*2\)\s*`)
	taskMark3 = regexp.MustCompile(`(?m)^\s*3\)\s*`)
)

// SplitTasks cuts a single message holding all three answers into its parts.
// Users are told to format answers as "1) ... 2) ... 3) ..." but dotted
// numbering is accepted too. When no markers are found at all the whole text
// becomes the first answer.
func SplitTasks(text string) (a1, a2, a3 string) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", "", ""
	}
	t = strings.NewReplacer("1.", "1)", "2.", "2)", "3.", "3)").Replace(t)

	loc1 := taskMark1.FindStringIndex(t)
	loc2 := taskMark2.FindStringIndex(t)
	loc3 := taskMark3.FindStringIndex(t)

	if loc1 != nil {
		stop := len(t)
		if loc2 != nil && loc2[0] >= loc1[1] {
			stop = loc2[0]
		}
		a1 = strings.TrimSpace(t[loc1[1]:stop])
	}
	if loc2 != nil {
		stop := len(t)
		if loc3 != nil && loc3[0] >= loc2[1] {
			stop = loc3[0]
		}
		a2 = strings.TrimSpace(t[loc2[1]:stop])
	}
	if loc3 != nil {
		a3 = strings.TrimSpace(t[loc3[1]:])
	}

	if a1 == "" && a2 == "" && a3 == "" {
		return t, "", ""
	}
	return a1, a2, a3
}
