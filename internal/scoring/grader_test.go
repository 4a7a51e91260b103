package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/speakingzone/examiner/pkg/provider/chat"
)

// scriptedChat returns a canned response (or error) per model identifier and
// records the order models were tried in.
type scriptedChat struct {
	byModel map[string]string
	errs    map[string]error
	tried   []string
}

func (s *scriptedChat) Complete(_ context.Context, req chat.Request) (string, error) {
	s.tried = append(s.tried, req.Model)
	if err, ok := s.errs[req.Model]; ok {
		return "", err
	}
	if resp, ok := s.byModel[req.Model]; ok {
		return resp, nil
	}
	return "", errors.New("unscripted model " + req.Model)
}

const speakingReplyJSON = `{
  "score_20_75": 55,
  "feedback_uz": "Yaxshi, lekin grammatikaga e'tibor bering.",
  "corrected_best_version": "I enjoy reading books in the evenings.",
  "per_question": [
    {"relevance_to_question": 4, "mistakes": ["tense error", "article missing"]},
    {"relevance_to_question": 5, "mistakes": []}
  ]
}`

func TestEvaluateSpeaking(t *testing.T) {
	p := &scriptedChat{byModel: map[string]string{"model-a": speakingReplyJSON}}
	g := NewGrader(p, []string{"model-a"})

	res := g.EvaluateSpeaking(context.Background(), []QA{
		{Question: "Do you like reading?", Answer: "yes i like read books in evening"},
	})
	if res.Fallback {
		t.Fatal("unexpected fallback result")
	}
	if res.Score != 55 {
		t.Errorf("Score = %d, want 55", res.Score)
	}
	if res.CEFR != "B2" {
		t.Errorf("CEFR = %q, want B2", res.CEFR)
	}
	if res.AvgRelevance != 4.5 {
		t.Errorf("AvgRelevance = %v, want 4.5", res.AvgRelevance)
	}
	if len(res.Mistakes) != 2 {
		t.Errorf("Mistakes = %v, want 2 entries", res.Mistakes)
	}
}

func TestEvaluateSpeakingRelevanceCap(t *testing.T) {
	reply := `{"score_20_75": 60, "feedback_uz": "x", "corrected_best_version": "y",
	  "per_question": [{"relevance_to_question": 1, "mistakes": []},
	                   {"relevance_to_question": 2, "mistakes": []}]}`
	p := &scriptedChat{byModel: map[string]string{"m": reply}}
	g := NewGrader(p, []string{"m"})

	res := g.EvaluateSpeaking(context.Background(), []QA{{Question: "q", Answer: "a"}})
	// avg relevance 1.5 < 2.0 caps the score at 37.
	if res.Score != 37 {
		t.Errorf("Score = %d, want capped 37", res.Score)
	}
	if res.CEFR != "A2" {
		t.Errorf("CEFR = %q, want A2", res.CEFR)
	}
}

func TestEvaluateSpeakingModelFailover(t *testing.T) {
	p := &scriptedChat{
		byModel: map[string]string{
			"flaky":  "sorry, I cannot produce JSON right now",
			"backup": speakingReplyJSON,
		},
	}
	g := NewGrader(p, []string{"flaky", "backup"})

	res := g.EvaluateSpeaking(context.Background(), []QA{{Question: "q", Answer: "a"}})
	if res.Fallback {
		t.Fatal("unexpected fallback result")
	}
	if res.Score != 55 {
		t.Errorf("Score = %d, want 55 from backup model", res.Score)
	}
	if len(p.tried) != 2 || p.tried[0] != "flaky" || p.tried[1] != "backup" {
		t.Errorf("tried = %v, want [flaky backup]", p.tried)
	}
}

func TestEvaluateSpeakingFallback(t *testing.T) {
	p := &scriptedChat{errs: map[string]error{
		"m1": errors.New("503"),
		"m2": errors.New("503"),
	}}
	g := NewGrader(p, []string{"m1", "m2"})

	res := g.EvaluateSpeaking(context.Background(), []QA{
		{Question: "q1", Answer: "first answer"},
		{Question: "q2", Answer: "  "},
		{Question: "q3", Answer: "third answer"},
	})
	if !res.Fallback {
		t.Fatal("expected fallback result")
	}
	if res.Score != 24 {
		t.Errorf("Score = %d, want fixed fallback 24", res.Score)
	}
	if res.CEFR != "A1" {
		t.Errorf("CEFR = %q, want A1", res.CEFR)
	}
	if res.Corrected != "first answer third answer" {
		t.Errorf("Corrected = %q, want joined non-blank answers", res.Corrected)
	}
}

const writingReplyJSON = `{
  "score_20_75": 48,
  "feedback_uz": "Email formatiga e'tibor bering.",
  "overall_mistakes": ["missing greeting", "run-on sentences"],
  "corrected_best_version": "Dear Sir, ...",
  "per_task": [
    {"task_no": 1, "strengths": ["friendly tone"], "issues": ["too short"],
     "grammar_mistakes": ["past simple misuse"], "rewrite": "Hey, could you remind me..."},
    {"task_no": 2, "strengths": [], "issues": ["no subject line"],
     "grammar_mistakes": [], "rewrite": ""}
  ]
}`

func TestEvaluateWriting(t *testing.T) {
	p := &scriptedChat{byModel: map[string]string{"m": writingReplyJSON}}
	g := NewGrader(p, []string{"m"})

	res := g.EvaluateWriting(context.Background(), []WritingTask{
		{Prompt: "p1", Answer: "a1"},
		{Prompt: "p2", Answer: "a2"},
		{Prompt: "p3", Answer: "a3"},
	})
	if res.Fallback {
		t.Fatal("unexpected fallback result")
	}
	if res.Score != 48 {
		t.Errorf("Score = %d, want 48", res.Score)
	}
	if res.CEFR != "B1" {
		t.Errorf("CEFR = %q, want B1", res.CEFR)
	}
	if len(res.OverallMistakes) != 2 {
		t.Errorf("OverallMistakes = %v", res.OverallMistakes)
	}
	if len(res.PerTask) != 2 {
		t.Fatalf("PerTask = %v, want 2 entries", res.PerTask)
	}
	if res.PerTask[0].TaskNo != 1 || res.PerTask[0].Rewrite == "" {
		t.Errorf("PerTask[0] = %+v", res.PerTask[0])
	}
}

func TestEvaluateWritingFallback(t *testing.T) {
	p := &scriptedChat{errs: map[string]error{"m": errors.New("down")}}
	g := NewGrader(p, []string{"m"})

	res := g.EvaluateWriting(context.Background(), []WritingTask{
		{Prompt: "p1", Answer: "first"},
		{Prompt: "p2", Answer: ""},
		{Prompt: "p3", Answer: "third"},
	})
	if !res.Fallback {
		t.Fatal("expected fallback result")
	}
	if res.Score != 30 {
		t.Errorf("Score = %d, want fixed fallback 30", res.Score)
	}
	if res.Corrected != "first\n\nthird" {
		t.Errorf("Corrected = %q", res.Corrected)
	}
}

func TestEvaluateSpeakingScoreClamping(t *testing.T) {
	reply := `{"score_20_75": 200, "feedback_uz": "x", "corrected_best_version": "y",
	  "per_question": [{"relevance_to_question": 5, "mistakes": []}]}`
	p := &scriptedChat{byModel: map[string]string{"m": reply}}
	g := NewGrader(p, []string{"m"})

	res := g.EvaluateSpeaking(context.Background(), []QA{{Question: "q", Answer: "a"}})
	if res.Score != 75 {
		t.Errorf("Score = %d, want clamped 75", res.Score)
	}
}

func TestSplitTasks(t *testing.T) {
	a1, a2, a3 := SplitTasks("1) hello friend\n2) dear manager\n3) my essay text")
	if a1 != "hello friend" || a2 != "dear manager" || a3 != "my essay text" {
		t.Errorf("got (%q, %q, %q)", a1, a2, a3)
	}
}

func TestSplitTasksDottedNumbering(t *testing.T) {
	a1, a2, a3 := SplitTasks("1. first\n2. second\n3. third")
	if a1 != "first" || a2 != "second" || a3 != "third" {
		t.Errorf("got (%q, %q, %q)", a1, a2, a3)
	}
}

func TestSplitTasksMultiline(t *testing.T) {
	text := "1) Hi Tom,\nhow are you?\n\n2) Dear Mr Smith,\nI lost access.\n\n3) Careers matter."
	a1, a2, a3 := SplitTasks(text)
	if !strings.Contains(a1, "how are you?") {
		t.Errorf("a1 = %q", a1)
	}
	if !strings.HasPrefix(a2, "Dear Mr Smith,") {
		t.Errorf("a2 = %q", a2)
	}
	if a3 != "Careers matter." {
		t.Errorf("a3 = %q", a3)
	}
}

func TestSplitTasksNoMarkers(t *testing.T) {
	a1, a2, a3 := SplitTasks("just one blob of text")
	if a1 != "just one blob of text" || a2 != "" || a3 != "" {
		t.Errorf("got (%q, %q, %q)", a1, a2, a3)
	}
}

func TestSplitTasksEmpty(t *testing.T) {
	a1, a2, a3 := SplitTasks("   ")
	if a1 != "" || a2 != "" || a3 != "" {
		t.Errorf("got (%q, %q, %q)", a1, a2, a3)
	}
}
