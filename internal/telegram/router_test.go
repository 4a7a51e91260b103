package telegram

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/speakingzone/examiner/internal/scoring"
	"github.com/speakingzone/examiner/internal/transport"
)

func TestFormatWritingResult(t *testing.T) {
	res := scoring.WritingResult{
		Score:           48,
		CEFR:            "B1",
		IELTS:           "~4.0–5.0",
		FeedbackUZ:      "Yaxshi urinish.",
		OverallMistakes: []string{"articles", "tense"},
		Corrected:       "Dear Sir, ...",
		PerTask: []scoring.TaskReview{
			{TaskNo: 1, Strengths: []string{"clear"}, Issues: []string{"short"}, GrammarMistakes: []string{"article missing"}, Rewrite: "Hi Tom, ..."},
		},
	}

	out := formatWritingResult(res)
	for _, want := range []string{
		"🏷 CEFR: B1",
		"⭐ Ball: 48/75",
		"- articles\n- tense",
		"🧩 Task 1:",
		"✅ Kuchli tomonlar: clear",
		"✍️ Rewrite:\nHi Tom, ...",
		"Dear Sir, ...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("result missing %q:\n%s", want, out)
		}
	}
}

func TestFormatWritingResultEmptyPerTask(t *testing.T) {
	out := formatWritingResult(scoring.WritingResult{Score: 30, CEFR: "A2"})
	if !strings.Contains(out, "❗ Umumiy xatolar:\n—") {
		t.Errorf("missing overall placeholder:\n%s", out)
	}
	if !strings.Contains(out, "\n—\n") {
		t.Errorf("missing per-task placeholder:\n%s", out)
	}
}

func TestReplyMarkup(t *testing.T) {
	if replyMarkup(transport.KeyboardNone) != nil {
		t.Error("KeyboardNone should map to nil markup")
	}

	markup, ok := replyMarkup(transport.KeyboardMain).(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("KeyboardMain markup has type %T", replyMarkup(transport.KeyboardMain))
	}
	if markup.Keyboard[0][0].Text != btnSpeaking {
		t.Errorf("main keyboard first button = %q", markup.Keyboard[0][0].Text)
	}

	dict, _ := replyMarkup(transport.KeyboardDictionary).(tgbotapi.ReplyKeyboardMarkup)
	found := false
	for _, row := range dict.Keyboard {
		for _, b := range row {
			if b.Text == btnBack {
				found = true
			}
		}
	}
	if !found {
		t.Error("dictionary keyboard has no back button")
	}
}
