package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/speakingzone/examiner/internal/dictionary"
	"github.com/speakingzone/examiner/internal/exam"
	"github.com/speakingzone/examiner/internal/gate"
	"github.com/speakingzone/examiner/internal/scoring"
	"github.com/speakingzone/examiner/internal/stats"
	"github.com/speakingzone/examiner/internal/transport"
)

// Writing prompt pools. One entry per task kind today; drawing stays random
// so more prompts can be added without touching the handler.
var (
	writingFriendPrompts = []string{
		"Write a message to your friend. Ask them to remind you about an important date.",
	}
	writingManagerPrompts = []string{
		"Write an email to your manager. Explain that you lost access to a client account and need reset.",
	}
	writingEssayPrompts = []string{
		"Essay: Choosing a career: passion vs salary. Discuss.",
	}
)

// userState is per-user menu state outside the exam: which dictionary
// direction was chosen and which writing prompts are awaiting an answer.
type userState struct {
	dictMode       dictionary.Mode
	awaitingDict   bool
	writingPrompts []string
}

// WritingGrader grades a three-task writing submission.
type WritingGrader interface {
	EvaluateWriting(ctx context.Context, tasks []scoring.WritingTask) scoring.WritingResult
}

// Router dispatches incoming updates to the exam engine, the dictionary, and
// the writing evaluator, enforcing the subscription gate in front of all of
// them.
type Router struct {
	bot        *Bot
	engine     *exam.Engine
	writing    WritingGrader
	dict       *dictionary.Service
	gate       *gate.Gate
	stats      *stats.Store
	channelURL string
	adminIDs   map[int64]bool

	mu     sync.Mutex
	states map[int64]*userState
}

// NewRouter wires a router. adminIDs come from configuration.
func NewRouter(b *Bot, e *exam.Engine, w WritingGrader, d *dictionary.Service, g *gate.Gate, st *stats.Store, channelURL string, adminIDs []int64) *Router {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Router{
		bot:        b,
		engine:     e,
		writing:    w,
		dict:       d,
		gate:       g,
		stats:      st,
		channelURL: channelURL,
		adminIDs:   admins,
		states:     make(map[int64]*userState),
	}
}

// Run consumes updates until ctx is cancelled. Each update is handled in its
// own goroutine so a slow grading call never blocks other users.
func (r *Router) Run(ctx context.Context) error {
	updates := r.bot.Updates()
	defer r.bot.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram: update channel closed")
			}
			go r.handleUpdate(ctx, update)
		}
	}
}

func (r *Router) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("update handler panicked", "panic", rec)
		}
	}()

	if update.CallbackQuery != nil {
		r.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	r.handleMessage(ctx, update.Message)
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Data != checkSubCallback || cb.From == nil {
		return
	}
	uid := cb.From.ID
	r.stats.Touch(uid)

	if r.gate.Recheck(ctx, uid) {
		r.stats.MarkSubscribed(uid)
		r.send(ctx, uid, "✅ Obuna tasdiqlandi. Menu:", transport.KeyboardMain)
	} else {
		r.sendSubPrompt(uid)
	}
	r.bot.AnswerCallback(cb.ID, "")
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	uid := msg.From.ID
	r.stats.Touch(uid)

	text := strings.TrimSpace(msg.Text)

	// Commands and the back button bypass the subscription gate so an
	// unsubscribed user can always reach /start and admins keep their tools.
	switch {
	case strings.HasPrefix(text, "/start"):
		r.handleStart(ctx, uid)
		return
	case strings.HasPrefix(text, "/admin"):
		r.handleAdmin(ctx, uid)
		return
	case strings.HasPrefix(text, "/all"):
		r.handleAll(ctx, uid, text)
		return
	case strings.HasPrefix(text, "/sub"):
		r.handleSub(ctx, uid)
		return
	case strings.HasPrefix(text, "/online"):
		r.handleOnline(ctx, uid)
		return
	case text == btnBack:
		r.handleBack(ctx, uid)
		return
	}

	if !r.requireSub(ctx, uid) {
		return
	}

	if msg.Voice != nil {
		if !r.engine.InExam(uid) {
			r.send(ctx, uid, "🎤 Avval 🗣 Speaking ni boshlang.", transport.KeyboardMain)
			return
		}
		r.engine.HandleVoice(ctx, uid, msg.Voice.FileID)
		return
	}

	switch text {
	case btnSpeaking:
		r.clearState(uid)
		r.engine.Start(ctx, uid)
	case btnPause:
		r.engine.Pause(ctx, uid)
	case btnResume:
		r.engine.Resume(ctx, uid)
	case btnStop:
		r.engine.Stop(ctx, uid)
	case btnDictionary:
		if r.engine.InExam(uid) {
			r.send(ctx, uid, "⛔ Avval imtihonni to‘xtating (Stop yoki Orqaga).", transport.KeyboardNone)
			return
		}
		r.clearState(uid)
		r.send(ctx, uid, "📚 Dictionary bo‘limini tanlang:", transport.KeyboardDictionary)
	case btnUzEn:
		r.setDictMode(uid, dictionary.ModeUzEn)
		r.send(ctx, uid, "🇺🇿 Uzbekcha so‘z kiriting:", transport.KeyboardBack)
	case btnEnUz:
		r.setDictMode(uid, dictionary.ModeEnUz)
		r.send(ctx, uid, "🇬🇧 English so‘z kiriting:", transport.KeyboardBack)
	case btnWriting:
		if r.engine.InExam(uid) {
			r.send(ctx, uid, "⛔ Avval imtihonni to‘xtating (Stop yoki Orqaga).", transport.KeyboardNone)
			return
		}
		r.handleWritingStart(ctx, uid)
	default:
		r.handleFreeText(ctx, uid, text)
	}
}

func (r *Router) handleStart(ctx context.Context, uid int64) {
	r.clearState(uid)
	if !r.requireSub(ctx, uid) {
		return
	}
	r.send(ctx, uid,
		"👋 Xush kelibsiz!\n\n"+
			"🗣 Speaking — CEFR / IELTS simulyatsiya\n"+
			"📚 Dictionary — so‘z izlash\n"+
			"✍️ Writing — yozma baholash",
		transport.KeyboardMain)
}

func (r *Router) handleBack(ctx context.Context, uid int64) {
	if r.engine.InExam(uid) {
		r.engine.Abort(ctx, uid)
		return
	}
	r.clearState(uid)
	r.send(ctx, uid, "🔙 Menu", transport.KeyboardMain)
}

// requireSub enforces the channel-subscription gate. Passing the gate also
// records the user in the registry.
func (r *Router) requireSub(ctx context.Context, uid int64) bool {
	if !r.gate.Allowed(ctx, uid) {
		r.clearState(uid)
		r.sendSubPrompt(uid)
		return false
	}
	r.stats.MarkSubscribed(uid)
	return true
}

// sendSubPrompt shows the subscribe prompt with its inline keyboard. This is
// the one message the transport abstraction cannot express, so it talks to
// the API directly.
func (r *Router) sendSubPrompt(uid int64) {
	msg := tgbotapi.NewMessage(uid,
		"Botdan foydalanish uchun avval kanalga obuna bo‘ling:\n"+
			"➡️ "+r.channelURL+"\n\n"+
			"Obuna bo‘lgach, «Obunani tekshirish» ni bosing.")
	msg.ReplyMarkup = subscribeKeyboard(r.channelURL)
	if _, err := r.bot.api.Send(msg); err != nil {
		slog.Warn("subscribe prompt failed", "user_id", uid, "error", err)
	}
}

// handleFreeText routes plain text to whichever feature is awaiting input.
func (r *Router) handleFreeText(ctx context.Context, uid int64, text string) {
	if text == "" {
		return
	}

	r.mu.Lock()
	st := r.states[uid]
	var (
		awaitingDict bool
		dictMode     dictionary.Mode
		prompts      []string
	)
	if st != nil {
		awaitingDict = st.awaitingDict
		dictMode = st.dictMode
		prompts = st.writingPrompts
	}
	r.mu.Unlock()

	switch {
	case len(prompts) == 3:
		r.handleWritingAnswer(ctx, uid, prompts, text)
	case awaitingDict:
		r.handleDictionaryWord(ctx, uid, dictMode, text)
	case r.engine.InExam(uid):
		// Typed answers don't count; the exam wants voice.
		r.send(ctx, uid, "🎤 Faqat voice yuboring.", transport.KeyboardNone)
	default:
		r.send(ctx, uid, "🤔 Menyudan bo‘lim tanlang:", transport.KeyboardMain)
	}
}

func (r *Router) handleDictionaryWord(ctx context.Context, uid int64, mode dictionary.Mode, word string) {
	if mode == "" {
		if dictionary.IsUzbek(word) {
			mode = dictionary.ModeUzEn
		} else {
			mode = dictionary.ModeEnUz
		}
	}

	switch mode {
	case dictionary.ModeUzEn:
		r.send(ctx, uid, "⏳ UZ → EN tarjima qilinyapti...", transport.KeyboardNone)
		res, err := r.dict.UzToEn(ctx, word)
		if err != nil {
			slog.Warn("dictionary lookup failed", "user_id", uid, "error", err)
			r.send(ctx, uid, "❌ Tarjima topilmadi.", transport.KeyboardNone)
			return
		}
		r.send(ctx, uid, fmt.Sprintf(
			"🇺🇿 UZ: %s\n🇬🇧 EN: %s\n\n🔊 IPA: %s\n📘 Meaning: %s",
			res.Source, res.Translation, res.IPA, res.Definition),
			transport.KeyboardNone)
		if res.Audio != nil {
			if err := r.bot.SendAudioBytes(ctx, uid, "pronunciation.mp3", res.Audio, "🔊 English pronunciation"); err != nil {
				slog.Warn("pronunciation send failed", "user_id", uid, "error", err)
			}
		}

	case dictionary.ModeEnUz:
		r.send(ctx, uid, "⏳ EN → UZ tarjima qilinyapti...", transport.KeyboardNone)
		res, err := r.dict.EnToUz(ctx, word)
		if err != nil {
			slog.Warn("dictionary lookup failed", "user_id", uid, "error", err)
			r.send(ctx, uid, "❌ Tarjima topilmadi.", transport.KeyboardNone)
			return
		}
		r.send(ctx, uid, fmt.Sprintf(
			"🇬🇧 EN: %s\n🇺🇿 UZ: %s\n\n🔊 O‘qib berilyapti...",
			res.Source, res.Translation),
			transport.KeyboardNone)
		if res.Audio != nil {
			if err := r.bot.SendAudioBytes(ctx, uid, "pronunciation.mp3", res.Audio, "🔊 English (Google TTS)"); err != nil {
				slog.Warn("pronunciation send failed", "user_id", uid, "error", err)
			}
		}
	}

	r.stats.Inc(stats.SectionDict, uid, 1)
}

func (r *Router) handleWritingStart(ctx context.Context, uid int64) {
	prompts := []string{
		writingFriendPrompts[rand.IntN(len(writingFriendPrompts))],
		writingManagerPrompts[rand.IntN(len(writingManagerPrompts))],
		writingEssayPrompts[rand.IntN(len(writingEssayPrompts))],
	}

	r.mu.Lock()
	r.states[uid] = &userState{writingPrompts: prompts}
	r.mu.Unlock()

	r.send(ctx, uid, fmt.Sprintf(
		"✍️ Writing\n\n1) %s\n\n2) %s\n\n3) %s\n\n"+
			"✅ Hammasini BIR xabarda yuboring.\nFormat:\n1) ...\n2) ...\n3) ...",
		prompts[0], prompts[1], prompts[2]),
		transport.KeyboardBack)
}

func (r *Router) handleWritingAnswer(ctx context.Context, uid int64, prompts []string, text string) {
	a1, a2, a3 := scoring.SplitTasks(text)
	tasks := []scoring.WritingTask{
		{Prompt: prompts[0], Answer: a1},
		{Prompt: prompts[1], Answer: a2},
		{Prompt: prompts[2], Answer: a3},
	}

	r.send(ctx, uid, "✅ Writing tekshirilmoqda (strict grammar + xatolar + rewrite)...", transport.KeyboardNone)
	res := r.writing.EvaluateWriting(ctx, tasks)

	r.send(ctx, uid, formatWritingResult(res), transport.KeyboardMain)
	r.stats.Inc(stats.SectionWritings, uid, 1)
	r.clearState(uid)
}

// formatWritingResult renders the writing verdict, including the per-task
// breakdown when the grader supplied one.
func formatWritingResult(res scoring.WritingResult) string {
	overall := "—"
	if len(res.OverallMistakes) > 0 {
		var b strings.Builder
		for i, m := range res.OverallMistakes {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- " + m)
		}
		overall = b.String()
	}

	var per strings.Builder
	for i, t := range res.PerTask {
		if i >= 3 {
			break
		}
		if t.TaskNo > 0 {
			fmt.Fprintf(&per, "🧩 Task %d:\n", t.TaskNo)
		} else {
			per.WriteString("🧩 Task:\n")
		}
		if len(t.Strengths) > 0 {
			per.WriteString("✅ Kuchli tomonlar: " + strings.Join(t.Strengths, "; ") + "\n")
		}
		if len(t.Issues) > 0 {
			per.WriteString("⚠️ Kamchiliklar: " + strings.Join(t.Issues, "; ") + "\n")
		}
		if len(t.GrammarMistakes) > 0 {
			per.WriteString("❗ Grammar xatolar: " + strings.Join(t.GrammarMistakes, "; ") + "\n")
		}
		if t.Rewrite != "" {
			per.WriteString("✍️ Rewrite:\n" + t.Rewrite + "\n")
		}
		per.WriteByte('\n')
	}
	perText := strings.TrimSpace(per.String())
	if perText == "" {
		perText = "—"
	}

	return "📊 Writing natija\n" +
		fmt.Sprintf("🏷 CEFR: %s\n", res.CEFR) +
		fmt.Sprintf("🎯 IELTS (taxminiy): %s\n", res.IELTS) +
		fmt.Sprintf("⭐ Ball: %d/75\n\n", res.Score) +
		fmt.Sprintf("🧠 Izoh (UZ): %s\n\n", res.FeedbackUZ) +
		fmt.Sprintf("❗ Umumiy xatolar:\n%s\n\n", overall) +
		perText + "\n" +
		fmt.Sprintf("✅ To‘g‘rilangan eng yaxshi variant:\n%s", res.Corrected)
}

func (r *Router) setDictMode(uid int64, mode dictionary.Mode) {
	r.mu.Lock()
	r.states[uid] = &userState{dictMode: mode, awaitingDict: true}
	r.mu.Unlock()
}

func (r *Router) clearState(uid int64) {
	r.mu.Lock()
	delete(r.states, uid)
	r.mu.Unlock()
}

// send delivers a message through the transport adapter, logging failures.
func (r *Router) send(ctx context.Context, uid int64, text string, kb transport.Keyboard) {
	if _, err := r.bot.SendText(ctx, uid, text, kb); err != nil {
		slog.Warn("send failed", "user_id", uid, "error", err)
	}
}
