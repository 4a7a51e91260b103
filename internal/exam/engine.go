// Package exam implements the timed multi-stage speaking exam: the per-user
// session state machine (part 1 → part 1.2 → part 2 → part 3), the
// preparation/answer countdowns, voice-answer intake, and final grading.
package exam

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/speakingzone/examiner/internal/observe"
	"github.com/speakingzone/examiner/internal/scoring"
	"github.com/speakingzone/examiner/internal/transport"
)

// maxGradedPairs bounds how many question/answer pairs are sent to the
// grader.
const maxGradedPairs = 20

// Transcriber turns a platform voice-note file into English text. An empty
// transcript with nil error means the audio was not understood.
type Transcriber interface {
	Process(ctx context.Context, fileID string) (string, error)
}

// SpeakingGrader grades the answered questions of a finished exam.
type SpeakingGrader interface {
	EvaluateSpeaking(ctx context.Context, items []scoring.QA) scoring.SpeakingResult
}

// StatsRecorder counts completed activities per user.
type StatsRecorder interface {
	Inc(section string, userID int64, delta int)
}

// Option configures an [Engine].
type Option func(*Engine)

// WithTimeUnit sets the real duration of one display second. Production uses
// time.Second; tests shrink it to milliseconds.
func WithTimeUnit(d time.Duration) Option {
	return func(e *Engine) { e.timeUnit = d }
}

// WithTick sets how often countdown messages are refreshed.
func WithTick(d time.Duration) Option {
	return func(e *Engine) { e.tick = d }
}

// WithStats attaches a completion counter.
func WithStats(r StatsRecorder) Option {
	return func(e *Engine) { e.stats = r }
}

// WithMetrics overrides the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine runs speaking exams for all users. Safe for concurrent use.
type Engine struct {
	store       *Store
	messenger   transport.Messenger
	transcriber Transcriber
	grader      SpeakingGrader
	stats       StatsRecorder
	metrics     *observe.Metrics

	imageDir string
	timeUnit time.Duration
	tick     time.Duration
	now      func() time.Time
}

// NewEngine wires an exam engine.
func NewEngine(m transport.Messenger, tr Transcriber, g SpeakingGrader, imageDir string, opts ...Option) *Engine {
	e := &Engine{
		store:       NewStore(),
		messenger:   m,
		transcriber: tr,
		grader:      g,
		metrics:     observe.DefaultMetrics(),
		imageDir:    imageDir,
		timeUnit:    time.Second,
		tick:        time.Second,
		now:         time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Sessions exposes the live-session count for readiness reporting.
func (e *Engine) Sessions() int { return e.store.Len() }

// InExam reports whether the user currently has a session.
func (e *Engine) InExam(userID int64) bool {
	_, ok := e.store.Get(userID)
	return ok
}

// send delivers a fire-and-forget message.
func (e *Engine) send(ctx context.Context, userID int64, text string, kb transport.Keyboard) {
	if _, err := e.messenger.SendText(ctx, userID, text, kb); err != nil {
		slog.Warn("send failed", "user_id", userID, "error", err)
	}
}

// Start begins a fresh exam for the user, replacing any session already in
// progress.
func (e *Engine) Start(ctx context.Context, userID int64) {
	if old, ok := e.store.Get(userID); ok {
		old.mu.Lock()
		old.stopTimerLocked()
		old.Stage = StageStopped
		old.mu.Unlock()
	} else {
		e.metrics.ActiveSessions.Add(ctx, 1)
	}

	s := e.store.Create(userID)
	e.send(ctx, userID,
		"🗣 Speaking boshlandi.\n⏱ Taymer ishlaydi.\n🎤 Faqat voice yuboring.",
		transport.KeyboardExam)

	s.mu.Lock()
	finished := e.advanceLocked(ctx, s)
	s.mu.Unlock()
	if finished {
		e.finish(ctx, s)
	}
}

// Pause freezes the exam, preserving the remaining phase time for Resume.
func (e *Engine) Pause(ctx context.Context, userID int64) {
	s, ok := e.store.Get(userID)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.Paused || !s.Stage.active() {
		s.mu.Unlock()
		return
	}
	s.Paused = true
	if s.PhaseKind != PhaseNone {
		s.PhaseRemaining = s.PhaseDeadline.Sub(e.now())
		if s.PhaseRemaining < 0 {
			s.PhaseRemaining = 0
		}
	}
	// Cancel the countdown but keep PhaseKind so Resume knows what to
	// restart.
	if s.timer != nil {
		s.timer.cancel()
		s.timer = nil
	}
	s.mu.Unlock()

	e.send(ctx, userID, "⏸ Pauza qilindi. ▶️ Resume bosing.", transport.KeyboardNone)
}

// Resume continues a paused exam. A preserved phase restarts with the time
// that was left; a session paused between phases re-presents the pending
// question.
func (e *Engine) Resume(ctx context.Context, userID int64) {
	s, ok := e.store.Get(userID)
	if !ok {
		return
	}

	s.mu.Lock()
	if !s.Paused {
		s.mu.Unlock()
		e.send(ctx, userID, "▶️ Allaqachon davom etyapti.", transport.KeyboardNone)
		return
	}
	s.Paused = false
	e.send(ctx, userID, "▶️ Davom ettiramiz...", transport.KeyboardNone)

	var finished bool
	if s.PhaseKind != PhaseNone && s.PhaseRemaining > 0 {
		seconds := int((s.PhaseRemaining + e.timeUnit - 1) / e.timeUnit)
		if seconds < 1 {
			seconds = 1
		}
		e.startPhaseLocked(s, seconds, s.PhaseKind)
		s.PhaseRemaining = 0
	} else {
		finished = e.advanceLocked(ctx, s)
	}
	s.mu.Unlock()

	if finished {
		e.finish(ctx, s)
	}
}

// Stop aborts the exam and grades whatever answers were collected so far.
func (e *Engine) Stop(ctx context.Context, userID int64) {
	s, ok := e.store.Get(userID)
	if !ok {
		return
	}

	s.mu.Lock()
	s.stopTimerLocked()
	s.Stage = StageStopped
	s.mu.Unlock()

	e.send(ctx, userID, "⛔ To‘xtatildi. Hozirgi javoblar bo‘yicha baholayman...", transport.KeyboardNone)
	e.finish(ctx, s)
}

// Abort discards the exam without grading (the back button).
func (e *Engine) Abort(ctx context.Context, userID int64) {
	s, ok := e.store.Get(userID)
	if !ok {
		return
	}

	s.mu.Lock()
	s.stopTimerLocked()
	s.Stage = StageStopped
	// Mark finished so a stop command racing the back button cannot still
	// grade the discarded answers.
	s.finished = true
	s.mu.Unlock()

	if e.store.DeleteIf(userID, s) {
		e.metrics.ActiveSessions.Add(ctx, -1)
	}
	e.send(ctx, userID, "🔙 Menu", transport.KeyboardMain)
}

// HandleVoice ingests one voice-note answer: transcription happens outside
// the session lock, then the transcript is aligned with the current question
// and the exam moves forward.
func (e *Engine) HandleVoice(ctx context.Context, userID int64, fileID string) {
	s, ok := e.store.Get(userID)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.Paused {
		s.mu.Unlock()
		e.send(ctx, userID, "⏸ Pauza. ▶️ Resume bosing.", transport.KeyboardNone)
		return
	}
	if !s.Stage.active() {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	e.send(ctx, userID, "🎧 Ovoz matnga aylantirilmoqda...", transport.KeyboardNone)
	transcript, err := e.transcriber.Process(ctx, fileID)
	if err != nil {
		slog.Error("voice processing failed", "user_id", userID, "error", err)
		transcript = ""
	}
	if strings.TrimSpace(transcript) == "" {
		e.send(ctx, userID, "❌ Ovoz tushunilmadi.", transport.KeyboardNone)
		return
	}

	s.mu.Lock()
	if s.Paused || !s.Stage.active() {
		s.mu.Unlock()
		return
	}
	s.recordAnswer(transcript)
	e.send(ctx, userID, "📝 "+transcript, transport.KeyboardNone)
	s.stopTimerLocked()
	finished := e.advanceLocked(ctx, s)
	s.mu.Unlock()

	if finished {
		e.finish(ctx, s)
	}
}

// advanceLocked moves the exam to the next question or stage. It loops over
// stage transitions explicitly instead of recursing, and returns true when
// the exam has reached its end and needs grading. Must hold s.mu.
func (e *Engine) advanceLocked(ctx context.Context, s *Session) bool {
	for {
		switch s.Stage {
		case StageDone, StageStopped:
			return s.Stage == StageDone

		case StagePart1:
			if s.Part1Questions == nil {
				s.Part1Questions = drawPart1Questions(3)
			}
			if s.Idx >= 3 {
				s.Stage = StagePart12
				s.Idx = 0
				s.Part12Image = part12ImageLo + rand.IntN(part12ImageHi-part12ImageLo+1)
				e.send(ctx, s.UserID, "✅ Part 1 tugadi. Endi Part 1.2 (rasm) ...", transport.KeyboardExam)
				continue
			}
			q := s.Part1Questions[s.Idx]
			s.Asked = append(s.Asked, q)
			e.send(ctx, s.UserID, fmt.Sprintf("PART 1 — Savol %d/3:\n%s", s.Idx+1, q), transport.KeyboardExam)
			s.SpeakSeconds = part1Speak
			e.startPhaseLocked(s, part1Prep, PhasePrep)
			s.Idx++
			return false

		case StagePart12:
			if s.Idx == 0 {
				e.sendImage(ctx, s.UserID, s.Part12Image, fmt.Sprintf("🖼 PART 1.2 (image%d)", s.Part12Image))
			}
			if s.Idx >= 3 {
				s.Stage = StagePart2
				s.Idx = 0
				s.Part2Image = part2ImageLo + rand.IntN(part2ImageHi-part2ImageLo+1)
				e.send(ctx, s.UserID, "✅ Part 1.2 tugadi. Endi Part 2 (rasm) ...", transport.KeyboardExam)
				continue
			}
			q := part12Questions(s.Part12Image)[s.Idx]
			s.Asked = append(s.Asked, q)
			prep, speak := part12Timings[s.Idx][0], part12Timings[s.Idx][1]
			e.send(ctx, s.UserID, fmt.Sprintf("PART 1.2 — Savol %d/3:\n%s", s.Idx+1, q), transport.KeyboardExam)
			s.SpeakSeconds = speak
			e.startPhaseLocked(s, prep, PhasePrep)
			s.Idx++
			return false

		case StagePart2:
			if s.Idx == 0 {
				cue := part2Cue(s.Part2Image)
				e.sendImage(ctx, s.UserID, s.Part2Image, fmt.Sprintf("🖼 PART 2 (image%d)", s.Part2Image))
				var b strings.Builder
				b.WriteString("📌 CUE CARD:\n")
				b.WriteString(cue.Title)
				for _, p := range cue.Points {
					b.WriteString("\n- " + p)
				}
				e.send(ctx, s.UserID, b.String(), transport.KeyboardExam)
				s.Asked = append(s.Asked, "PART 2 CUE CARD: "+cue.Title)
				s.SpeakSeconds = part2Speak
				e.startPhaseLocked(s, part2Prep, PhasePrep)
				s.Idx = 1
				return false
			}
			s.Stage = StagePart3
			s.Idx = 0
			s.Part3QIdx = 0
			s.Part3Image = part3ImageLo + rand.IntN(part3ImageHi-part3ImageLo+1)
			e.send(ctx, s.UserID, "✅ Part 2 tugadi. Endi Part 3 ...", transport.KeyboardExam)
			continue

		case StagePart3:
			topic := part3Topic(s.Part3Image)
			if s.Idx == 0 {
				e.sendImage(ctx, s.UserID, s.Part3Image, fmt.Sprintf("🖼 PART 3 (image%d)", s.Part3Image))
				e.send(ctx, s.UserID, "📌 TOPIC: "+topic.Topic, transport.KeyboardExam)
				s.Idx = 1
				s.Part3QIdx = 0
				continue
			}
			if s.Part3QIdx < min(3, len(topic.Questions)) {
				q := topic.Questions[s.Part3QIdx]
				s.Asked = append(s.Asked, "PART 3: "+q)
				e.send(ctx, s.UserID, fmt.Sprintf("PART 3 — Savol %d/3:\n%s", s.Part3QIdx+1, q), transport.KeyboardExam)
				s.SpeakSeconds = part3Speak
				e.startPhaseLocked(s, part3Prep, PhasePrep)
				s.Part3QIdx++
				return false
			}
			s.Stage = StageDone
			return true

		default:
			slog.Error("unknown exam stage", "stage", s.Stage)
			s.Stage = StageStopped
			return false
		}
	}
}

// drawPart1Questions picks n distinct warm-up questions.
func drawPart1Questions(n int) []string {
	perm := rand.Perm(len(part1Pool))
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, part1Pool[i])
	}
	return out
}

// sendImage delivers a stage image, or an explanatory message when the file
// is missing so content mistakes are visible to the user.
func (e *Engine) sendImage(ctx context.Context, userID int64, idx int, caption string) {
	path := imagePath(e.imageDir, idx)
	if err := e.messenger.SendPhoto(ctx, userID, path, caption); err != nil {
		slog.Warn("send image failed", "path", path, "error", err)
		e.send(ctx, userID,
			fmt.Sprintf("⚠️ Rasm topilmadi: %s\n✅ images/ ichida image%d.jpg bo‘lsin.", path, idx),
			transport.KeyboardNone)
	}
}

// finish grades the collected answers and reports the result. The session is
// removed before the (slow) grading call so the user can immediately start a
// new exam.
func (e *Engine) finish(ctx context.Context, s *Session) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.stopTimerLocked()
	userID := s.UserID
	stopped := s.Stage == StageStopped
	questions, answers := s.answeredPairs(maxGradedPairs)
	s.mu.Unlock()

	// Delete only while the store still holds this session: the user may
	// have started a fresh exam during the slow sends above, and that
	// session must survive its predecessor's finalization.
	if e.store.DeleteIf(userID, s) {
		e.metrics.ActiveSessions.Add(ctx, -1)
	}

	if len(questions) == 0 {
		e.send(ctx, userID, "❌ Javob topilmadi (voice kelmadi). Qayta urinib ko‘ring.", transport.KeyboardMain)
		e.metrics.RecordExamCompletion(ctx, "speaking", "empty")
		return
	}

	e.send(ctx, userID, "✅ Imtihon tekshirilmoqda...", transport.KeyboardNone)

	items := make([]scoring.QA, len(questions))
	for i := range questions {
		items[i] = scoring.QA{Question: questions[i], Answer: answers[i]}
	}
	res := e.grader.EvaluateSpeaking(ctx, items)

	e.send(ctx, userID, formatSpeakingResult(res), transport.KeyboardMain)

	if e.stats != nil {
		e.stats.Inc("exams_completed", userID, 1)
	}
	outcome := "scored"
	if res.Fallback {
		outcome = "fallback"
	} else if stopped {
		outcome = "stopped"
	}
	e.metrics.RecordExamCompletion(ctx, "speaking", outcome)
}

// formatSpeakingResult renders the user-facing result message.
func formatSpeakingResult(res scoring.SpeakingResult) string {
	mistakes := "—"
	if len(res.Mistakes) > 0 {
		var b strings.Builder
		for i, m := range res.Mistakes {
			if i >= 8 {
				break
			}
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- " + m)
		}
		mistakes = b.String()
	}

	return "📊 Natija (Speaking):\n" +
		fmt.Sprintf("🏷 CEFR: %s\n", res.CEFR) +
		fmt.Sprintf("🎯 IELTS (taxminiy): %s\n", res.IELTS) +
		fmt.Sprintf("⭐ Umumiy ball: %d/75\n\n", res.Score) +
		fmt.Sprintf("🧠 Izoh (UZ): %s\n\n", res.FeedbackUZ) +
		fmt.Sprintf("❗ Xatolar (qisqa):\n%s\n\n", mistakes) +
		fmt.Sprintf("✅ To‘g‘rilangan eng yaxshi variant:\n%s", res.Corrected)
}
