package exam

import (
	"context"
	"fmt"
	"time"

	"github.com/speakingzone/examiner/internal/transport"
)

// phaseTimer is one running countdown. The engine replaces the session's
// timer pointer on every phase change; a goroutine that finds itself no
// longer referenced exits without side effects.
type phaseTimer struct {
	cancel context.CancelFunc
}

// stopTimerLocked cancels the running countdown, if any. Must hold s.mu.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.cancel()
		s.timer = nil
	}
	s.PhaseKind = PhaseNone
	s.PhaseDeadline = time.Time{}
}

// startPhaseLocked begins a countdown of the given number of display seconds.
// Must hold s.mu. One display second lasts e.timeUnit, which tests shrink to
// keep runs fast.
func (e *Engine) startPhaseLocked(s *Session, seconds int, kind PhaseKind) {
	if s.timer != nil {
		s.timer.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &phaseTimer{cancel: cancel}
	s.timer = t
	s.PhaseKind = kind
	s.PhaseDeadline = e.now().Add(time.Duration(seconds) * e.timeUnit)

	go e.runPhase(ctx, t, s, kind, seconds)
}

// phaseLabel is the countdown caption per phase.
func phaseLabel(kind PhaseKind) string {
	if kind == PhasePrep {
		return "Tayyorlanish"
	}
	return "Javob"
}

// runPhase drives one countdown: it edits the countdown message roughly once
// per remaining second and fires the phase transition when time runs out.
func (e *Engine) runPhase(ctx context.Context, t *phaseTimer, s *Session, kind PhaseKind, seconds int) {
	label := phaseLabel(kind)
	msg, err := e.messenger.SendText(ctx, s.UserID, fmt.Sprintf("⏳ %s: %ds", label, seconds), transport.KeyboardNone)
	if err != nil {
		msg = nil
	}

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	lastShown := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.timer != t || s.Paused || !s.Stage.active() {
			s.mu.Unlock()
			return
		}
		remain := e.remainingSeconds(s)
		s.mu.Unlock()

		if remain <= 0 {
			break
		}
		if msg != nil && remain != lastShown {
			// Edit failures are ignored; the countdown is cosmetic.
			_ = msg.Edit(ctx, fmt.Sprintf("⏳ %s: %ds", label, remain))
			lastShown = remain
		}
	}

	e.phaseExpired(t, s, kind)
}

// remainingSeconds converts the time left on the phase deadline to display
// seconds, rounding up. Must hold s.mu.
func (e *Engine) remainingSeconds(s *Session) int {
	left := s.PhaseDeadline.Sub(e.now())
	if left <= 0 {
		return 0
	}
	return int((left + e.timeUnit - 1) / e.timeUnit)
}

// phaseExpired handles the deadline of a phase that ran to completion.
// Preparation rolls into the speaking phase; speaking time-out moves the
// exam forward without an answer.
func (e *Engine) phaseExpired(t *phaseTimer, s *Session, kind PhaseKind) {
	ctx := context.Background()

	s.mu.Lock()
	if s.timer != t || s.Paused || !s.Stage.active() {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.PhaseKind = PhaseNone
	s.PhaseDeadline = time.Time{}

	if kind == PhasePrep {
		e.send(ctx, s.UserID, "🎤 Endi JAVOB bering. Voice yuboring.", transport.KeyboardNone)
		e.startPhaseLocked(s, s.SpeakSeconds, PhaseSpeak)
		s.mu.Unlock()
		return
	}

	e.send(ctx, s.UserID, "⏰ Vaqt tugadi. Keyingisiga o‘tdim.", transport.KeyboardNone)
	finished := e.advanceLocked(ctx, s)
	s.mu.Unlock()

	if finished {
		e.finish(ctx, s)
	}
}
