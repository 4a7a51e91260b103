package exam

import (
	"sync"
	"time"
)

// Stage identifies where in the exam a session currently is.
type Stage string

const (
	StagePart1   Stage = "part1"
	StagePart12  Stage = "part12"
	StagePart2   Stage = "part2"
	StagePart3   Stage = "part3"
	StageDone    Stage = "done"
	StageStopped Stage = "stopped"
)

// active reports whether the stage still accepts answers.
func (s Stage) active() bool {
	return s != StageDone && s != StageStopped
}

// PhaseKind distinguishes the two timed phases of every question.
type PhaseKind string

const (
	PhaseNone  PhaseKind = ""
	PhasePrep  PhaseKind = "prep"
	PhaseSpeak PhaseKind = "speak"
)

// Session is the per-user state of one running speaking exam. All fields are
// guarded by mu; the engine locks before touching them.
type Session struct {
	mu sync.Mutex

	UserID int64
	Stage  Stage

	// Idx is the per-stage progress counter; Part3QIdx counts part 3
	// follow-up questions separately because the stage intro consumes Idx.
	Idx       int
	Part3QIdx int

	// Part1Questions is this exam's random draw from the warm-up pool.
	Part1Questions []string

	// Asked accumulates every question presented, in order. Answers is kept
	// positionally aligned: Answers[i] belongs to Asked[i], with "" holding
	// the place of questions that timed out unanswered.
	Asked   []string
	Answers []string

	Paused bool

	// Stage image draws, fixed at the stage transition.
	Part12Image int
	Part2Image  int
	Part3Image  int

	// SpeakSeconds is the answer-phase length for the question currently on
	// screen, set when the question is presented.
	SpeakSeconds int

	// Current timed phase. PhaseRemaining is only meaningful while Paused;
	// it snapshots how much of the phase was left.
	PhaseKind      PhaseKind
	PhaseDeadline  time.Time
	PhaseRemaining time.Duration

	// timer is the currently running phase countdown. Identity comparison
	// against this field is how a stale timer detects it has been replaced.
	timer *phaseTimer

	// finished guards against grading the same session twice, e.g. when a
	// stop command races a timer expiry.
	finished bool
}

// recordAnswer aligns transcript with the most recently asked question,
// padding skipped questions with empty placeholders. Must hold mu.
func (s *Session) recordAnswer(transcript string) {
	if len(s.Asked) == 0 {
		return
	}
	for len(s.Answers) < len(s.Asked)-1 {
		s.Answers = append(s.Answers, "")
	}
	if len(s.Answers) < len(s.Asked) {
		s.Answers = append(s.Answers, transcript)
	} else {
		// A second voice note for the same question replaces the first.
		s.Answers[len(s.Answers)-1] = transcript
	}
}

// answeredPairs zips questions with non-empty answers for grading. Must hold
// mu. At most limit pairs are returned.
func (s *Session) answeredPairs(limit int) (questions, answers []string) {
	n := min(len(s.Asked), len(s.Answers))
	for i := 0; i < n && len(questions) < limit; i++ {
		a := s.Answers[i]
		if a == "" {
			continue
		}
		questions = append(questions, s.Asked[i])
		answers = append(answers, a)
	}
	return questions, answers
}

// Store holds the live sessions, one per user. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the user's session, if any.
func (st *Store) Get(userID int64) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	return s, ok
}

// Create replaces any existing session for the user with a fresh part 1
// session and returns it.
func (st *Store) Create(userID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := &Session{
		UserID: userID,
		Stage:  StagePart1,
	}
	st.sessions[userID] = s
	return s
}

// Delete removes the user's session.
func (st *Store) Delete(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}

// DeleteIf removes the user's entry only while it still points at s, and
// reports whether it did. A session that was already replaced by a newer
// Start stays untouched.
func (st *Store) DeleteIf(userID int64, s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.sessions[userID] != s {
		return false
	}
	delete(st.sessions, userID)
	return true
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
