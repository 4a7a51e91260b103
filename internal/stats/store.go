// Package stats tracks usage counters and the user registry, persisted as
// JSON files compatible across restarts. Writes are batched: mutations mark
// the store dirty and a background autosave loop flushes every few seconds.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Counter sections.
const (
	SectionExams    = "exams_completed"
	SectionDict     = "dict_lookups"
	SectionWritings = "writings_completed"
)

// DefaultAutosaveInterval is how often dirty state is flushed to disk.
const DefaultAutosaveInterval = 10 * time.Second

const (
	statsFile = "stats.json"
	usersFile = "users.json"
)

// UserRecord is one user's registry entry. Timestamps are Unix seconds so
// the on-disk format stays plain JSON numbers.
type UserRecord struct {
	First    float64 `json:"first"`
	Last     float64 `json:"last"`
	SubOK    int     `json:"sub_ok"`
	SubFirst float64 `json:"sub_first"`
	SubLast  float64 `json:"sub_last"`
}

// UserTotals is a per-user activity summary for admin reporting.
type UserTotals struct {
	UserID   int64
	Exams    int
	Dicts    int
	Writings int
}

// Total is the user's combined activity count.
func (u UserTotals) Total() int { return u.Exams + u.Dicts + u.Writings }

// Store holds counters and the user registry. Safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	dir string
	now func() time.Time

	counters map[string]map[string]int
	users    map[int64]*UserRecord
	lastSeen map[int64]time.Time

	countersDirty bool
	usersDirty    bool
}

// NewStore creates a store persisting under dir. Call [Store.Load] before
// use.
func NewStore(dir string) *Store {
	return &Store{
		dir:      dir,
		now:      time.Now,
		counters: make(map[string]map[string]int),
		users:    make(map[int64]*UserRecord),
		lastSeen: make(map[int64]time.Time),
	}
}

// Load reads persisted state from disk. Missing files are not an error; a
// fresh deployment starts empty.
func (st *Store) Load() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return fmt.Errorf("stats: create data dir: %w", err)
	}

	var counters map[string]map[string]int
	if err := readJSON(filepath.Join(st.dir, statsFile), &counters); err != nil {
		return err
	}
	if counters != nil {
		st.counters = counters
	}

	var rawUsers map[string]*UserRecord
	if err := readJSON(filepath.Join(st.dir, usersFile), &rawUsers); err != nil {
		return err
	}
	for k, rec := range rawUsers {
		uid, err := strconv.ParseInt(k, 10, 64)
		if err != nil || rec == nil {
			continue
		}
		st.users[uid] = rec
	}
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stats: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		// A corrupt file should not brick the bot; start fresh and log.
		slog.Warn("discarding corrupt stats file", "path", path, "error", err)
	}
	return nil
}

// Inc adds delta to a user's counter in the given section.
func (st *Store) Inc(section string, userID int64, delta int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sec := st.counters[section]
	if sec == nil {
		sec = make(map[string]int)
		st.counters[section] = sec
	}
	sec[strconv.FormatInt(userID, 10)] += delta
	st.countersDirty = true
}

// Touch records user activity: updates last-seen both in memory (for the
// online list) and in the registry.
func (st *Store) Touch(userID int64) {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	st.lastSeen[userID] = now
	rec := st.users[userID]
	if rec == nil {
		rec = &UserRecord{First: unix(now)}
		st.users[userID] = rec
	}
	if rec.First == 0 {
		rec.First = unix(now)
	}
	rec.Last = unix(now)
	st.usersDirty = true
}

// MarkSubscribed records that the user passed the subscription gate.
func (st *Store) MarkSubscribed(userID int64) {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	rec := st.users[userID]
	if rec == nil {
		rec = &UserRecord{First: unix(now), Last: unix(now)}
		st.users[userID] = rec
	}
	if rec.SubOK != 1 {
		rec.SubOK = 1
		rec.SubFirst = unix(now)
	}
	rec.SubLast = unix(now)
	st.usersDirty = true
}

// Online lists users seen within the window.
func (st *Store) Online(window time.Duration) []int64 {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	var out []int64
	for uid, ts := range st.lastSeen {
		if now.Sub(ts) <= window {
			out = append(out, uid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TotalUsers reports the registry size.
func (st *Store) TotalUsers() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.users)
}

// ActiveUsers counts users whose last activity falls within the past days.
func (st *Store) ActiveUsers(days int) int {
	limit := unix(st.now()) - float64(days)*86400
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for _, rec := range st.users {
		if rec.Last >= limit {
			n++
		}
	}
	return n
}

// SubPassed counts users who passed the gate and were re-confirmed within
// the past days.
func (st *Store) SubPassed(days int) int {
	limit := unix(st.now()) - float64(days)*86400
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for _, rec := range st.users {
		if rec.SubOK == 1 && rec.SubLast >= limit {
			n++
		}
	}
	return n
}

// TotalSubPassed counts all users who ever passed the gate.
func (st *Store) TotalSubPassed() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for _, rec := range st.users {
		if rec.SubOK == 1 {
			n++
		}
	}
	return n
}

// SectionTotal sums one counter section over all users.
func (st *Store) SectionTotal(section string) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for _, v := range st.counters[section] {
		n += v
	}
	return n
}

// TopUsers returns the n most active users across all sections, most active
// first.
func (st *Store) TopUsers(n int) []UserTotals {
	st.mu.Lock()
	totals := make(map[int64]*UserTotals)
	collect := func(section string, set func(*UserTotals, int)) {
		for k, v := range st.counters[section] {
			uid, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				continue
			}
			t := totals[uid]
			if t == nil {
				t = &UserTotals{UserID: uid}
				totals[uid] = t
			}
			set(t, v)
		}
	}
	collect(SectionExams, func(t *UserTotals, v int) { t.Exams = v })
	collect(SectionDict, func(t *UserTotals, v int) { t.Dicts = v })
	collect(SectionWritings, func(t *UserTotals, v int) { t.Writings = v })
	st.mu.Unlock()

	out := make([]UserTotals, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total() != out[j].Total() {
			return out[i].Total() > out[j].Total()
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// UniqueUsers counts users appearing in any counter section.
func (st *Store) UniqueUsers() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	seen := make(map[string]struct{})
	for _, sec := range st.counters {
		for k := range sec {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}

// Flush writes dirty state to disk.
func (st *Store) Flush() error {
	st.mu.Lock()

	var writeCounters, writeUsers []byte
	var err error
	if st.countersDirty {
		writeCounters, err = json.MarshalIndent(st.counters, "", "  ")
		if err != nil {
			st.mu.Unlock()
			return fmt.Errorf("stats: marshal counters: %w", err)
		}
	}
	if st.usersDirty {
		payload := make(map[string]*UserRecord, len(st.users))
		for uid, rec := range st.users {
			payload[strconv.FormatInt(uid, 10)] = rec
		}
		writeUsers, err = json.MarshalIndent(payload, "", "  ")
		if err != nil {
			st.mu.Unlock()
			return fmt.Errorf("stats: marshal users: %w", err)
		}
	}
	st.countersDirty = false
	st.usersDirty = false
	dir := st.dir
	st.mu.Unlock()

	if writeCounters != nil {
		if err := os.WriteFile(filepath.Join(dir, statsFile), writeCounters, 0o644); err != nil {
			return fmt.Errorf("stats: write %s: %w", statsFile, err)
		}
	}
	if writeUsers != nil {
		if err := os.WriteFile(filepath.Join(dir, usersFile), writeUsers, 0o644); err != nil {
			return fmt.Errorf("stats: write %s: %w", usersFile, err)
		}
	}
	return nil
}

// AutoSave flushes dirty state on the interval until ctx is cancelled, then
// performs a final flush.
func (st *Store) AutoSave(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return st.Flush()
		case <-ticker.C:
			if err := st.Flush(); err != nil {
				slog.Error("stats autosave failed", "error", err)
			}
		}
	}
}

func unix(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
