package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIncAndSectionTotal(t *testing.T) {
	st := NewStore(t.TempDir())

	st.Inc(SectionExams, 1, 1)
	st.Inc(SectionExams, 1, 1)
	st.Inc(SectionExams, 2, 1)
	st.Inc(SectionDict, 1, 3)

	if got := st.SectionTotal(SectionExams); got != 3 {
		t.Errorf("SectionTotal(exams) = %d, want 3", got)
	}
	if got := st.SectionTotal(SectionDict); got != 3 {
		t.Errorf("SectionTotal(dict) = %d, want 3", got)
	}
	if got := st.SectionTotal(SectionWritings); got != 0 {
		t.Errorf("SectionTotal(writings) = %d, want 0", got)
	}
	if got := st.UniqueUsers(); got != 2 {
		t.Errorf("UniqueUsers = %d, want 2", got)
	}
}

func TestFlushAndReload(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)
	if err := st.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	st.Inc(SectionExams, 42, 2)
	st.Touch(42)
	st.MarkSubscribed(42)
	if err := st.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	st2 := NewStore(dir)
	if err := st2.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := st2.SectionTotal(SectionExams); got != 2 {
		t.Errorf("reloaded exams total = %d, want 2", got)
	}
	if got := st2.TotalUsers(); got != 1 {
		t.Errorf("reloaded TotalUsers = %d, want 1", got)
	}
	if got := st2.TotalSubPassed(); got != 1 {
		t.Errorf("reloaded TotalSubPassed = %d, want 1", got)
	}
}

func TestFlushSkipsWhenClean(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)
	if err := st.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stats.json")); !os.IsNotExist(err) {
		t.Error("stats.json written despite no changes")
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stats.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := NewStore(dir)
	if err := st.Load(); err != nil {
		t.Fatalf("Load with corrupt file: %v", err)
	}
	if got := st.SectionTotal(SectionExams); got != 0 {
		t.Errorf("total = %d, want 0 after corrupt load", got)
	}
}

func TestOnlineWindow(t *testing.T) {
	st := NewStore(t.TempDir())
	current := time.Now()
	st.now = func() time.Time { return current }

	st.Touch(1)
	current = current.Add(10 * time.Minute)
	st.Touch(2)

	on := st.Online(5 * time.Minute)
	if len(on) != 1 || on[0] != 2 {
		t.Errorf("Online = %v, want [2]", on)
	}
}

func TestActiveUsersAndSubWindows(t *testing.T) {
	st := NewStore(t.TempDir())
	current := time.Now()
	st.now = func() time.Time { return current }

	st.Touch(1)
	st.MarkSubscribed(1)
	current = current.Add(10 * 24 * time.Hour)
	st.Touch(2)
	st.MarkSubscribed(2)

	if got := st.ActiveUsers(1); got != 1 {
		t.Errorf("ActiveUsers(1d) = %d, want 1", got)
	}
	if got := st.ActiveUsers(30); got != 2 {
		t.Errorf("ActiveUsers(30d) = %d, want 2", got)
	}
	if got := st.SubPassed(1); got != 1 {
		t.Errorf("SubPassed(1d) = %d, want 1", got)
	}
	if got := st.TotalSubPassed(); got != 2 {
		t.Errorf("TotalSubPassed = %d, want 2", got)
	}
}

func TestMarkSubscribedKeepsFirstTimestamp(t *testing.T) {
	st := NewStore(t.TempDir())
	current := time.Now()
	st.now = func() time.Time { return current }

	st.MarkSubscribed(7)
	first := st.users[7].SubFirst
	current = current.Add(time.Hour)
	st.MarkSubscribed(7)

	if st.users[7].SubFirst != first {
		t.Error("SubFirst changed on re-confirmation")
	}
	if st.users[7].SubLast <= first {
		t.Error("SubLast not advanced")
	}
}

func TestTopUsers(t *testing.T) {
	st := NewStore(t.TempDir())
	st.Inc(SectionExams, 1, 5)
	st.Inc(SectionDict, 1, 1)
	st.Inc(SectionExams, 2, 2)
	st.Inc(SectionWritings, 3, 9)

	top := st.TopUsers(2)
	if len(top) != 2 {
		t.Fatalf("TopUsers len = %d, want 2", len(top))
	}
	if top[0].UserID != 3 || top[0].Total() != 9 {
		t.Errorf("top[0] = %+v, want user 3 with total 9", top[0])
	}
	if top[1].UserID != 1 || top[1].Exams != 5 || top[1].Dicts != 1 {
		t.Errorf("top[1] = %+v, want user 1", top[1])
	}
}
