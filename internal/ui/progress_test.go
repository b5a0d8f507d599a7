package ui

import (
	"strings"
	"testing"
	"time"

	"sirc/internal/driver"
)

func TestApplyEventTracksUnits(t *testing.T) {
	m := NewProgressModel("lowering", []string{"a.sir", "b.sir"}, nil).(*progressModel)

	m.apply(driver.Event{File: "a.sir", Stage: driver.StageLower, Status: driver.StatusWorking})
	if got := m.items[0].label(); got != "lowering" {
		t.Fatalf("label %q", got)
	}
	if got := m.percent(); got != 0.25 {
		t.Fatalf("percent = %v", got)
	}
	m.apply(driver.Event{File: "a.sir", Stage: driver.StageLower, Status: driver.StatusDone, Elapsed: 3 * time.Millisecond})
	m.apply(driver.Event{File: "b.sir", Stage: driver.StageCache, Status: driver.StatusCached})
	if got := m.percent(); got != 1 {
		t.Fatalf("percent = %v", got)
	}
	if m.apply(driver.Event{File: "unknown.sir", Status: driver.StatusError}) != nil {
		t.Fatal("unknown unit must be ignored")
	}

	view := m.View()
	for _, want := range []string{"lowering 2/2", "done", "cached", "a.sir", "b.sir", "3ms"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestFailedUnitsAreCounted(t *testing.T) {
	m := NewProgressModel("check", []string{"a.sir", "b.sir", "c.sir"}, nil).(*progressModel)
	m.apply(driver.Event{File: "b.sir", Stage: driver.StageDecode, Status: driver.StatusError})
	finished, failed := m.counts()
	if finished != 1 || failed != 1 {
		t.Fatalf("finished=%d failed=%d", finished, failed)
	}
	if !strings.Contains(m.View(), "1 failed") {
		t.Fatalf("view:\n%s", m.View())
	}
	if got := m.items[0].label(); got != "queued" {
		t.Fatalf("untouched unit label %q", got)
	}
}

func TestClosedChannelQuits(t *testing.T) {
	ch := make(chan driver.Event)
	close(ch)
	m := NewProgressModel("lowering", []string{"a.sir"}, ch).(*progressModel)
	if _, ok := m.next()().(closedMsg); !ok {
		t.Fatal("closed channel must yield closedMsg")
	}
	_, cmd := m.Update(closedMsg{})
	if cmd == nil || !m.done {
		t.Fatal("model must finish on closedMsg")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("units/very/long/path.sir", 10); got != "units/v..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("got %q", got)
	}
}
