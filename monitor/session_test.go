package monitor

import (
	"testing"

	"github.com/jnesss/mptevents/mpi"
)

type slot struct {
	kind    mpi.EventKind
	context uint32
}

func snapshotOf(slots ...slot) *mpi.Snapshot {
	snap := mpi.NewSnapshot(mpi.Controller{}, 8)
	for i, s := range slots {
		snap.Records[i].Event = s.kind
		snap.Records[i].Context = s.context
	}
	return snap
}

func temp(context uint32) slot { return slot{mpi.EventTempThreshold, context} }

func contexts(t *testing.T, s *Session, snap *mpi.Snapshot) []uint32 {
	t.Helper()
	var out []uint32
	for _, d := range s.Scan(snap) {
		out = append(out, d.Context)
	}
	return out
}

func equal(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSequenceCompare(t *testing.T) {
	tests := []struct {
		a, b uint32
		want int32
	}{
		{5, 5, 0},
		{6, 5, 1},
		{5, 6, -1},
		{0x00000005, 0xFFFFFFF0, 21},
		{0xFFFFFFF0, 0x00000005, -21},
	}
	for _, tt := range tests {
		if got := SequenceCompare(tt.a, tt.b); got != tt.want {
			t.Errorf("SequenceCompare(%#x, %#x) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScanBaseline(t *testing.T) {
	s := NewSession(mpi.Controller{})
	got := contexts(t, s, snapshotOf(temp(5), temp(9), temp(2)))

	if !equal(got, []uint32{5, 9, 2}) {
		t.Errorf("baseline emitted %v, want slot order [5 9 2]", got)
	}
	if s.HighestReported != 9 {
		t.Errorf("HighestReported = %d, want 9", s.HighestReported)
	}
	if !s.FirstScanDone {
		t.Error("FirstScanDone not set")
	}
}

func TestScanBaselineIgnoresContextValue(t *testing.T) {
	s := &Session{HighestReported: 1000}
	got := contexts(t, s, snapshotOf(temp(3)))
	if !equal(got, []uint32{3}) {
		t.Errorf("baseline emitted %v, want [3]", got)
	}
	if s.HighestReported != 3 {
		t.Errorf("HighestReported = %d, want 3", s.HighestReported)
	}
}

func TestScanWraparound(t *testing.T) {
	s := &Session{HighestReported: 0xFFFFFFF0, FirstScanDone: true}
	got := contexts(t, s, snapshotOf(temp(0xFFFFFFE0), temp(0x00000005), temp(0xFFFFFFF0)))
	if !equal(got, []uint32{5}) {
		t.Errorf("emitted %v, want [5]", got)
	}
	if s.HighestReported != 5 {
		t.Errorf("HighestReported = %#x, want 5", s.HighestReported)
	}
}

func TestScanHighestAcrossWrap(t *testing.T) {
	s := &Session{HighestReported: 0xFFFFFFF0, FirstScanDone: true}
	// 0xFFFFFFFA is emitted after 2 in slot order but is older.
	contexts(t, s, snapshotOf(temp(2), temp(0xFFFFFFFA)))
	if s.HighestReported != 2 {
		t.Errorf("HighestReported = %#x, want 2", s.HighestReported)
	}
}

func TestScanEmpty(t *testing.T) {
	s := NewSession(mpi.Controller{})
	if got := contexts(t, s, snapshotOf()); len(got) != 0 {
		t.Errorf("empty baseline emitted %v", got)
	}
	if !s.FirstScanDone {
		t.Error("empty baseline must still complete the first scan")
	}

	s.HighestReported = 42
	if got := contexts(t, s, snapshotOf()); len(got) != 0 {
		t.Errorf("empty scan emitted %v", got)
	}
	if s.HighestReported != 42 {
		t.Errorf("HighestReported = %d, want unchanged 42", s.HighestReported)
	}
}

func TestScanSkipsEmptySlots(t *testing.T) {
	s := NewSession(mpi.Controller{})
	got := contexts(t, s, snapshotOf(temp(1), slot{mpi.EventNone, 50}, temp(2)))
	if !equal(got, []uint32{1, 2}) {
		t.Errorf("emitted %v, want [1 2]", got)
	}
	if s.HighestReported != 2 {
		t.Errorf("empty slot context leaked into tracker: %d", s.HighestReported)
	}
}

func TestScanRepeatedSnapshot(t *testing.T) {
	s := NewSession(mpi.Controller{})
	a := snapshotOf(temp(100))
	b := snapshotOf(temp(100))

	total := len(s.Scan(a)) + len(s.Scan(b))
	if total != 1 {
		t.Errorf("emitted %d events over A then B, want 1", total)
	}
}

func TestScanNoDuplicates(t *testing.T) {
	s := NewSession(mpi.Controller{})
	seen := map[uint32]int{}
	scans := []*mpi.Snapshot{
		snapshotOf(temp(10), temp(11)),
		snapshotOf(temp(10), temp(11), temp(12)),
		snapshotOf(temp(13), temp(11), temp(12)),
		snapshotOf(temp(13), temp(14), temp(12), temp(9)),
	}
	for _, snap := range scans {
		for _, c := range contexts(t, s, snap) {
			seen[c]++
		}
	}
	for c, n := range seen {
		if n != 1 {
			t.Errorf("context %d emitted %d times", c, n)
		}
	}
	if _, ok := seen[9]; ok {
		t.Error("stale context 9 emitted after baseline")
	}
	if len(seen) != 5 {
		t.Errorf("emitted %d distinct contexts, want 5", len(seen))
	}
}

func TestScanJudgesAgainstPriorBaseline(t *testing.T) {
	s := &Session{HighestReported: 10, FirstScanDone: true}
	// 12 precedes 11 in slot order; both are new relative to 10.
	got := contexts(t, s, snapshotOf(temp(12), temp(11)))
	if !equal(got, []uint32{12, 11}) {
		t.Errorf("emitted %v, want [12 11]", got)
	}
	if s.HighestReported != 12 {
		t.Errorf("HighestReported = %d, want 12", s.HighestReported)
	}
}

func TestScanMonotonic(t *testing.T) {
	s := NewSession(mpi.Controller{})
	prev := uint32(0)
	for _, snap := range []*mpi.Snapshot{
		snapshotOf(temp(3), temp(1)),
		snapshotOf(temp(3), temp(2)),
		snapshotOf(temp(7), temp(5)),
		snapshotOf(temp(6)),
	} {
		fresh := s.Scan(snap)
		if SequenceCompare(s.HighestReported, prev) < 0 {
			t.Fatalf("tracker moved back from %d to %d", prev, s.HighestReported)
		}
		if len(fresh) > 0 {
			max := fresh[0].Context
			for _, d := range fresh[1:] {
				if SequenceCompare(d.Context, max) > 0 {
					max = d.Context
				}
			}
			if s.HighestReported != max {
				t.Errorf("HighestReported = %d, want max emitted %d", s.HighestReported, max)
			}
		}
		prev = s.HighestReported
	}
}
