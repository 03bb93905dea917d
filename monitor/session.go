// Package monitor implements context-based deduplication of the controller
// event log and the per-controller poll loop that feeds decoded events to a
// Sink.
package monitor

import (
	"github.com/jnesss/mptevents/decode"
	"github.com/jnesss/mptevents/mpi"
)

// SequenceCompare orders two controller contexts modulo 2^32. The result is
// positive when a is newer than b. It is only meaningful while the two values
// are less than 2^31 apart, so the counter must not wrap more than once
// between scans.
func SequenceCompare(a, b uint32) int32 {
	return int32(a - b)
}

// Session is the dedup state for one controller. It is owned by a single
// goroutine and must not be shared.
type Session struct {
	Controller      mpi.Controller
	HighestReported uint32
	FirstScanDone   bool
}

// NewSession returns a fresh session whose next scan is the baseline scan.
func NewSession(ctrl mpi.Controller) *Session {
	return &Session{Controller: ctrl}
}

// Scan returns the decoded records of snap that have not been reported yet,
// in slot order, and advances the session.
//
// Every slot is judged against the baseline held before the call; the tracker
// moves once, after the last slot. On the first scan every non-empty slot
// counts as new.
func (s *Session) Scan(snap *mpi.Snapshot) []decode.Description {
	var (
		fresh     []decode.Description
		highest   uint32
		sawNew    bool
		baseline  = s.HighestReported
		firstScan = !s.FirstScanDone
	)
	for i := range snap.Records {
		rec := &snap.Records[i]
		if rec.Empty() {
			continue
		}
		if !firstScan && SequenceCompare(rec.Context, baseline) <= 0 {
			continue
		}
		fresh = append(fresh, decode.Decode(*rec))
		if !sawNew || SequenceCompare(rec.Context, highest) > 0 {
			highest = rec.Context
			sawNew = true
		}
	}
	if sawNew {
		s.HighestReported = highest
	}
	s.FirstScanDone = true
	return fresh
}
