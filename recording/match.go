package recording

import (
	"strings"
	"time"
)

// matchWindow is the tolerance between a recording's capture time and a
// call log's start time. Recorders stamp the file when recording starts,
// which can trail the logged call start by up to the ring duration.
const matchWindow = 120 * time.Second

// FindMatch returns the call-log record best matching the recording, or
// nil. Pure and deterministic: no I/O, no randomness; candidates come
// from a single fetch in the orchestrator.
//
// A recording without both a parsed phone number and a capture time is
// unmatched immediately. Candidates that already carry a recording URL
// are skipped; a call-log entry accepts at most one linked recording and
// the first writer wins. Of the candidates passing the phone and time
// tests, the one with the smallest time delta wins, first in input order
// on a tie.
func FindMatch(rec File, candidates []CallLogRecord) *CallLogRecord {
	if rec.RawPhoneNumber == "" || rec.CapturedAt.IsZero() {
		return nil
	}

	recPhone := digitsOnly(rec.RawPhoneNumber)

	var (
		best      *CallLogRecord
		bestDelta time.Duration
	)

	for i := range candidates {
		c := &candidates[i]

		if c.RecordingURL != "" {
			continue
		}

		if !phoneMatches(recPhone, c) {
			continue
		}

		if c.StartTime.IsZero() {
			continue
		}

		delta := c.StartTime.Sub(rec.CapturedAt)
		if delta < 0 {
			delta = -delta
		}

		if delta > matchWindow {
			continue
		}

		if best == nil || delta < bestDelta {
			best = c
			bestDelta = delta
		}
	}

	return best
}

// phoneMatches applies the dual phone test against both the candidate's
// phone number and customer id: last-10-digit suffix equality, or
// substring containment in either direction. The containment leg absorbs
// country-code prefix variants (+91, 0091, bare 10 digits) without a
// canonical format; it is deliberately permissive, trading rare false
// positives for recall. Empty strings are excluded from containment so a
// candidate with no customer id does not match everything.
func phoneMatches(recPhone string, c *CallLogRecord) bool {
	if recPhone == "" {
		return false
	}

	for _, candPhone := range []string{digitsOnly(c.PhoneNumber), digitsOnly(c.CustomerID)} {
		if candPhone == "" {
			continue
		}

		if last10(recPhone) == last10(candPhone) {
			return true
		}

		if strings.Contains(candPhone, recPhone) || strings.Contains(recPhone, candPhone) {
			return true
		}
	}

	return false
}

func last10(digits string) string {
	if len(digits) <= 10 {
		return digits
	}

	return digits[len(digits)-10:]
}

func digitsOnly(s string) string {
	var b strings.Builder

	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}
