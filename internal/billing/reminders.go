package billing

import (
	"fmt"
	"time"
)

// Tone picks the wording of a reminder email.
type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
	ToneUrgent       Tone = "urgent"
)

// Valid reports whether t is one of the known tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneFriendly, ToneProfessional, ToneUrgent:
		return true
	}
	return false
}

// Rung is one step of a reminder ladder. DayOffset is relative to the
// invoice due date: negative means before, zero is the due date itself,
// positive means after.
type Rung struct {
	DayOffset int  `json:"day_offset"`
	Tone      Tone `json:"tone"`
}

// Ladder is a reminder schedule, one rung per offset.
type Ladder []Rung

// Validate rejects duplicate offsets and unknown tones.
func (l Ladder) Validate() error {
	seen := make(map[int]bool, len(l))
	for _, r := range l {
		if seen[r.DayOffset] {
			return &ConfigError{Field: "day_offset", Reason: fmt.Sprintf("duplicate value %d", r.DayOffset)}
		}
		seen[r.DayOffset] = true
		if !r.Tone.Valid() {
			return &ConfigError{Field: "tone", Reason: fmt.Sprintf("unknown value %q", r.Tone)}
		}
	}
	return nil
}

// FindDueReminder returns the ladder rung whose offset matches asOf exactly,
// or nil when no rung lands on that day. A match requires the offset to hit
// the day precisely: a rung skipped yesterday is never sent today.
func FindDueReminder(dueDate, asOf time.Time, ladder Ladder) *Rung {
	offset := DayDifference(asOf, dueDate)
	for _, r := range ladder {
		if r.DayOffset == offset {
			rung := r
			return &rung
		}
	}
	return nil
}
