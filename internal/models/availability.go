package models

import (
	"sort"
	"strings"
	"time"
)

// AvailabilitySlot is an admin-defined bookable window.
type AvailabilitySlot struct {
	ID             string        `json:"id"`
	Date           string        `json:"date"`
	Time           string        `json:"time"`
	IsBooked       bool          `json:"is_booked"`
	ConsultationID string        `json:"consultation_id,omitempty"`
	Consultation   *Consultation `json:"consultation,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

var clockLayouts = []string{"3:04 PM", "3:04PM", "3 PM", "3PM", "15:04", "15:04:05"}

// ClockMinutes parses a free-text slot time such as "9:30 AM" or "14:00"
// into minutes after midnight.
func ClockMinutes(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// SortSlots orders slots by date, then by clock time within a day. Times that
// do not parse go after the parsed ones in their original order.
func SortSlots(slots []*AvailabilitySlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		am, aok := ClockMinutes(a.Time)
		bm, bok := ClockMinutes(b.Time)
		switch {
		case aok && bok:
			return am < bm
		case aok != bok:
			return aok
		default:
			return false
		}
	})
}
