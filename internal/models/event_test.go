package models

import (
	"testing"
	"time"
)

func TestOnDate(t *testing.T) {
	event := &CalendarEvent{
		ID:    "E1",
		Start: time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
		Type:  EventTypeOther,
	}

	if !event.OnDate(time.Date(2024, 1, 16, 23, 59, 0, 0, time.UTC)) {
		t.Error("Expected match for same UTC day")
	}
	if event.OnDate(time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)) {
		t.Error("Expected no match for the next day")
	}
}

func TestOnDateAcrossZones(t *testing.T) {
	// 23:30 UTC on the 16th; in UTC+2 the clock already reads the 17th.
	event := &CalendarEvent{
		ID:    "E1",
		Start: time.Date(2024, 1, 16, 23, 30, 0, 0, time.UTC),
		Type:  EventTypeOther,
	}

	local := time.FixedZone("local", 2*60*60)
	sameInstantLocal := time.Date(2024, 1, 17, 1, 30, 0, 0, local)

	if !event.OnDate(sameInstantLocal) {
		t.Error("Expected match when both times fall on the same UTC day")
	}
	if !event.OnDate(time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)) {
		t.Error("Expected match for midday on the same UTC day")
	}

	// 22:30 local on the 17th is 20:30 UTC on the 17th, a different day.
	if event.OnDate(time.Date(2024, 1, 17, 22, 30, 0, 0, local)) {
		t.Error("Expected no match for a time on the next UTC day")
	}
}
