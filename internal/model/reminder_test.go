package model

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestBuildCustomReminderSingle(t *testing.T) {
	date := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
	rem, err := BuildCustomReminder(ReminderSingle, time.Time{}, date, "07:30", nil)
	if err != nil {
		t.Fatalf("build single: %v", err)
	}
	if !reflect.DeepEqual(rem.Times, []string{"2024-01-09 07:30"}) || rem.Time != "07:30" {
		t.Fatalf("unexpected reminder: %+v", rem)
	}
}

func TestBuildCustomReminderMultiple(t *testing.T) {
	due := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	rem, err := BuildCustomReminder(ReminderMultiple, due, time.Time{}, "18:00", []int{1, 3})
	if err != nil {
		t.Fatalf("build multiple: %v", err)
	}
	want := []string{"2024-01-09 18:00", "2024-01-07 18:00"}
	if !reflect.DeepEqual(rem.Times, want) {
		t.Fatalf("times = %v, want %v", rem.Times, want)
	}
}

func TestBuildCustomReminderRejectsInput(t *testing.T) {
	due := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	if _, err := BuildCustomReminder(ReminderMultiple, due, time.Time{}, "25:00", []int{1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected clock validation error, got %v", err)
	}
	if _, err := BuildCustomReminder(ReminderMultiple, due, time.Time{}, "08:00", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected empty offsets error, got %v", err)
	}
	if _, err := BuildCustomReminder(ReminderMultiple, due, time.Time{}, "08:00", []int{0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected offset error, got %v", err)
	}
}

func TestCustomReminderInstantsSkipsBadEntries(t *testing.T) {
	rem := CustomReminder{Type: ReminderMultiple, Times: []string{"2024-01-09 08:00", "nope"}}
	got := rem.Instants(time.UTC)
	if len(got) != 1 || !got[0].Equal(time.Date(2024, 1, 9, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected instants: %v", got)
	}
	if err := rem.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReminderOffset(t *testing.T) {
	if d, ok := ReminderOffset("1 hour"); !ok || d != time.Hour {
		t.Fatalf("unexpected offset %v %v", d, ok)
	}
	if _, ok := ReminderOffset(ReminderCustom); ok {
		t.Fatal("custom has no offset")
	}
}
