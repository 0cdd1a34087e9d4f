package seatstore

import "testing"

func TestRowLabel_SpreadsheetStyle(t *testing.T) {
	cases := map[int]string{
		0:  "A",
		1:  "B",
		25: "Z",
		26: "AA",
		27: "AB",
		51: "AZ",
		52: "BA",
	}
	for i, want := range cases {
		if got := rowLabel(i); got != want {
			t.Errorf("rowLabel(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestContainsLockNoWaitCode(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Error 3572: Statement aborted because lock(s) could not be acquired immediately", true},
		{"Error 1205: Lock wait timeout exceeded", false},
		{"", false},
		{"3572", true},
	}
	for _, tc := range cases {
		if got := containsLockNoWaitCode(tc.msg); got != tc.want {
			t.Errorf("containsLockNoWaitCode(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestEvent_TotalSeats(t *testing.T) {
	ev := Event{Rows: 10, Cols: 12}
	if ev.TotalSeats() != 120 {
		t.Fatalf("expected 120 total seats, got %d", ev.TotalSeats())
	}
}
