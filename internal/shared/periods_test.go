package shared

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPeriodContaining(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"first day", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), "2026-08-H1"},
		{"day fifteen", time.Date(2026, 8, 15, 23, 59, 0, 0, time.UTC), "2026-08-H1"},
		{"day sixteen", time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC), "2026-08-H2"},
		{"last day", time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC), "2026-08-H2"},
		{"february", time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), "2026-02-H2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PeriodContaining(tc.at).String()
			if got != tc.want {
				t.Fatalf("PeriodContaining(%s) = %s, want %s", tc.at, got, tc.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2026-08-h1")
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if p.Type != PeriodFirstHalf {
		t.Fatalf("type = %s, want %s", p.Type, PeriodFirstHalf)
	}
	if !p.Date.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %s, want month anchor", p.Date)
	}

	for _, raw := range []string{"", "2026-08", "2026-8-H1", "2026-08-H3", "agosto-H1"} {
		if _, err := ParsePeriod(raw); err == nil {
			t.Fatalf("ParsePeriod(%q) accepted malformed code", raw)
		}
	}
}

func TestPeriodBounds(t *testing.T) {
	first := NewPeriod(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC), PeriodFirstHalf)
	if got := first.Start(); !got.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first half start = %s", got)
	}
	if got := first.End(); !got.Equal(time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first half end = %s", got)
	}

	second := NewPeriod(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), PeriodSecondHalf)
	if got := second.Start(); !got.Equal(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("second half start = %s", got)
	}
	if got := second.End(); !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("second half end = %s", got)
	}
}

func TestPeriodJSONRoundTrip(t *testing.T) {
	in := NewPeriod(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), PeriodSecondHalf)
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2026-08-H2"` {
		t.Fatalf("marshal = %s", data)
	}
	var out Period
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
}

func TestValidatePeriodTransition(t *testing.T) {
	cases := []struct {
		current string
		target  string
		ok      bool
	}{
		{PeriodStatusOpen, PeriodStatusClosing, true},
		{PeriodStatusClosing, PeriodStatusArchived, true},
		{PeriodStatusOpen, PeriodStatusOpen, true},
		{PeriodStatusArchived, PeriodStatusArchived, true},
		{PeriodStatusOpen, PeriodStatusArchived, false},
		{PeriodStatusClosing, PeriodStatusOpen, false},
		{PeriodStatusArchived, PeriodStatusOpen, false},
		{PeriodStatusArchived, PeriodStatusClosing, false},
	}
	for _, tc := range cases {
		err := ValidatePeriodTransition(tc.current, tc.target)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tc.current, tc.target, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s -> %s: transition allowed", tc.current, tc.target)
		}
	}
}
