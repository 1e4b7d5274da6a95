package domain

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
)

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name       string
		aStart     string
		aEnd       string
		bStart     string
		bEnd       string
		wantResult bool
	}{
		{"disjoint before", "2025-01-01", "2025-01-03", "2025-01-04", "2025-01-06", false},
		{"disjoint after", "2025-01-10", "2025-01-12", "2025-01-04", "2025-01-06", false},
		{"touching end", "2025-01-01", "2025-01-04", "2025-01-04", "2025-01-06", true},
		{"touching start", "2025-01-06", "2025-01-08", "2025-01-04", "2025-01-06", true},
		{"contained", "2025-01-05", "2025-01-05", "2025-01-04", "2025-01-06", true},
		{"containing", "2025-01-01", "2025-01-31", "2025-01-04", "2025-01-06", true},
		{"same day ranges", "2025-01-04", "2025-01-04", "2025-01-04", "2025-01-04", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a1, a2 := mustDate(t, tc.aStart), mustDate(t, tc.aEnd)
			b1, b2 := mustDate(t, tc.bStart), mustDate(t, tc.bEnd)
			if got := Overlaps(a1, a2, b1, b2); got != tc.wantResult {
				t.Fatalf("expected %v, got %v", tc.wantResult, got)
			}
			if got := Overlaps(b1, b2, a1, a2); got != tc.wantResult {
				t.Fatalf("expected symmetric result %v, got %v", tc.wantResult, got)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	if d, err := ParseDate("2024-02-29"); err != nil || d.String() != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %v (%v)", d, err)
	}

	for _, in := range []string{"", "2025-3-1", "2025/03/01", "2025-02-30", "2025-13-01", "01-03-2025", "tomorrow"} {
		if _, err := ParseDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q): expected ErrInvalidDate, got %v", in, err)
		}
	}
}

func TestParseRange(t *testing.T) {
	if _, _, err := ParseRange("2025-03-01", "2025-03-01"); err != nil {
		t.Fatalf("expected same-day range to be valid, got %v", err)
	}
	if _, _, err := ParseRange("2025-03-02", "2025-03-01"); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if _, _, err := ParseRange("2025-03-02", "bad"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestReservation_Nights(t *testing.T) {
	r := Reservation{Start: mustDate(t, "2025-03-01"), End: mustDate(t, "2025-03-01")}
	if n := r.Nights(); n != 1 {
		t.Fatalf("expected 1 night, got %d", n)
	}
	r.End = mustDate(t, "2025-03-04")
	if n := r.Nights(); n != 4 {
		t.Fatalf("expected 4 nights, got %d", n)
	}
}

func TestRoom_Fits(t *testing.T) {
	r := Room{ID: 1, MaxGuests: 2}
	if !r.Fits(2) {
		t.Fatalf("expected 2 guests to fit")
	}
	if r.Fits(3) {
		t.Fatalf("expected 3 guests not to fit")
	}
}
