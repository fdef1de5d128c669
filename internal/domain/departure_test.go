package domain

import (
	"errors"
	"testing"
	"time"
)

func TestComputeDepartureSameDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	info, err := ComputeDeparture(TimeOfDay{Hour: 9, Minute: 0}, 25, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantArrival := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wantDeparture := time.Date(2026, 3, 10, 8, 35, 0, 0, time.UTC)

	if !info.ArrivalAt.Equal(wantArrival) {
		t.Errorf("arrival = %v, want %v", info.ArrivalAt, wantArrival)
	}
	if !info.DepartureAt.Equal(wantDeparture) {
		t.Errorf("departure = %v, want %v", info.DepartureAt, wantDeparture)
	}
	if info.MinutesUntilDeparture != 35 {
		t.Errorf("minutes until departure = %d, want 35", info.MinutesUntilDeparture)
	}
	if info.DepartureTimeText != "08:35" || info.ArrivalTimeText != "09:00" {
		t.Errorf("texts = %q/%q, want 08:35/09:00", info.DepartureTimeText, info.ArrivalTimeText)
	}
	if info.Status != StatusOnTrack {
		t.Errorf("status = %q, want %q", info.Status, StatusOnTrack)
	}
}

func TestComputeDepartureRollsOverToTomorrow(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	info, err := ComputeDeparture(TimeOfDay{Hour: 7, Minute: 0}, 30, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantArrival := time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)
	if !info.ArrivalAt.Equal(wantArrival) {
		t.Fatalf("arrival = %v, want %v", info.ArrivalAt, wantArrival)
	}
	if !info.DepartureAt.Equal(wantArrival.Add(-30 * time.Minute)) {
		t.Fatalf("departure = %v, want 06:30 tomorrow", info.DepartureAt)
	}
}

func TestComputeDepartureRollsOverMonthEnd(t *testing.T) {
	now := time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC)

	info, err := ComputeDeparture(TimeOfDay{Hour: 6, Minute: 15}, 0, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2027, 1, 1, 6, 15, 0, 0, time.UTC)
	if !info.ArrivalAt.Equal(want) {
		t.Fatalf("arrival = %v, want %v", info.ArrivalAt, want)
	}
}

func TestComputeDepartureArrivalExactlyNowIsToday(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	info, err := ComputeDeparture(TimeOfDay{Hour: 9, Minute: 0}, 10, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.ArrivalAt.Equal(now) {
		t.Fatalf("arrival = %v, want %v", info.ArrivalAt, now)
	}
	if info.MinutesUntilDeparture != 0 {
		t.Fatalf("minutes until departure = %d, want 0", info.MinutesUntilDeparture)
	}
	if info.Status != StatusDeparted {
		t.Fatalf("status = %q, want %q", info.Status, StatusDeparted)
	}
}

func TestComputeDepartureRollover(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 30, 45, 0, time.UTC)

	for h := 0; h < 24; h++ {
		for _, m := range []int{0, 29, 30, 31, 59} {
			target := TimeOfDay{Hour: h, Minute: m}
			info, err := ComputeDeparture(target, 12.5, now)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", target, err)
			}

			today := target.On(now)
			want := today
			if today.Before(now) {
				want = today.AddDate(0, 0, 1)
			}
			if !info.ArrivalAt.Equal(want) {
				t.Errorf("%s: arrival = %v, want %v", target, info.ArrivalAt, want)
			}
			if got := info.ArrivalAt.Sub(info.DepartureAt); got != 12*time.Minute+30*time.Second {
				t.Errorf("%s: arrival - departure = %v, want 12m30s", target, got)
			}
			if info.MinutesUntilDeparture < 0 {
				t.Errorf("%s: negative countdown %d", target, info.MinutesUntilDeparture)
			}
		}
	}
}

func TestComputeDepartureAlreadyPastClampsToZero(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 50, 0, 0, time.UTC)

	info, err := ComputeDeparture(TimeOfDay{Hour: 9, Minute: 0}, 25, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.MinutesUntilDeparture != 0 {
		t.Fatalf("minutes until departure = %d, want 0", info.MinutesUntilDeparture)
	}
	if info.Status != StatusDeparted {
		t.Fatalf("status = %q, want %q", info.Status, StatusDeparted)
	}
}

func TestComputeDepartureFloorsMinutes(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 30, 0, time.UTC)

	// Departure 08:35:00 is 34m30s away.
	info, err := ComputeDeparture(TimeOfDay{Hour: 9, Minute: 0}, 25, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.MinutesUntilDeparture != 34 {
		t.Fatalf("minutes until departure = %d, want 34", info.MinutesUntilDeparture)
	}
	if info.Status != StatusOnTrack {
		t.Fatalf("status = %q, want %q", info.Status, StatusOnTrack)
	}
}

func TestComputeDepartureLeaveSoon(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 25, 0, 0, time.UTC)

	info, err := ComputeDeparture(TimeOfDay{Hour: 9, Minute: 0}, 25, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.MinutesUntilDeparture != 10 || info.Status != StatusLeaveSoon {
		t.Fatalf("got %d min / %q, want 10 / %q", info.MinutesUntilDeparture, info.Status, StatusLeaveSoon)
	}
}

func TestComputeDepartureRejectsNegativeTravel(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	_, err := ComputeDeparture(TimeOfDay{Hour: 9, Minute: 0}, -1, now)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestComputeDepartureKeepsLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2026, 3, 10, 22, 0, 0, 0, loc)

	info, err := ComputeDeparture(TimeOfDay{Hour: 7, Minute: 30}, 20, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ArrivalAt.Location() != loc {
		t.Fatalf("arrival location = %v, want %v", info.ArrivalAt.Location(), loc)
	}
	if info.ArrivalTimeText != "07:30" || info.DepartureTimeText != "07:10" {
		t.Fatalf("texts = %q/%q, want 07:30/07:10", info.ArrivalTimeText, info.DepartureTimeText)
	}
	if _, err := ParseTimeOfDay(info.DepartureTimeText); err != nil {
		t.Fatalf("departure text does not round-trip: %v", err)
	}
}

func TestDepartureInfoAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	info, err := ComputeDeparture(TimeOfDay{Hour: 9, Minute: 0}, 25, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	later := info.At(now.Add(30 * time.Minute))
	if later.MinutesUntilDeparture != 5 || later.Status != StatusLeaveSoon {
		t.Fatalf("got %d / %q, want 5 / %q", later.MinutesUntilDeparture, later.Status, StatusLeaveSoon)
	}
	if !later.DepartureAt.Equal(info.DepartureAt) {
		t.Fatalf("departure moved: %v -> %v", info.DepartureAt, later.DepartureAt)
	}
}
