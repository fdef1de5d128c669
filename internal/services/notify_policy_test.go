package services

import (
	"commute-eta-service/internal/domain"
	"testing"
	"time"
)

func TestShouldNotifyWindow(t *testing.T) {
	departure := time.Date(2026, 3, 10, 8, 35, 0, 0, time.UTC)
	trigger := departure.Add(-15 * time.Minute)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"example 08:20:30", time.Date(2026, 3, 10, 8, 20, 30, 0, time.UTC), true},
		{"at trigger", trigger, true},
		{"60s after", trigger.Add(60 * time.Second), true},
		{"60s before", trigger.Add(-60 * time.Second), true},
		{"just past window", trigger.Add(60*time.Second + time.Millisecond), false},
		{"just before window", trigger.Add(-60*time.Second - time.Millisecond), false},
		{"at departure", departure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldNotify(departure, 15, tt.now); got != tt.want {
				t.Fatalf("ShouldNotify(now=%s) = %v, want %v", tt.now.Format("15:04:05.000"), got, tt.want)
			}
		})
	}
}

func TestNotificationPolicyMatchesShouldNotify(t *testing.T) {
	p := NotificationPolicy{Lead: 10 * time.Minute, Tolerance: NotifyTolerance}
	departure := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for offset := -3 * time.Minute; offset <= 3*time.Minute; offset += 15 * time.Second {
		now := p.NotifyAt(departure).Add(offset)
		if p.ShouldNotify(departure, now) != ShouldNotify(departure, 10, now) {
			t.Fatalf("policy and function disagree at offset %v", offset)
		}
	}
}

func TestTimeUntilNotification(t *testing.T) {
	departure := time.Date(2026, 3, 10, 8, 35, 0, 0, time.UTC)

	if got := TimeUntilNotification(departure, 15*time.Minute, departure.Add(-time.Hour)); got != 45*time.Minute {
		t.Fatalf("got %v, want 45m", got)
	}
	if got := TimeUntilNotification(departure, 15*time.Minute, departure); got != 0 {
		t.Fatalf("got %v, want 0 once the alert is due", got)
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "Now"},
		{-time.Minute, "Now"},
		{30 * time.Second, "0m"},
		{12 * time.Minute, "12m"},
		{65 * time.Minute, "1h 5m"},
		{23*time.Hour + 59*time.Minute, "23h 59m"},
		{27 * time.Hour, "1d 3h"},
	}

	for _, tt := range tests {
		if got := FormatCountdown(tt.d); got != tt.want {
			t.Errorf("FormatCountdown(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestDepartureNotificationPayload(t *testing.T) {
	route := &domain.Route{ID: "r1", Name: "Work"}
	est := domain.DurationEstimate{DurationInTrafficText: "30 min"}

	n := DepartureNotification(route, est)
	if n.Title != "Time to leave for Work!" {
		t.Errorf("title = %q", n.Title)
	}
	if n.Body != "You should leave now to arrive on time.\nEstimated travel time: 30 min" {
		t.Errorf("body = %q", n.Body)
	}
	if n.Tag != "departure-Work" || !n.RequireInteraction || n.RouteID != "r1" {
		t.Errorf("unexpected notification: %+v", n)
	}

	test := TestNotification()
	if test.Title != "ETA Now Test" || test.Tag != "test-notification" {
		t.Errorf("unexpected test notification: %+v", test)
	}
}
