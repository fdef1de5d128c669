package services

import (
	"commute-eta-service/internal/domain"
	"fmt"
	"math"
	"time"
)

const (
	DefaultLeadMinutes = 15
	// NotifyTolerance is the half-width of the window around the
	// notification instant in which an alert fires.
	NotifyTolerance = 60 * time.Second
)

// ShouldNotify reports whether now is within one minute, inclusive, of
// leadMinutes before departure.
func ShouldNotify(departure time.Time, leadMinutes float64, now time.Time) bool {
	return NotificationPolicy{
		Lead:      minutesToDuration(leadMinutes),
		Tolerance: NotifyTolerance,
	}.ShouldNotify(departure, now)
}

func minutesToDuration(m float64) time.Duration {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0
	}
	return time.Duration(m * float64(time.Minute))
}

// NotificationPolicy decides when a departure alert is due.
type NotificationPolicy struct {
	Lead      time.Duration
	Tolerance time.Duration
}

func DefaultPolicy() NotificationPolicy {
	return NotificationPolicy{Lead: DefaultLeadMinutes * time.Minute, Tolerance: NotifyTolerance}
}

// NotifyAt is the instant the alert for departure is due.
func (p NotificationPolicy) NotifyAt(departure time.Time) time.Time {
	return departure.Add(-p.Lead)
}

func (p NotificationPolicy) ShouldNotify(departure, now time.Time) bool {
	diff := now.Sub(p.NotifyAt(departure))
	if diff < 0 {
		diff = -diff
	}
	return diff <= p.Tolerance
}

// TimeUntilNotification is how long until the alert for departure is due,
// never negative.
func TimeUntilNotification(departure time.Time, lead time.Duration, now time.Time) time.Duration {
	d := departure.Add(-lead).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// FormatCountdown renders d as "Now", "2d 3h", "1h 5m" or "12m".
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "Now"
	}

	minutes := int(d / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// DepartureNotification is the alert telling the user to leave for route.
func DepartureNotification(route *domain.Route, est domain.DurationEstimate) domain.Notification {
	return domain.Notification{
		Title:              fmt.Sprintf("Time to leave for %s!", route.Name),
		Body:               "You should leave now to arrive on time.\nEstimated travel time: " + est.DurationInTrafficText,
		Tag:                "departure-" + route.Name,
		RequireInteraction: true,
		RouteID:            route.ID,
	}
}

// TestNotification confirms that alerts reach the user.
func TestNotification() domain.Notification {
	return domain.Notification{
		Title: "ETA Now Test",
		Body:  "Notifications are working correctly!",
		Tag:   "test-notification",
	}
}
