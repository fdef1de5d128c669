package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with no date component.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a 24h "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: expected HH:MM", s)
	}

	hour, err := strconv.Atoi(h)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: hour: %w", s, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: minute: %w", s, err)
	}

	t := TimeOfDay{Hour: hour, Minute: minute}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: out of range", s)
	}
	return t, nil
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// On returns the instant at this time of day on the calendar date of day,
// in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal time of day: invalid %d:%d", t.Hour, t.Minute)
	}
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Route is a user's saved commute definition.
type Route struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	Name                 string     `json:"name"`
	FromLocation         string     `json:"fromLocation"`
	ToLocation           string     `json:"toLocation"`
	TargetArrivalTime    TimeOfDay  `json:"targetArrivalTime"`
	NotificationsEnabled bool       `json:"notificationsEnabled"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            *time.Time `json:"updatedAt,omitempty"`
	ImportedAt           *time.Time `json:"importedAt,omitempty"`
}

// RouteInput is the raw user submission for a new route.
// TargetArrivalTime stays a string so that malformed values surface as
// field errors rather than decode failures.
type RouteInput struct {
	Name                 string `json:"name"`
	FromLocation         string `json:"fromLocation"`
	ToLocation           string `json:"toLocation"`
	TargetArrivalTime    string `json:"targetArrivalTime"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
}

// RoutePatch carries a partial update; nil fields are left unchanged.
type RoutePatch struct {
	Name                 *string `json:"name,omitempty"`
	FromLocation         *string `json:"fromLocation,omitempty"`
	ToLocation           *string `json:"toLocation,omitempty"`
	TargetArrivalTime    *string `json:"targetArrivalTime,omitempty"`
	NotificationsEnabled *bool   `json:"notificationsEnabled,omitempty"`
}

// SameLocation reports whether two free-text locations name the same place
// after trimming and case folding.
func SameLocation(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Validate checks the input and converts it to route fields.
// The returned error is a *ValidationError.
func (in RouteInput) Validate() (Route, error) {
	ve := NewValidationError()

	name := strings.TrimSpace(in.Name)
	from := strings.TrimSpace(in.FromLocation)
	to := strings.TrimSpace(in.ToLocation)

	if name == "" {
		ve.Add("name", "Route name is required")
	}
	if from == "" {
		ve.Add("fromLocation", "From location is required")
	}
	if to == "" {
		ve.Add("toLocation", "To location is required")
	}
	if from != "" && to != "" && SameLocation(from, to) {
		ve.Set("toLocation", "From and To locations cannot be the same")
	}

	var target TimeOfDay
	if strings.TrimSpace(in.TargetArrivalTime) == "" {
		ve.Add("targetArrivalTime", "Target arrival time is required")
	} else {
		t, err := ParseTimeOfDay(in.TargetArrivalTime)
		if err != nil {
			ve.Add("targetArrivalTime", "Target arrival time must be a valid HH:MM time")
		}
		target = t
	}

	if err := ve.OrNil(); err != nil {
		return Route{}, err
	}

	return Route{
		Name:                 name,
		FromLocation:         from,
		ToLocation:           to,
		TargetArrivalTime:    target,
		NotificationsEnabled: in.NotificationsEnabled,
	}, nil
}

// Input returns the route's editable fields in submission form.
func (r *Route) Input() RouteInput {
	return RouteInput{
		Name:                 r.Name,
		FromLocation:         r.FromLocation,
		ToLocation:           r.ToLocation,
		TargetArrivalTime:    r.TargetArrivalTime.String(),
		NotificationsEnabled: r.NotificationsEnabled,
	}
}

// Apply merges the patch over the route's current fields and validates the
// result. The route itself is not modified.
func (p RoutePatch) Apply(r *Route) (Route, error) {
	in := r.Input()
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.FromLocation != nil {
		in.FromLocation = *p.FromLocation
	}
	if p.ToLocation != nil {
		in.ToLocation = *p.ToLocation
	}
	if p.TargetArrivalTime != nil {
		in.TargetArrivalTime = *p.TargetArrivalTime
	}
	if p.NotificationsEnabled != nil {
		in.NotificationsEnabled = *p.NotificationsEnabled
	}

	fields, err := in.Validate()
	if err != nil {
		return Route{}, err
	}

	out := *r
	out.Name = fields.Name
	out.FromLocation = fields.FromLocation
	out.ToLocation = fields.ToLocation
	out.TargetArrivalTime = fields.TargetArrivalTime
	out.NotificationsEnabled = fields.NotificationsEnabled
	return out, nil
}
