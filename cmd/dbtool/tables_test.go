package main

import (
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/services"
	"strings"
	"testing"
	"time"
)

func TestDeparturesTable(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	work := &domain.Route{ID: "r1", Name: "Work", TargetArrivalTime: domain.TimeOfDay{Hour: 9}, NotificationsEnabled: true}
	gym := &domain.Route{ID: "r2", Name: "Gym", TargetArrivalTime: domain.TimeOfDay{Hour: 18}}
	school := &domain.Route{ID: "r3", Name: "School", TargetArrivalTime: domain.TimeOfDay{Hour: 7, Minute: 45}}

	dep, err := domain.ComputeDeparture(work.TargetArrivalTime, 25, now)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	snap := services.Snapshot{
		Results: map[string]services.RouteResult{
			"r1": {
				Route:     *work,
				Estimate:  domain.DurationEstimate{DurationInTrafficText: "25 min", DistanceText: "10.0 mi", Source: domain.SourceLive},
				Departure: dep,
			},
		},
		Failures: map[string]services.RouteFailure{
			"r2": {RouteID: "r2", Error: "provider down"},
		},
	}

	out := departuresTable([]*domain.Route{work, gym, school}, snap, services.DefaultPolicy(), now).String()

	for _, want := range []string{"08:35", "35m (alert 20m)", "failed: provider down", "pending", "live"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRoutesTable(t *testing.T) {
	out := routesTable([]*domain.Route{{
		ID:                "r1",
		Name:              "Work",
		FromLocation:      "Home",
		ToLocation:        "Office",
		TargetArrivalTime: domain.TimeOfDay{Hour: 9},
	}}).String()

	if !strings.Contains(out, "09:00") || !strings.Contains(out, "off") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}
