package notify

import (
	"commute-eta-service/internal/domain"
	"context"
	"errors"
	"testing"
)

func TestGateRequestPermission(t *testing.T) {
	tests := []struct {
		name      string
		initial   domain.PermissionState
		answer    domain.PermissionState
		want      domain.PermissionState
		wantError bool
	}{
		{"default granted", domain.PermissionDefault, domain.PermissionGranted, domain.PermissionGranted, false},
		{"default declined", domain.PermissionDefault, domain.PermissionDenied, domain.PermissionDenied, false},
		{"already granted", domain.PermissionGranted, domain.PermissionDenied, domain.PermissionGranted, false},
		{"denied", domain.PermissionDenied, domain.PermissionGranted, domain.PermissionDenied, true},
		{"unsupported", domain.PermissionUnsupported, domain.PermissionGranted, domain.PermissionUnsupported, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGate(&Recorder{}, tt.initial, tt.answer)
			if err != nil {
				t.Fatal(err)
			}

			got, err := g.RequestPermission(context.Background())
			if tt.wantError {
				if !errors.Is(err, domain.ErrPermissionDenied) {
					t.Fatalf("err = %v, want ErrPermissionDenied", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || g.PermissionState() != tt.want {
				t.Fatalf("state = %q/%q, want %q", got, g.PermissionState(), tt.want)
			}
		})
	}
}

func TestGateDeliverRequiresGrant(t *testing.T) {
	rec := &Recorder{}
	g, _ := NewGate(rec, domain.PermissionDefault, domain.PermissionGranted)
	n := domain.Notification{Title: "t", Tag: "x"}

	if err := g.Deliver(context.Background(), n); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if len(rec.Sent()) != 0 {
		t.Fatal("delivered without permission")
	}

	if _, err := g.RequestPermission(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := g.Deliver(context.Background(), n); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if sent := rec.Sent(); len(sent) != 1 || sent[0] != n {
		t.Fatalf("sent = %v", sent)
	}
}

func TestGateDeliverPropagatesTransportError(t *testing.T) {
	boom := errors.New("broker down")
	g, _ := NewGate(&Recorder{Err: boom}, domain.PermissionGranted, domain.PermissionGranted)

	if err := g.Deliver(context.Background(), domain.Notification{Tag: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestNewGateRejectsBadConfig(t *testing.T) {
	if _, err := NewGate(nil, domain.PermissionDefault, domain.PermissionGranted); err == nil {
		t.Error("expected error for nil transport")
	}
	if _, err := NewGate(&Recorder{}, "maybe", domain.PermissionGranted); err == nil {
		t.Error("expected error for invalid initial state")
	}
	if _, err := NewGate(&Recorder{}, domain.PermissionDefault, domain.PermissionDefault); err == nil {
		t.Error("expected error for default answer")
	}
}

func TestGateNotificationTopic(t *testing.T) {
	if got := NotificationTopic("commute/", "u1"); got != "commute/u1/notifications" {
		t.Fatalf("topic = %q", got)
	}
}

func TestMQTTConfigValidate(t *testing.T) {
	cfg := MQTTConfig{BrokerURL: "mqtt://localhost:1883", ClientID: "c"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing user id")
	}
	cfg.UserID = "u1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
