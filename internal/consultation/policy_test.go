package consultation

import (
	"errors"
	"testing"
	"time"
)

var policyNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func scheduledAt(offset time.Duration) Consultation {
	return Consultation{
		ScheduledAt: policyNow.Add(offset),
		Status:      StatusScheduled,
	}
}

func TestEvaluateJoinEligibility_RoleAsymmetry(t *testing.T) {
	// 20 minutes out: beyond the client window, inside the expert join
	// window, beyond the expert start sub-window.
	c := scheduledAt(20 * time.Minute)

	clientElig, err := EvaluateJoinEligibility(c, policyNow, RoleClient)
	if err != nil {
		t.Fatalf("client: unexpected error: %v", err)
	}
	if clientElig.CanJoin {
		t.Error("client should not be joinable 20m out")
	}
	if clientElig.Label != "In 20m" {
		t.Errorf("client label = %q, want %q", clientElig.Label, "In 20m")
	}

	expertElig, err := EvaluateJoinEligibility(c, policyNow, RoleExpert)
	if err != nil {
		t.Fatalf("expert: unexpected error: %v", err)
	}
	if !expertElig.CanJoin {
		t.Error("expert should be joinable 20m out")
	}
	if expertElig.CanStart {
		t.Error("expert should not be startable 20m out")
	}
	if expertElig.Label != LabelJoinCall {
		t.Errorf("expert label = %q, want %q", expertElig.Label, LabelJoinCall)
	}
}

func TestEvaluateJoinEligibility_WindowBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		offset   time.Duration
		role     Role
		wantJoin bool
	}{
		{"client upper bound inclusive", 15 * time.Minute, RoleClient, true},
		{"client just past upper bound", 15*time.Minute + time.Second, RoleClient, false},
		{"client lower bound inclusive", -30 * time.Minute, RoleClient, true},
		{"client just past lower bound", -30*time.Minute - time.Second, RoleClient, false},
		{"expert upper bound inclusive", 30 * time.Minute, RoleExpert, true},
		{"expert just past upper bound", 30*time.Minute + time.Second, RoleExpert, false},
		{"expert lower bound inclusive", -60 * time.Minute, RoleExpert, true},
		{"expert just past lower bound", -60*time.Minute - time.Second, RoleExpert, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elig, err := EvaluateJoinEligibility(scheduledAt(tt.offset), policyNow, tt.role)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if elig.CanJoin != tt.wantJoin {
				t.Errorf("CanJoin = %v, want %v (label %q)", elig.CanJoin, tt.wantJoin, elig.Label)
			}
		})
	}
}

func TestEvaluateJoinEligibility_ExpertStartSubWindow(t *testing.T) {
	tests := []struct {
		name      string
		offset    time.Duration
		wantStart bool
		wantLabel string
	}{
		{"five minutes out", 5 * time.Minute, true, LabelStartCall},
		{"exactly on time", 0, true, LabelStartCall},
		{"just past scheduled", -time.Second, false, LabelJoinCall},
		{"just beyond start lead", 5*time.Minute + time.Second, false, LabelJoinCall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elig, err := EvaluateJoinEligibility(scheduledAt(tt.offset), policyNow, RoleExpert)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if elig.CanStart != tt.wantStart {
				t.Errorf("CanStart = %v, want %v", elig.CanStart, tt.wantStart)
			}
			if elig.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", elig.Label, tt.wantLabel)
			}
			if !elig.CanJoin {
				t.Error("inside the expert window CanJoin must be true")
			}
		})
	}
}

func TestEvaluateJoinEligibility_CountdownLabel(t *testing.T) {
	tests := []struct {
		offset time.Duration
		want   string
	}{
		{45 * time.Minute, "In 45m"},
		{90 * time.Minute, "In 1h 30m"},
		{2 * time.Hour, "In 2h 0m"},
		{25 * time.Hour, "In 25h 0m"},
	}

	for _, tt := range tests {
		elig, err := EvaluateJoinEligibility(scheduledAt(tt.offset), policyNow, RoleClient)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elig.Label != tt.want {
			t.Errorf("offset %s: label = %q, want %q", tt.offset, elig.Label, tt.want)
		}
	}
}

func TestEvaluateJoinEligibility_TerminalStatuses(t *testing.T) {
	completed := scheduledAt(10 * time.Minute)
	completed.Status = StatusCompleted

	elig, err := EvaluateJoinEligibility(completed, policyNow, RoleClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elig.Label != LabelCompleted || elig.CanJoin || elig.CanStart {
		t.Errorf("completed: got %+v", elig)
	}

	cancelled := scheduledAt(0)
	cancelled.Status = StatusCancelled

	elig, err = EvaluateJoinEligibility(cancelled, policyNow, RoleExpert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elig.Label != LabelCancelled || elig.CanJoin || elig.CanStart {
		t.Errorf("cancelled: got %+v", elig)
	}
}

func TestEvaluateJoinEligibility_InProgress(t *testing.T) {
	// Way past any window; the expert can still rejoin a live call.
	c := scheduledAt(-3 * time.Hour)
	c.Status = StatusInProgress

	expertElig, err := EvaluateJoinEligibility(c, policyNow, RoleExpert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !expertElig.CanJoin || expertElig.Label != LabelJoinCall {
		t.Errorf("expert rejoin: got %+v", expertElig)
	}

	clientElig, err := EvaluateJoinEligibility(c, policyNow, RoleClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clientElig.CanJoin {
		t.Error("client window has passed, should not be joinable")
	}

	// Inside the client window the client can join a live call too.
	c.ScheduledAt = policyNow.Add(-10 * time.Minute)
	clientElig, err = EvaluateJoinEligibility(c, policyNow, RoleClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !clientElig.CanJoin || clientElig.Label != LabelJoinCall {
		t.Errorf("client in-window rejoin: got %+v", clientElig)
	}
}

func TestEvaluateJoinEligibility_Missed(t *testing.T) {
	elig, err := EvaluateJoinEligibility(scheduledAt(-2*time.Hour), policyNow, RoleClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elig.Label != LabelMissed || elig.CanJoin {
		t.Errorf("got %+v, want missed and not joinable", elig)
	}
}

func TestEvaluateJoinEligibility_InvalidRole(t *testing.T) {
	_, err := EvaluateJoinEligibility(scheduledAt(0), policyNow, Role("admin"))
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("err = %v, want ErrInvalidRole", err)
	}
}

func TestEvaluateJoinEligibility_Pure(t *testing.T) {
	c := scheduledAt(10 * time.Minute)
	first, err := EvaluateJoinEligibility(c, policyNow, RoleClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := EvaluateJoinEligibility(c, policyNow, RoleClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("same inputs produced %+v then %+v", first, second)
	}
}
