package consultation

import (
	"errors"
	"fmt"
	"time"
)

// Join windows, expressed as closed intervals on (scheduledAt - now).
// A positive bound is lead time before the call, a negative bound is how
// long after the scheduled instant the action stays open.
const (
	clientJoinLead = 15 * time.Minute
	clientJoinTail = 30 * time.Minute

	expertJoinLead = 30 * time.Minute
	expertJoinTail = 60 * time.Minute

	// The expert may perform the first scheduled -> in-progress transition
	// only in the final minutes before the scheduled instant.
	expertStartLead = 5 * time.Minute
)

// Button labels shared with the presentation layer.
const (
	LabelCompleted  = "Completed"
	LabelCancelled  = "Cancelled"
	LabelJoinCall   = "Join Call"
	LabelStartCall  = "Start Call"
	LabelMissed     = "Missed"
	LabelInProgress = "In Progress"
)

var ErrInvalidRole = errors.New("invalid viewer role")

// EvaluateJoinEligibility decides, for one consultation snapshot at one
// instant, whether the viewer may join or start the call and what label the
// UI should show. It is a pure function of its three arguments; callers must
// exclude records with a zero ScheduledAt before calling.
func EvaluateJoinEligibility(c Consultation, now time.Time, role Role) (Eligibility, error) {
	if role != RoleClient && role != RoleExpert {
		return Eligibility{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	switch c.Status {
	case StatusCompleted:
		return Eligibility{Label: LabelCompleted}, nil
	case StatusCancelled:
		return Eligibility{Label: LabelCancelled}, nil
	}

	until := c.ScheduledAt.Sub(now)

	if c.Status == StatusInProgress {
		// The expert may always rejoin a live call. The client stays bound
		// by the client window.
		if role == RoleExpert {
			return Eligibility{Label: LabelJoinCall, CanJoin: true}, nil
		}
		switch {
		case until >= -clientJoinTail && until <= clientJoinLead:
			return Eligibility{Label: LabelJoinCall, CanJoin: true}, nil
		case until > clientJoinLead:
			return Eligibility{Label: countdownLabel(until)}, nil
		default:
			return Eligibility{Label: LabelInProgress}, nil
		}
	}

	// status == scheduled
	switch role {
	case RoleClient:
		switch {
		case until >= -clientJoinTail && until <= clientJoinLead:
			return Eligibility{Label: LabelJoinCall, CanJoin: true}, nil
		case until > clientJoinLead:
			return Eligibility{Label: countdownLabel(until)}, nil
		default:
			return Eligibility{Label: LabelMissed}, nil
		}
	default: // RoleExpert
		switch {
		case until >= 0 && until <= expertStartLead:
			return Eligibility{Label: LabelStartCall, CanJoin: true, CanStart: true}, nil
		case until >= -expertJoinTail && until <= expertJoinLead:
			return Eligibility{Label: LabelJoinCall, CanJoin: true}, nil
		case until > expertJoinLead:
			return Eligibility{Label: countdownLabel(until)}, nil
		default:
			return Eligibility{Label: LabelMissed}, nil
		}
	}
}

// countdownLabel renders "In Xh Ym", dropping the hour part when zero.
func countdownLabel(until time.Duration) string {
	mins := int(until.Minutes())
	if h := mins / 60; h > 0 {
		return fmt.Sprintf("In %dh %dm", h, mins%60)
	}
	return fmt.Sprintf("In %dm", mins)
}
