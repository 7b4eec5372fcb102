package consultation

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ValidTransition reports whether moving from one status to another is a
// legal forward transition. The lifecycle only moves forward:
// scheduled -> in-progress -> completed, with cancelled reachable from
// scheduled or in-progress and terminal thereafter.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusScheduled:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// Role identifies which side of the consultation is asking. The record
// itself carries no role; eligibility windows differ per viewer.
type Role string

const (
	RoleClient Role = "client"
	RoleExpert Role = "expert"
)

type Client struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Expert struct {
	ID         uuid.UUID
	Name       string
	Credential *string // IBCLC, CLC, ...
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Consultation struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	ExpertID    uuid.UUID
	ScheduledAt time.Time // UTC; zero value means the record is malformed
	Status      Status
	MeetingLink *string
	Topic       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailabilityRange is one wall-clock window of an expert's day,
// e.g. {"14:00", "17:30", true}. End is assumed same-day.
type AvailabilityRange struct {
	StartTime   string
	EndTime     string
	IsAvailable bool
}

// Eligibility is what the UI needs to render a consultation's call button.
type Eligibility struct {
	Label    string
	CanJoin  bool
	CanStart bool
}

// Buckets is the time-dependent partition of a consultation list. Every
// well-formed consultation lands in exactly one of the first four slices;
// Malformed collects records with no usable scheduled time so the caller
// can report them upstream.
type Buckets struct {
	Upcoming   []Consultation
	Completed  []Consultation
	PastMissed []Consultation
	Cancelled  []Consultation
	Malformed  []Consultation
}

type EventLog struct {
	ID             int64
	EventType      string
	ConsultationID *uuid.UUID
	Payload        []byte
	CreatedAt      time.Time
}

type ConsultationDetail struct {
	Consultation
	Client *Client
	Expert *Expert
}
