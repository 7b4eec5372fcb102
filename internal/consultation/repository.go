package consultation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound       = errors.New("client not found")
	ErrExpertNotFound       = errors.New("expert not found")
	ErrConsultationNotFound = errors.New("consultation not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error)
	GetExpertByID(ctx context.Context, id uuid.UUID) (*Expert, error)

	GetConsultationByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	GetConsultationDetail(ctx context.Context, id uuid.UUID) (*ConsultationDetail, error)

	// FetchForViewer returns every consultation the viewer is a party to.
	FetchForViewer(ctx context.Context, viewerID uuid.UUID, role Role) ([]Consultation, error)

	// For double-booking checks inside the booking lock.
	FindActiveForExpertAt(ctx context.Context, expertID uuid.UUID, scheduledAt time.Time) (*Consultation, error)

	CreateScheduled(ctx context.Context, id, clientID, expertID uuid.UUID, scheduledAt time.Time, meetingLink *string, topic *string) (*Consultation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Consultation, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, scheduledAt *time.Time, topic *string) (*Consultation, error)

	// Session worker
	FindStaleInProgress(ctx context.Context, cutoff time.Time) ([]Consultation, error)

	// Availability ranges an expert published for one date (YYYY-MM-DD).
	FetchAvailability(ctx context.Context, expertID uuid.UUID, date string) ([]AvailabilityRange, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
