package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/naricare/consultation-scheduling/internal/config"
	redisclient "github.com/naricare/consultation-scheduling/internal/redis"
)

const (
	EventConsultationBooked    = "CONSULTATION_BOOKED"
	EventConsultationStarted   = "CONSULTATION_STARTED"
	EventConsultationCompleted = "CONSULTATION_COMPLETED"
	EventConsultationCancelled = "CONSULTATION_CANCELLED"
)

var (
	ErrSlotNotBookable         = errors.New("slot is not in the expert's bookable set")
	ErrSlotTaken               = errors.New("expert already has a consultation at that time")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrNotJoinable             = errors.New("consultation is not joinable right now")
	ErrNotStartable            = errors.New("consultation cannot be started right now")
	ErrNoMeetingLink           = errors.New("consultation has no meeting link")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	links  MeetingLinkResolver
	cfg    config.Config

	// now is swappable in tests; defaults to the UTC wall clock.
	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, links MeetingLinkResolver, cfg config.Config) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		links:  links,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Book reserves a slot on an expert's day for a client. It validates the
// slot against the expert's derived availability, then takes a distributed
// lock per expert+instant so two concurrent bookings for the same slot
// cannot both create a consultation.
func (s *Service) Book(ctx context.Context, clientID, expertID uuid.UUID, day time.Time, slot string, topic *string) (*Consultation, error) {
	if _, err := s.repo.GetClientByID(ctx, clientID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load client: %w", err)
	}
	if _, err := s.repo.GetExpertByID(ctx, expertID); err != nil {
		if errors.Is(err, ErrExpertNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load expert: %w", err)
	}

	if !contains(s.Slots(ctx, expertID, day), slot) {
		return nil, ErrSlotNotBookable
	}

	scheduledAt, err := SlotStartUTC(slot, day)
	if err != nil {
		return nil, ErrSlotNotBookable
	}

	var created *Consultation

	err = s.locker.WithBookingLock(ctx, expertID, scheduledAt, func(lockCtx context.Context) error {
		// Inside the critical section re-check for a live consultation at
		// the same instant for this expert.
		existing, err := s.repo.FindActiveForExpertAt(lockCtx, expertID, scheduledAt)
		if err != nil && !errors.Is(err, ErrConsultationNotFound) {
			return fmt.Errorf("check expert conflict: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		id := uuid.New()
		link, err := s.links.Resolve(lockCtx, id)
		if err != nil {
			return fmt.Errorf("resolve meeting link: %w", err)
		}

		c, err := s.repo.CreateScheduled(lockCtx, id, clientID, expertID, scheduledAt, &link, topic)
		if err != nil {
			return fmt.Errorf("create consultation: %w", err)
		}

		created = c

		s.logEvent(lockCtx, c.ID, EventConsultationBooked, map[string]any{
			"client_id":    clientID.String(),
			"expert_id":    expertID.String(),
			"scheduled_at": scheduledAt,
			"slot":         slot,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// Start performs the expert's scheduled -> in-progress transition. The
// time-window policy gates it to the start sub-window; the compare-and-set
// update makes a double submit a no-op failure rather than a double
// transition.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetConsultationByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load consultation: %w", err)
	}

	elig, err := EvaluateJoinEligibility(*c, s.now(), RoleExpert)
	if err != nil {
		return nil, err
	}
	if !elig.CanStart {
		return nil, ErrNotStartable
	}

	updated, err := s.repo.UpdateStatus(ctx, c.ID, StatusScheduled, StatusInProgress)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("start consultation: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventConsultationStarted, map[string]any{})

	return updated, nil
}

// Join checks the viewer's eligibility window and hands back the meeting
// link. It never mutates the record.
func (s *Service) Join(ctx context.Context, id uuid.UUID, role Role) (string, error) {
	c, err := s.repo.GetConsultationByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load consultation: %w", err)
	}

	elig, err := EvaluateJoinEligibility(*c, s.now(), role)
	if err != nil {
		return "", err
	}
	if !elig.CanJoin {
		return "", ErrNotJoinable
	}
	if c.MeetingLink == nil || *c.MeetingLink == "" {
		return "", ErrNoMeetingLink
	}

	return *c.MeetingLink, nil
}

// Cancel moves a scheduled or in-progress consultation to its terminal
// cancelled state.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.transition(ctx, id, StatusCancelled, EventConsultationCancelled)
}

// Complete moves an in-progress consultation to completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.transition(ctx, id, StatusCompleted, EventConsultationCompleted)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, eventType string) (*Consultation, error) {
	c, err := s.repo.GetConsultationByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load consultation: %w", err)
	}

	if !ValidTransition(c.Status, to) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, c.ID, c.Status, to)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			// Lost the race against another transition.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update status to %s: %w", to, err)
	}

	s.logEvent(ctx, updated.ID, eventType, map[string]any{
		"from": string(c.Status),
	})

	return updated, nil
}

// ListForViewer fetches a fresh snapshot of the viewer's consultations and
// classifies it: the bucket partition plus the composed history list.
func (s *Service) ListForViewer(ctx context.Context, viewerID uuid.UUID, role Role) (Buckets, []Consultation, error) {
	if role != RoleClient && role != RoleExpert {
		return Buckets{}, nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	list, err := s.repo.FetchForViewer(ctx, viewerID, role)
	if err != nil {
		return Buckets{}, nil, fmt.Errorf("fetch consultations: %w", err)
	}

	now := s.now()
	buckets := Classify(list, now)
	for _, m := range buckets.Malformed {
		log.Printf("consultation %s has no usable scheduled_at, excluded from time buckets", m.ID)
	}

	return buckets, History(list, now), nil
}

// Describe returns one consultation hydrated with its parties, plus the
// join policy evaluated from the viewer's side, for rendering a single card.
func (s *Service) Describe(ctx context.Context, id uuid.UUID, role Role) (*ConsultationDetail, Eligibility, error) {
	detail, err := s.repo.GetConsultationDetail(ctx, id)
	if err != nil {
		return nil, Eligibility{}, fmt.Errorf("load consultation: %w", err)
	}

	elig, err := EvaluateJoinEligibility(detail.Consultation, s.now(), role)
	if err != nil {
		return nil, Eligibility{}, err
	}

	return detail, elig, nil
}

// Slots returns the expert's bookable slot strings for one day, falling back
// to the default catalog when the availability fetch fails or comes back
// empty.
func (s *Service) Slots(ctx context.Context, expertID uuid.UUID, day time.Time) []string {
	ranges, err := s.repo.FetchAvailability(ctx, expertID, day.Format("2006-01-02"))
	if err != nil {
		log.Printf("availability fetch for expert %s failed, using default slots: %v", expertID, err)
		ranges = nil
	}
	return DeriveTimeSlots(ranges)
}

// CompleteStaleInProgress is called by the session worker periodically. An
// in-progress consultation whose scheduled time is further in the past than
// the configured threshold is force-completed, keeping the lifecycle moving
// forward when a party never ends the call cleanly.
func (s *Service) CompleteStaleInProgress(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.StaleAfter)
	stale, err := s.repo.FindStaleInProgress(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale in-progress consultations: %w", err)
	}

	for _, c := range stale {
		_, err := s.repo.UpdateStatus(ctx, c.ID, StatusInProgress, StatusCompleted)
		if err != nil && !errors.Is(err, ErrConsultationNotFound) {
			log.Printf("failed to complete stale consultation %s: %v", c.ID, err)
			continue
		}
		s.logEvent(ctx, c.ID, EventConsultationCompleted, map[string]any{
			"reason": "worker",
		})
	}

	return nil
}

func (s *Service) logEvent(ctx context.Context, consultationID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	cID := consultationID

	ev := EventLog{
		EventType:      eventType,
		ConsultationID: &cID,
		Payload:        data,
		CreatedAt:      time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for consultation %s: %v", eventType, consultationID, err)
	}
}

// Reschedule moves a scheduled consultation to a new slot on a new day.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, day time.Time, slot string) (*Consultation, error) {
	c, err := s.repo.GetConsultationByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load consultation: %w", err)
	}
	if c.Status != StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	if !contains(s.Slots(ctx, c.ExpertID, day), slot) {
		return nil, ErrSlotNotBookable
	}

	scheduledAt, err := SlotStartUTC(slot, day)
	if err != nil {
		return nil, ErrSlotNotBookable
	}

	var updated *Consultation
	err = s.locker.WithBookingLock(ctx, c.ExpertID, scheduledAt, func(lockCtx context.Context) error {
		existing, err := s.repo.FindActiveForExpertAt(lockCtx, c.ExpertID, scheduledAt)
		if err != nil && !errors.Is(err, ErrConsultationNotFound) {
			return fmt.Errorf("check expert conflict: %w", err)
		}
		if existing != nil && existing.ID != c.ID {
			return ErrSlotTaken
		}

		updated, err = s.repo.UpdateDetails(lockCtx, c.ID, &scheduledAt, nil)
		if err != nil {
			return fmt.Errorf("reschedule consultation: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return updated, nil
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
