package consultation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/naricare/consultation-scheduling/internal/config"
	redisclient "github.com/naricare/consultation-scheduling/internal/redis"
)

// -- Mocks --

type mockRepo struct {
	clients       map[uuid.UUID]*Client
	experts       map[uuid.UUID]*Expert
	consultations map[uuid.UUID]*Consultation
	availability  map[string][]AvailabilityRange // key: expertID|date
	availErr      error
	events        []EventLog
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		clients:       make(map[uuid.UUID]*Client),
		experts:       make(map[uuid.UUID]*Expert),
		consultations: make(map[uuid.UUID]*Consultation),
		availability:  make(map[string][]AvailabilityRange),
	}
}

func (m *mockRepo) addClient() uuid.UUID {
	id := uuid.New()
	m.clients[id] = &Client{ID: id, Name: "Test Client"}
	return id
}

func (m *mockRepo) addExpert() uuid.UUID {
	id := uuid.New()
	m.experts[id] = &Expert{ID: id, Name: "Test Expert"}
	return id
}

func (m *mockRepo) GetClientByID(_ context.Context, id uuid.UUID) (*Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return c, nil
}

func (m *mockRepo) GetExpertByID(_ context.Context, id uuid.UUID) (*Expert, error) {
	e, ok := m.experts[id]
	if !ok {
		return nil, ErrExpertNotFound
	}
	return e, nil
}

func (m *mockRepo) GetConsultationByID(_ context.Context, id uuid.UUID) (*Consultation, error) {
	c, ok := m.consultations[id]
	if !ok {
		return nil, ErrConsultationNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) GetConsultationDetail(ctx context.Context, id uuid.UUID) (*ConsultationDetail, error) {
	c, err := m.GetConsultationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ConsultationDetail{Consultation: *c}, nil
}

func (m *mockRepo) FetchForViewer(_ context.Context, viewerID uuid.UUID, role Role) ([]Consultation, error) {
	var out []Consultation
	for _, c := range m.consultations {
		if (role == RoleClient && c.ClientID == viewerID) ||
			(role == RoleExpert && c.ExpertID == viewerID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockRepo) FindActiveForExpertAt(_ context.Context, expertID uuid.UUID, scheduledAt time.Time) (*Consultation, error) {
	for _, c := range m.consultations {
		if c.ExpertID == expertID && c.ScheduledAt.Equal(scheduledAt) &&
			(c.Status == StatusScheduled || c.Status == StatusInProgress) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrConsultationNotFound
}

func (m *mockRepo) CreateScheduled(_ context.Context, id, clientID, expertID uuid.UUID, scheduledAt time.Time, meetingLink *string, topic *string) (*Consultation, error) {
	c := &Consultation{
		ID:          id,
		ClientID:    clientID,
		ExpertID:    expertID,
		ScheduledAt: scheduledAt,
		Status:      StatusScheduled,
		MeetingLink: meetingLink,
		Topic:       topic,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.consultations[id] = c
	cp := *c
	return &cp, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Consultation, error) {
	c, ok := m.consultations[id]
	if !ok || c.Status != from {
		return nil, ErrConsultationNotFound
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (m *mockRepo) UpdateDetails(_ context.Context, id uuid.UUID, scheduledAt *time.Time, topic *string) (*Consultation, error) {
	c, ok := m.consultations[id]
	if !ok {
		return nil, ErrConsultationNotFound
	}
	if scheduledAt != nil {
		c.ScheduledAt = *scheduledAt
	}
	if topic != nil {
		c.Topic = topic
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) FindStaleInProgress(_ context.Context, cutoff time.Time) ([]Consultation, error) {
	var out []Consultation
	for _, c := range m.consultations {
		if c.Status == StatusInProgress && c.ScheduledAt.Before(cutoff) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockRepo) FetchAvailability(_ context.Context, expertID uuid.UUID, date string) ([]AvailabilityRange, error) {
	if m.availErr != nil {
		return nil, m.availErr
	}
	return m.availability[expertID.String()+"|"+date], nil
}

func (m *mockRepo) InsertEvent(_ context.Context, ev EventLog) error {
	m.events = append(m.events, ev)
	return nil
}

type passLocker struct {
	busy  bool
	calls int
}

func (l *passLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.calls++
	if l.busy {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

// -- Helpers --

var serviceNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo, locker *passLocker) *Service {
	svc := NewService(repo, locker, NewRoomLinkResolver("https://meet.test"), config.Config{
		StaleAfter: 2 * time.Hour,
	})
	svc.now = func() time.Time { return serviceNow }
	return svc
}

func availKey(expertID uuid.UUID, day time.Time) string {
	return expertID.String() + "|" + day.Format("2006-01-02")
}

// -- Tests --

func TestServiceBook(t *testing.T) {
	repo := newMockRepo()
	locker := &passLocker{}
	svc := newTestService(repo, locker)

	clientID := repo.addClient()
	expertID := repo.addExpert()
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	repo.availability[availKey(expertID, day)] = []AvailabilityRange{
		{StartTime: "14:00", EndTime: "16:00", IsAvailable: true},
	}

	c, err := svc.Book(context.Background(), clientID, expertID, day, "14:30 - 15:00", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", c.Status)
	}
	want := time.Date(2025, 6, 12, 14, 30, 0, 0, time.UTC)
	if !c.ScheduledAt.Equal(want) {
		t.Errorf("scheduled_at = %s, want %s", c.ScheduledAt, want)
	}
	if c.MeetingLink == nil || *c.MeetingLink == "" {
		t.Error("booking must resolve a meeting link")
	}
	if locker.calls != 1 {
		t.Errorf("lock acquired %d times, want 1", locker.calls)
	}
	if len(repo.events) != 1 || repo.events[0].EventType != EventConsultationBooked {
		t.Errorf("events = %+v, want one booked event", repo.events)
	}
}

func TestServiceBook_SlotOutsideAvailability(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	clientID := repo.addClient()
	expertID := repo.addExpert()
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	repo.availability[availKey(expertID, day)] = []AvailabilityRange{
		{StartTime: "14:00", EndTime: "15:00", IsAvailable: true},
	}

	_, err := svc.Book(context.Background(), clientID, expertID, day, "09:00 - 09:30", nil)
	if !errors.Is(err, ErrSlotNotBookable) {
		t.Fatalf("err = %v, want ErrSlotNotBookable", err)
	}
}

func TestServiceBook_FallbackSlotsWhenFetchFails(t *testing.T) {
	repo := newMockRepo()
	repo.availErr = errors.New("availability store down")
	svc := newTestService(repo, &passLocker{})

	clientID := repo.addClient()
	expertID := repo.addExpert()
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)

	// The default catalog covers the afternoon; booking one of its slots
	// still works in degraded mode.
	_, err := svc.Book(context.Background(), clientID, expertID, day, DefaultSlotCatalog[0], nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServiceBook_Conflict(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	expertID := repo.addExpert()
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	repo.availability[availKey(expertID, day)] = []AvailabilityRange{
		{StartTime: "14:00", EndTime: "15:00", IsAvailable: true},
	}

	first := repo.addClient()
	if _, err := svc.Book(context.Background(), first, expertID, day, "14:00 - 14:30", nil); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	second := repo.addClient()
	_, err := svc.Book(context.Background(), second, expertID, day, "14:00 - 14:30", nil)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
}

func TestServiceBook_LockBusy(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{busy: true})

	clientID := repo.addClient()
	expertID := repo.addExpert()
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	repo.availability[availKey(expertID, day)] = []AvailabilityRange{
		{StartTime: "14:00", EndTime: "15:00", IsAvailable: true},
	}

	_, err := svc.Book(context.Background(), clientID, expertID, day, "14:00 - 14:30", nil)
	if !errors.Is(err, ErrSlotBeingBooked) {
		t.Fatalf("err = %v, want ErrSlotBeingBooked", err)
	}
}

func TestServiceBook_UnknownParties(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)

	_, err := svc.Book(context.Background(), uuid.New(), uuid.New(), day, "14:00 - 14:30", nil)
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("err = %v, want ErrClientNotFound", err)
	}

	clientID := repo.addClient()
	_, err = svc.Book(context.Background(), clientID, uuid.New(), day, "14:00 - 14:30", nil)
	if !errors.Is(err, ErrExpertNotFound) {
		t.Fatalf("err = %v, want ErrExpertNotFound", err)
	}
}

func seedConsultation(repo *mockRepo, status Status, offset time.Duration) *Consultation {
	id := uuid.New()
	link := "https://meet.test/room/" + id.String()
	c := &Consultation{
		ID:          id,
		ClientID:    uuid.New(),
		ExpertID:    uuid.New(),
		ScheduledAt: serviceNow.Add(offset),
		Status:      status,
		MeetingLink: &link,
	}
	repo.consultations[id] = c
	return c
}

func TestServiceStart(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	// Three minutes before the scheduled time: inside the start sub-window.
	c := seedConsultation(repo, StatusScheduled, 3*time.Minute)

	updated, err := svc.Start(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusInProgress {
		t.Errorf("status = %s, want in-progress", updated.Status)
	}

	// A second submit must fail, not transition twice.
	if _, err := svc.Start(context.Background(), c.ID); err == nil {
		t.Error("double start should fail")
	}
}

func TestServiceStart_OutsideSubWindow(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	// Twenty minutes out: joinable for the expert, but not startable.
	c := seedConsultation(repo, StatusScheduled, 20*time.Minute)

	_, err := svc.Start(context.Background(), c.ID)
	if !errors.Is(err, ErrNotStartable) {
		t.Fatalf("err = %v, want ErrNotStartable", err)
	}
	if repo.consultations[c.ID].Status != StatusScheduled {
		t.Error("status must not change on a rejected start")
	}
}

func TestServiceJoin(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	c := seedConsultation(repo, StatusScheduled, 10*time.Minute)

	link, err := svc.Join(context.Background(), c.ID, RoleClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link != *c.MeetingLink {
		t.Errorf("link = %q, want %q", link, *c.MeetingLink)
	}

	// The same instant is outside the client window for a call 20m out.
	far := seedConsultation(repo, StatusScheduled, 20*time.Minute)
	if _, err := svc.Join(context.Background(), far.ID, RoleClient); !errors.Is(err, ErrNotJoinable) {
		t.Fatalf("err = %v, want ErrNotJoinable", err)
	}

	if _, err := svc.Join(context.Background(), c.ID, Role("nurse")); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("err = %v, want ErrInvalidRole", err)
	}
}

func TestServiceJoin_NoMeetingLink(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	c := seedConsultation(repo, StatusScheduled, 10*time.Minute)
	c.MeetingLink = nil

	_, err := svc.Join(context.Background(), c.ID, RoleClient)
	if !errors.Is(err, ErrNoMeetingLink) {
		t.Fatalf("err = %v, want ErrNoMeetingLink", err)
	}
}

func TestServiceCancelAndComplete(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	c := seedConsultation(repo, StatusScheduled, time.Hour)
	if _, err := svc.Cancel(context.Background(), c.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if repo.consultations[c.ID].Status != StatusCancelled {
		t.Error("cancel did not persist")
	}

	// Terminal: no way back out of cancelled.
	if _, err := svc.Complete(context.Background(), c.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("err = %v, want ErrInvalidStatusTransition", err)
	}

	live := seedConsultation(repo, StatusInProgress, -10*time.Minute)
	if _, err := svc.Complete(context.Background(), live.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if repo.consultations[live.ID].Status != StatusCompleted {
		t.Error("complete did not persist")
	}

	// Completing a scheduled consultation skips in-progress; rejected.
	sched := seedConsultation(repo, StatusScheduled, time.Hour)
	if _, err := svc.Complete(context.Background(), sched.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("err = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestServiceListForViewer(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	clientID := uuid.New()
	for _, tc := range []struct {
		status Status
		offset time.Duration
	}{
		{StatusScheduled, time.Hour},
		{StatusScheduled, -2 * time.Hour},
		{StatusCompleted, -24 * time.Hour},
		{StatusCancelled, -time.Hour},
	} {
		c := seedConsultation(repo, tc.status, tc.offset)
		c.ClientID = clientID
	}

	buckets, history, err := svc.ListForViewer(context.Background(), clientID, RoleClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(buckets.Upcoming) != 1 || len(buckets.PastMissed) != 1 ||
		len(buckets.Completed) != 1 || len(buckets.Cancelled) != 1 {
		t.Errorf("buckets = %+v", buckets)
	}
	if len(history) != 3 {
		t.Errorf("history length = %d, want 3", len(history))
	}

	if _, _, err := svc.ListForViewer(context.Background(), clientID, Role("admin")); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("err = %v, want ErrInvalidRole", err)
	}
}

func TestServiceSlots_FallbackOnError(t *testing.T) {
	repo := newMockRepo()
	repo.availErr = errors.New("boom")
	svc := newTestService(repo, &passLocker{})

	got := svc.Slots(context.Background(), uuid.New(), serviceNow)
	if len(got) != len(DefaultSlotCatalog) {
		t.Errorf("got %v, want default catalog", got)
	}
}

func TestServiceCompleteStaleInProgress(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	stale := seedConsultation(repo, StatusInProgress, -3*time.Hour)
	fresh := seedConsultation(repo, StatusInProgress, -30*time.Minute)
	sched := seedConsultation(repo, StatusScheduled, -3*time.Hour)

	if err := svc.CompleteStaleInProgress(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.consultations[stale.ID].Status != StatusCompleted {
		t.Error("stale in-progress consultation not completed")
	}
	if repo.consultations[fresh.ID].Status != StatusInProgress {
		t.Error("fresh in-progress consultation must be left alone")
	}
	if repo.consultations[sched.ID].Status != StatusScheduled {
		t.Error("scheduled consultations are not the worker's business")
	}
}

func TestServiceReschedule(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &passLocker{})

	clientID := repo.addClient()
	expertID := repo.addExpert()
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	repo.availability[availKey(expertID, day)] = []AvailabilityRange{
		{StartTime: "14:00", EndTime: "16:00", IsAvailable: true},
	}

	c, err := svc.Book(context.Background(), clientID, expertID, day, "14:00 - 14:30", nil)
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	moved, err := svc.Reschedule(context.Background(), c.ID, day, "15:00 - 15:30")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	want := time.Date(2025, 6, 12, 15, 0, 0, 0, time.UTC)
	if !moved.ScheduledAt.Equal(want) {
		t.Errorf("scheduled_at = %s, want %s", moved.ScheduledAt, want)
	}

	// Only scheduled consultations can move.
	repo.consultations[c.ID].Status = StatusCompleted
	if _, err := svc.Reschedule(context.Background(), c.ID, day, "15:30 - 16:00"); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("err = %v, want ErrInvalidStatusTransition", err)
	}
}
