package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var email *string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&email,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	c.Email = email
	return &c, nil
}

func scanExpert(row pgx.Row) (*Expert, error) {
	var e Expert
	var credential *string

	err := row.Scan(
		&e.ID,
		&e.Name,
		&credential,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpertNotFound
		}
		return nil, err
	}

	e.Credential = credential
	return &e, nil
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	var scheduledAt *time.Time
	var meetingLink, topic *string

	err := row.Scan(
		&c.ID,
		&c.ClientID,
		&c.ExpertID,
		&scheduledAt,
		&c.Status,
		&meetingLink,
		&topic,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConsultationNotFound
		}
		return nil, err
	}

	// A NULL scheduled_at leaves the zero value; the classifier treats the
	// record as malformed instead of failing the scan.
	if scheduledAt != nil {
		c.ScheduledAt = scheduledAt.UTC()
	}
	c.MeetingLink = meetingLink
	c.Topic = topic
	return &c, nil
}

const consultationColumns = `id, client_id, expert_id, scheduled_at, status, meeting_link, topic, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM clients
		WHERE id = $1
	`, id)
	return scanClient(row)
}

func (r *PgRepository) GetExpertByID(ctx context.Context, id uuid.UUID) (*Expert, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, credential, created_at, updated_at
		FROM experts
		WHERE id = $1
	`, id)
	return scanExpert(row)
}

func (r *PgRepository) GetConsultationByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE id = $1
	`, id)
	return scanConsultation(row)
}

func (r *PgRepository) GetConsultationDetail(ctx context.Context, id uuid.UUID) (*ConsultationDetail, error) {
	c, err := r.GetConsultationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := ConsultationDetail{Consultation: *c}

	client, err := r.GetClientByID(ctx, c.ClientID)
	if err != nil && !errors.Is(err, ErrClientNotFound) {
		return nil, err
	}
	detail.Client = client

	expert, err := r.GetExpertByID(ctx, c.ExpertID)
	if err != nil && !errors.Is(err, ErrExpertNotFound) {
		return nil, err
	}
	detail.Expert = expert

	return &detail, nil
}

func (r *PgRepository) FetchForViewer(ctx context.Context, viewerID uuid.UUID, role Role) ([]Consultation, error) {
	column := "client_id"
	if role == RoleExpert {
		column = "expert_id"
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE `+column+` = $1
		ORDER BY scheduled_at ASC
	`, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectConsultations(rows)
}

func (r *PgRepository) FindActiveForExpertAt(ctx context.Context, expertID uuid.UUID, scheduledAt time.Time) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE expert_id = $1
		  AND scheduled_at = $2
		  AND status IN ('scheduled', 'in-progress')
	`, expertID, scheduledAt)
	return scanConsultation(row)
}

func (r *PgRepository) CreateScheduled(ctx context.Context, id, clientID, expertID uuid.UUID, scheduledAt time.Time, meetingLink *string, topic *string) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO consultations (id, client_id, expert_id, scheduled_at, status, meeting_link, topic, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'scheduled', $5, $6, now(), now())
		RETURNING `+consultationColumns+`
	`, id, clientID, expertID, scheduledAt, meetingLink, topic)

	return scanConsultation(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+consultationColumns+`
	`, id, to, from)

	return scanConsultation(row)
}

func (r *PgRepository) UpdateDetails(ctx context.Context, id uuid.UUID, scheduledAt *time.Time, topic *string) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET scheduled_at = COALESCE($2, scheduled_at),
		    topic = COALESCE($3, topic),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+consultationColumns+`
	`, id, scheduledAt, topic)

	return scanConsultation(row)
}

func (r *PgRepository) FindStaleInProgress(ctx context.Context, cutoff time.Time) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE status = 'in-progress'
		  AND scheduled_at < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectConsultations(rows)
}

func (r *PgRepository) FetchAvailability(ctx context.Context, expertID uuid.UUID, date string) ([]AvailabilityRange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time, is_available
		FROM expert_availability
		WHERE expert_id = $1
		  AND day = $2
		ORDER BY start_time ASC
	`, expertID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityRange
	for rows.Next() {
		var ar AvailabilityRange
		if err := rows.Scan(&ar.StartTime, &ar.EndTime, &ar.IsAvailable); err != nil {
			return nil, err
		}
		result = append(result, ar)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, consultation_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.ConsultationID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func collectConsultations(rows pgx.Rows) ([]Consultation, error) {
	var result []Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
