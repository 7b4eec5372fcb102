package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/naricare/consultation-scheduling/internal/consultation"
)

type BookConsultationRequest struct {
	ClientID string  `json:"client_id"`
	ExpertID string  `json:"expert_id"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Slot     string  `json:"slot"` // "HH:mm - HH:mm"
	Topic    *string `json:"topic,omitempty"`
}

type RescheduleRequest struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

type ConsultationResponse struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"client_id"`
	ExpertID    uuid.UUID  `json:"expert_id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Status      string     `json:"status"`
	MeetingLink *string    `json:"meeting_link,omitempty"`
	Topic       *string    `json:"topic,omitempty"`
}

type EligibilityResponse struct {
	Label    string `json:"label"`
	CanJoin  bool   `json:"can_join"`
	CanStart bool   `json:"can_start"`
}

type ConsultationDetailResponse struct {
	ConsultationResponse
	ClientName  string               `json:"client_name,omitempty"`
	ExpertName  string               `json:"expert_name,omitempty"`
	Eligibility *EligibilityResponse `json:"eligibility,omitempty"`
}

type BucketsResponse struct {
	Upcoming   []ConsultationResponse `json:"upcoming"`
	Completed  []ConsultationResponse `json:"completed"`
	PastMissed []ConsultationResponse `json:"past_missed"`
	Cancelled  []ConsultationResponse `json:"cancelled"`
	History    []ConsultationResponse `json:"history"`
}

type JoinResponse struct {
	MeetingLink string `json:"meeting_link"`
}

type SlotsResponse struct {
	ExpertID uuid.UUID `json:"expert_id"`
	Date     string    `json:"date"`
	Slots    []string  `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toConsultationResponse(c consultation.Consultation) ConsultationResponse {
	resp := ConsultationResponse{
		ID:          c.ID,
		ClientID:    c.ClientID,
		ExpertID:    c.ExpertID,
		Status:      string(c.Status),
		MeetingLink: c.MeetingLink,
		Topic:       c.Topic,
	}
	if !c.ScheduledAt.IsZero() {
		at := c.ScheduledAt
		resp.ScheduledAt = &at
	}
	return resp
}

func toConsultationResponses(list []consultation.Consultation) []ConsultationResponse {
	out := make([]ConsultationResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toConsultationResponse(c))
	}
	return out
}
