package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/naricare/consultation-scheduling/internal/consultation"
	redisclient "github.com/naricare/consultation-scheduling/internal/redis"
)

func bookConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookConsultationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}

		expertID, err := uuid.Parse(req.ExpertID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_expert_id", "expert_id must be a valid UUID")
			return
		}

		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		c, err := svc.Book(r.Context(), clientID, expertID, day, req.Slot, req.Topic)
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toConsultationResponse(*c))
	}
}

func listConsultationsHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, err := uuid.Parse(r.URL.Query().Get("viewer_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_viewer_id", "viewer_id must be a valid UUID")
			return
		}

		role := consultation.Role(r.URL.Query().Get("role"))

		buckets, history, err := svc.ListForViewer(r.Context(), viewerID, role)
		if err != nil {
			if errors.Is(err, consultation.ErrInvalidRole) {
				writeError(w, http.StatusBadRequest, "invalid_role", "role must be client or expert")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := BucketsResponse{
			Upcoming:   toConsultationResponses(buckets.Upcoming),
			Completed:  toConsultationResponses(buckets.Completed),
			PastMissed: toConsultationResponses(buckets.PastMissed),
			Cancelled:  toConsultationResponses(buckets.Cancelled),
			History:    toConsultationResponses(history),
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		role := consultation.Role(r.URL.Query().Get("role"))
		if role == "" {
			role = consultation.RoleClient
		}

		detail, elig, err := svc.Describe(r.Context(), id, role)
		if err != nil {
			switch {
			case errors.Is(err, consultation.ErrConsultationNotFound):
				writeError(w, http.StatusNotFound, "consultation_not_found", err.Error())
			case errors.Is(err, consultation.ErrInvalidRole):
				writeError(w, http.StatusBadRequest, "invalid_role", "role must be client or expert")
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		resp := ConsultationDetailResponse{
			ConsultationResponse: toConsultationResponse(detail.Consultation),
			Eligibility: &EligibilityResponse{
				Label:    elig.Label,
				CanJoin:  elig.CanJoin,
				CanStart: elig.CanStart,
			},
		}
		if detail.Client != nil {
			resp.ClientName = detail.Client.Name
		}
		if detail.Expert != nil {
			resp.ExpertName = detail.Expert.Name
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func startConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		c, err := svc.Start(r.Context(), id)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponse(*c))
	}
}

func joinConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		role := consultation.Role(r.URL.Query().Get("role"))

		link, err := svc.Join(r.Context(), id, role)
		if err != nil {
			switch {
			case errors.Is(err, consultation.ErrConsultationNotFound):
				writeError(w, http.StatusNotFound, "consultation_not_found", err.Error())
			case errors.Is(err, consultation.ErrInvalidRole):
				writeError(w, http.StatusBadRequest, "invalid_role", "role must be client or expert")
			case errors.Is(err, consultation.ErrNotJoinable):
				writeError(w, http.StatusConflict, "not_joinable", err.Error())
			case errors.Is(err, consultation.ErrNoMeetingLink):
				writeError(w, http.StatusConflict, "no_meeting_link", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, JoinResponse{MeetingLink: link})
	}
}

func cancelConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		c, err := svc.Cancel(r.Context(), id)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponse(*c))
	}
}

func completeConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		c, err := svc.Complete(r.Context(), id)
		if err != nil {
			handleTransitionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponse(*c))
	}
}

func rescheduleConsultationHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		c, err := svc.Reschedule(r.Context(), id, day, req.Slot)
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponse(*c))
	}
}

func expertSlotsHandler(svc *consultation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expertID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_expert_id", "id must be a valid UUID")
			return
		}

		dateStr := r.URL.Query().Get("date")
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots := svc.Slots(r.Context(), expertID, day)

		writeJSON(w, http.StatusOK, SlotsResponse{
			ExpertID: expertID,
			Date:     dateStr,
			Slots:    slots,
		})
	}
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, consultation.ErrClientNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", err.Error())
	case errors.Is(err, consultation.ErrExpertNotFound):
		writeError(w, http.StatusNotFound, "expert_not_found", err.Error())
	case errors.Is(err, consultation.ErrConsultationNotFound):
		writeError(w, http.StatusNotFound, "consultation_not_found", err.Error())
	case errors.Is(err, consultation.ErrSlotNotBookable):
		writeError(w, http.StatusUnprocessableEntity, "slot_not_bookable", err.Error())
	case errors.Is(err, consultation.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, consultation.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, consultation.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, consultation.ErrConsultationNotFound):
		writeError(w, http.StatusNotFound, "consultation_not_found", err.Error())
	case errors.Is(err, consultation.ErrNotStartable):
		writeError(w, http.StatusConflict, "not_startable", err.Error())
	case errors.Is(err, consultation.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
