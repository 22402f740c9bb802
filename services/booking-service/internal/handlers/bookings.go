package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/expertbook/libs/httpx"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/reservation"
)

type createBookingRequest struct {
	ExpertID string `json:"expert_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Notes    string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "request body must be valid JSON")
		return false
	}
	return true
}

func (h *handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.svc.Reserve(r.Context(), reservation.ReserveInput{
		ExpertID: req.ExpertID,
		Date:     req.Date,
		TimeSlot: req.TimeSlot,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, envelope{Data: booking})
}

func (h *handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), model.Status(req.Status))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, envelope{Data: booking})
}

func (h *handler) listBookings(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListByContact(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, envelope{Data: views})
}

func (h *handler) getBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.svc.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, envelope{Data: booking})
}
