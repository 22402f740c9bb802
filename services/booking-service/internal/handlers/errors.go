package handlers

import (
	"errors"
	"net/http"

	"github.com/md-rashed-zaman/expertbook/libs/httpx"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
)

// writeServiceError maps domain errors to HTTP responses.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", verr.Error())
	case errors.Is(err, model.ErrInvalidID):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id", err.Error())
	case errors.Is(err, model.ErrSlotNotOfferable):
		httpx.WriteError(w, http.StatusBadRequest, "slot_not_offerable", "requested slot is not available")
	case errors.Is(err, model.ErrInvalidStatus):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_status", "status must be one of Pending, Confirmed, Completed")
	case errors.Is(err, model.ErrExpertNotFound):
		httpx.WriteError(w, http.StatusNotFound, "expert_not_found", err.Error())
	case errors.Is(err, model.ErrBookingNotFound):
		httpx.WriteError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, model.ErrSlotAlreadyBooked):
		httpx.WriteError(w, http.StatusConflict, "slot_already_booked", err.Error())
	default:
		h.logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
