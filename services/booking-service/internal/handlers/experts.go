package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/expertbook/libs/httpx"
)

func (h *handler) listExperts(w http.ResponseWriter, r *http.Request) {
	experts, err := h.svc.ListExperts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"data":       experts,
		"categories": categories,
	})
}

func (h *handler) getExpert(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.ExpertDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, envelope{Data: detail})
}

func (h *handler) getSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "date: is required")
		return
	}
	slots, err := h.svc.SlotsFor(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, envelope{Data: slots})
}
