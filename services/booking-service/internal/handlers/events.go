package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/expertbook/libs/httpx"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/reservation"
)

const slotBookedEvent = "slot_booked"

// streamEvents serves SlotEvents as Server-Sent Events for one expert, or for
// all experts when expert_id is omitted. The subscription lives as long as
// the connection.
func (h *handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	expertID := strings.TrimSpace(r.URL.Query().Get("expert_id"))
	if expertID != "" {
		id, err := reservation.ParseID(expertID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		expertID = id
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported")
		return
	}

	events, unsubscribe := h.events.Subscribe(expertID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("encode slot event failed", "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.BookingID, slotBookedEvent, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
