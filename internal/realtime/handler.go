package realtime

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	hub *Hub
}

func NewHandler(base *transport.BaseHandler, hub *Hub) *Handler {
	return &Handler{
		BaseHandler: base,
		hub:         hub,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.StreamEvents)
}

// StreamEvents is the SSE endpoint. It holds the connection open and writes
// one `data:` frame per event until the client goes away.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.HandleError(w, errors.NewInternalError("streaming unsupported by connection", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id, events, cancel := h.hub.Subscribe()
	defer cancel()

	fmt.Fprintf(w, ": connected %s\n\n", id)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
