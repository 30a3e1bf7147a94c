package relay

import (
	"net/http"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/httputil"
)

// LeaveHandler handles POST /v1/leave?topic=mytopic
func (h *Handlers) LeaveHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.broker.Leave(r.Context(), r.URL.Query().Get("topic")); err != nil {
		h.writeError(w, r, "leave", err)
		return
	}
	httputil.WriteSuccess(w)
}
