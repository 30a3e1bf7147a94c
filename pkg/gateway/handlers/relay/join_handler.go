package relay

import (
	"net/http"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/httputil"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/relay"
)

// JoinHandler handles POST /v1/join?topic=mytopic&queue-length=..&queue-policy=..&timeout=..&max-message-size=..
// Omitted parameters take the relay defaults; the response carries the
// effective values after clamping to the limits.
func (h *Handlers) JoinHandler(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")

	var (
		req relay.JoinRequest
		err error
	)
	if req.QueueLength, err = httputil.QueryInt(r, "queue-length"); err != nil {
		h.writeError(w, r, "join", err)
		return
	}
	if req.TimeoutSeconds, err = httputil.QueryInt(r, "timeout"); err != nil {
		h.writeError(w, r, "join", err)
		return
	}
	if req.MaxMessageSize, err = httputil.QueryInt(r, "max-message-size"); err != nil {
		h.writeError(w, r, "join", err)
		return
	}
	req.QueuePolicy = httputil.QueryString(r, "queue-policy")

	cfg, err := h.broker.Join(r.Context(), topic, req)
	if err != nil {
		h.writeError(w, r, "join", err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, JoinResponse{
		QueueLength:    cfg.QueueLength,
		QueuePolicy:    string(cfg.QueuePolicy),
		Timeout:        cfg.TimeoutSeconds,
		MaxMessageSize: cfg.MaxMessageSize,
	})
}
