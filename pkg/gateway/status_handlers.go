package gateway

import (
	"net/http"
	"time"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/httputil"
)

// healthResponse is the JSON structure used by healthHandler
type healthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	PeerID    string    `json:"peer_id,omitempty"`
	Topics    *int      `json:"topics,omitempty"`
}

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		StartedAt: g.startedAt,
		Uptime:    time.Since(g.startedAt).String(),
		PeerID:    g.config.NodePeerID,
	}
	if g.topics != nil {
		n := g.topics()
		resp.Topics = &n
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
