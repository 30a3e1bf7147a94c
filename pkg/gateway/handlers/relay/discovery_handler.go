package relay

import (
	"net/http"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/httputil"
)

// DiscoveryHandler handles GET /v1/discovery
func (h *Handlers) DiscoveryHandler(w http.ResponseWriter, r *http.Request) {
	limits := h.broker.Discovery()
	policies := make([]string, 0, len(limits.AllowedQueuePolicies))
	for _, p := range limits.AllowedQueuePolicies {
		policies = append(policies, string(p))
	}
	httputil.WriteJSON(w, http.StatusOK, DiscoveryResponse{
		MaxQueueLength:       limits.MaxQueueLength,
		AllowedQueuePolicies: policies,
		MaxTimeout:           limits.MaxTimeoutSeconds,
		MaxMessageSize:       limits.MaxMessageSize,
	})
}
