package relay

import (
	"net/http"

	"github.com/libp2p/go-libp2p/core/peer"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/httputil"
)

// FilterPeerIDHandler handles POST /v1/filter-peerid?topic=mytopic&peerid=12D3Koo...
func (h *Handlers) FilterPeerIDHandler(w http.ResponseWriter, r *http.Request) {
	peerID := r.URL.Query().Get("peerid")
	if peerID != "" {
		if _, err := peer.Decode(peerID); err != nil {
			h.writeError(w, r, "filter-peerid", relayerrors.NewValidationError("peerid", "not a valid peer id", peerID))
			return
		}
	}

	if err := h.broker.FilterPeerID(r.Context(), r.URL.Query().Get("topic"), peerID); err != nil {
		h.writeError(w, r, "filter-peerid", err)
		return
	}
	httputil.WriteSuccess(w)
}
