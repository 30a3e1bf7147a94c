package relay

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/httputil"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/relay"
)

// publishBodySlack covers the JSON envelope around the base64 payload.
const publishBodySlack = 1024

// PublishHandler handles POST /v1/publish?topic=mytopic with body {"data": "<base64>"}
func (h *Handlers) PublishHandler(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")

	limit := h.broker.Discovery().MaxMessageSize
	maxBody := int64(base64.StdEncoding.EncodedLen(limit) + publishBodySlack)
	body, err := httputil.ReadBody(r, maxBody)
	if err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			err = relayerrors.NewPayloadTooLargeError(base64.StdEncoding.DecodedLen(int(maxBody)), limit)
		} else {
			err = relayerrors.NewValidationError("body", "failed to read request body", nil)
		}
		h.writeError(w, r, "publish", err)
		return
	}

	var req PublishRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, r, "publish", relayerrors.NewValidationError("body", "invalid JSON body", nil))
		return
	}
	data, err := httputil.DecodeBase64(req.Data)
	if err != nil {
		h.writeError(w, r, "publish", relayerrors.NewValidationError("data", "must be base64", nil))
		return
	}

	msg := relay.Message{From: h.callerID(r), Data: data}
	if err := h.broker.Publish(r.Context(), topic, msg); err != nil {
		h.writeError(w, r, "publish", err)
		return
	}
	httputil.WriteSuccess(w)
}
