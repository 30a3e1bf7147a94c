package relay

import (
	"net/http"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/httputil"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/relay"
)

// readParams parses the parameters shared by read and read-all.
func readParams(r *http.Request) (maxMessages int, includeSignature bool, err error) {
	limit, err := httputil.QueryInt(r, "max-messages")
	if err != nil {
		return 0, false, err
	}
	if limit != nil {
		if *limit < 0 {
			return 0, false, relayerrors.NewValidationError("max-messages", "must not be negative", *limit)
		}
		maxMessages = *limit
	}
	includeSignature, err = httputil.QueryBool(r, "include-signature", false)
	return maxMessages, includeSignature, err
}

// ReadHandler handles POST /v1/read?topic=mytopic&max-messages=..&include-signature=..
func (h *Handlers) ReadHandler(w http.ResponseWriter, r *http.Request) {
	maxMessages, includeSignature, err := readParams(r)
	if err != nil {
		h.writeError(w, r, "read", err)
		return
	}

	res, err := h.broker.Read(r.Context(), r.URL.Query().Get("topic"), relay.ReadOptions{
		MaxMessages:      maxMessages,
		IncludeSignature: includeSignature,
	})
	if err != nil {
		h.writeError(w, r, "read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toReadResponse(res))
}

// ReadAllHandler handles POST /v1/read-all?max-messages=..&filter-prefix=..&filter-suffix=..&include-signature=..
// max-messages applies per topic.
func (h *Handlers) ReadAllHandler(w http.ResponseWriter, r *http.Request) {
	maxMessages, includeSignature, err := readParams(r)
	if err != nil {
		h.writeError(w, r, "read-all", err)
		return
	}

	results, err := h.broker.ReadAll(r.Context(), relay.ReadAllOptions{
		MaxMessages:      maxMessages,
		Prefix:           r.URL.Query().Get("filter-prefix"),
		Suffix:           r.URL.Query().Get("filter-suffix"),
		IncludeSignature: includeSignature,
	})
	if err != nil {
		h.writeError(w, r, "read-all", err)
		return
	}

	out := make([]TopicReadResponse, 0, len(results))
	for _, res := range results {
		out = append(out, TopicReadResponse{Topic: res.Topic, ReadResponse: toReadResponse(res.ReadResult)})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
