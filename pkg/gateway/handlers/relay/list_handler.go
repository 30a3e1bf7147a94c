package relay

import (
	"net/http"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/httputil"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/relay"
)

// ListHandler handles GET /v1/list?filter-prefix=..&filter-suffix=..&max-topic=..&after-topic=..
// When the page is full the cursor for the next page is sent in X-Next-Topic.
func (h *Handlers) ListHandler(w http.ResponseWriter, r *http.Request) {
	opts := relay.ListOptions{
		Prefix: r.URL.Query().Get("filter-prefix"),
		Suffix: r.URL.Query().Get("filter-suffix"),
		After:  r.URL.Query().Get("after-topic"),
	}
	maxTopic, err := httputil.QueryInt(r, "max-topic")
	if err != nil {
		h.writeError(w, r, "list", err)
		return
	}
	if maxTopic != nil {
		opts.Max = *maxTopic
	}

	res, err := h.broker.List(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, "list", err)
		return
	}

	entries := make([]TopicEntry, 0, len(res.Topics))
	for _, t := range res.Topics {
		entries = append(entries, TopicEntry{Topic: t})
	}
	if res.Next != "" {
		w.Header().Set(NextTopicHeader, res.Next)
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
