package relay

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/gateway/ctxkeys"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/httputil"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/logging"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/relay"
)

// Broker is the subset of the relay service the HTTP API drives.
type Broker interface {
	Discovery() relay.Limits
	Join(ctx context.Context, topic string, req relay.JoinRequest) (relay.QueueConfig, error)
	Leave(ctx context.Context, topic string) error
	List(ctx context.Context, opts relay.ListOptions) (relay.ListResult, error)
	Publish(ctx context.Context, topic string, msg relay.Message) error
	Read(ctx context.Context, topic string, opts relay.ReadOptions) (relay.ReadResult, error)
	ReadAll(ctx context.Context, opts relay.ReadAllOptions) ([]relay.TopicReadResult, error)
	FilterPeerID(ctx context.Context, topic, peerID string) error
}

// NextTopicHeader carries the list cursor when more topics follow.
const NextTopicHeader = "X-Next-Topic"

// Handlers serves the /v1 relay endpoints.
type Handlers struct {
	broker Broker
	selfID string
	logger *logging.ColoredLogger
}

// NewHandlers creates relay handlers. selfID attributes publishes that carry
// no caller identity.
func NewHandlers(broker Broker, selfID string, logger *logging.ColoredLogger) *Handlers {
	return &Handlers{broker: broker, selfID: selfID, logger: logger}
}

// DiscoveryResponse mirrors relay.Limits on the wire.
type DiscoveryResponse struct {
	MaxQueueLength       int      `json:"max-queue-length"`
	AllowedQueuePolicies []string `json:"allowed-queue-policies"`
	MaxTimeout           int      `json:"max-timeout"`
	MaxMessageSize       int      `json:"max-message-size"`
}

// JoinResponse is the effective configuration after clamping.
type JoinResponse struct {
	QueueLength    int    `json:"queue-length"`
	QueuePolicy    string `json:"queue-policy"`
	Timeout        int    `json:"timeout"`
	MaxMessageSize int    `json:"max-message-size"`
}

// TopicEntry is one element of a list response.
type TopicEntry struct {
	Topic string `json:"topic"`
}

// PublishRequest is the publish body. Data is standard base64.
type PublishRequest struct {
	Data string `json:"data"`
}

// MessageResponse is a queued message on the wire. Binary fields are base64.
type MessageResponse struct {
	From      string `json:"from"`
	Data      string `json:"data"`
	Seqno     string `json:"seqno,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// ReadResponse is the outcome of a single-topic read.
type ReadResponse struct {
	MessagesDropped   int               `json:"messages-dropped"`
	MessagesRemaining int               `json:"messages-remaining"`
	Messages          []MessageResponse `json:"messages"`
	Pubkeys           map[string]string `json:"pubkeys,omitempty"`
}

// TopicReadResponse is one topic's entry in a read-all response.
type TopicReadResponse struct {
	Topic string `json:"topic"`
	ReadResponse
}

func toReadResponse(res relay.ReadResult) ReadResponse {
	out := ReadResponse{
		MessagesDropped:   res.MessagesDropped,
		MessagesRemaining: res.MessagesRemaining,
		Messages:          make([]MessageResponse, 0, len(res.Messages)),
	}
	for _, m := range res.Messages {
		mr := MessageResponse{From: m.From, Data: httputil.EncodeBase64(m.Data)}
		if len(m.Seqno) > 0 {
			mr.Seqno = httputil.EncodeBase64(m.Seqno)
		}
		if len(m.Signature) > 0 {
			mr.Signature = httputil.EncodeBase64(m.Signature)
		}
		out.Messages = append(out.Messages, mr)
	}
	if len(res.Pubkeys) > 0 {
		out.Pubkeys = make(map[string]string, len(res.Pubkeys))
		for from, key := range res.Pubkeys {
			out.Pubkeys[from] = httputil.EncodeBase64(key)
		}
	}
	return out
}

// callerID resolves the publisher identity from context set by an upstream authenticator.
func (h *Handlers) callerID(r *http.Request) string {
	if v := r.Context().Value(ctxkeys.CallerID); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return h.selfID
}

type stackTracer interface {
	StackTrace() string
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := relayerrors.GetErrorCode(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("code", code),
		zap.String("details", relayerrors.GetErrorMessage(err)),
	}
	switch {
	case relayerrors.IsServerError(code):
		fields = append(fields, zap.String("path", r.URL.Path), zap.Error(err))
		var st stackTracer
		if errors.As(err, &st) {
			fields = append(fields, zap.String("stack", st.StackTrace()))
		}
		h.logger.ComponentError(logging.ComponentGateway, "relay operation failed", fields...)
	case relayerrors.IsClientError(code):
		h.logger.ComponentDebug(logging.ComponentGateway, "relay operation rejected", fields...)
	default:
		// Policy refusals (filter, rate limit) are worth seeing at info.
		h.logger.ComponentInfo(logging.ComponentGateway, "relay operation refused", fields...)
	}
	relayerrors.WriteHTTPError(w, err)
}
