package relay

import (
	"fmt"
	"strings"
	"time"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
)

// QueuePolicy selects which message is sacrificed when a queue is full.
type QueuePolicy string

const (
	// PolicyDropOld evicts the oldest retained message to make room.
	PolicyDropOld QueuePolicy = "drop-old"
	// PolicyDropNew discards the incoming message.
	PolicyDropNew QueuePolicy = "drop-new"
)

// ParseQueuePolicy validates a policy name.
func ParseQueuePolicy(s string) (QueuePolicy, error) {
	switch p := QueuePolicy(strings.TrimSpace(s)); p {
	case PolicyDropOld, PolicyDropNew:
		return p, nil
	default:
		return "", relayerrors.NewValidationError("queue-policy", fmt.Sprintf("unknown policy %q", s), s)
	}
}

// QueueConfig is the effective configuration of one subscription.
type QueueConfig struct {
	QueueLength    int
	QueuePolicy    QueuePolicy
	TimeoutSeconds int
	MaxMessageSize int
}

// Timeout returns the liveness window as a duration.
func (c QueueConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Limits are the service-wide maxima reported by discovery.
type Limits struct {
	MaxQueueLength       int
	AllowedQueuePolicies []QueuePolicy
	MaxTimeoutSeconds    int
	MaxMessageSize       int
}

func (l Limits) allows(p QueuePolicy) bool {
	for _, allowed := range l.AllowedQueuePolicies {
		if allowed == p {
			return true
		}
	}
	return false
}

// JoinRequest carries the limits a client asked for. Nil fields take the
// service defaults.
type JoinRequest struct {
	QueueLength    *int
	QueuePolicy    *string
	TimeoutSeconds *int
	MaxMessageSize *int
}

// Resolve validates the request, fills defaults and clamps the result to the limits.
func (r JoinRequest) Resolve(limits Limits, defaults QueueConfig) (QueueConfig, error) {
	cfg := defaults

	positive := func(field string, v *int, dst *int) error {
		if v == nil {
			return nil
		}
		if *v <= 0 {
			return relayerrors.NewValidationError(field, "must be a positive integer", *v)
		}
		*dst = *v
		return nil
	}
	if err := positive("queue-length", r.QueueLength, &cfg.QueueLength); err != nil {
		return QueueConfig{}, err
	}
	if err := positive("timeout", r.TimeoutSeconds, &cfg.TimeoutSeconds); err != nil {
		return QueueConfig{}, err
	}
	if err := positive("max-message-size", r.MaxMessageSize, &cfg.MaxMessageSize); err != nil {
		return QueueConfig{}, err
	}
	if r.QueuePolicy != nil {
		p, err := ParseQueuePolicy(*r.QueuePolicy)
		if err != nil {
			return QueueConfig{}, err
		}
		cfg.QueuePolicy = p
	}

	return clamp(cfg, limits, defaults.QueuePolicy), nil
}

func clamp(cfg QueueConfig, limits Limits, fallback QueuePolicy) QueueConfig {
	cfg.QueueLength = min(cfg.QueueLength, limits.MaxQueueLength)
	cfg.TimeoutSeconds = min(cfg.TimeoutSeconds, limits.MaxTimeoutSeconds)
	cfg.MaxMessageSize = min(cfg.MaxMessageSize, limits.MaxMessageSize)
	if !limits.allows(cfg.QueuePolicy) {
		cfg.QueuePolicy = fallback
	}
	return cfg
}

// Message is one queued message.
type Message struct {
	From       string
	Data       []byte
	Seqno      []byte
	Signature  []byte
	Key        []byte
	ReceivedAt time.Time
}

// ReadOptions controls a single-topic read.
type ReadOptions struct {
	MaxMessages      int
	IncludeSignature bool
}

// ReadResult is the outcome of draining one topic.
type ReadResult struct {
	MessagesDropped   int
	MessagesRemaining int
	Messages          []Message
	// Pubkeys maps sender id to public key for senders whose key cannot be
	// derived from the id. Only set when signatures were requested.
	Pubkeys map[string][]byte
}

// ReadAllOptions controls a cross-topic read. MaxMessages applies per topic.
type ReadAllOptions struct {
	MaxMessages      int
	Prefix           string
	Suffix           string
	IncludeSignature bool
}

// TopicReadResult is one topic's slice of a read-all.
type TopicReadResult struct {
	Topic string
	ReadResult
}

// ListOptions filters and pages topic listings. Max <= 0 means no page limit.
type ListOptions struct {
	Prefix string
	Suffix string
	Max    int
	After  string
}

func (o ListOptions) matches(topic string) bool {
	return strings.HasPrefix(topic, o.Prefix) && strings.HasSuffix(topic, o.Suffix)
}

// ListResult is one page of topics. Next is set when the page is full and
// is passed back as ListOptions.After to continue.
type ListResult struct {
	Topics []string
	Next   string
}
