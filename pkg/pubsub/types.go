package pubsub

import "github.com/libp2p/go-libp2p/core/peer"

// Message is a gossipsub message as seen by handlers.
type Message struct {
	From         peer.ID
	Data         []byte
	Seqno        []byte
	Signature    []byte
	Key          []byte
	ReceivedFrom peer.ID
}

// MessageHandler is called for every message arriving on a subscribed topic.
// Multiple handlers can be registered for the same topic and each receives
// the message. A returned error is logged and does not stop other handlers.
type MessageHandler func(topic string, msg *Message) error

// HandlerID uniquely identifies a handler registration. Unsubscribe
// operations are ref-counted per topic.
type HandlerID string
