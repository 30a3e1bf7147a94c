package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
)

func createTestHost(t *testing.T) (host.Host, *pubsub.PubSub) {
	t.Helper()

	h, err := libp2p.New(libp2p.ListenAddrStrings("/ip4/127.0.0.1/tcp/0"))
	if err != nil {
		t.Fatalf("failed to create libp2p host: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		t.Fatalf("failed to create gossipsub: %v", err)
	}
	return h, ps
}

func createTestManager(t *testing.T, ns string) *Manager {
	h, ps := createTestHost(t)
	mgr := NewManager(ps, h.ID(), ns, nil)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func noopHandler(string, *Message) error { return nil }

func TestManager_Namespacing(t *testing.T) {
	mgr := createTestManager(t, "test-ns")
	ctx := context.Background()

	if _, err := mgr.Subscribe(ctx, "my-topic", noopHandler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	mgr.mu.RLock()
	_, exists := mgr.subscriptions["test-ns.my-topic"]
	mgr.mu.RUnlock()
	if !exists {
		t.Errorf("expected subscription for test-ns.my-topic to exist")
	}

	topics := mgr.ListTopics()
	if len(topics) != 1 || topics[0] != "my-topic" {
		t.Errorf("expected 1 topic [my-topic], got %v", topics)
	}
}

func TestManager_RefCount(t *testing.T) {
	mgr := createTestManager(t, "test-ns")
	ctx := context.Background()
	namespacedTopic := "test-ns.ref-topic"

	id1, err := mgr.Subscribe(ctx, "ref-topic", noopHandler)
	if err != nil {
		t.Fatalf("first subscribe failed: %v", err)
	}
	id2, err := mgr.Subscribe(ctx, "ref-topic", noopHandler)
	if err != nil {
		t.Fatalf("second subscribe failed: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct handler ids, got %s twice", id1)
	}

	mgr.mu.RLock()
	ts := mgr.subscriptions[namespacedTopic]
	mgr.mu.RUnlock()
	if ts.refCount != 2 {
		t.Errorf("expected refCount 2, got %d", ts.refCount)
	}

	if err := mgr.Unsubscribe(ctx, "ref-topic", id1); err != nil {
		t.Fatalf("unsubscribe 1 failed: %v", err)
	}
	// a second unsubscribe with the same id is a no-op
	if err := mgr.Unsubscribe(ctx, "ref-topic", id1); err != nil {
		t.Fatalf("repeated unsubscribe failed: %v", err)
	}
	if ts.refCount != 1 {
		t.Errorf("expected refCount 1 after one unsubscribe, got %d", ts.refCount)
	}

	if err := mgr.Unsubscribe(ctx, "ref-topic", id2); err != nil {
		t.Fatalf("unsubscribe 2 failed: %v", err)
	}
	mgr.mu.RLock()
	_, exists := mgr.subscriptions[namespacedTopic]
	mgr.mu.RUnlock()
	if exists {
		t.Error("expected subscription to be removed")
	}
}

func TestManager_SubscribeCancelledContext(t *testing.T) {
	mgr := createTestManager(t, "test-ns")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mgr.Subscribe(ctx, "late", noopHandler); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestManager_NotInitialized(t *testing.T) {
	mgr := NewManager(nil, "", "test", nil)

	if err := mgr.Publish(context.Background(), "chat", []byte("x")); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from Publish, got %v", err)
	}
	if _, err := mgr.Subscribe(context.Background(), "chat", func(string, *Message) error { return nil }); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from Subscribe, got %v", err)
	}
}

func TestManager_PublishRequiresTopic(t *testing.T) {
	_, ps := createTestHost(t)
	mgr := NewManager(ps, "", "test", nil)

	if err := mgr.Publish(context.Background(), "", []byte("x")); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestManager_PubSub(t *testing.T) {
	ctx := context.Background()

	h1, ps1 := createTestHost(t)
	mgr1 := NewManager(ps1, h1.ID(), "test", nil)
	defer mgr1.Close()

	h2, ps2 := createTestHost(t)
	mgr2 := NewManager(ps2, h2.ID(), "test", nil)
	defer mgr2.Close()

	if err := h1.Connect(ctx, peer.AddrInfo{ID: h2.ID(), Addrs: h2.Addrs()}); err != nil {
		t.Fatalf("failed to connect hosts: %v", err)
	}

	msgData := []byte("hello world")
	received := make(chan *Message, 1)

	_, err := mgr2.Subscribe(ctx, "chat", func(_ string, msg *Message) error {
		select {
		case received <- msg:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("mgr2 subscribe failed: %v", err)
	}

	// the mesh forms via gossip, so retry the publish until it lands
	timeout := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatal("timed out waiting for message")
		case <-ticker.C:
			_ = mgr1.Publish(ctx, "chat", msgData)
		case msg := <-received:
			if string(msg.Data) != string(msgData) {
				t.Errorf("expected %s, got %s", msgData, msg.Data)
			}
			if msg.From != h1.ID() {
				t.Errorf("expected sender %s, got %s", h1.ID(), msg.From)
			}
			if len(msg.Signature) == 0 {
				t.Error("expected a signed message")
			}
			return
		}
	}
}

func TestPeerDiscovery_ParseAnnouncement(t *testing.T) {
	h, ps := createTestHost(t)
	mgr := NewManager(ps, h.ID(), "test", nil)
	defer mgr.Close()
	pds := NewPeerDiscoveryService(h, mgr, time.Minute, nil)

	other, _ := createTestHost(t)
	now := time.Now()

	encode := func(a PeerAnnouncement) []byte {
		data, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return data
	}
	addr := other.Addrs()[0].String()

	tests := []struct {
		name   string
		data   []byte
		wantOK bool
	}{
		{"valid", encode(PeerAnnouncement{PeerID: other.ID().String(), Addresses: []string{addr}, Timestamp: now.Unix()}), true},
		{"self", encode(PeerAnnouncement{PeerID: h.ID().String(), Addresses: []string{addr}, Timestamp: now.Unix()}), false},
		{"stale", encode(PeerAnnouncement{PeerID: other.ID().String(), Addresses: []string{addr}, Timestamp: now.Add(-time.Hour).Unix()}), false},
		{"no addresses", encode(PeerAnnouncement{PeerID: other.ID().String(), Addresses: []string{"garbage"}, Timestamp: now.Unix()}), false},
		{"malformed", []byte("{"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, _, ok := pds.parseAnnouncement(tt.data, now)
			if ok != tt.wantOK {
				t.Fatalf("parseAnnouncement ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && id != other.ID() {
				t.Errorf("expected peer %s, got %s", other.ID(), id)
			}
		})
	}
}
