package relay

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
)

var t0 = time.Unix(1_700_000_000, 0)

func testConfig(timeoutSeconds int) QueueConfig {
	return QueueConfig{
		QueueLength:    10,
		QueuePolicy:    PolicyDropOld,
		TimeoutSeconds: timeoutSeconds,
		MaxMessageSize: 1000,
	}
}

func pushTo(t *testing.T, r *Registry, topic string, now time.Time, data ...string) {
	t.Helper()
	err := r.With(topic, now, true, func(sub *Subscription) error {
		for _, d := range data {
			sub.queue.Push(msg(d))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("push to %s: %v", topic, err)
	}
}

func TestRegistryJoinIdempotent(t *testing.T) {
	r := NewRegistry(4, nil)
	cfg := testConfig(60)

	first, created := r.JoinOrUpdate("foo", cfg, t0)
	if !created {
		t.Fatal("expected first join to create")
	}
	pushTo(t, r, "foo", t0, "a", "b")

	second, created := r.JoinOrUpdate("foo", cfg, t0.Add(30*time.Second))
	if created || second != first {
		t.Fatal("expected second join to reuse the subscription")
	}
	if second.Len() != 2 {
		t.Errorf("queue length = %d, want 2", second.Len())
	}

	// the refresh moved the deadline: 30s + 60s
	if _, err := r.Get("foo", t0.Add(80*time.Second)); err != nil {
		t.Errorf("expected refreshed subscription to be live: %v", err)
	}
}

func TestRegistryReconfigureShrinks(t *testing.T) {
	r := NewRegistry(4, nil)
	r.JoinOrUpdate("foo", testConfig(60), t0)
	pushTo(t, r, "foo", t0, "a", "b", "c", "d")

	smaller := testConfig(60)
	smaller.QueueLength = 2
	smaller.QueuePolicy = PolicyDropNew
	sub, _ := r.JoinOrUpdate("foo", smaller, t0)

	if got := sub.Config(); got != smaller {
		t.Errorf("config = %+v, want %+v", got, smaller)
	}

	var kept []string
	var dropped int
	_ = r.With("foo", t0, false, func(sub *Subscription) error {
		var msgs []Message
		msgs, dropped, _ = sub.queue.PopUpTo(0)
		kept = payloads(msgs)
		return nil
	})
	if !equalStrings(kept, []string{"a", "b"}) || dropped != 2 {
		t.Errorf("kept %v dropped %d, want [a b] and 2", kept, dropped)
	}
}

func TestRegistryRemove(t *testing.T) {
	var removed atomic.Int32
	r := NewRegistry(4, func(*Subscription) { removed.Add(1) })
	r.JoinOrUpdate("foo", testConfig(60), t0)

	if !r.Remove("foo") {
		t.Fatal("expected Remove to report a removal")
	}
	if r.Remove("foo") {
		t.Error("expected second Remove to be a no-op")
	}
	if _, err := r.Get("foo", t0); !relayerrors.IsNotFound(err) {
		t.Errorf("expected NotFound after remove, got %v", err)
	}
	if removed.Load() != 1 {
		t.Errorf("onRemove called %d times, want 1", removed.Load())
	}
}

func TestRegistryLazyExpiry(t *testing.T) {
	var removed atomic.Int32
	r := NewRegistry(4, func(*Subscription) { removed.Add(1) })
	r.JoinOrUpdate("foo", testConfig(10), t0)

	if _, err := r.Get("foo", t0.Add(10*time.Second)); err != nil {
		t.Fatalf("subscription at its deadline should be live: %v", err)
	}
	if _, err := r.Get("foo", t0.Add(10*time.Second+time.Nanosecond)); !relayerrors.IsNotFound(err) {
		t.Fatalf("expected NotFound past the deadline, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("expired subscription still tracked: %d", r.Len())
	}
	if removed.Load() != 1 {
		t.Errorf("onRemove called %d times, want 1", removed.Load())
	}

	// a later sweep must not tear it down again
	if n := r.Sweep(t0.Add(time.Hour)); n != 0 {
		t.Errorf("Sweep removed %d, want 0", n)
	}
	if removed.Load() != 1 {
		t.Errorf("onRemove called %d times after sweep, want 1", removed.Load())
	}
}

func TestRegistryRejoinAfterExpiryIsFresh(t *testing.T) {
	r := NewRegistry(4, nil)
	old, _ := r.JoinOrUpdate("foo", testConfig(10), t0)
	pushTo(t, r, "foo", t0, "a")

	fresh, created := r.JoinOrUpdate("foo", testConfig(10), t0.Add(time.Minute))
	if !created || fresh == old {
		t.Fatal("expected a fresh subscription after expiry")
	}
	if fresh.Len() != 0 {
		t.Errorf("fresh queue holds %d messages", fresh.Len())
	}
}

func TestRegistrySweep(t *testing.T) {
	var removed atomic.Int32
	r := NewRegistry(4, func(*Subscription) { removed.Add(1) })
	r.JoinOrUpdate("short", testConfig(10), t0)
	r.JoinOrUpdate("long", testConfig(100), t0)
	r.JoinOrUpdate("touched", testConfig(10), t0)

	// refresh keeps "touched" alive past its original deadline
	pushTo(t, r, "touched", t0.Add(8*time.Second), "x")

	if n := r.Sweep(t0.Add(10 * time.Second)); n != 0 {
		t.Errorf("Sweep at the deadline removed %d, want 0", n)
	}
	if n := r.Sweep(t0.Add(15 * time.Second)); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, err := r.Get("short", t0.Add(15*time.Second)); !relayerrors.IsNotFound(err) {
		t.Errorf("expected short to be gone, got %v", err)
	}
	for _, topic := range []string{"long", "touched"} {
		if _, err := r.Get(topic, t0.Add(15*time.Second)); err != nil {
			t.Errorf("expected %s to be live: %v", topic, err)
		}
	}
	if r.expiry.size() != 2 {
		t.Errorf("scheduler tracks %d deadlines, want 2", r.expiry.size())
	}
	if removed.Load() != 1 {
		t.Errorf("onRemove called %d times, want 1", removed.Load())
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry(4, nil)
	for _, topic := range []string{"xyz", "abd", "abc", "bcd"} {
		r.JoinOrUpdate(topic, testConfig(60), t0)
	}

	tests := []struct {
		name     string
		opts     ListOptions
		want     []string
		wantNext string
	}{
		{"all", ListOptions{}, []string{"abc", "abd", "bcd", "xyz"}, ""},
		{"prefix page", ListOptions{Prefix: "a", Max: 2}, []string{"abc", "abd"}, "abd"},
		{"after last page", ListOptions{Prefix: "a", Max: 2, After: "abd"}, []string{}, ""},
		{"first page", ListOptions{Max: 3}, []string{"abc", "abd", "bcd"}, "bcd"},
		{"short page", ListOptions{Max: 3, After: "bcd"}, []string{"xyz"}, ""},
		{"suffix", ListOptions{Suffix: "d"}, []string{"abd", "bcd"}, ""},
		{"prefix and suffix", ListOptions{Prefix: "a", Suffix: "d"}, []string{"abd"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.List(tt.opts, t0)
			if !equalStrings(res.Topics, tt.want) {
				t.Errorf("topics = %v, want %v", res.Topics, tt.want)
			}
			if res.Next != tt.wantNext {
				t.Errorf("next = %q, want %q", res.Next, tt.wantNext)
			}
		})
	}
}

func TestRegistryListSkipsExpired(t *testing.T) {
	r := NewRegistry(4, nil)
	r.JoinOrUpdate("old", testConfig(10), t0)
	r.JoinOrUpdate("new", testConfig(100), t0)

	res := r.List(ListOptions{}, t0.Add(time.Minute))
	if !equalStrings(res.Topics, []string{"new"}) {
		t.Errorf("topics = %v, want [new]", res.Topics)
	}
}

func TestRegistryConcurrentPush(t *testing.T) {
	r := NewRegistry(8, nil)
	cfg := testConfig(60)
	cfg.QueueLength = 1000

	topics := []string{"a", "b", "c", "d"}
	for _, topic := range topics {
		r.JoinOrUpdate(topic, cfg, t0)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				topic := topics[(w+i)%len(topics)]
				_ = r.With(topic, t0, true, func(sub *Subscription) error {
					sub.queue.Push(msg(fmt.Sprintf("%d-%d", w, i)))
					return nil
				})
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, topic := range topics {
		sub, err := r.Get(topic, t0)
		if err != nil {
			t.Fatalf("Get %s: %v", topic, err)
		}
		total += sub.Len()
	}
	if total != 400 {
		t.Errorf("total queued = %d, want 400", total)
	}
}
