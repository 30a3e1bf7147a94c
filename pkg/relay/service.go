package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"

	relayerrors "github.com/DeBrosOfficial/pubsub-relay/pkg/errors"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/filter"
	"github.com/DeBrosOfficial/pubsub-relay/pkg/identity"
)

const (
	forwardTimeout     = 10 * time.Second
	unsubscribeTimeout = 5 * time.Second
)

// Delivery is the network behind the relay. Subscribe feeds messages for a
// topic to handler until Unsubscribe is called with the returned id.
type Delivery interface {
	Subscribe(ctx context.Context, topic string, handler func(Message)) (string, error)
	Unsubscribe(ctx context.Context, topic, id string) error
	Publish(ctx context.Context, topic string, data []byte) error
}

// FilterAdvisor accumulates hints and vetoes publishes.
type FilterAdvisor interface {
	RecordHint(ctx context.Context, topic, peerID string) error
	Check(ctx context.Context, topic, sender string) filter.Verdict
}

// Options configures a Service.
type Options struct {
	Limits              Limits
	Defaults            QueueConfig
	DefaultReadMessages int
	// SweepInterval is the period of the background expiry sweep. Zero
	// disables the sweep; expiry is then only detected on access.
	SweepInterval time.Duration
	Shards        int

	// Filter and Delivery are optional.
	Filter   FilterAdvisor
	Delivery Delivery

	// SelfID is the relay's own peer id. Publishes from it bypass the filter.
	SelfID string

	Clock  clock.Clock
	Logger *zap.Logger
}

// Service implements the relay operations.
type Service struct {
	limits              Limits
	defaults            QueueConfig
	defaultReadMessages int

	registry *Registry
	filter   FilterAdvisor
	delivery Delivery
	selfID   string
	clock    clock.Clock
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// closeMu is held shared by operations that may start background work
	// and exclusively by Close while it flips closed.
	closeMu   sync.RWMutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewService validates opts and starts the expiry sweeper.
func NewService(opts Options) (*Service, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		limits:              opts.Limits,
		defaults:            opts.Defaults,
		defaultReadMessages: opts.DefaultReadMessages,
		filter:              opts.Filter,
		delivery:            opts.Delivery,
		selfID:              opts.SelfID,
		clock:               opts.Clock,
		logger:              opts.Logger,
		ctx:                 ctx,
		cancel:              cancel,
	}
	s.registry = NewRegistry(opts.Shards, s.teardown)

	if opts.SweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(opts.SweepInterval)
	}
	return s, nil
}

func validateOptions(opts Options) error {
	l := opts.Limits
	switch {
	case l.MaxQueueLength <= 0:
		return relayerrors.NewValidationError("limits.max_queue_length", "must be positive", l.MaxQueueLength)
	case l.MaxTimeoutSeconds <= 0:
		return relayerrors.NewValidationError("limits.max_timeout", "must be positive", l.MaxTimeoutSeconds)
	case l.MaxMessageSize <= 0:
		return relayerrors.NewValidationError("limits.max_message_size", "must be positive", l.MaxMessageSize)
	case len(l.AllowedQueuePolicies) == 0:
		return relayerrors.NewValidationError("limits.allowed_queue_policies", "must not be empty", nil)
	}
	for _, p := range l.AllowedQueuePolicies {
		if _, err := ParseQueuePolicy(string(p)); err != nil {
			return err
		}
	}

	d := opts.Defaults
	switch {
	case d.QueueLength <= 0:
		return relayerrors.NewValidationError("defaults.queue_length", "must be positive", d.QueueLength)
	case d.TimeoutSeconds <= 0:
		return relayerrors.NewValidationError("defaults.timeout", "must be positive", d.TimeoutSeconds)
	case d.MaxMessageSize <= 0:
		return relayerrors.NewValidationError("defaults.max_message_size", "must be positive", d.MaxMessageSize)
	case !l.allows(d.QueuePolicy):
		return relayerrors.NewValidationError("defaults.queue_policy", "must be one of the allowed policies", d.QueuePolicy)
	}
	return nil
}

func (s *Service) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.Sweep(s.clock.Now()); n > 0 {
				s.logger.Debug("Expired subscriptions removed", zap.Int("count", n))
			}
		}
	}
}

// Discovery returns the service-wide maxima.
func (s *Service) Discovery() Limits {
	l := s.limits
	l.AllowedQueuePolicies = append([]QueuePolicy(nil), s.limits.AllowedQueuePolicies...)
	return l
}

// Join creates or refreshes the subscription for topic and returns its
// effective configuration. It does not wait for delivery onboarding.
func (s *Service) Join(ctx context.Context, topic string, req JoinRequest) (QueueConfig, error) {
	if err := ctx.Err(); err != nil {
		return QueueConfig{}, err
	}
	release, err := s.enter("join")
	if err != nil {
		return QueueConfig{}, err
	}
	defer release()
	if topic == "" {
		return QueueConfig{}, relayerrors.NewValidationError("topic", "must not be empty", topic)
	}

	cfg, err := req.Resolve(s.limits, s.defaults)
	if err != nil {
		return QueueConfig{}, err
	}

	sub, created := s.registry.JoinOrUpdate(topic, cfg, s.clock.Now())
	if created {
		s.logger.Debug("Subscription created",
			zap.String("topic", topic),
			zap.Int("queue_length", cfg.QueueLength),
			zap.String("queue_policy", string(cfg.QueuePolicy)),
			zap.Int("timeout", cfg.TimeoutSeconds))
		s.onboard(sub)
	}
	return cfg, nil
}

// onboard subscribes sub to the delivery network in the background.
func (s *Service) onboard(sub *Subscription) {
	if s.delivery == nil {
		sub.mu.Lock()
		sub.ready = !sub.closed
		sub.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		cancel()
		return
	}
	sub.cancel = cancel
	sub.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		id, err := s.delivery.Subscribe(ctx, sub.topic, func(msg Message) {
			s.deliverInbound(sub, msg)
		})
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("Delivery onboarding failed",
					zap.String("topic", sub.topic),
					zap.Error(err))
			}
			return
		}

		sub.mu.Lock()
		if sub.closed {
			sub.mu.Unlock()
			s.unsubscribe(sub.topic, id)
			return
		}
		sub.deliveryID = id
		sub.ready = true
		sub.mu.Unlock()
	}()
}

// teardown releases delivery resources of a removed subscription.
func (s *Service) teardown(sub *Subscription) {
	sub.mu.Lock()
	cancel, id := sub.detachDelivery()
	sub.mu.Unlock()

	cancel()
	if id != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.unsubscribe(sub.topic, id)
		}()
	}
	s.logger.Debug("Subscription removed", zap.String("topic", sub.topic))
}

func (s *Service) unsubscribe(topic, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
	defer cancel()
	if err := s.delivery.Unsubscribe(ctx, topic, id); err != nil {
		s.logger.Warn("Delivery unsubscribe failed",
			zap.String("topic", topic),
			zap.Error(err))
	}
}

// deliverInbound queues a message received from the network. Violations are
// dropped silently and do not refresh liveness.
func (s *Service) deliverInbound(sub *Subscription, msg Message) {
	if s.filter != nil {
		if v := s.filter.Check(s.ctx, sub.topic, msg.From); v != filter.Accept {
			s.logger.Debug("Inbound message filtered",
				zap.String("topic", sub.topic),
				zap.String("from", msg.From),
				zap.Stringer("verdict", v))
			return
		}
	}

	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = s.clock.Now()
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	if len(msg.Data) > sub.config.MaxMessageSize {
		s.logger.Debug("Inbound message too large",
			zap.String("topic", sub.topic),
			zap.Int("size", len(msg.Data)))
		return
	}
	sub.queue.Push(msg)
}

// Leave removes the subscription for topic and discards its queue.
func (s *Service) Leave(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	release, err := s.enter("leave")
	if err != nil {
		return err
	}
	defer release()

	if !s.registry.Remove(topic) {
		return relayerrors.NewNotFoundError("topic", topic)
	}
	return nil
}

// Publish queues msg on topic and forwards it to the delivery network.
func (s *Service) Publish(ctx context.Context, topic string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	release, err := s.enter("publish")
	if err != nil {
		return err
	}
	defer release()

	now := s.clock.Now()
	sub, err := s.registry.Get(topic, now)
	if err != nil {
		return err
	}
	if limit := sub.Config().MaxMessageSize; len(msg.Data) > limit {
		return relayerrors.NewPayloadTooLargeError(len(msg.Data), limit)
	}

	// Local publishes without a caller identity carry the relay's own id;
	// the gateway's per-client limit governs them instead of the filter.
	if s.filter != nil && msg.From != s.selfID {
		switch s.filter.Check(ctx, topic, msg.From) {
		case filter.Reject:
			return relayerrors.NewRejectedError(topic, msg.From)
		case filter.RateLimit:
			return relayerrors.NewRateLimitError(0, 1)
		}
	}

	msg.ReceivedAt = now
	err = s.registry.WithSubscription(sub, now, true, func(sub *Subscription) error {
		if len(msg.Data) > sub.config.MaxMessageSize {
			return relayerrors.NewPayloadTooLargeError(len(msg.Data), sub.config.MaxMessageSize)
		}
		sub.queue.Push(msg)
		return nil
	})
	if err != nil {
		return err
	}

	s.forward(topic, msg.Data)
	return nil
}

// forward must be called while holding closeMu shared.
func (s *Service) forward(topic string, data []byte) {
	if s.delivery == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, forwardTimeout)
		defer cancel()
		if err := s.delivery.Publish(ctx, topic, data); err != nil {
			s.logger.Warn("Forwarding to delivery network failed",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}()
}

func (s *Service) readLimit(n int) int {
	if n > 0 {
		return n
	}
	return s.defaultReadMessages
}

// Read drains up to opts.MaxMessages messages from topic.
func (s *Service) Read(ctx context.Context, topic string, opts ReadOptions) (ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return ReadResult{}, err
	}

	release, err := s.enter("read")
	if err != nil {
		return ReadResult{}, err
	}
	defer release()

	var (
		msgs               []Message
		dropped, remaining int
	)
	err = s.registry.With(topic, s.clock.Now(), true, func(sub *Subscription) error {
		msgs, dropped, remaining = sub.queue.PopUpTo(s.readLimit(opts.MaxMessages))
		return nil
	})
	if err != nil {
		return ReadResult{}, err
	}
	return buildReadResult(msgs, dropped, remaining, opts.IncludeSignature), nil
}

// ReadAll applies Read to every live topic matching the filters. Topics
// with neither messages nor drops are omitted.
func (s *Service) ReadAll(ctx context.Context, opts ReadAllOptions) ([]TopicReadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	release, err := s.enter("read-all")
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.clock.Now()
	match := ListOptions{Prefix: opts.Prefix, Suffix: opts.Suffix}
	subs := s.registry.Live(now, match.matches)
	limit := s.readLimit(opts.MaxMessages)

	results := make([]TopicReadResult, 0, len(subs))
	for _, sub := range subs {
		var (
			msgs               []Message
			dropped, remaining int
		)
		err := s.registry.WithSubscription(sub, now, true, func(sub *Subscription) error {
			msgs, dropped, remaining = sub.queue.PopUpTo(limit)
			return nil
		})
		if err != nil {
			// expired or left concurrently
			continue
		}
		if len(msgs) == 0 && dropped == 0 {
			continue
		}
		results = append(results, TopicReadResult{
			Topic:      sub.topic,
			ReadResult: buildReadResult(msgs, dropped, remaining, opts.IncludeSignature),
		})
	}
	return results, nil
}

func buildReadResult(msgs []Message, dropped, remaining int, includeSignature bool) ReadResult {
	res := ReadResult{
		MessagesDropped:   dropped,
		MessagesRemaining: remaining,
		Messages:          msgs,
	}
	for i := range res.Messages {
		m := &res.Messages[i]
		if includeSignature && len(m.Key) > 0 && !identity.KeyDerivable(m.From) {
			if res.Pubkeys == nil {
				res.Pubkeys = make(map[string][]byte)
			}
			res.Pubkeys[m.From] = m.Key
		}
		if !includeSignature {
			m.Signature = nil
		}
		m.Key = nil
	}
	return res
}

// List returns one page of live topics.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, err
	}
	if opts.Max < 0 {
		return ListResult{}, relayerrors.NewValidationError("max-topic", "must not be negative", opts.Max)
	}
	return s.registry.List(opts, s.clock.Now()), nil
}

// FilterPeerID records a hint that peerID's traffic on topic is suspect.
// It does not refresh the subscription.
func (s *Service) FilterPeerID(ctx context.Context, topic, peerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if peerID == "" {
		return relayerrors.NewValidationError("peerid", "must not be empty", peerID)
	}
	release, err := s.enter("filter-peerid")
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.registry.Get(topic, s.clock.Now()); err != nil {
		return err
	}
	if s.filter == nil {
		return nil
	}
	return s.filter.RecordHint(ctx, topic, peerID)
}

// enter admits an operation that may create subscriptions or start
// background work. The returned release must be called when it finishes.
func (s *Service) enter(op string) (release func(), err error) {
	s.closeMu.RLock()
	if s.closed.Load() {
		s.closeMu.RUnlock()
		return nil, relayerrors.NewInternalError("relay is shutting down", nil).WithOperation(op)
	}
	return s.closeMu.RUnlock, nil
}

// Topics returns the number of tracked subscriptions.
func (s *Service) Topics() int {
	return s.registry.Len()
}

// Close stops the sweeper, tears down every subscription and waits for
// background work to finish.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		// Waits for in-flight operations; later ones see closed and fail.
		s.closeMu.Lock()
		s.closed.Store(true)
		s.closeMu.Unlock()

		s.cancel()
		s.registry.Clear()
		s.wg.Wait()
	})
}
