package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/preview/events"
	"github.com/casualjim/preview/pkg/slogx"
	"github.com/casualjim/preview/pkg/uuidx"
)

// DefaultHighWatermark is the per-conversation subscriber count above which
// Subscribe logs a warning. It is a soft bound: subscribing past it always
// succeeds.
const DefaultHighWatermark = 100

var _ Broker = (*LocalBroker)(nil)

// LocalBroker is the in-process Broker implementation. Configure it with
// the With* builder methods before handing it out.
type LocalBroker struct {
	topics        *haxmap.Map[string, *topic]
	highWatermark int
	log           *slog.Logger
}

// Local creates an in-process broker with the default high-watermark and
// the default slog logger.
func Local() *LocalBroker {
	return &LocalBroker{
		topics:        haxmap.New[string, *topic](),
		highWatermark: DefaultHighWatermark,
		log:           slog.Default().With(slogx.LoggerName("broker")),
	}
}

// WithHighWatermark configures the subscriber count per conversation above
// which Subscribe starts warning. Values below one are ignored.
func (b *LocalBroker) WithHighWatermark(n int) *LocalBroker {
	if n > 0 {
		b.highWatermark = n
	}
	return b
}

// WithLogger configures the logger used for delivery and watermark
// warnings.
func (b *LocalBroker) WithLogger(log *slog.Logger) *LocalBroker {
	if log != nil {
		b.log = log.With(slogx.LoggerName("broker"))
	}
	return b
}

func (b *LocalBroker) Topic(ctx context.Context, id string) Topic {
	topic, _ := b.topics.GetOrCompute(id, func() *topic {
		return b.newTopic(id)
	})
	return topic
}

func (b *LocalBroker) Lookup(id string) (Topic, bool) {
	topic, ok := b.topics.Get(id)
	if !ok {
		return nil, false
	}
	return topic, true
}

func (b *LocalBroker) newTopic(id string) *topic {
	return &topic{
		ID:            id,
		subscriptions: haxmap.New[string, *subscription](),
		highWatermark: b.highWatermark,
		log:           b.log,
	}
}

type topic struct {
	ID            string
	subscriptions *haxmap.Map[string, *subscription]
	subscribers   atomic.Int64
	highWatermark int
	warned        atomic.Bool
	log           *slog.Logger

	// deliverMu serializes fan-outs. Holding it across the whole fan-out is
	// what gives every subscriber the same delivery order for a
	// conversation.
	deliverMu sync.Mutex
}

func (t *topic) Publish(ctx context.Context, event events.Event) error {
	if event == nil {
		return errors.New("event is required")
	}

	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()

	// Snapshot the subscriber set first: a hook attached or detached while
	// this fan-out runs does not change who receives the in-flight event.
	targets := make([]*subscription, 0, t.subscribers.Load())
	t.subscriptions.ForEach(func(_ string, sub *subscription) bool {
		if sub != nil {
			targets = append(targets, sub)
		}
		return true
	})

	for _, sub := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if sub.ctx.Err() != nil {
			// The subscriber's context died without an explicit
			// Unsubscribe, clean it up lazily.
			sub.Unsubscribe()
			continue
		}

		sub.deliver(ctx, event)
	}

	return nil
}

func (t *topic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, errors.New("hook is required")
	}

	sub := t.newSubscription(ctx, hook)

	if count := int(t.subscribers.Load()); count > t.highWatermark && t.warned.CompareAndSwap(false, true) {
		t.log.WarnContext(ctx, "subscriber count crossed high-watermark",
			slog.String("conversation_id", t.ID),
			slog.Int("subscribers", count),
			slog.Int("high_watermark", t.highWatermark),
		)
	}

	return sub, nil
}

func (t *topic) newSubscription(ctx context.Context, hook events.Hook) *subscription {
	id := uuidx.NewString()
	sub := &subscription{
		id:   id,
		ctx:  ctx,
		hook: hook,
		log:  t.log,
	}
	sub.onClose = func() {
		t.subscriptions.Del(id)
		if int(t.subscribers.Add(-1)) <= t.highWatermark {
			t.warned.Store(false)
		}
	}
	t.subscriptions.Set(id, sub)
	t.subscribers.Add(1)
	return sub
}

func (t *topic) Subscribers() int {
	return int(t.subscribers.Load())
}

type subscription struct {
	id        string
	ctx       context.Context
	hook      events.Hook
	closeOnce sync.Once
	onClose   func()
	log       *slog.Logger
}

func (s *subscription) ID() string {
	return s.id
}

// Unsubscribe detaches the hook and returns immediately. Calling it again
// is a no-op. A fan-out already in flight may still deliver one final
// event, everything published after Unsubscribe returns stays away.
func (s *subscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// deliver invokes the hook method matching the event's kind. A panicking
// hook is contained here so it cannot break the publisher or starve the
// other subscribers in the same fan-out.
func (s *subscription) deliver(ctx context.Context, event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "subscriber hook panicked, continuing fan-out",
				slog.String("subscription_id", s.id),
				slog.Any("panic", r),
			)
		}
	}()

	switch event := event.(type) {
	case events.Component:
		s.hook.OnComponent(ctx, event)
	case events.Layout:
		s.hook.OnLayout(ctx, event)
	case events.Types:
		s.hook.OnTypes(ctx, event)
	case events.Complete:
		s.hook.OnComplete(ctx, event)
	case events.Error:
		s.hook.OnError(ctx, event)
	default:
		panic(fmt.Sprintf("unknown event type: %T", event))
	}
}
