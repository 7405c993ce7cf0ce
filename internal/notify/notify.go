package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Notifier delivers shopper-facing messages. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// LogNotifier writes each notification as a structured warning.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs through l.
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Notify(ctx context.Context, note domain.Notification) {
	logger.WithContext(ctx, n.logger).WarnContext(ctx, "shopper notification",
		slog.String("kind", string(note.Kind)),
		slog.String("message", note.Message),
		slog.Int("product_id", note.ProductID),
	)
}

// DefaultFeedSize is the number of notifications a Feed keeps.
const DefaultFeedSize = 50

// Feed buffers the most recent notifications until the view drains them.
// When full, the oldest entry is dropped.
type Feed struct {
	mu    sync.Mutex
	buf   []domain.Notification
	start int
	count int
}

// NewFeed creates a feed holding at most size notifications.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{buf: make([]domain.Notification, size)}
}

func (f *Feed) Notify(_ context.Context, n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	end := (f.start + f.count) % len(f.buf)
	f.buf[end] = n
	if f.count < len(f.buf) {
		f.count++
	} else {
		f.start = (f.start + 1) % len(f.buf)
	}
}

// Drain returns the buffered notifications oldest first and empties the feed.
func (f *Feed) Drain() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.Notification, f.count)
	for i := 0; i < f.count; i++ {
		out[i] = f.buf[(f.start+i)%len(f.buf)]
	}
	f.start, f.count = 0, 0
	return out
}

// Len returns the number of buffered notifications.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Publisher is the subset of pkg/kafka.Producer used to publish notifications.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Notification event constants.
const (
	TopicNotificationRaised = "storefront.notification.raised"
	EventNotificationRaised = "storefront.notification.raised"
	aggregateType           = "notification"
	eventSource             = "storefront-cart"
)

// KafkaNotifier publishes notifications as events. Publish failures are
// logged and dropped.
type KafkaNotifier struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewKafkaNotifier creates a notifier publishing through p.
func NewKafkaNotifier(p Publisher, l *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{publisher: p, logger: l}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n domain.Notification) {
	evt, err := pkgkafka.NewEvent(ctx, EventNotificationRaised, string(n.Kind), aggregateType, eventSource, n)
	if err != nil {
		k.logger.ErrorContext(ctx, "failed to build notification event", slog.String("error", err.Error()))
		return
	}
	if err := k.publisher.Publish(ctx, TopicNotificationRaised, evt); err != nil {
		k.logger.ErrorContext(ctx, "failed to publish notification event",
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
