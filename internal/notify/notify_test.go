package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func TestLogNotifier_WritesWarning(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	n.Notify(ctx, domain.NewNotification(domain.KindStockShortage, 4))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "stock_shortage", entry["kind"])
	assert.Equal(t, "Requested quantity is out of stock", entry["message"])
	assert.Equal(t, float64(4), entry["product_id"])
	assert.Equal(t, "corr-9", entry["correlation_id"])
}

func TestFeed_DrainOldestFirst(t *testing.T) {
	f := NewFeed(3)
	ctx := context.Background()

	f.Notify(ctx, domain.NewNotification(domain.KindAddFailed, 1))
	f.Notify(ctx, domain.NewNotification(domain.KindRemoveFailed, 2))
	assert.Equal(t, 2, f.Len())

	got := f.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ProductID)
	assert.Equal(t, 2, got[1].ProductID)
	assert.Equal(t, 0, f.Len())
	assert.Empty(t, f.Drain())
}

func TestFeed_DropsOldestWhenFull(t *testing.T) {
	f := NewFeed(2)
	ctx := context.Background()
	for id := 1; id <= 5; id++ {
		f.Notify(ctx, domain.NewNotification(domain.KindUpdateFailed, id))
	}

	got := f.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].ProductID)
	assert.Equal(t, 5, got[1].ProductID)
}

func TestNewFeed_DefaultSize(t *testing.T) {
	f := NewFeed(0)
	for i := 0; i < DefaultFeedSize+10; i++ {
		f.Notify(context.Background(), domain.NewNotification(domain.KindAddFailed, i))
	}
	assert.Equal(t, DefaultFeedSize, f.Len())
}

func TestKafkaNotifier_Publishes(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicNotificationRaised, mock.MatchedBy(func(e *pkgkafka.Event) bool {
		var n domain.Notification
		if err := json.Unmarshal(e.Data, &n); err != nil {
			return false
		}
		return e.EventType == EventNotificationRaised &&
			e.AggregateID == "stock_shortage" &&
			n.ProductID == 7 &&
			n.Message == domain.MsgStockShortage
	})).Return(nil).Once()

	NewKafkaNotifier(pub, slog.New(slog.DiscardHandler)).
		Notify(context.Background(), domain.NewNotification(domain.KindStockShortage, 7))

	pub.AssertExpectations(t)
}

func TestKafkaNotifier_SwallowsPublishError(t *testing.T) {
	var buf bytes.Buffer
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicNotificationRaised, mock.Anything).Return(errors.New("broker down"))

	assert.NotPanics(t, func() {
		NewKafkaNotifier(pub, slog.New(slog.NewJSONHandler(&buf, nil))).
			Notify(context.Background(), domain.NewNotification(domain.KindAddFailed, 1))
	})
	assert.Contains(t, buf.String(), "broker down")
}

func TestMulti_FansOut(t *testing.T) {
	a, b := NewFeed(5), NewFeed(5)
	Multi{a, b}.Notify(context.Background(), domain.NewNotification(domain.KindRemoveFailed, 3))

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}
