package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topic for cart snapshots.
const TopicCartUpdated = "storefront.cart.updated"

const (
	EventCartUpdated  = "storefront.cart.updated"
	AggregateTypeCart = "cart"
	SourceStorefront  = "storefront-cart"
)

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	Items       []CartItemData `json:"items"`
	ItemCount   int            `json:"item_count"`
	TotalAmount float64        `json:"total_amount"`
}

// CartItemData is one line within a cart event.
type CartItemData struct {
	ProductID int     `json:"product_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Amount    int     `json:"amount"`
}

// Publisher is the subset of pkg/kafka.Producer the event producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Subscribable is implemented by the cart store.
type Subscribable interface {
	Subscribe(fn func(ctx context.Context, cart domain.Cart)) (unsubscribe func())
}

// Producer publishes cart domain events to Kafka.
type Producer struct {
	publisher Publisher
	cartID    string
	logger    *slog.Logger
}

// NewProducer creates a producer publishing snapshots of the cart identified by cartID.
func NewProducer(publisher Publisher, cartID string, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, cartID: cartID, logger: logger}
}

// PublishCartUpdated publishes a cart.updated event carrying the full cart.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart domain.Cart) error {
	items := make([]CartItemData, len(cart))
	for i, line := range cart {
		items[i] = CartItemData{
			ProductID: line.ID,
			Title:     line.Title,
			Price:     line.Price,
			Amount:    line.Amount,
		}
	}

	data := CartUpdatedData{
		Items:       items,
		ItemCount:   cart.ItemCount(),
		TotalAmount: cart.Total(),
	}

	evt, err := pkgkafka.NewEvent(ctx, EventCartUpdated, p.cartID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}
	if session := logger.SessionIDFromContext(ctx); session != "" {
		evt.WithMetadata("session_id", session)
	}

	if err := p.publisher.Publish(ctx, TopicCartUpdated, evt); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("cart_id", p.cartID),
		slog.Int("item_count", data.ItemCount),
	)
	return nil
}

// Attach subscribes the producer to store. Publish failures are logged and
// never reach the store.
func (p *Producer) Attach(store Subscribable) (detach func()) {
	return store.Subscribe(func(ctx context.Context, cart domain.Cart) {
		if err := p.PublishCartUpdated(ctx, cart); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish cart event",
				slog.String("cart_id", p.cartID),
				slog.String("error", err.Error()),
			)
		}
	})
}
