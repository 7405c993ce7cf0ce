package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// StockLookup reports the available quantity of a product.
type StockLookup interface {
	Stock(ctx context.Context, productID int) (domain.Stock, error)
}

// CatalogLookup returns a product's catalog metadata.
type CatalogLookup interface {
	Product(ctx context.Context, productID int) (domain.CatalogProduct, error)
}

type subscriber struct {
	id int
	fn func(ctx context.Context, cart domain.Cart)
}

// Store owns the shopper's cart. Operations are serialized: each one holds
// opMu from its first lookup until subscribers have been notified, so two
// rapid adds of the same product never lose an increment.
//
// Operations never return errors. Every failure becomes a notification and
// leaves both the in-memory and the persisted cart untouched.
//
// Subscribers run while opMu is held and must not call mutating operations.
type Store struct {
	opMu sync.Mutex

	mu   sync.RWMutex
	cart domain.Cart

	subMu     sync.Mutex
	subs      []subscriber
	nextSubID int

	storage  storage.Storage
	stock    StockLookup
	catalog  CatalogLookup
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewStore loads the persisted cart and returns a ready store. A missing key
// yields an empty cart; a value that is not a JSON cart is an error.
func NewStore(
	ctx context.Context,
	st storage.Storage,
	stock StockLookup,
	catalog CatalogLookup,
	notifier notify.Notifier,
	logger *slog.Logger,
) (*Store, error) {
	raw, ok, err := st.GetItem(ctx, domain.CartStorageKey)
	if err != nil {
		return nil, fmt.Errorf("load stored cart: %w", err)
	}

	cart := domain.Cart{}
	if ok {
		if err := json.Unmarshal([]byte(raw), &cart); err != nil {
			return nil, fmt.Errorf("parse stored cart %q: %w", domain.CartStorageKey, err)
		}
		if cart == nil {
			cart = domain.Cart{}
		}
	}

	logger.InfoContext(ctx, "cart loaded",
		slog.Int("lines", len(cart)),
		slog.Int("item_count", cart.ItemCount()),
	)

	return &Store{
		cart:     cart,
		storage:  st,
		stock:    stock,
		catalog:  catalog,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Cart returns a copy of the current cart.
func (s *Store) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Amounts maps each product id in the cart to its quantity.
func (s *Store) Amounts() map[int]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Amounts()
}

// Subscribe registers fn to receive a copy of the cart after every successful
// mutation, in registration order. The returned function unregisters it.
func (s *Store) Subscribe(fn func(ctx context.Context, cart domain.Cart)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// AddProduct adds one unit of productID. A product already in the cart is
// incremented through UpdateProductAmount; a new one is looked up in the
// catalog and appended with amount 1. Both paths require enough stock.
func (s *Store) AddProduct(ctx context.Context, productID int) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.guard(ctx, opAdd, productID, domain.KindAddFailed, func(ctx context.Context) (outcome, error) {
		current := s.Cart()

		if i := current.FindIndex(productID); i >= 0 {
			want := current[i].Amount + 1
			stock, err := s.stock.Stock(ctx, productID)
			if err != nil {
				return outcomeFailed, err
			}
			if stock.Amount < want {
				return outcomeShortage, apperrors.OutOfStock(productID, want, stock.Amount)
			}
			return s.updateProductAmount(ctx, domain.UpdateProductAmount{ProductID: productID, Amount: want}), nil
		}

		stock, err := s.stock.Stock(ctx, productID)
		if err != nil {
			return outcomeFailed, err
		}
		if stock.Amount < 1 {
			return outcomeShortage, apperrors.OutOfStock(productID, 1, stock.Amount)
		}

		product, err := s.catalog.Product(ctx, productID)
		if err != nil {
			return outcomeFailed, err
		}
		if product.ID != productID {
			return outcomeFailed, fmt.Errorf("catalog returned product %d for id %d", product.ID, productID)
		}

		next := append(current, domain.Product{
			ID:     productID,
			Title:  product.Title,
			Price:  product.Price,
			Image:  product.Image,
			Amount: 1,
		})
		if err := s.commit(ctx, next); err != nil {
			return outcomeFailed, err
		}
		return outcomeOK, nil
	})
}

// RemoveProduct deletes the line for productID. Removing a product that is not
// in the cart raises a remove failure notification.
func (s *Store) RemoveProduct(ctx context.Context, productID int) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.guard(ctx, opRemove, productID, domain.KindRemoveFailed, func(ctx context.Context) (outcome, error) {
		current := s.Cart()
		if current.FindIndex(productID) < 0 {
			return outcomeFailed, apperrors.NotFound("cart line", strconv.Itoa(productID))
		}

		next := make(domain.Cart, 0, len(current)-1)
		for _, p := range current {
			if p.ID != productID {
				next = append(next, p)
			}
		}
		if err := s.commit(ctx, next); err != nil {
			return outcomeFailed, err
		}
		return outcomeOK, nil
	})
}

// UpdateProductAmount sets the quantity of a cart line. Amounts of zero or
// less are ignored without notification. An id not in the cart leaves the
// lines unchanged.
func (s *Store) UpdateProductAmount(ctx context.Context, in domain.UpdateProductAmount) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.updateProductAmount(ctx, in)
}

func (s *Store) updateProductAmount(ctx context.Context, in domain.UpdateProductAmount) outcome {
	return s.guard(ctx, opUpdate, in.ProductID, domain.KindUpdateFailed, func(ctx context.Context) (outcome, error) {
		if in.Amount <= 0 {
			return outcomeIgnored, nil
		}

		stock, err := s.stock.Stock(ctx, in.ProductID)
		if err != nil {
			return outcomeFailed, err
		}
		if in.Amount > stock.Amount {
			return outcomeShortage, apperrors.OutOfStock(in.ProductID, in.Amount, stock.Amount)
		}

		current := s.Cart()
		next := make(domain.Cart, len(current))
		for i, p := range current {
			if p.ID == in.ProductID {
				p.Amount = in.Amount
			}
			next[i] = p
		}
		if err := s.commit(ctx, next); err != nil {
			return outcomeFailed, err
		}
		return outcomeOK, nil
	})
}

// guard runs fn as one operation: panics and errors are turned into a
// notification and the outcome is counted.
func (s *Store) guard(
	ctx context.Context,
	op string,
	productID int,
	failKind domain.NotificationKind,
	fn func(context.Context) (outcome, error),
) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = s.fail(ctx, op, productID, failKind, fmt.Errorf("panic: %v", r))
		}
		cartOperationsTotal.WithLabelValues(op, string(out)).Inc()
	}()

	out, err := fn(ctx)
	if err != nil {
		return s.fail(ctx, op, productID, failKind, err)
	}
	return out
}

func (s *Store) fail(ctx context.Context, op string, productID int, failKind domain.NotificationKind, err error) outcome {
	l := logger.WithContext(ctx, s.logger)

	if errors.Is(err, apperrors.ErrOutOfStock) {
		l.InfoContext(ctx, "cart operation rejected: insufficient stock",
			slog.String("operation", op),
			slog.Int("product_id", productID),
			slog.String("reason", err.Error()),
		)
		s.notifier.Notify(ctx, domain.NewNotification(domain.KindStockShortage, productID))
		return outcomeShortage
	}

	l.ErrorContext(ctx, "cart operation failed",
		slog.String("operation", op),
		slog.Int("product_id", productID),
		slog.String("error", err.Error()),
	)
	s.notifier.Notify(ctx, domain.NewNotification(failKind, productID))
	return outcomeFailed
}

// commit persists next, then swaps it in and notifies subscribers. When the
// write fails the in-memory cart is left as it was.
func (s *Store) commit(ctx context.Context, next domain.Cart) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.storage.SetItem(ctx, domain.CartStorageKey, string(data)); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}

	s.mu.Lock()
	s.cart = next
	s.mu.Unlock()

	s.publish(ctx, next)
	return nil
}

func (s *Store) publish(ctx context.Context, cart domain.Cart) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		s.callSubscriber(ctx, sub, cart.Clone())
	}
}

func (s *Store) callSubscriber(ctx context.Context, sub subscriber, cart domain.Cart) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "cart subscriber panicked",
				slog.Int("subscriber", sub.id),
				slog.Any("panic", r),
			)
		}
	}()
	sub.fn(ctx, cart)
}
