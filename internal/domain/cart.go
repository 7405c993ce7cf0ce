package domain

import "time"

// CartStorageKey is the client storage key holding the serialized cart.
const CartStorageKey = "@RocketShoes:cart"

// Product is one cart line: catalog metadata plus the chosen quantity.
type Product struct {
	ID     int     `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Image  string  `json:"image"`
	Amount int     `json:"amount"`
}

// Subtotal returns price times amount.
func (p Product) Subtotal() float64 {
	return p.Price * float64(p.Amount)
}

// Cart is the ordered list of lines, in insertion order, at most one per id.
type Cart []Product

// FindIndex returns the index of the line with the given product id, or -1.
func (c Cart) FindIndex(productID int) int {
	for i := range c {
		if c[i].ID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// ItemCount sums the amounts of all lines.
func (c Cart) ItemCount() int {
	var n int
	for _, p := range c {
		n += p.Amount
	}
	return n
}

// Total sums the line subtotals.
func (c Cart) Total() float64 {
	var total float64
	for _, p := range c {
		total += p.Subtotal()
	}
	return total
}

// Amounts maps product id to the amount in the cart.
func (c Cart) Amounts() map[int]int {
	out := make(map[int]int, len(c))
	for _, p := range c {
		out[p.ID] = p.Amount
	}
	return out
}

// Stock is the available quantity reported by the stock service.
type Stock struct {
	ID     int `json:"id,omitempty"`
	Amount int `json:"amount"`
}

// CatalogProduct is a product as described by the catalog service.
type CatalogProduct struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

// ListedProduct is a catalog product annotated with the quantity already in the cart.
type ListedProduct struct {
	CatalogProduct
	CartAmount int `json:"cart_amount"`
}

// UpdateProductAmount requests a new quantity for a cart line.
type UpdateProductAmount struct {
	ProductID int `json:"product_id"`
	Amount    int `json:"amount"`
}

// NotificationKind classifies a user-facing message.
type NotificationKind string

const (
	KindStockShortage NotificationKind = "stock_shortage"
	KindAddFailed     NotificationKind = "add_failed"
	KindRemoveFailed  NotificationKind = "remove_failed"
	KindUpdateFailed  NotificationKind = "update_failed"
)

// User-facing notification messages.
const (
	MsgStockShortage = "Requested quantity is out of stock"
	MsgAddFailed     = "Error adding product"
	MsgRemoveFailed  = "Error removing product"
	MsgUpdateFailed  = "Error updating product amount"
)

// Notification is a message surfaced to the shopper.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	ProductID int              `json:"product_id"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification builds a notification with the standard message for kind.
func NewNotification(kind NotificationKind, productID int) Notification {
	return Notification{
		Kind:      kind,
		Message:   kind.Message(),
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	}
}

// Message returns the standard user-facing text for k.
func (k NotificationKind) Message() string {
	switch k {
	case KindStockShortage:
		return MsgStockShortage
	case KindAddFailed:
		return MsgAddFailed
	case KindRemoveFailed:
		return MsgRemoveFailed
	case KindUpdateFailed:
		return MsgUpdateFailed
	default:
		return string(k)
	}
}
