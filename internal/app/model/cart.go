package model

import (
	"errors"
	"time"
)

// ErrInvalidQuantity is returned when a cart mutation is asked to add or set
// a quantity below one. Items never exist with quantity <= 0; removal is the
// only way out of the cart.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartItem holds a denormalized snapshot of the product at the time it was
// added. Name and price are deliberately never refreshed when the catalog
// changes.
type CartItem struct {
	ProductID   string  `bson:"product_id" json:"productId"`
	ProductName string  `bson:"product_name" json:"productName"`
	Price       float64 `bson:"price" json:"price"`
	Quantity    int     `bson:"quantity" json:"quantity"`
}

// Cart is the per-user cart document. UserID is the partition key; Version is
// the optimistic-concurrency token checked by the repository on every write.
// Items keep insertion order and are unique by ProductID.
type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id"`
	UserID    string     `bson:"user_id" json:"userId"`
	Items     []CartItem `bson:"items" json:"items"`
	Version   int64      `bson:"version" json:"-"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// MergeOrAddItem adds quantity units of the product to the cart. An existing
// item for the same product only has its quantity incremented; the stored
// name/price snapshot stays as it was at first add. A new product is appended
// to the end of the item list with a fresh snapshot.
func (c *Cart) MergeOrAddItem(product *Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].ProductID == product.ID {
			c.Items[i].Quantity += quantity
			return nil
		}
	}

	c.Items = append(c.Items, CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Price:       product.Price,
		Quantity:    quantity,
	})
	return nil
}

// SetItemQuantity overwrites the quantity of the item with the given product
// id. A product that is not in the cart is a silent no-op.
func (c *Cart) SetItemQuantity(productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return nil
}

// RemoveItem deletes every item matching the product id. Removing an absent
// product is a no-op, so the operation is idempotent.
func (c *Cart) RemoveItem(productID string) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// Clear empties the item list; id and userId are untouched.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

// Totals computes the derived amount and item count. Both are recomputed on
// every read and never persisted.
func (c *Cart) Totals() (totalAmount float64, totalItems int) {
	for _, item := range c.Items {
		totalAmount += item.Price * float64(item.Quantity)
		totalItems += item.Quantity
	}
	return totalAmount, totalItems
}
