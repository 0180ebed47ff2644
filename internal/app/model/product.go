package model

import "time"

// Product is a catalog document. Category doubles as the partition key for
// the products container.
type Product struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Category      string    `bson:"category" json:"category"`
	Name          string    `bson:"name" json:"name"`
	Description   string    `bson:"description" json:"description"`
	Price         float64   `bson:"price" json:"price"`
	StockQuantity int       `bson:"stock_quantity" json:"stockQuantity"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updatedAt"`
}
