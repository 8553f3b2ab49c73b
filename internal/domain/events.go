package domain

import "time"

// ReservationChangedEvent announces a completed reservation delta for one
// (user, product) pair, including the product's resulting reserved total.
type ReservationChangedEvent struct {
	UserID        int64     `json:"user_id"`
	ProductID     int64     `json:"product_id"`
	QuantityDelta int       `json:"quantity_delta"`
	Reserved      int       `json:"reserved"`
	OccurredAt    time.Time `json:"occurred_at"`
}
