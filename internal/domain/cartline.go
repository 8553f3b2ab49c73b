package domain

import "time"

// CartLine is one user's hold on a quantity of one product. At most one
// line exists per (user, product) pair; a line with quantity <= 0 is
// deleted rather than stored.
type CartLine struct {
	UserID        int64     `json:"user_id"`
	ProductID     int64     `json:"product_id"`
	Quantity      int       `json:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// User is a registered account. Password holds the bcrypt hash.
type User struct {
	ID       int64
	Username string
	Password string
}
