package store

import (
	"errors"
	"time"

	"cartservice/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations the service depends on.
// MemoryStore implements this interface.
type Store interface {
	// GetProduct returns the product with the given id, or ErrNotFound.
	GetProduct(id int64) (*domain.Product, error)

	// ListProducts returns the full catalog.
	ListProducts() ([]domain.Product, error)

	// SaveProduct inserts or replaces a product record.
	SaveProduct(product *domain.Product) error

	// GetCartLine returns the line for (userID, productID), or ErrNotFound.
	GetCartLine(userID, productID int64) (*domain.CartLine, error)

	// GetCartLinesForUser returns every line held by one user.
	GetCartLinesForUser(userID int64) ([]domain.CartLine, error)

	// SaveCartLine inserts or replaces the line keyed by (UserID, ProductID).
	SaveCartLine(line *domain.CartLine) error

	// DeleteCartLine removes the line for (userID, productID) if present.
	DeleteCartLine(userID, productID int64) error

	// GetCartLinesOlderThan returns lines whose LastUpdatedAt precedes cutoff.
	GetCartLinesOlderThan(cutoff time.Time) ([]domain.CartLine, error)

	// GetUserByUsername returns the account record, or ErrNotFound.
	GetUserByUsername(username string) (*domain.User, error)
}
