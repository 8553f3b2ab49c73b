package inventory

import (
	"errors"

	"go.uber.org/zap"

	"cartservice/internal/domain"
	"cartservice/internal/store"
)

// Ledger owns the (stock, reservedQuantity) counters and applies deltas
// without letting the reservation leave the valid 0..stock range. Callers
// mutating the same product must serialize through Locks; the ledger itself
// does only the counter arithmetic and persistence.
type Ledger struct {
	store  store.Store
	logger *zap.Logger

	// Locks serializes read-modify-write sequences per product id.
	Locks *KeyedMutex
}

func NewLedger(st store.Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  st,
		logger: logger,
		Locks:  NewKeyedMutex(),
	}
}

// GetAvailable returns stock minus reserved for the product.
func (l *Ledger) GetAvailable(productID int64) (int, error) {
	product, err := l.getProduct(productID)
	if err != nil {
		return 0, err
	}
	return product.Available(), nil
}

// Reserve applies a reservation delta and returns the resulting reserved
// quantity. Positive deltas fail with InsufficientStockError when they
// exceed availability; negative deltas always succeed, clamped so the
// reservation never drops below zero.
func (l *Ledger) Reserve(productID int64, delta int) (int, error) {
	product, err := l.getProduct(productID)
	if err != nil {
		return 0, err
	}
	if delta == 0 {
		return product.ReservedQuantity, nil
	}

	if delta > 0 {
		available := product.Available()
		if delta > available {
			return product.ReservedQuantity, &domain.InsufficientStockError{
				ProductID: productID,
				Available: available,
				Requested: delta,
			}
		}
		product.ReservedQuantity += delta
	} else {
		product.ReservedQuantity += delta
		if product.ReservedQuantity < 0 {
			// A double release must not corrupt the ledger.
			l.logger.Warn("reservation release clamped at zero",
				zap.Int64("product_id", productID),
				zap.Int("delta", delta),
			)
			product.ReservedQuantity = 0
		}
	}

	if err := l.saveProduct(product); err != nil {
		return 0, err
	}
	return product.ReservedQuantity, nil
}

// ReleaseAll drops the product's reservation to zero unconditionally.
// Idempotent; used when the caller wants "release everything" without
// knowing the exact prior amount.
func (l *Ledger) ReleaseAll(productID int64) error {
	product, err := l.getProduct(productID)
	if err != nil {
		return err
	}

	if product.ReservedQuantity == 0 {
		return nil
	}
	product.ReservedQuantity = 0
	return l.saveProduct(product)
}

func (l *Ledger) getProduct(productID int64) (*domain.Product, error) {
	product, err := l.store.GetProduct(productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, &domain.PersistenceError{Op: "load product", Err: err}
	}
	return product, nil
}

func (l *Ledger) saveProduct(product *domain.Product) error {
	if err := l.store.SaveProduct(product); err != nil {
		return &domain.PersistenceError{Op: "save product", Err: err}
	}
	return nil
}
