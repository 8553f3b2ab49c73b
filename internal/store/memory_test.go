package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartservice/internal/domain"
)

func TestMemoryStoreProducts(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GetProduct(1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveProduct(&domain.Product{ID: 2, Name: "Smartphone", Price: decimal.NewFromFloat(499.99), Stock: 20}))
	require.NoError(t, s.SaveProduct(&domain.Product{ID: 1, Name: "Laptop", Price: decimal.NewFromFloat(999.99), Stock: 10}))

	product, err := s.GetProduct(1)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", product.Name)
	assert.Equal(t, 10, product.Available())

	products, err := s.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID, "listing is ordered by id")
	assert.Equal(t, int64(2), products[1].ID)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SaveProduct(&domain.Product{ID: 1, Name: "Laptop", Stock: 10}))

	product, err := s.GetProduct(1)
	require.NoError(t, err)
	product.ReservedQuantity = 99

	fresh, err := s.GetProduct(1)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.ReservedQuantity, "mutating a loaded record must not leak into the store")
}

func TestMemoryStoreCartLines(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()

	_, err := s.GetCartLine(1, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveCartLine(&domain.CartLine{UserID: 1, ProductID: 1, Quantity: 2, CreatedAt: now, LastUpdatedAt: now}))
	require.NoError(t, s.SaveCartLine(&domain.CartLine{UserID: 1, ProductID: 2, Quantity: 1, CreatedAt: now, LastUpdatedAt: now}))
	require.NoError(t, s.SaveCartLine(&domain.CartLine{UserID: 2, ProductID: 1, Quantity: 5, CreatedAt: now, LastUpdatedAt: now}))

	line, err := s.GetCartLine(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	lines, err := s.GetCartLinesForUser(1)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].ProductID)
	assert.Equal(t, int64(2), lines[1].ProductID)

	require.NoError(t, s.DeleteCartLine(1, 1))
	_, err = s.GetCartLine(1, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent line is not an error.
	require.NoError(t, s.DeleteCartLine(1, 1))
}

func TestMemoryStoreGetCartLinesOlderThan(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.SaveCartLine(&domain.CartLine{UserID: 1, ProductID: 1, Quantity: 1, LastUpdatedAt: now.Add(-30 * time.Minute)}))
	require.NoError(t, s.SaveCartLine(&domain.CartLine{UserID: 2, ProductID: 1, Quantity: 1, LastUpdatedAt: now.Add(-time.Second)}))

	stale, err := s.GetCartLinesOlderThan(now.Add(-15 * time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, int64(1), stale[0].UserID)
}

func TestSeedLoadsCatalogAndUsers(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, Seed(s))

	products, err := s.ListProducts()
	require.NoError(t, err)
	assert.Len(t, products, 8)

	laptop, err := s.GetProduct(1)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", laptop.Name)
	assert.Equal(t, 10, laptop.Stock)
	assert.Equal(t, 0, laptop.ReservedQuantity)
	assert.True(t, laptop.Price.Equal(decimal.NewFromFloat(999.99)))

	admin, err := s.GetUserByUsername("admin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), admin.ID)
	assert.NotEqual(t, "admin123", admin.Password, "passwords must be stored hashed")

	_, err = s.GetUserByUsername("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
