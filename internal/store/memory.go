package store

import (
	"sort"
	"sync"
	"time"

	"cartservice/internal/domain"
)

type lineKey struct {
	userID    int64
	productID int64
}

// MemoryStore is an in-memory implementation of Store.
// It is safe for concurrent use via internal RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
	lines    map[lineKey]domain.CartLine
	users    map[string]domain.User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]domain.Product),
		lines:    make(map[lineKey]domain.CartLine),
		users:    make(map[string]domain.User),
	}
}

func (s *MemoryStore) GetProduct(id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &product, nil
}

func (s *MemoryStore) ListProducts() ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *MemoryStore) SaveProduct(product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[product.ID] = *product
	return nil
}

func (s *MemoryStore) GetCartLine(userID, productID int64) (*domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	line, exists := s.lines[lineKey{userID, productID}]
	if !exists {
		return nil, ErrNotFound
	}
	return &line, nil
}

func (s *MemoryStore) GetCartLinesForUser(userID int64) ([]domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lines []domain.CartLine
	for _, line := range s.lines {
		if line.UserID == userID {
			lines = append(lines, line)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (s *MemoryStore) SaveCartLine(line *domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines[lineKey{line.UserID, line.ProductID}] = *line
	return nil
}

func (s *MemoryStore) DeleteCartLine(userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.lines, lineKey{userID, productID})
	return nil
}

func (s *MemoryStore) GetCartLinesOlderThan(cutoff time.Time) ([]domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []domain.CartLine
	for _, line := range s.lines {
		if line.LastUpdatedAt.Before(cutoff) {
			stale = append(stale, line)
		}
	}
	return stale, nil
}

func (s *MemoryStore) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[username]
	if !exists {
		return nil, ErrNotFound
	}
	return &user, nil
}

// SaveUser inserts or replaces an account record. Not part of the Store
// interface; used by seeding and tests.
func (s *MemoryStore) SaveUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.Username] = *user
	return nil
}
