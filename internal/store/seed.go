package store

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"cartservice/internal/domain"
)

// Seed loads the demo catalog and accounts. Passwords are hashed at seed
// time so no plaintext credentials live in the store.
func Seed(s *MemoryStore) error {
	products := []domain.Product{
		{ID: 1, Name: "Laptop", Price: decimal.NewFromFloat(999.99), Stock: 10},
		{ID: 2, Name: "Smartphone", Price: decimal.NewFromFloat(499.99), Stock: 20},
		{ID: 3, Name: "Headphone", Price: decimal.NewFromFloat(99.99), Stock: 15},
		{ID: 4, Name: "Toy", Price: decimal.NewFromFloat(99.99), Stock: 15},
		{ID: 5, Name: "Tablet", Price: decimal.NewFromFloat(99.99), Stock: 15},
		{ID: 6, Name: "Mobile", Price: decimal.NewFromFloat(99.99), Stock: 15},
		{ID: 7, Name: "Sofa", Price: decimal.NewFromFloat(99.99), Stock: 15},
		{ID: 8, Name: "Television", Price: decimal.NewFromFloat(99.99), Stock: 15},
	}
	for i := range products {
		if err := s.SaveProduct(&products[i]); err != nil {
			return fmt.Errorf("seed product %d: %w", products[i].ID, err)
		}
	}

	users := []struct {
		id       int64
		username string
		password string
	}{
		{1, "admin", "admin123"},
		{2, "testuser", "test123"},
	}
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
		if err := s.SaveUser(&domain.User{ID: u.id, Username: u.username, Password: string(hash)}); err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
	}

	return nil
}
