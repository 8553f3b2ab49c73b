package domain

import "github.com/shopspring/decimal"

// Product carries the authoritative stock counters for one catalog entry.
// ReservedQuantity is mutated only by the inventory ledger.
type Product struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Stock            int             `json:"stock"`
	ReservedQuantity int             `json:"reserved_quantity"`
	ImageURL         string          `json:"image_url"`
}

// Available returns the stock not yet held by any cart line.
func (p *Product) Available() int {
	return p.Stock - p.ReservedQuantity
}
