package stock

import "bookstore/internal/domain"

// Advice is the advisory verdict for a requested cart quantity against
// the book's stock snapshot. Stock display is advisory: the cart never
// rejects a mutation on stock grounds, it only surfaces a warning.
type Advice struct {
	InStock bool   `json:"in_stock"`
	Warning string `json:"warning,omitempty"`
}

type Advisor struct{}

func NewAdvisor() *Advisor {
	return &Advisor{}
}

// Check compares the total requested quantity with the stock snapshot
// the catalog carried at read time. The snapshot can be stale; the
// verdict is a hint for the UI, not a reservation.
func (a *Advisor) Check(book domain.Book, requested int) Advice {
	if book.StockQuantity <= 0 {
		return Advice{InStock: false, Warning: "out_of_stock"}
	}
	if requested > book.StockQuantity {
		return Advice{InStock: true, Warning: "exceeds_stock"}
	}
	return Advice{InStock: true}
}
