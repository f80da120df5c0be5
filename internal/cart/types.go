package cart

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is the narrow slice of catalog data frozen into a cart
// line when the shopper adds the product. It is intentionally decoupled
// from whatever broader shape the catalog API returns and may go stale.
type ProductSnapshot struct {
	ID        string           `json:"id" validate:"required"`
	Name      string           `json:"name"`
	Price     decimal.Decimal  `json:"price"`
	SalePrice *decimal.Decimal `json:"salePrice,omitempty"`
	InStock   bool             `json:"inStock"`
	ImageURL  string           `json:"imageUrl,omitempty"`
}

// EffectivePrice returns the sale price when present, the list price
// otherwise.
func (p ProductSnapshot) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// Line is one product-quantity entry within the cart.
type Line struct {
	ProductID string          `json:"id"`
	Product   ProductSnapshot `json:"product"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"addedAt"`
}

// LineTotal is the snapshot price times quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// sortLines orders lines by product ID ascending so repeated reads are
// deterministic. IDs that parse as integers compare numerically, anything
// else lexicographically.
func sortLines(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lessProductID(lines[i].ProductID, lines[j].ProductID)
	})
}

func lessProductID(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a < b
}
