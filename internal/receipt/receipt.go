package receipt

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// LineEntry is a single classified monetary fact taken from one line, or from a
// label line followed by a price-only line
type LineEntry struct {
	Label  string
	Amount decimal.Decimal
	Kind   Kind
}

// Item is a purchased line on a receipt
type Item struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ParsedReceipt is the structured result of parsing OCR text
type ParsedReceipt struct {
	Items []Item          `json:"items"` // never empty after Parse
	Tax   decimal.Decimal `json:"tax"`
	Fee   decimal.Decimal `json:"fee"`
	Total decimal.Decimal `json:"total"`
}

// Amount renders a money value as a JSON number with two fractional digits
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// MarshalJSON writes the price as a plain number rather than decimal's quoted string
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string      `json:"name"`
		Price json.Number `json:"price"`
	}{
		Name:  i.Name,
		Price: Amount(i.Price),
	})
}

// MarshalJSON writes all amounts as plain numbers
func (p ParsedReceipt) MarshalJSON() ([]byte, error) {
	items := p.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(struct {
		Items []Item      `json:"items"`
		Tax   json.Number `json:"tax"`
		Fee   json.Number `json:"fee"`
		Total json.Number `json:"total"`
	}{
		Items: items,
		Tax:   Amount(p.Tax),
		Fee:   Amount(p.Fee),
		Total: Amount(p.Total),
	})
}

// Subtotal sums the item prices
func (p ParsedReceipt) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range p.Items {
		sum = sum.Add(item.Price)
	}
	return sum
}
