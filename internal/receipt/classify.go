package receipt

import "strings"

// Kind is the semantic category of a monetary line
type Kind int

const (
	KindItem Kind = iota
	KindTax
	KindFee
	KindSubtotal
	KindTotal
)

func (k Kind) String() string {
	switch k {
	case KindTax:
		return "tax"
	case KindFee:
		return "fee"
	case KindSubtotal:
		return "subtotal"
	case KindTotal:
		return "total"
	default:
		return "item"
	}
}

// vocabulary is checked top to bottom and the first category with a matching
// keyword wins. A label like "Total Tax" must land in tax, so tax stays first.
var vocabulary = []struct {
	kind     Kind
	keywords []string
}{
	{KindTax, []string{"tax", "sales tax", "vat"}},
	{KindFee, []string{"fee", "service charge", "gratuity", "service fee", "tip"}},
	{KindSubtotal, []string{"subtotal"}},
	{KindTotal, []string{"total due", "total", "amount due", "balance", "net total", "credit", "refund", "total refund"}},
}

// Classify returns the kind of a line label using case-insensitive substring search
func Classify(label string) Kind {
	l := strings.ToLower(label)
	for _, category := range vocabulary {
		for _, keyword := range category.keywords {
			if strings.Contains(l, keyword) {
				return category.kind
			}
		}
	}
	return KindItem
}
