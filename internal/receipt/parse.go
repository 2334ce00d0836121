package receipt

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// pricePattern is a signed amount with exactly two fractional digits
const pricePattern = `-?\d+\.\d{2}`

var (
	namePriceRe = regexp.MustCompile(`^(.+?)\s+\$?(` + pricePattern + `)\s*$`)
	onlyPriceRe = regexp.MustCompile(`^\$?(` + pricePattern + `)$`)
)

// fallbackItemName names the synthetic item used when no item lines were found
const fallbackItemName = "Subtotal"

type scanState int

const (
	awaitingLabel scanState = iota
	awaitingPrice
)

// lineScanner pairs labels with prices over a stream of trimmed, non-blank lines.
// OCR often splits "Subtotal 12.50" into "Subtotal" and "12.50", so a line without
// a price is held until a price-only line arrives.
type lineScanner struct {
	state   scanState
	pending string
}

// next consumes one line and reports whether it produced an entry
func (s *lineScanner) next(line string) (LineEntry, bool) {
	if m := namePriceRe.FindStringSubmatch(line); m != nil {
		// the held label stays held; only a price-only line consumes it
		return newEntry(cleanLabel(m[1]), m[2]), true
	}

	if m := onlyPriceRe.FindStringSubmatch(line); m != nil {
		if s.state != awaitingPrice {
			return LineEntry{}, false
		}
		label := s.pending
		s.state, s.pending = awaitingLabel, ""
		return newEntry(label, m[1]), true
	}

	s.state, s.pending = awaitingPrice, line
	return LineEntry{}, false
}

func newEntry(label, price string) LineEntry {
	return LineEntry{
		Label:  label,
		Amount: decimal.RequireFromString(price),
		Kind:   Classify(label),
	}
}

// cleanLabel trims the text before a price, dropping separators like "Total:" or "Tip -"
func cleanLabel(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " .:-")
}

// splitLines returns the trimmed, non-blank lines of text
func splitLines(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// ScanLines classifies every monetary line in text, in order of appearance
func ScanLines(text string) []LineEntry {
	var (
		scanner lineScanner
		entries []LineEntry
	)
	for _, line := range splitLines(text) {
		if entry, ok := scanner.next(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Parse turns raw OCR text into a ParsedReceipt. It never fails: text with no
// recognizable lines yields a single zero-priced "Subtotal" item.
func Parse(text string) ParsedReceipt {
	var (
		result      = ParsedReceipt{Items: []Item{}}
		subtotal    decimal.Decimal
		total       decimal.Decimal
		hasSubtotal bool
		hasTotal    bool
	)

	for _, entry := range ScanLines(text) {
		switch entry.Kind {
		case KindTax:
			result.Tax = result.Tax.Add(entry.Amount)
		case KindFee:
			result.Fee = result.Fee.Add(entry.Amount)
		case KindSubtotal:
			subtotal, hasSubtotal = entry.Amount, true
		case KindTotal:
			total, hasTotal = entry.Amount, true
		default:
			result.Items = append(result.Items, Item{Name: entry.Label, Price: entry.Amount})
		}
	}

	if len(result.Items) == 0 {
		base := decimal.Zero
		switch {
		case hasSubtotal:
			base = subtotal
		case hasTotal:
			base = total
		}
		result.Items = append(result.Items, Item{Name: fallbackItemName, Price: base})
	}

	if hasTotal {
		result.Total = total
	} else {
		result.Total = result.Subtotal().Add(result.Tax).Add(result.Fee).RoundBank(2)
	}

	return result
}
