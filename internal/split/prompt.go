package split

import (
	"fmt"
	"strings"

	"github.com/zombor/splitmate/internal/receipt"
)

// replyFormat is appended to every fallback prompt
const replyFormat = `Return JSON exactly in this form:
{
  "allocation": {"<name>": <amount>, ...},
  "summary": "<brief>"
}

Important:
- Use every participant name exactly as written as a key in "allocation"
- Amounts must be numbers with two decimals, not strings
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// buildPrompt describes the receipt, the participants and the instruction for the fallback model
func buildPrompt(parsed receipt.ParsedReceipt, instruction string, names []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Participants: %s\n\n", strings.Join(names, ", "))

	b.WriteString("Items:\n")
	for _, item := range parsed.Items {
		fmt.Fprintf(&b, "- %s: $%s\n", item.Name, item.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "Tax: %s\n", parsed.Tax.StringFixed(2))
	if !parsed.Fee.IsZero() {
		fmt.Fprintf(&b, "Fees: %s\n", parsed.Fee.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n\n", parsed.Total.StringFixed(2))

	fmt.Fprintf(&b, "Instruction: %s\n\n", instruction)
	b.WriteString(replyFormat)

	return b.String()
}
