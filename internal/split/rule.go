package split

import (
	"regexp"
	"slices"

	"github.com/shopspring/decimal"
)

// percentRe finds the first "<word> ... <n>%" in an instruction, e.g.
// "George only split 20%". The word class includes non-ASCII letters.
var percentRe = regexp.MustCompile(`(?i)([\p{L}\p{N}_]+).*?(\d+)%`)

// percentRule gives one named participant an explicit percentage of the total
// and splits the remainder evenly between everybody else. It reports false when
// the instruction has no such phrase or the word is not a participant.
func percentRule(instruction string, names []string, total decimal.Decimal) (map[string]decimal.Decimal, bool) {
	m := percentRe.FindStringSubmatch(instruction)
	if m == nil {
		return nil, false
	}

	target := m[1]
	if !slices.Contains(names, target) {
		return nil, false
	}
	pct := decimal.RequireFromString(m[2]).Shift(-2)

	allocation := make(map[string]decimal.Decimal, len(names))
	for _, name := range names {
		allocation[name] = decimal.Zero
	}
	allocation[target] = total.Mul(pct).RoundBank(2)

	others := make([]string, 0, len(names))
	for _, name := range names {
		if name != target {
			others = append(others, name)
		}
	}
	if len(others) == 0 {
		return allocation, true
	}

	remaining := total.Sub(allocation[target]).RoundBank(2)
	even := remaining.Div(decimal.NewFromInt(int64(len(others)))).RoundBank(2)
	for _, name := range others {
		allocation[name] = even
	}

	return allocation, true
}
