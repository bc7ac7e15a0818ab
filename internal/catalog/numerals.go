package catalog

import "strconv"

// Spanish number words recognized as quantities. Anything above ten
// has to arrive as digits.
var numberWords = map[string]int{
	"un":     1,
	"uno":    1,
	"una":    1,
	"dos":    2,
	"tres":   3,
	"cuatro": 4,
	"cinco":  5,
	"seis":   6,
	"siete":  7,
	"ocho":   8,
	"nueve":  9,
	"diez":   10,
}

// ExtractQuantity finds all numeral tokens (digits or number words) in the
// message; the last one wins and applies to every product detected in that
// message. No numeral means quantity 1.
func ExtractQuantity(text string) int {
	qty := 1
	for _, tok := range Tokens(text) {
		if n, ok := numberWords[tok]; ok {
			qty = n
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil && n > 0 {
			qty = n
		}
	}
	return qty
}
