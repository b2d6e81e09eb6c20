// Package phone normalizes Nigerian mobile numbers and maps them to carriers.
package phone

import "strings"

// Operator identifies a Nigerian mobile network.
type Operator int

const (
	None Operator = iota
	MTN
	Airtel
	Glo
	NineMobile
)

// numberLen is the length of a normalized local number.
const numberLen = 11

// prefixes are disjoint; a 4-digit prefix belongs to at most one carrier.
var prefixes = map[string]Operator{
	"0803": MTN, "0806": MTN, "0703": MTN, "0903": MTN, "0906": MTN, "0706": MTN,
	"0813": MTN, "0810": MTN, "0814": MTN, "0816": MTN, "0913": MTN, "0916": MTN,

	"0701": Airtel, "0802": Airtel, "0812": Airtel, "0902": Airtel, "0907": Airtel,
	"0901": Airtel, "0904": Airtel, "0708": Airtel, "0808": Airtel,

	"0705": Glo, "0805": Glo, "0815": Glo, "0905": Glo, "0807": Glo, "0811": Glo, "0915": Glo,

	"0809": NineMobile, "0817": NineMobile, "0909": NineMobile, "0908": NineMobile, "0818": NineMobile,
}

// Operators lists the supported carriers in display order.
func Operators() []Operator {
	return []Operator{MTN, Airtel, Glo, NineMobile}
}

// String returns the lower-case carrier key.
func (o Operator) String() string {
	switch o {
	case MTN:
		return "mtn"
	case Airtel:
		return "airtel"
	case Glo:
		return "glo"
	case NineMobile:
		return "9mobile"
	default:
		return "none"
	}
}

// Label returns the display name, also used as the vending API operator value.
func (o Operator) Label() string {
	switch o {
	case MTN:
		return "MTN"
	case Airtel:
		return "Airtel"
	case Glo:
		return "Glo"
	case NineMobile:
		return "9mobile"
	default:
		return ""
	}
}

// ParseOperator maps a carrier name ("MTN", "9Mobile", "glo") to an Operator.
func ParseOperator(name string) Operator {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, op := range Operators() {
		if op.String() == key {
			return op
		}
	}
	return None
}

// Normalize strips every non-digit and rewrites a leading 234 country code to 0.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "234") {
		digits = "0" + digits[3:]
	}
	return digits
}

// Classify returns the carrier of a normalized number, or None when the number
// is not 11 digits or its prefix is unknown.
func Classify(number string) Operator {
	if len(number) != numberLen {
		return None
	}
	return prefixes[number[:4]]
}
