// internal/element/order.go
package element

// WordOrder is the significance order of the registers of a multi-word value.
type WordOrder uint8

const (
	// HighWordFirst transmits the most significant word first.
	HighWordFirst WordOrder = iota
	// LowWordFirst transmits the least significant word first.
	LowWordFirst
)

var orderAliases = map[string]WordOrder{
	"highwordfirst": HighWordFirst,
	"lowwordfirst":  LowWordFirst,
	"mswlsw":        HighWordFirst,
	"lswmsw":        LowWordFirst,
}

// WordOrders lists the canonical word orders.
func WordOrders() []WordOrder {
	return []WordOrder{LowWordFirst, HighWordFirst}
}

// ParseWordOrder matches a word-order token case-insensitively.
func ParseWordOrder(s string) (WordOrder, bool) {
	o, ok := orderAliases[Normalize(s)]
	return o, ok
}

func (o WordOrder) String() string {
	if o == LowWordFirst {
		return "LowWordFirst"
	}
	return "HighWordFirst"
}
