// internal/binding/describe.go
package binding

import (
	"fmt"
	"strings"

	"github.com/tamzrod/modbus-binder/internal/element"
)

// Hints lists the tokens the grammar accepts, for operators writing configuration.
type Hints struct {
	Operations []string
	Types      []string
	Priorities []string
	WordOrders []string
}

// Describe returns the accepted token sets.
func Describe() Hints {
	return Hints{
		Operations: names(Operations()),
		Types:      names(element.Types()),
		Priorities: names(Priorities()),
		WordOrders: names(element.WordOrders()),
	}
}

// String renders the hints with the line grammar.
func (h Hints) String() string {
	var sb strings.Builder
	sb.WriteString("point" + Delimiter + "address" + Delimiter + "operation" + Delimiter + "type" +
		"[" + Delimiter + "priority|wordOrder|scaleOrLength[" + Delimiter + "scaleOrLength]]\n")
	fmt.Fprintf(&sb, "  operation:  %s\n", strings.Join(h.Operations, ", "))
	fmt.Fprintf(&sb, "  type:       %s\n", strings.Join(h.Types, ", "))
	fmt.Fprintf(&sb, "  priority:   %s\n", strings.Join(h.Priorities, ", "))
	fmt.Fprintf(&sb, "  wordOrder:  %s\n", strings.Join(h.WordOrders, ", "))
	return sb.String()
}

func names[T fmt.Stringer](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.String()
	}
	return out
}
