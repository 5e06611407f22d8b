// internal/element/type.go
package element

import "strings"

// Type is the register-level encoding of one element.
type Type uint8

const (
	U16 Type = iota + 1
	I16
	U32
	I32
	U64
	I64
	F32
	F64
	Bool
	Str
)

var typeNames = map[Type]string{
	U16:  "U16",
	I16:  "I16",
	U32:  "U32",
	I32:  "I32",
	U64:  "U64",
	I64:  "I64",
	F32:  "F32",
	F64:  "F64",
	Bool: "Bool",
	Str:  "Str",
}

// typeAliases maps normalized tokens (lower case, no underscores) to types.
// The long forms are the word-type names older device configurations use.
var typeAliases = map[string]Type{
	"u16":         U16,
	"i16":         I16,
	"u32":         U32,
	"i32":         I32,
	"u64":         U64,
	"i64":         I64,
	"f32":         F32,
	"f64":         F64,
	"bool":        Bool,
	"str":         Str,
	"int16":       U16,
	"int16signed": I16,
	"int32":       U32,
	"int32signed": I32,
	"int64":       U64,
	"int64signed": I64,
	"float32":     F32,
	"float64":     F64,
	"boolean":     Bool,
	"string":      Str,
}

// Types lists every element type in declaration order.
func Types() []Type {
	return []Type{U16, I16, U32, I32, U64, I64, F32, F64, Bool, Str}
}

// ParseType matches a type token case-insensitively.
func ParseType(s string) (Type, bool) {
	t, ok := typeAliases[Normalize(s)]
	return t, ok
}

// Normalize folds a configuration token for table lookup.
func Normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "")
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "Type(?)"
}

// Valid reports whether t is a declared type.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Words returns the register width in 16-bit words.
// Bool is a coil and occupies no register words.
// Str occupies length words, two characters per word.
func (t Type) Words(length int) int {
	switch t {
	case U16, I16:
		return 1
	case U32, I32, F32:
		return 2
	case U64, I64, F64:
		return 4
	case Str:
		return length
	}
	return 0
}

// Signed reports whether t carries a sign.
func (t Type) Signed() bool {
	switch t {
	case I16, I32, I64, F32, F64:
		return true
	}
	return false
}

// Numeric reports whether t is one of the scalable number types (U16..F64).
func (t Type) Numeric() bool {
	switch t {
	case U16, I16, U32, I32, U64, I64, F32, F64:
		return true
	}
	return false
}

// MultiWord reports whether word order applies to t.
func (t Type) MultiWord() bool {
	return t.Numeric() && t.Words(0) > 1
}
