package dataset

import (
	"math"
	"strconv"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// Numeric columns hold float64 values (missing cells read as NaN).
	Numeric Kind = iota
	// Categorical columns hold raw strings.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// missingTokens are the cell contents read as a missing value.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
}

// IsMissingToken reports whether s is read as a missing cell.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

// Value is a single cell. Exactly one of Num or Str is meaningful, depending on
// the kind of the column the value belongs to; Missing overrides both.
type Value struct {
	Num     float64
	Str     string
	Missing bool
}

// Num returns a numeric cell.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{Missing: true}
	}
	return Value{Num: f}
}

// Str returns a categorical cell.
func Str(s string) Value {
	return Value{Str: s}
}

// Missing returns a missing cell.
func Missing() Value {
	return Value{Missing: true}
}

// Float returns the numeric content, NaN for a missing cell.
func (v Value) Float() float64 {
	if v.Missing {
		return math.NaN()
	}
	return v.Num
}

// Format renders the value as it would appear in a CSV cell of the given kind.
func (v Value) Format(kind Kind) string {
	if v.Missing {
		return ""
	}
	if kind == Numeric {
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	}
	return v.Str
}

// Key returns a comparable representation used for counting and label encoding.
func (v Value) Key(kind Kind) string {
	if v.Missing {
		return "\x00missing"
	}
	return v.Format(kind)
}

// Less orders two present values of the same kind.
func Less(kind Kind, a, b Value) bool {
	if kind == Numeric {
		return a.Num < b.Num
	}
	return a.Str < b.Str
}
