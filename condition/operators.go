package condition

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// =============================================================================
// OPERATORS
// =============================================================================

// OperatorFunc compares a set answer (combobox answers already unwrapped)
// with the parsed right-hand side.
type OperatorFunc func(answer survey.Value, rhs Literal) bool

func builtinOperators() map[string]OperatorFunc {
	return map[string]OperatorFunc{
		"=":  looseEqual,
		"!=": func(a survey.Value, r Literal) bool { return !looseEqual(a, r) },
		">":  numeric(func(c int) bool { return c > 0 }),
		">=": numeric(func(c int) bool { return c >= 0 }),
		"<":  numeric(func(c int) bool { return c < 0 }),
		"<=": numeric(func(c int) bool { return c <= 0 }),
	}
}

// sortedSymbols orders symbols longest first so that ">=" is tried before
// ">" and "=". Ties are broken alphabetically to keep the scan stable.
func sortedSymbols(ops map[string]OperatorFunc) []string {
	symbols := make([]string, 0, len(ops))
	for s := range ops {
		symbols = append(symbols, s)
	}
	slices.SortFunc(symbols, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return symbols
}

func numeric(accept func(int) bool) OperatorFunc {
	return func(a survey.Value, r Literal) bool {
		left, ok := answerNumber(a)
		if !ok {
			return false
		}
		right, ok := literalNumber(r)
		if !ok {
			return false
		}
		return accept(left.Cmp(right))
	}
}

// =============================================================================
// COERCION
// =============================================================================

// looseEqual mirrors the survey front-end's "==": values of the same category
// compare directly; a boolean on either side becomes 1/0; a number against a
// string compares numerically.
func looseEqual(a survey.Value, r Literal) bool {
	switch a.Kind() {
	case survey.KindBool:
		if r.Kind == LiteralBool {
			return a.Boolean() == r.Bool
		}
		right, ok := literalNumber(r)
		return ok && boolNumber(a.Boolean()).Equal(right)
	case survey.KindNumber:
		right, ok := literalNumber(r)
		return ok && decimal.NewFromFloat(a.Num()).Equal(right)
	case survey.KindString, survey.KindList:
		s := answerText(a)
		switch r.Kind {
		case LiteralString:
			return s == r.Str
		case LiteralNumber:
			left, ok := parseNumber(s)
			return ok && left.Equal(r.Num)
		case LiteralBool:
			left, ok := parseNumber(s)
			return ok && left.Equal(boolNumber(r.Bool))
		}
	}
	return false
}

func answerText(a survey.Value) string {
	if a.Kind() == survey.KindList {
		return strings.Join(a.Items(), ",")
	}
	return a.String()
}

func answerNumber(a survey.Value) (decimal.Decimal, bool) {
	switch a.Kind() {
	case survey.KindNumber:
		return decimal.NewFromFloat(a.Num()), true
	case survey.KindBool:
		return boolNumber(a.Boolean()), true
	case survey.KindString, survey.KindList:
		return parseNumber(answerText(a))
	}
	return decimal.Decimal{}, false
}

func literalNumber(r Literal) (decimal.Decimal, bool) {
	switch r.Kind {
	case LiteralNumber:
		return r.Num, true
	case LiteralBool:
		return boolNumber(r.Bool), true
	}
	return parseNumber(r.Str)
}

// parseNumber treats blank text as not a number, so comparisons against an
// empty answer are false.
func parseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func boolNumber(b bool) decimal.Decimal {
	if b {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}
