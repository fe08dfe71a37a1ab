package condition

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// =============================================================================
// SYNTAX ERRORS
// =============================================================================

// ErrMalformed is wrapped by every SyntaxError.
var ErrMalformed = errors.New("malformed condition")

// SyntaxError describes an atom that could not be parsed.
type SyntaxError struct {
	Expr   string // the offending atom
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed condition %q: %s", e.Expr, e.Reason)
}

func (e *SyntaxError) Unwrap() error { return ErrMalformed }

// =============================================================================
// LITERALS
// =============================================================================

// LiteralKind discriminates right-hand side literals.
type LiteralKind uint8

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBool
)

// Literal is a parsed right-hand side: quoted text stays a string, otherwise
// a number if it parses, then true/false, then the raw text.
type Literal struct {
	Kind LiteralKind
	Raw  string
	Str  string
	Num  decimal.Decimal
	Bool bool
}

func parseLiteral(raw string) Literal {
	s := strings.TrimSpace(raw)
	if unq, ok := unquote(s); ok {
		return Literal{Kind: LiteralString, Raw: s, Str: unq}
	}
	if n, err := decimal.NewFromString(s); err == nil {
		return Literal{Kind: LiteralNumber, Raw: s, Num: n, Str: s}
	}
	switch s {
	case "true":
		return Literal{Kind: LiteralBool, Raw: s, Bool: true, Str: s}
	case "false":
		return Literal{Kind: LiteralBool, Raw: s, Bool: false, Str: s}
	}
	return Literal{Kind: LiteralString, Raw: s, Str: s}
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1], true
		}
	}
	return s, false
}

// =============================================================================
// AST
// =============================================================================

type node interface {
	// eval returns the truth value. Malformed atoms evaluate to false and are
	// passed to report.
	eval(ev *Evaluator, answers *survey.Answers, report func(*SyntaxError)) bool
}

type trueNode struct{}

type orNode []node

type andNode []node

type listNode struct {
	key     string
	values  []string
	exclude bool
}

type compareNode struct {
	key string
	op  string
	rhs Literal
}

type badNode struct{ err *SyntaxError }

// =============================================================================
// PARSER
// =============================================================================

var listPredicate = regexp.MustCompile(`^(.+?)\.(includes|excludes)\((.*)\)$`)

// parse turns an expression into a tree. It never fails: atoms that cannot be
// parsed become badNodes so the rest of the expression still evaluates.
//
// "||" is split before "&&" regardless of position, so "a && b || c" reads as
// (a && b) || c and "a || b && c" as a || (b && c).
func parse(expr string, ops []string) node {
	s := strings.TrimSpace(expr)
	if s == "" {
		return trueNode{}
	}
	if strings.Contains(s, "||") {
		parts := strings.Split(s, "||")
		n := make(orNode, len(parts))
		for i, p := range parts {
			n[i] = parse(p, ops)
		}
		return n
	}
	if strings.Contains(s, "&&") {
		parts := strings.Split(s, "&&")
		n := make(andNode, len(parts))
		for i, p := range parts {
			n[i] = parse(p, ops)
		}
		return n
	}
	if m := listPredicate.FindStringSubmatch(s); m != nil {
		key := strings.TrimSpace(m[1])
		if key == "" {
			return badNode{&SyntaxError{Expr: s, Reason: "missing key before ." + m[2]}}
		}
		return listNode{key: key, values: parseList(m[3]), exclude: m[2] == "excludes"}
	}
	return parseComparison(s, ops)
}

func parseComparison(s string, ops []string) node {
	for _, op := range ops {
		idx := strings.Index(s, op)
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(s[:idx])
		if key == "" {
			return badNode{&SyntaxError{Expr: s, Reason: "missing left-hand side"}}
		}
		return compareNode{key: key, op: op, rhs: parseLiteral(s[idx+len(op):])}
	}
	return badNode{&SyntaxError{Expr: s, Reason: "no operator found"}}
}

func parseList(inner string) []string {
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if unq, ok := unquote(p); ok {
			p = strings.TrimSpace(unq)
		}
		out = append(out, p)
	}
	return out
}

// firstError walks the tree and returns the first malformed atom.
func firstError(n node) *SyntaxError {
	switch t := n.(type) {
	case badNode:
		return t.err
	case orNode:
		for _, c := range t {
			if err := firstError(c); err != nil {
				return err
			}
		}
	case andNode:
		for _, c := range t {
			if err := firstError(c); err != nil {
				return err
			}
		}
	}
	return nil
}
