/*
Package condition evaluates question visibility expressions.

PURPOSE:
  Each survey question may carry a visibleWhen expression. The UI layer calls
  the evaluator after every answer to decide which questions are currently
  relevant; answers to hidden questions are dropped before compilation.

GRAMMAR:
  expr      := or
  or        := and ("||" and)*          split first, wherever it appears
  and       := atom ("&&" atom)*
  atom      := KEY ".includes(" list ")"
             | KEY ".excludes(" list ")"
             | KEY OP literal
  OP        := "=" | "!=" | ">" | ">=" | "<" | "<=" | custom symbols
  literal   := 'quoted' | "quoted" | number | true | false | raw text

  There is no grouping: "a && b || c" is (a && b) || c, and "a || b && c" is
  a || (b && c). Survey schemas rely on this reading.

SEMANTICS:
  - Blank expression: true
  - KEY OP literal with KEY unanswered: false
  - includes: unanswered false; scalar equals one value; list holds any value
  - excludes: unanswered true; scalar equals none; list holds none
  - > >= < <= compare numerically (decimal); = and != use loose equality
  - Malformed atom: false with a warning, or a *SyntaxError in strict mode

CONCURRENCY:
  An Evaluator is immutable after New and safe for concurrent use. Parsed
  expressions are kept in a thread-safe LRU cache.

EXAMPLE:
  ev := condition.MustNew(condition.Config{})
  ok, _ := ev.Evaluate("age>=18&&age<=30", answers)
*/
package condition

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/betagouv/aides-simplifiees-engine/survey"
)

// DefaultCacheSize is the number of parsed expressions kept per Evaluator.
const DefaultCacheSize = 512

// Config configures an Evaluator.
type Config struct {
	// Strict makes malformed expressions return a *SyntaxError instead of
	// evaluating to false.
	Strict bool

	// Logger receives warnings for malformed expressions. Defaults to slog.Default().
	Logger *slog.Logger

	// CacheSize bounds the parsed-expression cache. 0 uses DefaultCacheSize,
	// a negative value disables caching.
	CacheSize int

	// Operators adds custom comparison symbols. Built-in symbols cannot be
	// redefined.
	Operators map[string]OperatorFunc
}

// Evaluator decides whether visibility expressions hold for an answer set.
type Evaluator struct {
	strict  bool
	logger  *slog.Logger
	ops     map[string]OperatorFunc
	symbols []string
	cache   *lru.Cache[string, node]
}

// New builds an Evaluator.
func New(cfg Config) (*Evaluator, error) {
	ops := builtinOperators()
	for symbol, fn := range cfg.Operators {
		if symbol == "" || fn == nil {
			return nil, fmt.Errorf("custom operator %q: empty symbol or nil function", symbol)
		}
		if _, exists := ops[symbol]; exists {
			return nil, fmt.Errorf("custom operator %q: redefines a built-in operator", symbol)
		}
		ops[symbol] = fn
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ev := &Evaluator{
		strict:  cfg.Strict,
		logger:  logger,
		ops:     ops,
		symbols: sortedSymbols(ops),
	}

	size := cfg.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[string, node](size)
		if err != nil {
			return nil, fmt.Errorf("condition cache: %w", err)
		}
		ev.cache = cache
	}
	return ev, nil
}

// MustNew is New that panics on invalid configuration.
func MustNew(cfg Config) *Evaluator {
	ev, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return ev
}

var defaultEvaluator = MustNew(Config{})

// Evaluate uses a shared non-strict Evaluator.
func Evaluate(expr string, answers *survey.Answers) bool {
	ok, _ := defaultEvaluator.Evaluate(expr, answers)
	return ok
}

// Symbols returns the operator symbols in scan order.
func (ev *Evaluator) Symbols() []string {
	return append([]string(nil), ev.symbols...)
}

// Evaluate reports whether expr holds for answers. The error is non-nil only
// in strict mode, for a malformed expression.
func (ev *Evaluator) Evaluate(expr string, answers *survey.Answers) (bool, error) {
	tree := ev.parse(expr)
	if ev.strict {
		if err := firstError(tree); err != nil {
			return false, err
		}
	}
	report := func(err *SyntaxError) {
		ev.logger.Warn("condition: malformed expression evaluates to false",
			"expression", expr, "atom", err.Expr, "reason", err.Reason)
	}
	return tree.eval(ev, answers, report), nil
}

// Validate returns the first syntax error of expr, or nil.
func (ev *Evaluator) Validate(expr string) error {
	if err := firstError(ev.parse(expr)); err != nil {
		return err
	}
	return nil
}

func (ev *Evaluator) parse(expr string) node {
	if ev.cache == nil {
		return parse(expr, ev.symbols)
	}
	if tree, ok := ev.cache.Get(expr); ok {
		return tree
	}
	tree := parse(expr, ev.symbols)
	ev.cache.Add(expr, tree)
	return tree
}

// =============================================================================
// EVALUATION
// =============================================================================

func (trueNode) eval(*Evaluator, *survey.Answers, func(*SyntaxError)) bool { return true }

// Every branch is evaluated so that each malformed atom is reported.
func (n orNode) eval(ev *Evaluator, answers *survey.Answers, report func(*SyntaxError)) bool {
	result := false
	for _, c := range n {
		if c.eval(ev, answers, report) {
			result = true
		}
	}
	return result
}

func (n andNode) eval(ev *Evaluator, answers *survey.Answers, report func(*SyntaxError)) bool {
	result := true
	for _, c := range n {
		if !c.eval(ev, answers, report) {
			result = false
		}
	}
	return result
}

func (n badNode) eval(_ *Evaluator, _ *survey.Answers, report func(*SyntaxError)) bool {
	report(n.err)
	return false
}

func (n listNode) eval(_ *Evaluator, answers *survey.Answers, _ func(*SyntaxError)) bool {
	v, _ := answers.Get(n.key)
	v = v.Unwrap()

	var hit bool
	switch v.Kind() {
	case survey.KindUnset:
		return n.exclude
	case survey.KindList:
		for _, want := range n.values {
			if v.Contains(want) {
				hit = true
				break
			}
		}
	default:
		s := v.String()
		for _, want := range n.values {
			if s == want {
				hit = true
				break
			}
		}
	}
	if n.exclude {
		return !hit
	}
	return hit
}

func (n compareNode) eval(ev *Evaluator, answers *survey.Answers, _ func(*SyntaxError)) bool {
	v, _ := answers.Get(n.key)
	if v.IsUnset() {
		return false
	}
	return ev.ops[n.op](v.Unwrap(), n.rhs)
}
