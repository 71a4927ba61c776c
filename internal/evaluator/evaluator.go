// Package evaluator tree-walks an ast.Program against a set of shared
// caches to produce a value.Value, implementing every operator and
// built-in described in spec.md §4.2-§4.4.
package evaluator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cwbudde/formulaengine/internal/ast"
	"github.com/cwbudde/formulaengine/internal/cache"
	"github.com/cwbudde/formulaengine/internal/errs"
	"github.com/cwbudde/formulaengine/internal/function"
	"github.com/cwbudde/formulaengine/internal/value"
)

// Evaluator walks a single formula's AST. It holds only cheap handles
// to the engine's four shared caches, so constructing one per formula
// per run is free.
type Evaluator struct {
	Variables      cache.Cache[value.Value]
	FormulaResults cache.Cache[value.Value]
	Functions      cache.Cache[function.Function]
	FunctionCache  cache.Cache[value.Value]
}

// Evaluate runs program.Statement to completion and returns its
// result.
func (e Evaluator) Evaluate(program ast.Program) (value.Value, error) {
	return e.evalStatement(program.Statement)
}

func (e Evaluator) evalStatement(stmt ast.Statement) (value.Value, error) {
	switch s := stmt.(type) {
	case ast.Return:
		return e.evalExpr(s.Value)

	case ast.If:
		cond, err := e.evalExpr(s.Condition)
		if err != nil {
			return value.Value{}, err
		}
		b, ok := cond.AsBool()
		if !ok {
			return value.Value{}, errs.New(errs.TypeError, "condition must be boolean")
		}
		if b {
			return e.evalStatement(s.Then)
		}

		for _, ei := range s.ElseIfs {
			cond, err := e.evalExpr(ei.Condition)
			if err != nil {
				return value.Value{}, err
			}
			b, ok := cond.AsBool()
			if !ok {
				return value.Value{}, errs.New(errs.TypeError, "else-if condition must be boolean")
			}
			if b {
				return e.evalStatement(ei.Body)
			}
		}

		if s.Else != nil {
			return e.evalStatement(s.Else)
		}
		return value.Value{}, errs.New(errs.EvalError, "no matching condition")

	case ast.Error:
		val, err := e.evalExpr(s.Value)
		if err != nil {
			return value.Value{}, err
		}
		return value.Value{}, errs.New(errs.ErrorCall, "error function called with %s", describe(val))

	default:
		return value.Value{}, errs.New(errs.EvalError, "unknown statement")
	}
}

func describe(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return fmt.Sprintf("message: %s", s)
	case value.KindNumber:
		n, _ := v.AsNumber()
		return fmt.Sprintf("code: %s", value.Number(n).Text())
	case value.KindBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("value: %t", b)
	default:
		return ""
	}
}

func (e Evaluator) evalExpr(expr ast.Expr) (value.Value, error) {
	switch x := expr.(type) {
	case ast.NumberLit:
		return value.Number(x.Value), nil
	case ast.StringLit:
		return value.String(x.Value), nil
	case ast.BoolLit:
		return value.Bool(x.Value), nil
	case ast.Identifier:
		v, ok := e.Variables.Get(x.Name)
		if !ok {
			return value.Value{}, errs.New(errs.VariableNotFound, "%s", x.Name)
		}
		return v, nil

	case ast.Binary:
		return e.evalBinary(x)
	case ast.Unary:
		return e.evalUnary(x)

	case ast.Max:
		return e.numericBinary(x.A, x.B, "max", math.Max)
	case ast.Min:
		return e.numericBinary(x.A, x.B, "min", math.Min)
	case ast.Rnd:
		return e.evalRnd(x)
	case ast.Ceil:
		return e.numericUnary(x.Operand, "ceil", math.Ceil)
	case ast.Floor:
		return e.numericUnary(x.Operand, "floor", math.Floor)
	case ast.Exp:
		return e.numericUnary(x.Operand, "exp", math.Exp)
	case ast.Year:
		return e.evalDatePart(x.Operand, "year", func(t time.Time) float64 { return float64(t.Year()) })
	case ast.Month:
		return e.evalDatePart(x.Operand, "month", func(t time.Time) float64 { return float64(t.Month()) })
	case ast.Day:
		return e.evalDatePart(x.Operand, "day", func(t time.Time) float64 { return float64(t.Day()) })
	case ast.Substr:
		return e.evalSubstr(x)
	case ast.AddDays:
		return e.evalAddDays(x)
	case ast.GetDiffDays:
		return e.evalGetDiffDays(x)
	case ast.PaddedString:
		return e.evalPaddedString(x)
	case ast.DifferenceInMonths:
		return e.evalDifferenceInMonths(x)
	case ast.GetOutputFrom:
		return e.evalGetOutputFrom(x)

	case ast.FunctionCall:
		return e.evalFunctionCall(x)

	default:
		return value.Value{}, errs.New(errs.EvalError, "unknown expression")
	}
}

func (e Evaluator) evalBinary(b ast.Binary) (value.Value, error) {
	left, err := e.evalExpr(b.Left)
	if err != nil {
		return value.Value{}, err
	}
	right, err := e.evalExpr(b.Right)
	if err != nil {
		return value.Value{}, err
	}

	switch b.Op {
	case ast.Add:
		ln, lok := left.AsNumber()
		rn, rok := right.AsNumber()
		if lok && rok {
			return value.Number(ln + rn), nil
		}
		return value.String(left.Text() + right.Text()), nil

	case ast.Subtract:
		return numericOp(left, right, "subtraction", func(a, b float64) float64 { return a - b })
	case ast.Multiply:
		return numericOp(left, right, "multiplication", func(a, b float64) float64 { return a * b })
	case ast.Divide:
		ln, lok := left.AsNumber()
		rn, rok := right.AsNumber()
		if !lok || !rok {
			return value.Value{}, errs.New(errs.TypeError, "division requires numbers")
		}
		if rn == 0 {
			return value.Value{}, errs.New(errs.DivisionByZero, "")
		}
		return value.Number(ln / rn), nil
	case ast.Power:
		return numericOp(left, right, "power", math.Pow)
	case ast.Modulo:
		return numericOp(left, right, "modulo", math.Mod)

	case ast.Equal:
		return value.Bool(left.Equal(right)), nil
	case ast.NotEqual:
		return value.Bool(!left.Equal(right)), nil

	case ast.LessThan:
		return compare(left, right, value.Less)
	case ast.GreaterThan:
		return compare(left, right, value.Greater)
	case ast.LessThanOrEqual:
		return compareNot(left, right, value.Greater)
	case ast.GreaterThanOrEqual:
		return compareNot(left, right, value.Less)

	case ast.And:
		lb, lok := left.AsBool()
		rb, rok := right.AsBool()
		if !lok || !rok {
			return value.Value{}, errs.New(errs.TypeError, "logical and requires booleans")
		}
		return value.Bool(lb && rb), nil
	case ast.Or:
		lb, lok := left.AsBool()
		rb, rok := right.AsBool()
		if !lok || !rok {
			return value.Value{}, errs.New(errs.TypeError, "logical or requires booleans")
		}
		return value.Bool(lb || rb), nil
	}

	return value.Value{}, errs.New(errs.EvalError, "unknown binary operator")
}

func numericOp(left, right value.Value, label string, f func(a, b float64) float64) (value.Value, error) {
	ln, lok := left.AsNumber()
	rn, rok := right.AsNumber()
	if !lok || !rok {
		return value.Value{}, errs.New(errs.TypeError, "%s requires numbers", label)
	}
	return value.Number(f(ln, rn)), nil
}

func compare(left, right value.Value, want value.Ordering) (value.Value, error) {
	ord, ok := left.Compare(right)
	if !ok {
		return value.Value{}, errs.New(errs.TypeError, "cannot compare values of different types")
	}
	return value.Bool(ord == want), nil
}

func compareNot(left, right value.Value, exclude value.Ordering) (value.Value, error) {
	ord, ok := left.Compare(right)
	if !ok {
		return value.Value{}, errs.New(errs.TypeError, "cannot compare values of different types")
	}
	return value.Bool(ord != exclude), nil
}

func (e Evaluator) evalUnary(u ast.Unary) (value.Value, error) {
	operand, err := e.evalExpr(u.Operand)
	if err != nil {
		return value.Value{}, err
	}

	switch u.Op {
	case ast.Negate:
		n, ok := operand.AsNumber()
		if !ok {
			return value.Value{}, errs.New(errs.TypeError, "unary minus requires number")
		}
		return value.Number(-n), nil
	case ast.Not:
		b, ok := operand.AsBool()
		if !ok {
			return value.Value{}, errs.New(errs.TypeError, "logical not requires boolean")
		}
		return value.Bool(!b), nil
	}

	return value.Value{}, errs.New(errs.EvalError, "unknown unary operator")
}

func (e Evaluator) numericBinary(aExpr, bExpr ast.Expr, label string, f func(a, b float64) float64) (value.Value, error) {
	a, err := e.evalExpr(aExpr)
	if err != nil {
		return value.Value{}, err
	}
	b, err := e.evalExpr(bExpr)
	if err != nil {
		return value.Value{}, err
	}
	return numericOp(a, b, label, f)
}

func (e Evaluator) numericUnary(expr ast.Expr, label string, f func(float64) float64) (value.Value, error) {
	v, err := e.evalExpr(expr)
	if err != nil {
		return value.Value{}, err
	}
	n, ok := v.AsNumber()
	if !ok {
		return value.Value{}, errs.New(errs.TypeError, "%s requires number", label)
	}
	return value.Number(f(n)), nil
}

func (e Evaluator) evalRnd(r ast.Rnd) (value.Value, error) {
	val, err := e.evalExpr(r.Value)
	if err != nil {
		return value.Value{}, err
	}
	dec, err := e.evalExpr(r.Decimals)
	if err != nil {
		return value.Value{}, err
	}
	n, nok := val.AsNumber()
	d, dok := dec.AsNumber()
	if !nok || !dok {
		return value.Value{}, errs.New(errs.TypeError, "rnd requires numbers")
	}
	factor := math.Pow(10, d)
	return value.Number(math.Round(n*factor) / factor), nil
}

func (e Evaluator) evalDatePart(expr ast.Expr, label string, extract func(time.Time) float64) (value.Value, error) {
	v, err := e.evalExpr(expr)
	if err != nil {
		return value.Value{}, err
	}
	s, ok := v.AsString()
	if !ok {
		return value.Value{}, errs.New(errs.TypeError, "%s requires string date", label)
	}
	t, err := parseDate(s)
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(extract(t)), nil
}

func (e Evaluator) evalSubstr(s ast.Substr) (value.Value, error) {
	strVal, err := e.evalExpr(s.Str)
	if err != nil {
		return value.Value{}, err
	}
	startVal, err := e.evalExpr(s.Start)
	if err != nil {
		return value.Value{}, err
	}
	lenVal, err := e.evalExpr(s.Length)
	if err != nil {
		return value.Value{}, err
	}

	str, sok := strVal.AsString()
	start, stok := startVal.AsNumber()
	length, lok := lenVal.AsNumber()
	if !sok || !stok || !lok {
		return value.Value{}, errs.New(errs.TypeError, "substr requires (string, number, number)")
	}

	runes := []rune(str)
	from := int(start)
	if from < 0 {
		from = 0
	}
	if from > len(runes) {
		from = len(runes)
	}
	to := from + int(length)
	if to > len(runes) {
		to = len(runes)
	}
	if to < from {
		to = from
	}
	return value.String(string(runes[from:to])), nil
}

func (e Evaluator) evalAddDays(a ast.AddDays) (value.Value, error) {
	dateVal, err := e.evalExpr(a.Date)
	if err != nil {
		return value.Value{}, err
	}
	daysVal, err := e.evalExpr(a.Days)
	if err != nil {
		return value.Value{}, err
	}

	s, sok := dateVal.AsString()
	days, dok := daysVal.AsNumber()
	if !sok || !dok {
		return value.Value{}, errs.New(errs.TypeError, "add_days requires (string date, number)")
	}
	t, err := parseDate(s)
	if err != nil {
		return value.Value{}, err
	}
	newDate := t.AddDate(0, 0, int(days))
	return value.String(newDate.Format("2006-01-02T15:04:05")), nil
}

func (e Evaluator) evalGetDiffDays(g ast.GetDiffDays) (value.Value, error) {
	v1, err := e.evalExpr(g.Date1)
	if err != nil {
		return value.Value{}, err
	}
	v2, err := e.evalExpr(g.Date2)
	if err != nil {
		return value.Value{}, err
	}
	s1, ok1 := v1.AsString()
	s2, ok2 := v2.AsString()
	if !ok1 || !ok2 {
		return value.Value{}, errs.New(errs.TypeError, "get_diff_days requires two string dates")
	}
	t1, err := parseDate(s1)
	if err != nil {
		return value.Value{}, err
	}
	t2, err := parseDate(s2)
	if err != nil {
		return value.Value{}, err
	}
	days := int64(t1.Sub(t2) / (24 * time.Hour))
	return value.Number(float64(days)), nil
}

func (e Evaluator) evalPaddedString(p ast.PaddedString) (value.Value, error) {
	strVal, err := e.evalExpr(p.Str)
	if err != nil {
		return value.Value{}, err
	}
	widthVal, err := e.evalExpr(p.Width)
	if err != nil {
		return value.Value{}, err
	}
	s, sok := strVal.AsString()
	width, wok := widthVal.AsNumber()
	if !sok || !wok {
		return value.Value{}, errs.New(errs.TypeError, "padded_string requires (string, number)")
	}
	w := int(width)
	runes := []rune(s)
	if len(runes) >= w {
		return value.String(s), nil
	}
	return value.String(strings.Repeat("0", w-len(runes)) + s), nil
}

func (e Evaluator) evalDifferenceInMonths(d ast.DifferenceInMonths) (value.Value, error) {
	v1, err := e.evalExpr(d.Date1)
	if err != nil {
		return value.Value{}, err
	}
	v2, err := e.evalExpr(d.Date2)
	if err != nil {
		return value.Value{}, err
	}
	s1, ok1 := v1.AsString()
	s2, ok2 := v2.AsString()
	if !ok1 || !ok2 {
		return value.Value{}, errs.New(errs.TypeError, "difference_in_months requires two string dates")
	}
	t1, err := parseDate(s1)
	if err != nil {
		return value.Value{}, err
	}
	t2, err := parseDate(s2)
	if err != nil {
		return value.Value{}, err
	}
	months := (t1.Year()-t2.Year())*12 + (int(t1.Month()) - int(t2.Month()))
	if months < 0 {
		months = -months
	}
	return value.Number(float64(months)), nil
}

func (e Evaluator) evalGetOutputFrom(g ast.GetOutputFrom) (value.Value, error) {
	v, err := e.evalExpr(g.FormulaName)
	if err != nil {
		return value.Value{}, err
	}
	name, ok := v.AsString()
	if !ok {
		return value.Value{}, errs.New(errs.TypeError, "get_output_from requires string")
	}
	result, ok := e.FormulaResults.Get(name)
	if !ok {
		return value.Value{}, errs.New(errs.FormulaNotFound, "%s", name)
	}
	return result, nil
}

// evalFunctionCall invokes a host-registered function looked up by
// (snake_case(name), arity). Results are memoized in FunctionCache under
// that same key, not under the argument values: once a key has a cached
// result, later calls return it without evaluating their arguments,
// even when those arguments differ from the first call's.
func (e Evaluator) evalFunctionCall(c ast.FunctionCall) (value.Value, error) {
	id := function.BuildID(c.Name, len(c.Args))

	if cached, ok := e.FunctionCache.Get(id); ok {
		return cached, nil
	}

	fn, ok := e.Functions.Get(id)
	if !ok {
		return value.Value{}, errs.New(errs.FunctionNotFound, "%s", id)
	}

	params := make([]value.Value, len(c.Args))
	for i, argExpr := range c.Args {
		v, err := e.evalExpr(argExpr)
		if err != nil {
			return value.Value{}, err
		}
		params[i] = v
	}

	result, err := fn.Execute(params)
	if err != nil {
		return value.Value{}, err
	}
	e.FunctionCache.Set(id, result)
	return result, nil
}

// dateLayouts are tried in order; the first one that parses wins.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errs.New(errs.DateParseError, "failed to parse date '%s'", s)
}
