package parser

import (
	"testing"

	"github.com/cwbudde/formulaengine/internal/ast"
)

func parseReturnExpr(t *testing.T, source string) ast.Expr {
	t.Helper()
	program, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", source, err)
	}
	ret, ok := program.Statement.(ast.Return)
	if !ok {
		t.Fatalf("Parse(%q) statement = %#v, want ast.Return", source, program.Statement)
	}
	return ret.Value
}

func TestParseSimpleReturn(t *testing.T) {
	program, err := Parse("return 42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ret, ok := program.Statement.(ast.Return)
	if !ok {
		t.Fatalf("statement = %#v, want ast.Return", program.Statement)
	}
	lit, ok := ret.Value.(ast.NumberLit)
	if !ok || lit.Value != 42 {
		t.Fatalf("value = %#v, want NumberLit{42}", ret.Value)
	}
}

func TestParseOperatorPrecedenceAddMul(t *testing.T) {
	expr := parseReturnExpr(t, "return 2 + 3 * 4")
	bin, ok := expr.(ast.Binary)
	if !ok || bin.Op != ast.Add {
		t.Fatalf("expr = %#v, want top-level Add", expr)
	}
	right, ok := bin.Right.(ast.Binary)
	if !ok || right.Op != ast.Multiply {
		t.Fatalf("right = %#v, want Multiply", bin.Right)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	expr := parseReturnExpr(t, "return 2 ^ 3 ^ 2")
	bin, ok := expr.(ast.Binary)
	if !ok || bin.Op != ast.Power {
		t.Fatalf("expr = %#v, want top-level Power", expr)
	}
	right, ok := bin.Right.(ast.Binary)
	if !ok || right.Op != ast.Power {
		t.Fatalf("right = %#v, want nested Power (right-associative)", bin.Right)
	}
}

func TestParseLogicalPrecedenceOrAnd(t *testing.T) {
	expr := parseReturnExpr(t, "return true or false and true")
	bin, ok := expr.(ast.Binary)
	if !ok || bin.Op != ast.Or {
		t.Fatalf("expr = %#v, want top-level Or", expr)
	}
	right, ok := bin.Right.(ast.Binary)
	if !ok || right.Op != ast.And {
		t.Fatalf("right = %#v, want And", bin.Right)
	}
}

func TestParseUnaryAndParenthesized(t *testing.T) {
	expr := parseReturnExpr(t, "return -(1 + 2)")
	unary, ok := expr.(ast.Unary)
	if !ok || unary.Op != ast.Negate {
		t.Fatalf("expr = %#v, want Unary Negate", expr)
	}
	if _, ok := unary.Operand.(ast.Binary); !ok {
		t.Fatalf("operand = %#v, want Binary Add", unary.Operand)
	}
}

func TestParseModulo(t *testing.T) {
	expr := parseReturnExpr(t, "return 10 mod 3")
	bin, ok := expr.(ast.Binary)
	if !ok || bin.Op != ast.Modulo {
		t.Fatalf("expr = %#v, want Modulo", expr)
	}
}

func TestParseIdentifierAndFunctionCall(t *testing.T) {
	expr := parseReturnExpr(t, "return input_value")
	ident, ok := expr.(ast.Identifier)
	if !ok || ident.Name != "input_value" {
		t.Fatalf("expr = %#v, want Identifier input_value", expr)
	}

	call := parseReturnExpr(t, "return custom_fn(1, 2 + 3)")
	fc, ok := call.(ast.FunctionCall)
	if !ok || fc.Name != "custom_fn" || len(fc.Args) != 2 {
		t.Fatalf("expr = %#v, want FunctionCall custom_fn/2", call)
	}
}

func TestParseBuiltinUnaryFunctions(t *testing.T) {
	expr := parseReturnExpr(t, "return ceil(1.2)")
	if _, ok := expr.(ast.Ceil); !ok {
		t.Fatalf("expr = %#v, want Ceil", expr)
	}

	expr = parseReturnExpr(t, "return get_output_from('x')")
	got, ok := expr.(ast.GetOutputFrom)
	if !ok {
		t.Fatalf("expr = %#v, want GetOutputFrom", expr)
	}
	if lit, ok := got.FormulaName.(ast.StringLit); !ok || lit.Value != "x" {
		t.Fatalf("FormulaName = %#v, want StringLit x", got.FormulaName)
	}
}

func TestParseBuiltinBinaryFunctions(t *testing.T) {
	expr := parseReturnExpr(t, "return max(1, 2)")
	if _, ok := expr.(ast.Max); !ok {
		t.Fatalf("expr = %#v, want Max", expr)
	}

	expr = parseReturnExpr(t, "return add_days(10, 5)")
	if _, ok := expr.(ast.AddDays); !ok {
		t.Fatalf("expr = %#v, want AddDays", expr)
	}

	expr = parseReturnExpr(t, "return difference_in_months('2024-01-01', '2023-01-01')")
	if _, ok := expr.(ast.DifferenceInMonths); !ok {
		t.Fatalf("expr = %#v, want DifferenceInMonths", expr)
	}
}

func TestParseBuiltinTernaryFunction(t *testing.T) {
	expr := parseReturnExpr(t, "return substr('abcdef', 2, 3)")
	if _, ok := expr.(ast.Substr); !ok {
		t.Fatalf("expr = %#v, want Substr", expr)
	}
}

func TestParseIfStatementWithElseIfAndElse(t *testing.T) {
	program, err := Parse(
		"if (5 > 3) then return 100 else if (2 = 2) then return 200 else return 300 end",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ifStmt, ok := program.Statement.(ast.If)
	if !ok {
		t.Fatalf("statement = %#v, want ast.If", program.Statement)
	}
	if _, ok := ifStmt.Condition.(ast.Binary); !ok {
		t.Fatalf("condition = %#v, want Binary", ifStmt.Condition)
	}
	if len(ifStmt.ElseIfs) != 1 {
		t.Fatalf("len(ElseIfs) = %d, want 1", len(ifStmt.ElseIfs))
	}
	if ifStmt.Else == nil {
		t.Fatal("Else = nil, want Return(300)")
	}
}

func TestParseErrorStatement(t *testing.T) {
	program, err := Parse("error('bad input')")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	errStmt, ok := program.Statement.(ast.Error)
	if !ok {
		t.Fatalf("statement = %#v, want ast.Error", program.Statement)
	}
	if lit, ok := errStmt.Value.(ast.StringLit); !ok || lit.Value != "bad input" {
		t.Fatalf("value = %#v, want StringLit bad input", errStmt.Value)
	}
}

func TestParseFailsWhenNoBlockStatement(t *testing.T) {
	if _, err := Parse("42"); err == nil {
		t.Fatal("expected error: a bare expression is not a block statement")
	}
}

func TestParseFailsOnMissingBinaryFunctionComma(t *testing.T) {
	if _, err := Parse("return max(1 2)"); err == nil {
		t.Fatal("expected error for missing comma between function arguments")
	}
}
