// Package parser implements a recursive-descent parser over the
// lexer's token stream, producing an ast.Program. Precedence climbs
// from or (loosest) through and, equality, comparison, additive,
// multiplicative, modulo, power (right-associative), unary, down to
// primary, mirroring the reference grammar one level per method.
package parser

import (
	"github.com/cwbudde/formulaengine/internal/ast"
	"github.com/cwbudde/formulaengine/internal/errs"
	"github.com/cwbudde/formulaengine/internal/lexer"
)

// Parser consumes a pre-scanned token slice by index; it never
// re-scans.
type Parser struct {
	tokens   []lexer.Token
	position int
}

// Parse scans and parses source in one call, returning the program or
// the first ParseError encountered.
func Parse(source string) (ast.Program, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return ast.Program{}, err
	}
	p := &Parser{tokens: tokens}
	return p.parseProgram()
}

func (p *Parser) parseProgram() (ast.Program, error) {
	stmt, err := p.parseBlock()
	if err != nil {
		return ast.Program{}, err
	}
	if err := p.expect(lexer.EOF); err != nil {
		return ast.Program{}, err
	}
	return ast.Program{Statement: stmt}, nil
}

func (p *Parser) parseBlock() (ast.Statement, error) {
	switch p.current().Type {
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.RETURN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.Return{Value: expr}, nil
	case lexer.ERROR:
		p.advance()
		if err := p.expect(lexer.LEFTPAREN); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RIGHTPAREN); err != nil {
			return nil, err
		}
		return ast.Error{Value: expr}, nil
	default:
		return nil, errs.New(errs.ParseError, "expected block statement")
	}
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	if err := p.expect(lexer.IF); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LEFTPAREN); err != nil {
		return nil, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RIGHTPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.THEN); err != nil {
		return nil, err
	}
	thenBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elseIfs []ast.ElseIf
	for p.current().Type == lexer.ELSE && p.peekType() == lexer.IF {
		p.advance() // else
		p.advance() // if
		if err := p.expect(lexer.LEFTPAREN); err != nil {
			return nil, err
		}
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RIGHTPAREN); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.THEN); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		elseIfs = append(elseIfs, ast.ElseIf{Condition: cond, Body: body})
	}

	var elseBlock ast.Statement
	if p.current().Type == lexer.ELSE {
		p.advance()
		elseBlock, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	if err := p.expect(lexer.END); err != nil {
		return nil, err
	}

	return ast.If{Condition: condition, Then: thenBlock, ElseIfs: elseIfs, Else: elseBlock}, nil
}

func (p *Parser) parseExpression() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == lexer.OR {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: ast.Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.current().Type == lexer.AND {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: ast.And, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.current().Type {
		case lexer.EQUAL:
			op = ast.Equal
		case lexer.NOTEQUAL:
			op = ast.NotEqual
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.current().Type {
		case lexer.LESSTHAN:
			op = ast.LessThan
		case lexer.GREATERTHAN:
			op = ast.GreaterThan
		case lexer.LESSTHANOREQUAL:
			op = ast.LessThanOrEqual
		case lexer.GREATERTHANOREQUAL:
			op = ast.GreaterThanOrEqual
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.current().Type {
		case lexer.PLUS:
			op = ast.Add
		case lexer.MINUS:
			op = ast.Subtract
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseModulo()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.current().Type {
		case lexer.MULTIPLY:
			op = ast.Multiply
		case lexer.DIVIDE:
			op = ast.Divide
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseModulo()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseModulo() (ast.Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.current().Type == lexer.MOD {
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: ast.Modulo, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePower() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.current().Type == lexer.POWER {
		p.advance()
		right, err := p.parsePower() // right-associative
		if err != nil {
			return nil, err
		}
		return ast.Binary{Op: ast.Power, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.current().Type {
	case lexer.MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Op: ast.Negate, Operand: operand}, nil
	case lexer.NOT:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Op: ast.Not, Operand: operand}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()

	switch tok.Type {
	case lexer.NUMBER:
		p.advance()
		return ast.NumberLit{Value: tok.Num}, nil
	case lexer.STRING:
		p.advance()
		return ast.StringLit{Value: tok.Str}, nil
	case lexer.BOOL:
		p.advance()
		return ast.BoolLit{Value: tok.Bool}, nil
	case lexer.LEFTPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RIGHTPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.IDENT:
		name := tok.Str
		p.advance()
		if p.current().Type == lexer.LEFTPAREN {
			p.advance()
			args, err := p.parseArgumentList()
			if err != nil {
				return nil, err
			}
			if err := p.expect(lexer.RIGHTPAREN); err != nil {
				return nil, err
			}
			return ast.FunctionCall{Name: name, Args: args}, nil
		}
		return ast.Identifier{Name: name}, nil

	case lexer.MAX:
		return p.parseBinaryFunction(func(a, b ast.Expr) ast.Expr { return ast.Max{A: a, B: b} })
	case lexer.MIN:
		return p.parseBinaryFunction(func(a, b ast.Expr) ast.Expr { return ast.Min{A: a, B: b} })
	case lexer.RND:
		return p.parseBinaryFunction(func(a, b ast.Expr) ast.Expr { return ast.Rnd{Value: a, Decimals: b} })
	case lexer.CEIL:
		return p.parseUnaryFunction(func(a ast.Expr) ast.Expr { return ast.Ceil{Operand: a} })
	case lexer.FLOOR:
		return p.parseUnaryFunction(func(a ast.Expr) ast.Expr { return ast.Floor{Operand: a} })
	case lexer.EXP:
		return p.parseUnaryFunction(func(a ast.Expr) ast.Expr { return ast.Exp{Operand: a} })
	case lexer.YEAR:
		return p.parseUnaryFunction(func(a ast.Expr) ast.Expr { return ast.Year{Operand: a} })
	case lexer.MONTH:
		return p.parseUnaryFunction(func(a ast.Expr) ast.Expr { return ast.Month{Operand: a} })
	case lexer.DAY:
		return p.parseUnaryFunction(func(a ast.Expr) ast.Expr { return ast.Day{Operand: a} })
	case lexer.SUBSTR:
		return p.parseTernaryFunction(func(a, b, c ast.Expr) ast.Expr {
			return ast.Substr{Str: a, Start: b, Length: c}
		})
	case lexer.ADDDAYS:
		return p.parseBinaryFunction(func(a, b ast.Expr) ast.Expr { return ast.AddDays{Date: a, Days: b} })
	case lexer.GETDIFFDAYS:
		return p.parseBinaryFunction(func(a, b ast.Expr) ast.Expr { return ast.GetDiffDays{Date1: a, Date2: b} })
	case lexer.PADDEDSTRING:
		return p.parseBinaryFunction(func(a, b ast.Expr) ast.Expr { return ast.PaddedString{Str: a, Width: b} })
	case lexer.DIFFERENCEINMONTHS:
		return p.parseBinaryFunction(func(a, b ast.Expr) ast.Expr {
			return ast.DifferenceInMonths{Date1: a, Date2: b}
		})
	case lexer.GETOUTPUTFROM:
		return p.parseUnaryFunction(func(a ast.Expr) ast.Expr { return ast.GetOutputFrom{FormulaName: a} })
	}

	return nil, errs.New(errs.ParseError, "unexpected token: %s", tok.Type)
}

func (p *Parser) parseUnaryFunction(build func(ast.Expr) ast.Expr) (ast.Expr, error) {
	p.advance()
	if err := p.expect(lexer.LEFTPAREN); err != nil {
		return nil, err
	}
	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RIGHTPAREN); err != nil {
		return nil, err
	}
	return build(arg), nil
}

func (p *Parser) parseBinaryFunction(build func(a, b ast.Expr) ast.Expr) (ast.Expr, error) {
	p.advance()
	if err := p.expect(lexer.LEFTPAREN); err != nil {
		return nil, err
	}
	a, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.COMMA); err != nil {
		return nil, err
	}
	b, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RIGHTPAREN); err != nil {
		return nil, err
	}
	return build(a, b), nil
}

func (p *Parser) parseTernaryFunction(build func(a, b, c ast.Expr) ast.Expr) (ast.Expr, error) {
	p.advance()
	if err := p.expect(lexer.LEFTPAREN); err != nil {
		return nil, err
	}
	a, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.COMMA); err != nil {
		return nil, err
	}
	b, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.COMMA); err != nil {
		return nil, err
	}
	c, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RIGHTPAREN); err != nil {
		return nil, err
	}
	return build(a, b, c), nil
}

func (p *Parser) parseArgumentList() ([]ast.Expr, error) {
	var args []ast.Expr

	if p.current().Type == lexer.RIGHTPAREN {
		return args, nil
	}

	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	args = append(args, arg)

	for p.current().Type == lexer.COMMA {
		p.advance()
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	return args, nil
}

func (p *Parser) current() lexer.Token {
	if p.position >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.position]
}

func (p *Parser) peekType() lexer.TokenType {
	if p.position+1 >= len(p.tokens) {
		return lexer.EOF
	}
	return p.tokens[p.position+1].Type
}

func (p *Parser) advance() {
	if p.position < len(p.tokens) {
		p.position++
	}
}

func (p *Parser) expect(t lexer.TokenType) error {
	if p.current().Type == t {
		p.advance()
		return nil
	}
	return errs.New(errs.ParseError, "expected %s, found %s", t, p.current().Type)
}
