package engine

import (
	"fmt"
	"strconv"

	"github.com/aden-hq/hive/internal/types"
)

// Predicate evaluation for edge routing and conditional nodes.
//
// Expressions are evaluated against the run context merged with the source
// node's outcome. Supported:
//
//   - Path resolution: bare identifiers resolve against the run context
//     ("booking.status" resolves context["booking"]["status"]); the
//     "outcome" namespace resolves against the source node's outcome
//     ("outcome.status", "outcome.output.found").
//   - Comparison operators: ==, !=, <, >, <=, >=
//   - Boolean operators: &&, ||, !
//   - Literals: true, false, numbers, quoted strings
//   - Parentheses for grouping
//   - Built-in functions: len(), empty(), exists()
//   - Custom functions via RegisterFunction()
//   - Array/map indexing with []
//
// All expressions must evaluate to a boolean value. Invalid expressions
// return a HiveError with code EXPRESSION_INVALID.

// EvalContext provides the data an expression is evaluated against.
type EvalContext struct {
	// Context is a snapshot of the run context.
	Context map[string]any

	// Outcome is the source node's outcome, exposed under the "outcome"
	// namespace. May be nil for conditional nodes, which see context only.
	Outcome *Outcome
}

// EvalFunc is a function callable within expressions.
type EvalFunc func(args []any) (any, error)

// Evaluator parses and evaluates predicate expressions.
type Evaluator struct {
	functions map[string]EvalFunc
}

// NewEvaluator creates an Evaluator with the default built-in functions.
func NewEvaluator() *Evaluator {
	e := &Evaluator{functions: make(map[string]EvalFunc)}

	e.RegisterFunction("len", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("len() requires exactly 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case string:
			return float64(len(v)), nil
		case []any:
			return float64(len(v)), nil
		case map[string]any:
			return float64(len(v)), nil
		default:
			return nil, fmt.Errorf("len() requires string, array, or map argument")
		}
	})

	e.RegisterFunction("empty", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("empty() requires exactly 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case string:
			return len(v) == 0, nil
		case []any:
			return len(v) == 0, nil
		case map[string]any:
			return len(v) == 0, nil
		case nil:
			return true, nil
		default:
			return false, nil
		}
	})

	e.RegisterFunction("exists", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("exists() requires exactly 1 argument, got %d", len(args))
		}
		return args[0] != nil, nil
	})

	return e
}

// RegisterFunction adds a custom function callable in expressions.
func (e *Evaluator) RegisterFunction(name string, fn EvalFunc) {
	e.functions[name] = fn
}

// Evaluate parses and evaluates an expression in the given context.
func (e *Evaluator) Evaluate(expr string, ec *EvalContext) (bool, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return false, types.WrapError(types.EXPRESSION_INVALID,
			fmt.Sprintf("failed to tokenize expression %q", expr), err)
	}

	p := &exprParser{tokens: tokens, ec: ec, evaluator: e}
	result, err := p.parseExpression()
	if err != nil {
		return false, types.WrapError(types.EXPRESSION_INVALID,
			fmt.Sprintf("failed to evaluate expression %q", expr), err)
	}
	if p.current().typ != tokenEOF {
		return false, types.NewError(types.EXPRESSION_INVALID,
			fmt.Sprintf("unexpected trailing input in expression %q", expr))
	}

	boolResult, ok := result.(bool)
	if !ok {
		return false, types.NewError(types.EXPRESSION_INVALID,
			fmt.Sprintf("expression %q did not evaluate to boolean, got %T", expr, result))
	}
	return boolResult, nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdentifier
	tokenNumber
	tokenString
	tokenBool
	tokenDot
	tokenComma
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenEQ
	tokenNE
	tokenLT
	tokenLE
	tokenGT
	tokenGE
	tokenAnd
	tokenOr
	tokenNot
)

type token struct {
	typ   tokenType
	value string
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(expr) {
		c := expr[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}

		switch c {
		case '.':
			tokens = append(tokens, token{tokenDot, "."})
			i++
			continue
		case ',':
			tokens = append(tokens, token{tokenComma, ","})
			i++
			continue
		case '(':
			tokens = append(tokens, token{tokenLParen, "("})
			i++
			continue
		case ')':
			tokens = append(tokens, token{tokenRParen, ")"})
			i++
			continue
		case '[':
			tokens = append(tokens, token{tokenLBracket, "["})
			i++
			continue
		case ']':
			tokens = append(tokens, token{tokenRBracket, "]"})
			i++
			continue
		}

		if i+1 < len(expr) {
			switch expr[i : i+2] {
			case "==":
				tokens = append(tokens, token{tokenEQ, "=="})
				i += 2
				continue
			case "!=":
				tokens = append(tokens, token{tokenNE, "!="})
				i += 2
				continue
			case "<=":
				tokens = append(tokens, token{tokenLE, "<="})
				i += 2
				continue
			case ">=":
				tokens = append(tokens, token{tokenGE, ">="})
				i += 2
				continue
			case "&&":
				tokens = append(tokens, token{tokenAnd, "&&"})
				i += 2
				continue
			case "||":
				tokens = append(tokens, token{tokenOr, "||"})
				i += 2
				continue
			}
		}

		switch c {
		case '<':
			tokens = append(tokens, token{tokenLT, "<"})
			i++
			continue
		case '>':
			tokens = append(tokens, token{tokenGT, ">"})
			i++
			continue
		case '!':
			tokens = append(tokens, token{tokenNot, "!"})
			i++
			continue
		}

		if c == '"' || c == '\'' {
			quote := c
			i++
			start := i
			for i < len(expr) && expr[i] != quote {
				if expr[i] == '\\' && i+1 < len(expr) {
					i += 2
				} else {
					i++
				}
			}
			if i >= len(expr) {
				return nil, fmt.Errorf("unterminated string literal")
			}
			tokens = append(tokens, token{tokenString, expr[start:i]})
			i++
			continue
		}

		if c >= '0' && c <= '9' {
			start := i
			for i < len(expr) && ((expr[i] >= '0' && expr[i] <= '9') || expr[i] == '.') {
				i++
			}
			tokens = append(tokens, token{tokenNumber, expr[start:i]})
			continue
		}

		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' {
			start := i
			for i < len(expr) && ((expr[i] >= 'a' && expr[i] <= 'z') ||
				(expr[i] >= 'A' && expr[i] <= 'Z') ||
				(expr[i] >= '0' && expr[i] <= '9') ||
				expr[i] == '_') {
				i++
			}
			value := expr[start:i]
			if value == "true" || value == "false" {
				tokens = append(tokens, token{tokenBool, value})
			} else {
				tokens = append(tokens, token{tokenIdentifier, value})
			}
			continue
		}

		return nil, fmt.Errorf("unexpected character at position %d: %c", i, c)
	}

	tokens = append(tokens, token{typ: tokenEOF})
	return tokens, nil
}

// exprParser implements a recursive descent parser with precedence
// OR < AND < NOT < comparison < primary.
type exprParser struct {
	tokens    []token
	pos       int
	ec        *EvalContext
	evaluator *Evaluator
}

func (p *exprParser) current() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *exprParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *exprParser) expect(typ tokenType) error {
	if p.current().typ != typ {
		return fmt.Errorf("expected token %v, got %v", typ, p.current().typ)
	}
	p.advance()
	return nil
}

func (p *exprParser) parseExpression() (any, error) {
	return p.parseOr()
}

func (p *exprParser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().typ == tokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lb, lok := left.(bool)
		rb, rok := right.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("|| operator requires boolean operands")
		}
		left = lb || rb
	}
	return left, nil
}

func (p *exprParser) parseAnd() (any, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.current().typ == tokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		lb, lok := left.(bool)
		rb, rok := right.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("&& operator requires boolean operands")
		}
		left = lb && rb
	}
	return left, nil
}

func (p *exprParser) parseNot() (any, error) {
	if p.current().typ == tokenNot {
		p.advance()
		expr, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		b, ok := expr.(bool)
		if !ok {
			return nil, fmt.Errorf("! operator requires boolean operand")
		}
		return !b, nil
	}
	return p.parseComparison()
}

func (p *exprParser) parseComparison() (any, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	tok := p.current()
	switch tok.typ {
	case tokenEQ, tokenNE, tokenLT, tokenLE, tokenGT, tokenGE:
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return compare(left, right, tok.typ)
	}
	return left, nil
}

func (p *exprParser) parsePrimary() (any, error) {
	tok := p.current()
	switch tok.typ {
	case tokenBool:
		p.advance()
		return tok.value == "true", nil
	case tokenNumber:
		p.advance()
		return strconv.ParseFloat(tok.value, 64)
	case tokenString:
		p.advance()
		return tok.value, nil
	case tokenLParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	case tokenIdentifier:
		return p.parseIdentifierOrFunction()
	default:
		return nil, fmt.Errorf("unexpected token: %v", tok.typ)
	}
}

func (p *exprParser) parseIdentifierOrFunction() (any, error) {
	name := p.current().value
	p.advance()
	if p.current().typ == tokenLParen {
		return p.parseFunctionCall(name)
	}
	return p.resolvePath(name)
}

func (p *exprParser) parseFunctionCall(name string) (any, error) {
	fn, ok := p.evaluator.functions[name]
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", name)
	}
	p.advance()

	var args []any
	if p.current().typ != tokenRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current().typ != tokenComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(tokenRParen); err != nil {
		return nil, err
	}
	return fn(args)
}

// resolvePath resolves a dotted path, with optional [] indexing, against
// the evaluation context. Bare identifiers read the run context; the
// "outcome" namespace reads the source node's outcome view.
func (p *exprParser) resolvePath(name string) (any, error) {
	path := []string{name}
	for p.current().typ == tokenDot {
		p.advance()
		if p.current().typ != tokenIdentifier {
			return nil, fmt.Errorf("expected identifier after '.'")
		}
		path = append(path, p.current().value)
		p.advance()
	}

	current, err := p.resolvePathValue(path)
	if err != nil {
		return nil, err
	}

	for p.current().typ == tokenLBracket {
		p.advance()
		index, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenRBracket); err != nil {
			return nil, err
		}

		switch v := current.(type) {
		case map[string]any:
			key, ok := index.(string)
			if !ok {
				return nil, fmt.Errorf("map index must be string")
			}
			current = v[key]
		case []any:
			num, ok := index.(float64)
			if !ok {
				return nil, fmt.Errorf("array index must be number")
			}
			idx := int(num)
			if idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("array index out of bounds: %d", idx)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot index %T", v)
		}

		for p.current().typ == tokenDot {
			p.advance()
			if p.current().typ != tokenIdentifier {
				return nil, fmt.Errorf("expected identifier after '.'")
			}
			field := p.current().value
			p.advance()
			m, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("cannot access field %s on %T", field, current)
			}
			current = m[field]
		}
	}

	return current, nil
}

func (p *exprParser) resolvePathValue(path []string) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty path")
	}

	var current any
	if path[0] == "outcome" {
		if p.ec.Outcome == nil {
			return nil, fmt.Errorf("no outcome available in this context")
		}
		if len(path) == 1 {
			return p.ec.Outcome.view(), nil
		}
		current = p.ec.Outcome.view()
		path = path[1:]
	} else {
		if p.ec.Context == nil {
			return nil, nil
		}
		v, ok := p.ec.Context[path[0]]
		if !ok {
			return nil, nil
		}
		current = v
		path = path[1:]
	}

	for _, segment := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot access field %s on %T", segment, current)
		}
		current = m[segment]
		if current == nil {
			return nil, nil
		}
	}
	return current, nil
}

func compare(left, right any, op tokenType) (bool, error) {
	switch op {
	case tokenEQ:
		return valuesEqual(left, right), nil
	case tokenNE:
		return !valuesEqual(left, right), nil
	case tokenLT, tokenLE, tokenGT, tokenGE:
		return compareOrdered(left, right, op)
	default:
		return false, fmt.Errorf("unknown comparison operator: %v", op)
	}
}

func valuesEqual(left, right any) bool {
	if left == nil && right == nil {
		return true
	}
	if left == nil || right == nil {
		return false
	}

	// Numbers compare across int/float representations since context
	// values may come from YAML, JSON, or Go literals.
	if ln, lok := toNumber(left); lok {
		if rn, rok := toNumber(right); rok {
			return ln == rn
		}
	}

	switch l := left.(type) {
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	case string:
		r, ok := right.(string)
		return ok && l == r
	default:
		return false
	}
}

func compareOrdered(left, right any, op tokenType) (bool, error) {
	ln, lok := toNumber(left)
	rn, rok := toNumber(right)

	if !lok || !rok {
		ls, lsok := left.(string)
		rs, rsok := right.(string)
		if !lsok || !rsok {
			return false, fmt.Errorf("cannot compare %T and %T", left, right)
		}
		switch op {
		case tokenLT:
			return ls < rs, nil
		case tokenLE:
			return ls <= rs, nil
		case tokenGT:
			return ls > rs, nil
		case tokenGE:
			return ls >= rs, nil
		}
	}

	switch op {
	case tokenLT:
		return ln < rn, nil
	case tokenLE:
		return ln <= rn, nil
	case tokenGT:
		return ln > rn, nil
	case tokenGE:
		return ln >= rn, nil
	default:
		return false, fmt.Errorf("unknown comparison operator: %v", op)
	}
}

func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		if num, err := strconv.ParseFloat(val, 64); err == nil {
			return num, true
		}
	}
	return 0, false
}
