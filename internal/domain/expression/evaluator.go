// Package expression evalúa las cantidades que tipea el personal de depósito
// ("3x60", "2*12+5", "(4+4)*6") con una gramática aritmética restringida.
//
// Gramática (descenso recursivo, precedencia estándar, asociatividad a izquierda):
//
//	expr    := term   (('+' | '-') term)*
//	term    := unary  (('*' | '/') unary)*
//	unary   := ('+' | '-') unary | primary
//	primary := NUMBER | '(' expr ')'
//
// La 'x' o 'X' es sinónimo de '*'. No se delega nunca en un intérprete general.
package expression

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// MaxLength acota el largo de la entrada (y con ello la profundidad de recursión).
const MaxLength = 200

var (
	// ErrSyntax la entrada no respeta la gramática.
	ErrSyntax = errors.New("expresión inválida")
	// ErrSemantic la expresión es válida pero su resultado no es una cantidad (entero > 0).
	ErrSemantic = errors.New("resultado inválido")
)

// EvalError describe el problema y la posición (base 0; -1 si no aplica).
type EvalError struct {
	Kind error
	Pos  int
	Msg  string
}

func (e *EvalError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%v: %s (posición %d)", e.Kind, e.Msg, e.Pos+1)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

func (e *EvalError) Unwrap() error { return e.Kind }

func syntaxErr(pos int, format string, args ...any) error {
	return &EvalError{Kind: ErrSyntax, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func semanticErr(pos int, format string, args ...any) error {
	return &EvalError{Kind: ErrSemantic, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Node es un nodo del árbol de la expresión.
type Node interface {
	Eval() (*big.Rat, error)
}

// Num literal numérico.
type Num struct {
	Value *big.Rat
	Pos   int
}

// Eval implementa Node.
func (n *Num) Eval() (*big.Rat, error) {
	return new(big.Rat).Set(n.Value), nil
}

// Neg menos unario.
type Neg struct {
	X   Node
	Pos int
}

// Eval implementa Node.
func (n *Neg) Eval() (*big.Rat, error) {
	v, err := n.X.Eval()
	if err != nil {
		return nil, err
	}
	return v.Neg(v), nil
}

// BinOp operación binaria (+, -, *, /).
type BinOp struct {
	Op          byte
	Left, Right Node
	Pos         int
}

// Eval implementa Node. La aritmética es racional exacta: 7/2*2 = 7.
func (b *BinOp) Eval() (*big.Rat, error) {
	l, err := b.Left.Eval()
	if err != nil {
		return nil, err
	}
	r, err := b.Right.Eval()
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case '+':
		return l.Add(l, r), nil
	case '-':
		return l.Sub(l, r), nil
	case '*':
		return l.Mul(l, r), nil
	case '/':
		if r.Sign() == 0 {
			return nil, semanticErr(b.Pos, "división por cero")
		}
		return l.Quo(l, r), nil
	}
	return nil, syntaxErr(b.Pos, "operador desconocido %q", b.Op)
}

// Evaluate parsea y evalúa la entrada; devuelve un entero estrictamente positivo.
func Evaluate(input string) (int64, error) {
	tree, err := Parse(input)
	if err != nil {
		return 0, err
	}
	v, err := tree.Eval()
	if err != nil {
		return 0, err
	}
	if !v.IsInt() {
		return 0, semanticErr(-1, "el resultado %s no es un número entero", v.FloatString(2))
	}
	if v.Sign() <= 0 {
		return 0, semanticErr(-1, "el resultado %s debe ser mayor que cero", v.RatString())
	}
	n := v.Num()
	if !n.IsInt64() {
		return 0, semanticErr(-1, "el resultado excede el máximo admitido")
	}
	return n.Int64(), nil
}

// Parse construye el árbol de la expresión sin evaluarla.
func Parse(input string) (Node, error) {
	if len(input) > MaxLength {
		return nil, syntaxErr(-1, "la expresión supera %d caracteres", MaxLength)
	}
	if strings.TrimSpace(input) == "" {
		return nil, syntaxErr(-1, "expresión vacía")
	}
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	tree, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		if t.kind == tokRParen {
			return nil, syntaxErr(t.pos, "paréntesis de cierre sin apertura")
		}
		return nil, syntaxErr(t.pos, "símbolo inesperado %q", t.text)
	}
	return tree, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNum
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
	num  *big.Rat
}

func tokenize(input string) ([]token, error) {
	var toks []token
	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			i++
		case c == 'x' || c == 'X':
			toks = append(toks, token{kind: tokOp, text: "*", pos: i})
			i++
		case c == '+' || c == '-' || c == '*' || c == '/':
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case isDigit(c) || c == '.':
			start := i
			dots := 0
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				if input[i] == '.' {
					dots++
				}
				i++
			}
			lit := input[start:i]
			if dots > 1 || lit == "." || strings.HasSuffix(lit, ".") {
				return nil, syntaxErr(start, "número mal formado %q", lit)
			}
			if strings.HasPrefix(lit, ".") {
				lit = "0" + lit
			}
			r, ok := new(big.Rat).SetString(lit)
			if !ok {
				return nil, syntaxErr(start, "número mal formado %q", lit)
			}
			toks = append(toks, token{kind: tokNum, text: input[start:i], pos: start, num: r})
		default:
			return nil, syntaxErr(i, "carácter no permitido %q", rune(c))
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(input)}), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: t.text[0], Left: left, Right: right, Pos: t.pos}
	}
}

func (p *parser) term() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: t.text[0], Left: left, Right: right, Pos: t.pos}
	}
}

func (p *parser) unary() (Node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if t.text == "+" {
			return x, nil
		}
		return &Neg{X: x, Pos: t.pos}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return &Num{Value: t.num, Pos: t.pos}, nil
	case tokLParen:
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, syntaxErr(t.pos, "paréntesis sin cerrar")
		}
		return inner, nil
	case tokEOF:
		return nil, syntaxErr(t.pos, "la expresión termina de forma incompleta")
	}
	return nil, syntaxErr(t.pos, "se esperaba un número y llegó %q", t.text)
}
