package calculator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Op is a binary operator key.
type Op string

// Operators.
const (
	Add Op = "+"
	Sub Op = "-"
	Mul Op = "×"
	Div Op = "÷"
	Mod Op = "%"
)

// ParseOp accepts the display symbols plus their ASCII spellings.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "+":
		return Add, true
	case "-", "−":
		return Sub, true
	case "*", "x", "×":
		return Mul, true
	case "/", "÷":
		return Div, true
	case "%":
		return Mod, true
	}
	return "", false
}

// Apply evaluates a op b. Division by zero yields 0.
func Apply(a, b float64, op Op) float64 {
	switch op {
	case Add:
		return a + b
	case Sub:
		return a - b
	case Mul:
		return a * b
	case Div:
		if b == 0 {
			return 0
		}
		return a / b
	case Mod:
		return math.Mod(a, b)
	default:
		return b
	}
}

// Entry is one finished calculation.
type Entry struct {
	Expression string
	Result     float64
}

// Basic is the display state of a four-function calculator. The zero value
// is not ready; use NewBasic.
type Basic struct {
	display    string
	expression string
	previous   *float64
	op         Op
	waiting    bool
	history    []Entry
}

// NewBasic returns a cleared calculator.
func NewBasic() *Basic {
	return &Basic{display: "0"}
}

// Display returns the current display text.
func (b *Basic) Display() string { return b.display }

// Expression returns the pending expression, e.g. "12 + ".
func (b *Basic) Expression() string { return b.expression }

// History returns the finished calculations, oldest first.
func (b *Basic) History() []Entry {
	return append([]Entry(nil), b.history...)
}

// Digit appends d (0-9) to the display.
func (b *Basic) Digit(d int) {
	if d < 0 || d > 9 {
		return
	}
	s := strconv.Itoa(d)
	switch {
	case b.waiting:
		b.display = s
		b.waiting = false
	case b.display == "0":
		b.display = s
	default:
		b.display += s
	}
}

// Decimal adds a decimal point if there is none yet.
func (b *Basic) Decimal() {
	if b.waiting {
		b.display = "0."
		b.waiting = false
		return
	}
	if !strings.Contains(b.display, ".") {
		b.display += "."
	}
}

// Clear resets everything except history.
func (b *Basic) Clear() {
	b.display = "0"
	b.previous = nil
	b.op = ""
	b.waiting = false
	b.expression = ""
}

// ClearEntry resets the display only.
func (b *Basic) ClearEntry() {
	b.display = "0"
}

// Backspace drops the last display character.
func (b *Basic) Backspace() {
	if len(b.display) > 1 {
		b.display = b.display[:len(b.display)-1]
		if b.display == "-" {
			b.display = "0"
		}
		return
	}
	b.display = "0"
}

// ToggleSign negates the display.
func (b *Basic) ToggleSign() {
	if b.display == "0" {
		return
	}
	if strings.HasPrefix(b.display, "-") {
		b.display = b.display[1:]
	} else {
		b.display = "-" + b.display
	}
}

// Operator starts or chains an operation. Chaining evaluates the pending one
// first. Pressing another operator before entering a new operand only
// replaces the pending operator.
func (b *Basic) Operator(op Op) {
	input := b.value()
	switch {
	case b.previous == nil:
		b.previous = &input
		b.expression = b.display + " " + string(op) + " "
	case b.waiting && b.op != "":
		b.expression = strings.TrimSuffix(b.expression, " "+string(b.op)+" ") + " " + string(op) + " "
	case b.op != "":
		v := Apply(*b.previous, input, b.op)
		b.expression += b.display + " " + string(op) + " "
		b.display = formatNumber(v)
		b.previous = &v
	}
	b.waiting = true
	b.op = op
}

// Equals evaluates the pending operation and records it in history. It
// returns false when there was nothing to evaluate.
func (b *Basic) Equals() (Entry, bool) {
	if b.previous == nil || b.op == "" {
		return Entry{}, false
	}
	v := Apply(*b.previous, b.value(), b.op)
	e := Entry{Expression: b.expression + b.display + " = " + formatNumber(v), Result: v}
	b.display = formatNumber(v)
	b.history = append(b.history, e)
	b.previous = nil
	b.op = ""
	b.waiting = true
	b.expression = ""
	return e, true
}

func (b *Basic) value() float64 {
	v, err := strconv.ParseFloat(b.display, 64)
	if err != nil {
		return 0
	}
	return v
}

// Press feeds one key: a digit, ".", an operator, "=", "C", "CE", "BS" or
// "+/-".
func (b *Basic) Press(key string) error {
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		b.Digit(int(key[0] - '0'))
		return nil
	}
	if op, ok := ParseOp(key); ok {
		b.Operator(op)
		return nil
	}
	switch strings.ToUpper(key) {
	case ".":
		b.Decimal()
	case "=":
		b.Equals()
	case "C":
		b.Clear()
	case "CE":
		b.ClearEntry()
	case "BS", "⌫":
		b.Backspace()
	case "+/-", "±", "NEG":
		b.ToggleSign()
	default:
		return fmt.Errorf("unknown calculator key %q", key)
	}
	return nil
}

// Run presses every key of an expression such as "12 + 3 × 2 =". Multi-digit
// numbers are split into digits.
func (b *Basic) Run(tokens []string) error {
	for _, tok := range tokens {
		if isNumber(tok) {
			for _, r := range tok {
				if err := b.Press(string(r)); err != nil {
					return err
				}
			}
			continue
		}
		if err := b.Press(tok); err != nil {
			return err
		}
	}
	return nil
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
