package codec

import (
	"errors"
	"math"
)

// ErrMalformed is returned for any parse failure: truncated input, a
// mismatched closing delimiter, trailing garbage after the document, an
// unrecognized escape, or a number that cannot be represented.
var ErrMalformed = errors.New("codec: malformed json")

type layerKind int

const (
	layerSeq layerKind = iota
	layerMap
)

type openFrame struct {
	kind          layerKind
	seq           []Value
	entries       []Entry
	key           string
	awaitingValue bool
}

func attach(f *openFrame, v Value) {
	if f.kind == layerSeq {
		f.seq = append(f.seq, v)
	} else {
		f.entries = append(f.entries, Entry{Key: f.key, Val: v})
		f.key = ""
	}
	f.awaitingValue = false
}

// Decode parses data as a single JSON document and returns its Value tree.
// Parsing never recurses: nested containers are tracked on an explicit
// stack of open frames, so depth is bounded only by available memory.
func Decode(data []byte) (Value, error) {
	d := &decoder{input: data}
	var stack []*openFrame

	for {
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if !top.awaitingValue {
				if top.kind == layerSeq {
					b, ok := d.skipWhitespace()
					if !ok {
						return Value{}, ErrMalformed
					}
					if b == ']' {
						d.advance()
						v := Value{Kind: KindSeq, Seq: top.seq}
						stack = stack[:len(stack)-1]
						if len(stack) == 0 {
							return d.finish(v)
						}
						attach(stack[len(stack)-1], v)
						continue
					}
					if len(top.seq) > 0 {
						if b != ',' {
							return Value{}, ErrMalformed
						}
						d.advance()
					}
					top.awaitingValue = true
					continue
				}

				// layerMap: read (comma +) quoted key + colon, or close.
				b, ok := d.skipWhitespace()
				if !ok {
					return Value{}, ErrMalformed
				}
				if b == '}' {
					d.advance()
					v := Value{Kind: KindMap, Map: top.entries}
					stack = stack[:len(stack)-1]
					if len(stack) == 0 {
						return d.finish(v)
					}
					attach(stack[len(stack)-1], v)
					continue
				}
				if len(top.entries) > 0 {
					if b != ',' {
						return Value{}, ErrMalformed
					}
					d.advance()
					b, ok = d.skipWhitespace()
					if !ok {
						return Value{}, ErrMalformed
					}
				}
				if b != '"' {
					return Value{}, ErrMalformed
				}
				d.advance()
				key, err := d.parseStr()
				if err != nil {
					return Value{}, err
				}
				top.key = key
				b, ok = d.skipWhitespace()
				if !ok || b != ':' {
					return Value{}, ErrMalformed
				}
				d.advance()
				top.awaitingValue = true
				continue
			}
		}

		ev, err := d.getEvent()
		if err != nil {
			return Value{}, err
		}
		switch ev.tag {
		case evSeqStart:
			stack = append(stack, &openFrame{kind: layerSeq})
		case evMapStart:
			stack = append(stack, &openFrame{kind: layerMap})
		default:
			v := ev.value
			if len(stack) == 0 {
				return d.finish(v)
			}
			attach(stack[len(stack)-1], v)
		}
	}
}

func (d *decoder) finish(v Value) (Value, error) {
	if _, ok := d.skipWhitespace(); ok {
		return Value{}, ErrMalformed
	}
	return v, nil
}

type eventTag int

const (
	evScalar eventTag = iota
	evSeqStart
	evMapStart
)

type event struct {
	tag   eventTag
	value Value
}

type decoder struct {
	input []byte
	pos   int
}

func (d *decoder) next() (byte, bool) {
	if d.pos >= len(d.input) {
		return 0, false
	}
	b := d.input[d.pos]
	d.pos++
	return b, true
}

func (d *decoder) nextOrNull() byte {
	b, ok := d.next()
	if !ok {
		return 0
	}
	return b
}

func (d *decoder) peek() (byte, bool) {
	if d.pos >= len(d.input) {
		return 0, false
	}
	return d.input[d.pos], true
}

func (d *decoder) peekOrNull() byte {
	b, _ := d.peek()
	return b
}

func (d *decoder) advance() { d.pos++ }

func (d *decoder) skipWhitespace() (byte, bool) {
	for {
		b, ok := d.peek()
		if !ok {
			return 0, false
		}
		if b == ' ' || b == '\n' || b == '\t' || b == '\r' {
			d.advance()
			continue
		}
		return b, true
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (d *decoder) getEvent() (event, error) {
	b, ok := d.skipWhitespace()
	if !ok {
		return event{}, ErrMalformed
	}
	d.advance()
	switch {
	case b == '"':
		s, err := d.parseStr()
		if err != nil {
			return event{}, err
		}
		return event{tag: evScalar, value: Str(s)}, nil
	case isDigit(b):
		return d.parseIntegerEvent(true, b)
	case b == '-':
		return d.parseIntegerEvent(false, d.nextOrNull())
	case b == '{':
		return event{tag: evMapStart}, nil
	case b == '[':
		return event{tag: evSeqStart}, nil
	case b == 'n':
		if err := d.parseIdent([]byte("ull")); err != nil {
			return event{}, err
		}
		return event{tag: evScalar, value: Null()}, nil
	case b == 't':
		if err := d.parseIdent([]byte("rue")); err != nil {
			return event{}, err
		}
		return event{tag: evScalar, value: Bool(true)}, nil
	case b == 'f':
		if err := d.parseIdent([]byte("alse")); err != nil {
			return event{}, err
		}
		return event{tag: evScalar, value: Bool(false)}, nil
	default:
		return event{}, ErrMalformed
	}
}

func (d *decoder) parseIdent(rest []byte) error {
	for _, want := range rest {
		got, ok := d.next()
		if !ok || got != want {
			return ErrMalformed
		}
	}
	return nil
}

// parseStr reads the remainder of a quoted string whose opening quote has
// already been consumed, copying through the scratch buffer only when an
// escape sequence is encountered.
func (d *decoder) parseStr() (string, error) {
	var scratch []byte
	start := d.pos

	for {
		for d.pos < len(d.input) && !needsEscape[d.input[d.pos]] {
			d.pos++
		}
		if d.pos == len(d.input) {
			return "", ErrMalformed
		}
		run := d.input[start:d.pos]
		cur := d.input[d.pos]

		if cur != '\\' && cur != '"' {
			return "", ErrMalformed
		}
		d.pos++

		switch cur {
		case '\\':
			scratch = append(scratch, run...)
			esc, err := d.parseEscape()
			if err != nil {
				return "", err
			}
			scratch = append(scratch, esc)
			start = d.pos
		case '"':
			if scratch == nil {
				return string(run), nil
			}
			scratch = append(scratch, run...)
			return string(scratch), nil
		}
	}
}

func (d *decoder) parseEscape() (byte, error) {
	ch, ok := d.next()
	if !ok {
		return 0, ErrMalformed
	}
	switch ch {
	case '"':
		return '"', nil
	case '\\':
		return '\\', nil
	case '/':
		return '/', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	default:
		// \u and any other escape byte is a hard error: a deliberately
		// narrow subset, see the codec design notes.
		return 0, ErrMalformed
	}
}

// overflow reports whether a*10+b would exceed max for an unsigned
// accumulator bounded by max.
func overflowU64(a, b, max uint64) bool {
	return a > max/10 || (a == max/10 && b > max%10)
}

func overflowI32(a, b, max int32) bool {
	return a > max/10 || (a >= max/10 && b > max%10)
}

func (d *decoder) parseIntegerEvent(nonnegative bool, firstDigit byte) (event, error) {
	if !isDigit(firstDigit) {
		return event{}, ErrMalformed
	}
	if firstDigit == '0' {
		if isDigit(d.peekOrNull()) {
			return event{}, ErrMalformed
		}
		return d.parseNumber(nonnegative, 0)
	}

	// Non-negative integers widen to float once they pass MaxInt64; negative
	// magnitudes accumulate up to MaxUint64 and parseNumber handles the
	// MinInt64 boundary.
	limit := uint64(math.MaxUint64)
	if nonnegative {
		limit = math.MaxInt64
	}

	number := uint64(firstDigit - '0')
	for {
		b, ok := d.peek()
		if !ok || !isDigit(b) {
			break
		}
		d.advance()
		digit := uint64(b - '0')
		if overflowU64(number, digit, limit) {
			f, err := d.parseLongInteger(nonnegative, number)
			if err != nil {
				return event{}, err
			}
			return event{tag: evScalar, value: F64(f)}, nil
		}
		number = number*10 + digit
	}
	return d.parseNumber(nonnegative, number)
}

func (d *decoder) parseLongInteger(nonnegative bool, mantissa uint64) (float64, error) {
	base10Exp := int32(1)
	for isDigit(d.peekOrNull()) {
		d.advance()
		base10Exp++
	}
	switch d.peekOrNull() {
	case '.':
		return d.parseDecimal(nonnegative, mantissa, base10Exp)
	case 'e', 'E':
		return d.parseExponent(nonnegative, mantissa, base10Exp)
	default:
		return constructF64(nonnegative, mantissa, base10Exp)
	}
}

func (d *decoder) parseNumber(nonnegative bool, mantissa uint64) (event, error) {
	switch d.peekOrNull() {
	case '.':
		f, err := d.parseDecimal(nonnegative, mantissa, 0)
		if err != nil {
			return event{}, err
		}
		return event{tag: evScalar, value: F64(f)}, nil
	case 'e', 'E':
		f, err := d.parseExponent(nonnegative, mantissa, 0)
		if err != nil {
			return event{}, err
		}
		return event{tag: evScalar, value: F64(f)}, nil
	default:
		if nonnegative {
			return event{tag: evScalar, value: U64(mantissa)}, nil
		}
		neg := -int64(mantissa) // wraps on the MinInt64 boundary, matching the source's wrapping_neg
		if neg > 0 {
			return event{tag: evScalar, value: F64(-float64(mantissa))}, nil
		}
		return event{tag: evScalar, value: I64(neg)}, nil
	}
}

func (d *decoder) parseDecimal(nonnegative bool, mantissa uint64, base10Exp int32) (float64, error) {
	d.advance() // consume '.'

	atLeastOneDigit := false
	for {
		b := d.peekOrNull()
		if !isDigit(b) {
			break
		}
		d.advance()
		digit := uint64(b - '0')
		atLeastOneDigit = true

		if overflowU64(mantissa, digit, math.MaxUint64) {
			for isDigit(d.peekOrNull()) {
				d.advance()
			}
			break
		}
		mantissa = mantissa*10 + digit
		base10Exp--
	}
	if !atLeastOneDigit {
		return 0, ErrMalformed
	}

	switch d.peekOrNull() {
	case 'e', 'E':
		return d.parseExponent(nonnegative, mantissa, base10Exp)
	default:
		return constructF64(nonnegative, mantissa, base10Exp)
	}
}

func (d *decoder) parseExponent(nonnegative bool, mantissa uint64, startingExp int32) (float64, error) {
	d.advance() // consume 'e'/'E'

	isPositive := true
	switch d.peekOrNull() {
	case '+':
		d.advance()
	case '-':
		isPositive = false
		d.advance()
	}

	first, ok := d.next()
	if !ok || !isDigit(first) {
		return 0, ErrMalformed
	}
	exp := int32(first - '0')

	for {
		b := d.peekOrNull()
		if !isDigit(b) {
			break
		}
		d.advance()
		digit := int32(b - '0')

		if overflowI32(exp, digit, math.MaxInt32) {
			if mantissa != 0 && isPositive {
				return 0, ErrMalformed
			}
			for isDigit(d.peekOrNull()) {
				d.advance()
			}
			if nonnegative {
				return 0.0, nil
			}
			return math.Copysign(0, -1), nil
		}
		exp = exp*10 + digit
	}

	var finalExp int32
	if isPositive {
		finalExp = saturatingAddI32(startingExp, exp)
	} else {
		finalExp = saturatingSubI32(startingExp, exp)
	}
	return constructF64(nonnegative, mantissa, finalExp)
}

func saturatingAddI32(a, b int32) int32 {
	r := int64(a) + int64(b)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int32(r)
}

func saturatingSubI32(a, b int32) int32 {
	r := int64(a) - int64(b)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int32(r)
}

func constructF64(nonnegative bool, significand uint64, base10Exp int32) (float64, error) {
	f := float64(significand) * math.Pow(10, float64(base10Exp))
	if math.IsInf(f, 0) {
		return 0, ErrMalformed
	}
	if nonnegative {
		return f, nil
	}
	return -f, nil
}
