package raster

import (
	"bytes"
	"strconv"
)

// tokenType classifies content stream tokens.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenNumber
	tokenString
	tokenName
	tokenOperator
	tokenArrayStart
	tokenArrayEnd
	tokenDictStart
	tokenDictEnd
)

type token struct {
	typ   tokenType
	value string
	num   float64
}

// name is a PDF name operand without its leading solidus.
type name string

// contentLexer tokenizes a decoded page content stream.
type contentLexer struct {
	data []byte
	pos  int
}

func newContentLexer(data []byte) *contentLexer {
	return &contentLexer{data: data}
}

func isWhitespace(ch byte) bool {
	return ch == 0 || ch == '\t' || ch == '\n' || ch == '\f' || ch == '\r' || ch == ' '
}

func isDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(ch byte) bool {
	return !isWhitespace(ch) && !isDelimiter(ch)
}

func (l *contentLexer) current() byte {
	if l.pos >= len(l.data) {
		return 0
	}
	return l.data[l.pos]
}

func (l *contentLexer) peek() byte {
	if l.pos+1 >= len(l.data) {
		return 0
	}
	return l.data[l.pos+1]
}

func (l *contentLexer) skipSpaceAndComments() {
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		switch {
		case isWhitespace(ch):
			l.pos++
		case ch == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// next returns the next token. Malformed input never fails; unknown bytes
// become operators that the interpreter ignores.
func (l *contentLexer) next() token {
	l.skipSpaceAndComments()
	if l.pos >= len(l.data) {
		return token{typ: tokenEOF}
	}

	switch ch := l.current(); ch {
	case '(':
		return l.readLiteralString()
	case '<':
		if l.peek() == '<' {
			l.pos += 2
			return token{typ: tokenDictStart}
		}
		return l.readHexString()
	case '>':
		l.pos++
		if l.current() == '>' {
			l.pos++
		}
		return token{typ: tokenDictEnd}
	case '[':
		l.pos++
		return token{typ: tokenArrayStart}
	case ']':
		l.pos++
		return token{typ: tokenArrayEnd}
	case '/':
		return l.readName()
	case '{', '}', ')':
		l.pos++
		return token{typ: tokenOperator, value: string(ch)}
	default:
		if (ch >= '0' && ch <= '9') || ch == '+' || ch == '-' || ch == '.' {
			return l.readNumber()
		}
		return l.readKeyword()
	}
}

func (l *contentLexer) readLiteralString() token {
	var buf bytes.Buffer
	l.pos++
	depth := 1

	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		switch {
		case ch == '(':
			depth++
			buf.WriteByte(ch)
		case ch == ')':
			depth--
			if depth == 0 {
				l.pos++
				return token{typ: tokenString, value: buf.String()}
			}
			buf.WriteByte(ch)
		case ch == '\\':
			l.pos++
			if l.pos >= len(l.data) {
				break
			}
			esc := l.data[l.pos]
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if l.peek() == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if esc >= '0' && esc <= '7' {
					end := l.pos + 1
					for end < len(l.data) && end < l.pos+3 && l.data[end] >= '0' && l.data[end] <= '7' {
						end++
					}
					v, _ := strconv.ParseUint(string(l.data[l.pos:end]), 8, 16)
					buf.WriteByte(byte(v))
					l.pos = end - 1
				} else {
					buf.WriteByte(esc)
				}
			}
		default:
			buf.WriteByte(ch)
		}
		l.pos++
	}
	return token{typ: tokenString, value: buf.String()}
}

func (l *contentLexer) readHexString() token {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if ch := l.data[l.pos]; !isWhitespace(ch) {
			digits = append(digits, ch)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return token{typ: tokenString, value: string(out)}
}

func (l *contentLexer) readName() token {
	l.pos++
	var buf bytes.Buffer
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		ch := l.data[l.pos]
		if ch == '#' && l.pos+2 < len(l.data) {
			if v, err := strconv.ParseUint(string(l.data[l.pos+1:l.pos+3]), 16, 8); err == nil {
				buf.WriteByte(byte(v))
				l.pos += 3
				continue
			}
		}
		buf.WriteByte(ch)
		l.pos++
	}
	return token{typ: tokenName, value: buf.String()}
}

func (l *contentLexer) readNumber() token {
	start := l.pos
	if ch := l.current(); ch == '+' || ch == '-' {
		l.pos++
	}
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if (ch >= '0' && ch <= '9') || ch == '.' {
			l.pos++
			continue
		}
		break
	}
	text := string(l.data[start:l.pos])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// A lone sign or dot reads as zero.
		v = 0
	}
	return token{typ: tokenNumber, value: text, num: v}
}

func (l *contentLexer) readKeyword() token {
	start := l.pos
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		l.pos++
	}
	return token{typ: tokenOperator, value: string(l.data[start:l.pos])}
}

// skipInlineImage advances past the binary data of an inline image, which
// follows the ID operator and ends at an EI keyword.
func (l *contentLexer) skipInlineImage() {
	if l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	for l.pos+1 < len(l.data) {
		if l.data[l.pos] == 'E' && l.data[l.pos+1] == 'I' &&
			(l.pos == 0 || isWhitespace(l.data[l.pos-1])) &&
			(l.pos+2 >= len(l.data) || !isRegular(l.data[l.pos+2])) {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.pos = len(l.data)
}

// operation is one operator with its operands.
type operation struct {
	operator string
	operands []any
}

// parseOperations splits a content stream into operations. Operands are
// float64, string, name or []any for arrays; dictionaries are dropped.
func parseOperations(data []byte) []operation {
	l := newContentLexer(data)
	var ops []operation
	var operands []any

	for {
		tok := l.next()
		switch tok.typ {
		case tokenEOF:
			return ops
		case tokenNumber:
			operands = append(operands, tok.num)
		case tokenString:
			operands = append(operands, tok.value)
		case tokenName:
			operands = append(operands, name(tok.value))
		case tokenArrayStart:
			operands = append(operands, l.readArray())
		case tokenDictStart:
			l.skipDict()
			operands = append(operands, nil)
		case tokenArrayEnd, tokenDictEnd:
		case tokenOperator:
			switch tok.value {
			case "true":
				operands = append(operands, true)
				continue
			case "false":
				operands = append(operands, false)
				continue
			case "null":
				operands = append(operands, nil)
				continue
			case "BI":
				for t := l.next(); t.typ != tokenEOF && !(t.typ == tokenOperator && t.value == "ID"); t = l.next() {
				}
				l.skipInlineImage()
				operands = operands[:0]
				continue
			}
			ops = append(ops, operation{operator: tok.value, operands: operands})
			operands = nil
		}
	}
}

func (l *contentLexer) readArray() []any {
	var out []any
	for {
		tok := l.next()
		switch tok.typ {
		case tokenEOF, tokenArrayEnd:
			return out
		case tokenNumber:
			out = append(out, tok.num)
		case tokenString:
			out = append(out, tok.value)
		case tokenName:
			out = append(out, name(tok.value))
		case tokenArrayStart:
			out = append(out, l.readArray())
		case tokenDictStart:
			l.skipDict()
		}
	}
}

func (l *contentLexer) skipDict() {
	depth := 1
	for depth > 0 {
		switch l.next().typ {
		case tokenEOF:
			return
		case tokenDictStart:
			depth++
		case tokenDictEnd:
			depth--
		}
	}
}
