package object

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// Parse errors.
var (
	ErrSyntax        = errors.New("malformed PDF object")
	ErrUnexpectedEOF = errors.New("unexpected end of input")
)

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == 0 || b == '\f'
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Parser reads COS objects from an in-memory buffer. A zero Parser is
// not usable, construct with NewParser.
type Parser struct {
	data []byte
	pos  int

	// StreamLength resolves an indirect Length entry while parsing a
	// stream. When nil, streams with indirect lengths are recovered by
	// scanning for the endstream keyword.
	StreamLength func(Ref) (int64, bool)
}

// NewParser returns a parser positioned at offset 0 of data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Seek positions the parser at the given offset.
func (p *Parser) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(p.data)) {
		return fmt.Errorf("%w: offset %d out of range", ErrSyntax, offset)
	}
	p.pos = int(offset)
	return nil
}

// Pos returns the current offset.
func (p *Parser) Pos() int64 {
	return int64(p.pos)
}

func (p *Parser) byteAt(i int) (byte, bool) {
	if i < 0 || i >= len(p.data) {
		return 0, false
	}
	return p.data[i], true
}

func (p *Parser) peek() (byte, bool) {
	return p.byteAt(p.pos)
}

func (p *Parser) next() (byte, error) {
	b, ok := p.byteAt(p.pos)
	if !ok {
		return 0, ErrUnexpectedEOF
	}
	p.pos++
	return b, nil
}

// skipSpace advances past whitespace and comments.
func (p *Parser) skipSpace() {
	for {
		b, ok := p.peek()
		if !ok {
			return
		}
		if isWhitespace(b) {
			p.pos++
			continue
		}
		if b == '%' {
			for {
				c, ok := p.peek()
				if !ok || c == '\n' || c == '\r' {
					break
				}
				p.pos++
			}
			continue
		}
		return
	}
}

// Keyword reads a bare keyword token such as xref or trailer.
func (p *Parser) Keyword() string {
	return p.keyword()
}

// keyword reads a run of regular characters.
func (p *Parser) keyword() string {
	p.skipSpace()
	start := p.pos
	for {
		b, ok := p.peek()
		if !ok || isWhitespace(b) || isDelimiter(b) {
			break
		}
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// Parse reads the next object. Number sequences of the form "N G R"
// are returned as a Ref.
func (p *Parser) Parse() (Object, error) {
	p.skipSpace()
	b, ok := p.peek()
	if !ok {
		return nil, ErrUnexpectedEOF
	}

	switch {
	case b == '/':
		return p.parseName()
	case b == '(':
		return p.parseLiteralString()
	case b == '[':
		return p.parseArray()
	case b == '<':
		return p.parseHexOrDict()
	case b == '-' || b == '+' || b == '.':
		return p.parseNumber()
	case isDigit(b):
		return p.parseNumberOrRef()
	case b == 't' || b == 'f':
		return p.parseBool()
	case b == 'n':
		if kw := p.keyword(); kw == "null" {
			return Null{}, nil
		}
		return nil, fmt.Errorf("%w: expected null at offset %d", ErrSyntax, p.pos)
	}
	return nil, fmt.Errorf("%w: unexpected byte %q at offset %d", ErrSyntax, b, p.pos)
}

func (p *Parser) parseBool() (Object, error) {
	switch kw := p.keyword(); kw {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	default:
		return nil, fmt.Errorf("%w: bad keyword %q", ErrSyntax, kw)
	}
}

func (p *Parser) parseName() (Name, error) {
	if b, _ := p.next(); b != '/' {
		return "", fmt.Errorf("%w: expected name", ErrSyntax)
	}
	var buf bytes.Buffer
	for {
		b, ok := p.peek()
		if !ok || isWhitespace(b) || isDelimiter(b) {
			break
		}
		p.pos++
		if b == '#' {
			h1, err1 := p.next()
			h2, err2 := p.next()
			if err1 != nil || err2 != nil {
				return "", fmt.Errorf("%w: truncated name escape", ErrSyntax)
			}
			v, err := strconv.ParseUint(string([]byte{h1, h2}), 16, 8)
			if err != nil {
				return "", fmt.Errorf("%w: bad name escape", ErrSyntax)
			}
			buf.WriteByte(byte(v))
			continue
		}
		buf.WriteByte(b)
	}
	return Name(buf.String()), nil
}

func (p *Parser) parseLiteralString() (String, error) {
	if b, _ := p.next(); b != '(' {
		return String{}, fmt.Errorf("%w: expected string", ErrSyntax)
	}
	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		b, err := p.next()
		if err != nil {
			return String{}, fmt.Errorf("%w: unterminated string", ErrSyntax)
		}
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\\':
			if err := p.parseStringEscape(&buf); err != nil {
				return String{}, err
			}
		default:
			buf.WriteByte(b)
		}
	}
	return String{Data: buf.Bytes()}, nil
}

func (p *Parser) parseStringEscape(buf *bytes.Buffer) error {
	b, err := p.next()
	if err != nil {
		return fmt.Errorf("%w: truncated string escape", ErrSyntax)
	}
	switch b {
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
	case '(', ')', '\\':
		buf.WriteByte(b)
	case '\r':
		// Escaped line break continues the string.
		if n, ok := p.peek(); ok && n == '\n' {
			p.pos++
		}
	case '\n':
	default:
		if b >= '0' && b <= '7' {
			v := int(b - '0')
			for i := 0; i < 2; i++ {
				n, ok := p.peek()
				if !ok || n < '0' || n > '7' {
					break
				}
				p.pos++
				v = v<<3 | int(n-'0')
			}
			buf.WriteByte(byte(v))
		} else {
			buf.WriteByte(b)
		}
	}
	return nil
}

func (p *Parser) parseHexOrDict() (Object, error) {
	if b, _ := p.next(); b != '<' {
		return nil, fmt.Errorf("%w: expected '<'", ErrSyntax)
	}
	if b, ok := p.peek(); ok && b == '<' {
		p.pos++
		return p.parseDict()
	}
	return p.parseHexString()
}

func (p *Parser) parseHexString() (String, error) {
	var buf bytes.Buffer
	for {
		b, err := p.next()
		if err != nil {
			return String{}, fmt.Errorf("%w: unterminated hex string", ErrSyntax)
		}
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		buf.WriteByte(b)
	}
	s := buf.String()
	if len(s)%2 != 0 {
		s += "0"
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return String{}, fmt.Errorf("%w: bad hex string: %v", ErrSyntax, err)
	}
	return String{Data: data, Hex: true}, nil
}

func (p *Parser) parseDict() (*Dict, error) {
	dict := NewDict()
	for {
		p.skipSpace()
		b, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("%w: unterminated dictionary", ErrSyntax)
		}
		if b == '>' {
			p.pos++
			if n, err := p.next(); err != nil || n != '>' {
				return nil, fmt.Errorf("%w: expected '>>'", ErrSyntax)
			}
			return dict, nil
		}
		key, err := p.parseName()
		if err != nil {
			return nil, fmt.Errorf("%w: dictionary key: %v", ErrSyntax, err)
		}
		value, err := p.Parse()
		if err != nil {
			return nil, fmt.Errorf("dictionary value for /%s: %w", key, err)
		}
		dict.Set(key, value)
	}
}

func (p *Parser) parseArray() (Array, error) {
	if b, _ := p.next(); b != '[' {
		return nil, fmt.Errorf("%w: expected array", ErrSyntax)
	}
	var arr Array
	for {
		p.skipSpace()
		b, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("%w: unterminated array", ErrSyntax)
		}
		if b == ']' {
			p.pos++
			return arr, nil
		}
		o, err := p.Parse()
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", len(arr), err)
		}
		arr = append(arr, o)
	}
}

func (p *Parser) parseNumber() (Object, error) {
	p.skipSpace()
	start := p.pos
	real := false
	for {
		b, ok := p.peek()
		if !ok {
			break
		}
		switch {
		case b == '.' && !real:
			real = true
		case (b == '-' || b == '+') && p.pos == start:
		case isDigit(b):
		default:
			goto done
		}
		p.pos++
	}
done:
	s := string(p.data[start:p.pos])
	if s == "" || s == "-" || s == "+" || s == "." {
		return nil, fmt.Errorf("%w: bad number %q at offset %d", ErrSyntax, s, start)
	}
	if real {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, s)
		}
		return Real(v), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, s)
	}
	return Integer(v), nil
}

// parseNumberOrRef reads a number, then looks ahead for the "G R" tail
// that turns it into an indirect reference. The lookahead rewinds on
// any mismatch.
func (p *Parser) parseNumberOrRef() (Object, error) {
	first, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	num, ok := first.(Integer)
	if !ok || num < 0 {
		return first, nil
	}

	mark := p.pos
	p.skipSpace()
	if b, ok := p.peek(); !ok || !isDigit(b) {
		p.pos = mark
		return first, nil
	}
	second, err := p.parseNumber()
	if err != nil {
		p.pos = mark
		return first, nil
	}
	gen, ok := second.(Integer)
	if !ok {
		p.pos = mark
		return first, nil
	}
	p.skipSpace()
	if b, ok := p.peek(); ok && b == 'R' {
		// R must stand alone, not start a longer keyword.
		if n, ok := p.byteAt(p.pos + 1); !ok || isWhitespace(n) || isDelimiter(n) {
			p.pos++
			return Ref{Num: int(num), Gen: int(gen)}, nil
		}
	}
	p.pos = mark
	return first, nil
}

// ParseIndirect reads an indirect object definition starting at the
// current offset, including stream data when present.
func (p *Parser) ParseIndirect() (*Indirect, error) {
	numObj, err := p.parseNumber()
	if err != nil {
		return nil, fmt.Errorf("object number: %w", err)
	}
	num, ok := numObj.(Integer)
	if !ok {
		return nil, fmt.Errorf("%w: object number is not an integer", ErrSyntax)
	}
	genObj, err := p.parseNumber()
	if err != nil {
		return nil, fmt.Errorf("generation number: %w", err)
	}
	gen, ok := genObj.(Integer)
	if !ok {
		return nil, fmt.Errorf("%w: generation number is not an integer", ErrSyntax)
	}
	if kw := p.keyword(); kw != "obj" {
		return nil, fmt.Errorf("%w: expected obj, got %q", ErrSyntax, kw)
	}

	value, err := p.Parse()
	if err != nil {
		return nil, err
	}

	if dict, ok := value.(*Dict); ok {
		mark := p.pos
		if kw := p.keyword(); kw == "stream" {
			stream, err := p.parseStreamData(dict)
			if err != nil {
				return nil, err
			}
			value = stream
		} else {
			p.pos = mark
		}
	}

	mark := p.pos
	if kw := p.keyword(); kw != "endobj" {
		// Some producers omit endobj. Rewind so the next parse is not
		// thrown off.
		p.pos = mark
	}

	return &Indirect{Num: int(num), Gen: int(gen), Value: value}, nil
}

func (p *Parser) parseStreamData(dict *Dict) (*Stream, error) {
	// The stream keyword is followed by CRLF or LF, never a bare CR.
	if b, ok := p.peek(); ok && b == '\r' {
		p.pos++
	}
	if b, ok := p.peek(); ok && b == '\n' {
		p.pos++
	}

	length, ok := p.streamLength(dict)
	if !ok {
		return p.scanToEndstream(dict)
	}
	end := p.pos + int(length)
	if end > len(p.data) {
		return nil, fmt.Errorf("%w: stream length %d past end of input", ErrSyntax, length)
	}
	raw := make([]byte, length)
	copy(raw, p.data[p.pos:end])
	p.pos = end

	mark := p.pos
	if kw := p.keyword(); kw != "endstream" {
		// Length was wrong. Fall back to scanning from the stream start.
		p.pos = mark - int(length)
		return p.scanToEndstream(dict)
	}
	return NewStream(dict, raw), nil
}

func (p *Parser) streamLength(dict *Dict) (int64, bool) {
	if n, ok := dict.GetInt("Length"); ok {
		return n, true
	}
	if ref, ok := dict.GetRef("Length"); ok && p.StreamLength != nil {
		return p.StreamLength(ref)
	}
	return 0, false
}

// scanToEndstream recovers the stream body by searching for the next
// endstream keyword.
func (p *Parser) scanToEndstream(dict *Dict) (*Stream, error) {
	idx := bytes.Index(p.data[p.pos:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing endstream", ErrSyntax)
	}
	raw := p.data[p.pos : p.pos+idx]
	// Strip the EOL that precedes the keyword.
	if n := len(raw); n > 0 && raw[n-1] == '\n' {
		raw = raw[:n-1]
		if n := len(raw); n > 0 && raw[n-1] == '\r' {
			raw = raw[:n-1]
		}
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	p.pos += idx + len("endstream")
	return NewStream(dict, out), nil
}

// ReadLineBackward returns the line of text that ends at or before
// offset, used when walking the file tail for startxref.
func ReadLineBackward(data []byte, offset int) (string, int) {
	end := offset
	for end > 0 && (data[end-1] == '\n' || data[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && data[start-1] != '\n' && data[start-1] != '\r' {
		start--
	}
	return string(data[start:end]), start
}
