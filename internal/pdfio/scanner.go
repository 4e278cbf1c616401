package pdfio

// Content-stream scanner for the path and placement operators the layout
// engine cares about. It is not a full PDF interpreter: text showing,
// color, and clipping operators are consumed and ignored; only the current
// transformation matrix, straight path segments, and XObject placements
// are tracked.

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
)

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identityMatrix = matrix{1, 0, 0, 1, 0, 0}

// mul returns m applied before n, the PDF `cm` concatenation order.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// apply transforms a user-space point.
func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// segment is one straight path segment in page user space.
type segment struct {
	x1, y1, x2, y2 float64
}

// placement is one `Do` invocation with the CTM in effect, mapping the
// XObject's unit square into page user space.
type placement struct {
	name string
	ctm  matrix
}

// contentScanner walks a decoded content stream collecting segments and
// placements.
type contentScanner struct {
	reader *bufio.Reader

	operands []float64
	lastName string

	ctm      matrix
	ctmStack []matrix

	currentX, currentY float64
	startX, startY     float64
	hasPoint           bool

	segments   []segment
	placements []placement
}

func newContentScanner(r io.Reader) *contentScanner {
	return &contentScanner{
		reader: bufio.NewReader(r),
		ctm:    identityMatrix,
	}
}

// scan consumes the whole stream. Malformed trailing bytes end the scan
// without error: partial streams still yield the primitives seen so far.
func (s *contentScanner) scan() {
	for {
		tok, ok := s.next()
		if !ok {
			return
		}
		s.dispatch(tok)
	}
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

// next returns the next token as a raw string. Numbers, names, and
// operators come back verbatim; strings and hex strings come back as "()"
// placeholders since no consumer needs their content.
func (s *contentScanner) next() (string, bool) {
	c, err := s.skipToToken()
	if err != nil {
		return "", false
	}

	switch c {
	case '(':
		s.skipLiteralString()
		return "()", true
	case '<':
		if b, _ := s.reader.Peek(1); len(b) == 1 && b[0] == '<' {
			s.reader.ReadByte()
			return "<<", true
		}
		s.skipHexString()
		return "()", true
	case '>':
		if b, _ := s.reader.Peek(1); len(b) == 1 && b[0] == '>' {
			s.reader.ReadByte()
		}
		return ">>", true
	case '[', ']', '{', '}':
		return string(c), true
	case '/':
		return "/" + s.readRegular(), true
	}

	var buf bytes.Buffer
	buf.WriteByte(c)
	buf.WriteString(s.readRegular())
	return buf.String(), true
}

func (s *contentScanner) skipToToken() (byte, error) {
	for {
		c, err := s.reader.ReadByte()
		if err != nil {
			return 0, err
		}
		if isWhitespace(c) {
			continue
		}
		if c == '%' {
			for {
				c, err = s.reader.ReadByte()
				if err != nil {
					return 0, err
				}
				if c == '\n' || c == '\r' {
					break
				}
			}
			continue
		}
		return c, nil
	}
}

// readRegular consumes regular characters up to the next delimiter or
// whitespace.
func (s *contentScanner) readRegular() string {
	var buf bytes.Buffer
	for {
		b, err := s.reader.Peek(1)
		if err != nil || len(b) == 0 {
			break
		}
		if isWhitespace(b[0]) || isDelimiter(b[0]) {
			break
		}
		s.reader.ReadByte()
		buf.WriteByte(b[0])
	}
	return buf.String()
}

func (s *contentScanner) skipLiteralString() {
	depth := 1
	for depth > 0 {
		c, err := s.reader.ReadByte()
		if err != nil {
			return
		}
		switch c {
		case '\\':
			s.reader.ReadByte()
		case '(':
			depth++
		case ')':
			depth--
		}
	}
}

func (s *contentScanner) skipHexString() {
	for {
		c, err := s.reader.ReadByte()
		if err != nil || c == '>' {
			return
		}
	}
}

// skipInlineImage consumes a BI ... ID <binary> EI block.
func (s *contentScanner) skipInlineImage() {
	// Skip the parameter dictionary up to ID.
	for {
		tok, ok := s.next()
		if !ok {
			return
		}
		if tok == "ID" {
			break
		}
	}
	// Binary data runs until whitespace-delimited EI.
	var prev, prev2 byte
	for {
		c, err := s.reader.ReadByte()
		if err != nil {
			return
		}
		if c == 'I' && prev == 'E' && isWhitespace(prev2) {
			if b, _ := s.reader.Peek(1); len(b) == 0 || isWhitespace(b[0]) {
				return
			}
		}
		prev2 = prev
		prev = c
	}
}

func (s *contentScanner) popOperands(n int) []float64 {
	if len(s.operands) < n {
		s.operands = s.operands[:0]
		return nil
	}
	args := make([]float64, n)
	copy(args, s.operands[len(s.operands)-n:])
	s.operands = s.operands[:0]
	return args
}

func (s *contentScanner) moveTo(x, y float64) {
	tx, ty := s.ctm.apply(x, y)
	s.currentX, s.currentY = tx, ty
	s.startX, s.startY = tx, ty
	s.hasPoint = true
}

func (s *contentScanner) lineTo(x, y float64) {
	tx, ty := s.ctm.apply(x, y)
	if s.hasPoint {
		s.segments = append(s.segments, segment{s.currentX, s.currentY, tx, ty})
	}
	s.currentX, s.currentY = tx, ty
	s.hasPoint = true
}

func (s *contentScanner) closePath() {
	if s.hasPoint && (s.currentX != s.startX || s.currentY != s.startY) {
		s.segments = append(s.segments, segment{s.currentX, s.currentY, s.startX, s.startY})
		s.currentX, s.currentY = s.startX, s.startY
	}
}

// rectEdges emits the four edges of a `re` rectangle.
func (s *contentScanner) rectEdges(x, y, w, h float64) {
	corners := [4][2]float64{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
	var tx, ty [4]float64
	for i, c := range corners {
		tx[i], ty[i] = s.ctm.apply(c[0], c[1])
	}
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		s.segments = append(s.segments, segment{tx[i], ty[i], tx[j], ty[j]})
	}
	s.currentX, s.currentY = tx[0], ty[0]
	s.startX, s.startY = tx[0], ty[0]
	s.hasPoint = true
}

func (s *contentScanner) dispatch(tok string) {
	if tok == "" {
		return
	}
	if tok[0] == '/' {
		s.lastName = tok[1:]
		return
	}
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		s.operands = append(s.operands, v)
		return
	}

	switch tok {
	case "q":
		s.ctmStack = append(s.ctmStack, s.ctm)
		s.operands = s.operands[:0]
	case "Q":
		if n := len(s.ctmStack); n > 0 {
			s.ctm = s.ctmStack[n-1]
			s.ctmStack = s.ctmStack[:n-1]
		}
		s.operands = s.operands[:0]
	case "cm":
		if args := s.popOperands(6); args != nil {
			s.ctm = matrix{args[0], args[1], args[2], args[3], args[4], args[5]}.mul(s.ctm)
		}
	case "m":
		if args := s.popOperands(2); args != nil {
			s.moveTo(args[0], args[1])
		}
	case "l":
		if args := s.popOperands(2); args != nil {
			s.lineTo(args[0], args[1])
		}
	case "re":
		if args := s.popOperands(4); args != nil {
			s.rectEdges(args[0], args[1], args[2], args[3])
		}
	case "h":
		s.closePath()
		s.operands = s.operands[:0]
	case "c":
		// Curves move the current point without producing a segment.
		if args := s.popOperands(6); args != nil {
			s.currentX, s.currentY = s.ctm.apply(args[4], args[5])
		}
	case "v", "y":
		if args := s.popOperands(4); args != nil {
			s.currentX, s.currentY = s.ctm.apply(args[2], args[3])
		}
	case "Do":
		if s.lastName != "" {
			s.placements = append(s.placements, placement{name: s.lastName, ctm: s.ctm})
		}
		s.operands = s.operands[:0]
	case "BI":
		s.skipInlineImage()
		s.operands = s.operands[:0]
	default:
		// Every other operator just clears its operands.
		s.operands = s.operands[:0]
	}
}
