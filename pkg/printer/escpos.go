package printer

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ESC/POS control bytes
const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// Text alignment
const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

// Character size
const (
	FontNormal = 0x00
	FontDouble = 0x11 // double width and height
)

// Document builds an ESC/POS byte stream for a receipt printer. Column
// widths are counted in runes so accented product names line up.
type Document struct {
	buf   bytes.Buffer
	width int
}

// NewDocument starts a document for paper holding width characters per
// line: 32 on 58mm rolls, 48 on 80mm rolls.
func NewDocument(width int) *Document {
	if width <= 0 {
		width = 32
	}
	d := &Document{width: width}
	d.buf.Write([]byte{esc, '@'})
	return d
}

func (d *Document) LineFeed() *Document {
	d.buf.WriteByte(lf)
	return d
}

func (d *Document) FeedLines(n int) *Document {
	d.buf.Write(bytes.Repeat([]byte{lf}, n))
	return d
}

func (d *Document) SetAlign(align int) *Document {
	d.buf.Write([]byte{esc, 'a', byte(align)})
	return d
}

func (d *Document) SetBold(on bool) *Document {
	var b byte
	if on {
		b = 1
	}
	d.buf.Write([]byte{esc, 'E', b})
	return d
}

func (d *Document) SetFontSize(size byte) *Document {
	d.buf.Write([]byte{gs, '!', size})
	return d
}

// Text writes s on its own line
func (d *Document) Text(s string) *Document {
	d.buf.WriteString(s)
	d.buf.WriteByte(lf)
	return d
}

func (d *Document) TextF(format string, args ...any) *Document {
	return d.Text(fmt.Sprintf(format, args...))
}

// Separator fills a line with ch
func (d *Document) Separator(ch rune) *Document {
	return d.Text(strings.Repeat(string(ch), d.width))
}

// KeyValue writes key on the left and value flush right
func (d *Document) KeyValue(key, value string) *Document {
	return d.columns(key, value)
}

// ItemLine writes "<qty>x <name>" with the line total flush right. Names
// too long for the line are cut and marked with "~".
func (d *Document) ItemLine(qty, name, total string) *Document {
	left := qty + "x " + name
	if limit := d.width - utf8.RuneCountInString(total) - 1; limit > 3 {
		left = truncate(left, limit)
	}
	return d.columns(left, total)
}

func (d *Document) columns(left, right string) *Document {
	gap := d.width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return d.Text(left + strings.Repeat(" ", gap) + right)
}

// PartialCut feeds the paper to the cutter and leaves a hinge.
func (d *Document) PartialCut() *Document {
	d.buf.Write([]byte{gs, 'V', 0x01})
	return d
}

func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

// truncate shortens s to at most n runes, marking the cut with "~"
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "~"
}
