// Package hexpane renders bytes as hex and ASCII panes and maps between byte
// offsets and character offsets in those panes.
//
// Each pane line holds BytesPerRow bytes followed by a line break. In the hex
// pane a byte takes HexChars characters (two digits and a space), so a full
// line is HexLine characters; in the ASCII pane a byte takes one character
// and a full line is ASCIILine characters.
package hexpane

import (
	"strings"
)

const (
	BytesPerRow = 16
	HexChars    = 3
	HexLine     = BytesPerRow*HexChars + 1
	ASCIILine   = BytesPerRow + 1
)

const hexDigits = "0123456789ABCDEF"

func ByteToHexPane(pos int) int {
	y := pos / BytesPerRow
	x := (pos - y*BytesPerRow) * HexChars
	return y*HexLine + x
}

func ByteToASCIIPane(pos int) int {
	y := pos / BytesPerRow
	x := pos - y*BytesPerRow
	return y*ASCIILine + x
}

func HexPaneToByte(pos int) int {
	y := pos / HexLine
	x := (pos - y*HexLine) / HexChars
	return y*BytesPerRow + x
}

func ASCIIPaneToByte(pos int) int {
	y := pos / ASCIILine
	x := pos - y*ASCIILine
	return y*BytesPerRow + x
}

// HexSpan returns the hex pane range covering bytes [start, end). The span
// ends after the last byte's second digit, so the trailing space is not
// included.
func HexSpan(start, end int) (int, int) {
	if end <= start {
		p := ByteToHexPane(start)
		return p, p
	}
	return ByteToHexPane(start), ByteToHexPane(end-1) + 2
}

// ASCIISpan returns the ASCII pane range covering bytes [start, end).
func ASCIISpan(start, end int) (int, int) {
	if end <= start {
		p := ByteToASCIIPane(start)
		return p, p
	}
	return ByteToASCIIPane(start), ByteToASCIIPane(end-1) + 1
}

// HexSelectionToBytes converts a hex pane selection [from, to) into the byte
// range it touches, clamped to a buffer of n bytes.
func HexSelectionToBytes(from, to, n int) (int, int) {
	if from > to {
		from, to = to, from
	}
	start := clamp(HexPaneToByte(max(from, 0)), n)
	if to <= from {
		return start, start
	}
	last := to - 1
	if last%HexLine == HexLine-1 {
		last--
	}
	end := clamp(HexPaneToByte(last)+1, n)
	return start, max(start, end)
}

// ASCIISelectionToBytes converts an ASCII pane selection [from, to) into the
// byte range it touches, clamped to a buffer of n bytes.
func ASCIISelectionToBytes(from, to, n int) (int, int) {
	if from > to {
		from, to = to, from
	}
	start := clamp(ASCIIPaneToByte(max(from, 0)), n)
	if to <= from {
		return start, start
	}
	last := to - 1
	// A selection ending on a line break does not take the next line's byte.
	if last%ASCIILine == BytesPerRow {
		last--
	}
	end := clamp(ASCIIPaneToByte(last)+1, n)
	return start, max(start, end)
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}

// Printable reports whether b is shown as itself in the ASCII pane.
func Printable(b byte) bool {
	return b >= 32 && b < 127
}

// RenderHex writes each byte as two upper-case digits and a space, with a
// line break after every BytesPerRow bytes.
func RenderHex(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data)*HexChars + len(data)/BytesPerRow)
	for i, b := range data {
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0f])
		sb.WriteByte(' ')
		if (i+1)%BytesPerRow == 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// RenderASCII writes printable bytes as themselves and others as '.', with
// a line break after every BytesPerRow bytes.
func RenderASCII(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) + len(data)/BytesPerRow)
	for i, b := range data {
		if Printable(b) {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
		if (i+1)%BytesPerRow == 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// HexLength is len(RenderHex(data)) for a buffer of n bytes.
func HexLength(n int) int {
	return n*HexChars + n/BytesPerRow
}
