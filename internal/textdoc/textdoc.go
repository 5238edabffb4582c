// Package textdoc models the decoded text surface a host widget edits.
//
// A Document holds runes and notifies listeners after every change with the
// rune offset and length of the change, the same shape a GUI text component
// reports. SetText behaves like a widget's bulk setter: it emits one remove
// for the old content and then the new content as a series of inserts.
package textdoc

import (
	"errors"
	"fmt"
)

var ErrOffset = errors.New("text offset out of range")

type EventKind int

const (
	EventInsert EventKind = iota
	EventRemove
)

func (k EventKind) String() string {
	switch k {
	case EventInsert:
		return "insert"
	case EventRemove:
		return "remove"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes a change that has already been applied to the document.
// Offset and Length are in runes.
type Event struct {
	Kind   EventKind
	Offset int
	Length int
}

type Listener func(doc *Document, ev Event)

// DefaultChunk is the number of runes SetText delivers per insert event.
const DefaultChunk = 4096

type Document struct {
	text      []rune
	listeners []Listener
	chunk     int
}

func New() *Document {
	return &Document{chunk: DefaultChunk}
}

// SetChunk changes how many runes SetText delivers per insert event.
func (d *Document) SetChunk(n int) {
	if n <= 0 {
		n = DefaultChunk
	}
	d.chunk = n
}

func (d *Document) Listen(l Listener) {
	d.listeners = append(d.listeners, l)
}

func (d *Document) Len() int {
	return len(d.text)
}

func (d *Document) Text() string {
	return string(d.text)
}

// Runes returns a copy of the current text.
func (d *Document) Runes() []rune {
	result := make([]rune, len(d.text))
	copy(result, d.text)
	return result
}

// Slice returns the text in the rune range [from, to).
func (d *Document) Slice(from, to int) (string, error) {
	if from < 0 || to < from || to > len(d.text) {
		return "", fmt.Errorf("slice [%d, %d) of %d runes: %w", from, to, len(d.text), ErrOffset)
	}
	return string(d.text[from:to]), nil
}

func (d *Document) Insert(offset int, s string) error {
	if offset < 0 || offset > len(d.text) {
		return fmt.Errorf("insert at %d of %d runes: %w", offset, len(d.text), ErrOffset)
	}
	rs := []rune(s)
	if len(rs) == 0 {
		return nil
	}
	d.insertRunes(offset, rs)
	d.emit(Event{Kind: EventInsert, Offset: offset, Length: len(rs)})
	return nil
}

func (d *Document) Remove(offset, length int) error {
	if offset < 0 || length < 0 || offset+length > len(d.text) {
		return fmt.Errorf("remove %d runes at %d of %d: %w", length, offset, len(d.text), ErrOffset)
	}
	if length == 0 {
		return nil
	}
	d.text = append(d.text[:offset:offset], d.text[offset+length:]...)
	d.emit(Event{Kind: EventRemove, Offset: offset, Length: length})
	return nil
}

// SetText replaces the whole content, emitting a single remove for the old
// text (if any) followed by inserts of at most the chunk size.
func (d *Document) SetText(s string) {
	if n := len(d.text); n > 0 {
		d.text = d.text[:0]
		d.emit(Event{Kind: EventRemove, Offset: 0, Length: n})
	}
	rs := []rune(s)
	for start := 0; start < len(rs); start += d.chunk {
		end := start + d.chunk
		if end > len(rs) {
			end = len(rs)
		}
		d.insertRunes(start, rs[start:end])
		d.emit(Event{Kind: EventInsert, Offset: start, Length: end - start})
	}
}

func (d *Document) insertRunes(offset int, rs []rune) {
	newText := make([]rune, len(d.text)+len(rs))
	copy(newText, d.text[:offset])
	copy(newText[offset:], rs)
	copy(newText[offset+len(rs):], d.text[offset:])
	d.text = newText
}

func (d *Document) emit(ev Event) {
	for _, l := range d.listeners {
		l(d, ev)
	}
}
