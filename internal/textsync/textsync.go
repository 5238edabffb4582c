// Package textsync replays edits made on the decoded text surface onto the
// raw byte buffer.
//
// The Synchronizer is a two-state machine. While Loading, the text surface is
// being filled programmatically and its events are swallowed. Once the
// expected number of runes has arrived it moves to Editing, snapshots the
// text as its baseline and from then on turns every insert or remove into a
// byte splice. Byte offsets are always derived by encoding the baseline
// prefix, never by assuming one byte per rune, and an edit is refused when
// that encoding is not what the buffer holds.
package textsync

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"pktedit/internal/buffer"
	"pktedit/internal/charset"
	"pktedit/internal/logging"
	"pktedit/internal/textdoc"
)

var (
	// ErrEncode is returned when an edited fragment cannot be encoded in the
	// active charset.
	ErrEncode = errors.New("cannot encode edit")
	// ErrOffset is returned when an event does not fit the baseline or the
	// derived byte range does not fit the buffer.
	ErrOffset = errors.New("edit out of range")
	// ErrMismatch is returned when the re-encoded text in front of or under
	// an edit is not the bytes the buffer holds there, as happens after a
	// lossy decode or inside a stateful encoding's escape sequence.
	ErrMismatch = errors.New("text does not re-encode to the buffer bytes")
)

type State int

const (
	StateLoading State = iota
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateEditing:
		return "editing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Splice is one edit as applied to both spaces. Text is the inserted or
// removed text and Bytes its encoding.
type Splice struct {
	Kind       textdoc.EventKind
	TextOffset int
	Text       string
	ByteOffset int
	Bytes      []byte
}

func (s Splice) TextLength() int {
	return len([]rune(s.Text))
}

type Synchronizer struct {
	buf    *buffer.Buffer
	codec  *charset.Codec
	logger *log.Logger

	state    State
	expected int
	received int
	baseline []rune
	replay   bool
}

// New returns a Synchronizer in the Editing state with an empty baseline.
func New(buf *buffer.Buffer, codec *charset.Codec, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Synchronizer{
		buf:    buf,
		codec:  codec,
		logger: logger,
		state:  StateEditing,
	}
}

func (s *Synchronizer) State() State {
	return s.state
}

func (s *Synchronizer) Codec() *charset.Codec {
	return s.codec
}

// SetCodec changes the charset used for later edits. Callers reload the
// document afterwards so the baseline matches the new decoding.
func (s *Synchronizer) SetCodec(c *charset.Codec) {
	s.codec = c
}

// Baseline returns the text last reconciled with the buffer.
func (s *Synchronizer) Baseline() string {
	return string(s.baseline)
}

// BeginLoad enters Loading and waits for expected runes to arrive in doc.
// If doc is already empty and nothing is expected, the load is complete at
// once because the surface will emit no events.
func (s *Synchronizer) BeginLoad(doc *textdoc.Document, expected int) {
	s.replay = false
	s.expected = expected
	s.received = 0
	if expected == 0 && doc.Len() == 0 {
		s.finishLoad(doc)
		return
	}
	s.state = StateLoading
	s.logger.Debug("load started", "expected_runes", expected)
}

// ArmReplay marks the next event as the caller's own replay of a change it
// has already applied to the buffer. That event only moves the baseline.
func (s *Synchronizer) ArmReplay() {
	s.replay = true
}

// HandleEvent processes one event from doc. It returns the splice applied to
// the buffer, or nil when the event was swallowed. On error the buffer and
// the baseline are untouched and the caller must bring doc back to Baseline.
func (s *Synchronizer) HandleEvent(doc *textdoc.Document, ev textdoc.Event) (*Splice, error) {
	if s.state == StateLoading {
		if ev.Kind == textdoc.EventInsert {
			s.received += ev.Length
		}
		if s.received >= s.expected && doc.Len() == s.expected {
			s.finishLoad(doc)
		}
		return nil, nil
	}

	if s.replay {
		s.replay = false
		s.baseline = doc.Runes()
		return nil, nil
	}

	var (
		splice *Splice
		err    error
	)
	switch ev.Kind {
	case textdoc.EventInsert:
		splice, err = s.insert(doc, ev)
	case textdoc.EventRemove:
		splice, err = s.remove(ev)
	default:
		err = fmt.Errorf("event kind %v: %w", ev.Kind, ErrOffset)
	}
	if err != nil {
		s.logger.Warn("edit dropped",
			logging.FieldKind, ev.Kind,
			logging.FieldTextOffset, ev.Offset,
			logging.FieldTextLength, ev.Length,
			logging.FieldCharset, s.codec.Name(),
			logging.FieldError, err)
		return nil, err
	}

	s.baseline = doc.Runes()
	s.logger.Debug("edit applied",
		logging.FieldKind, splice.Kind,
		logging.FieldTextOffset, splice.TextOffset,
		logging.FieldByteOffset, splice.ByteOffset,
		logging.FieldByteLength, len(splice.Bytes))
	return splice, nil
}

func (s *Synchronizer) insert(doc *textdoc.Document, ev textdoc.Event) (*Splice, error) {
	if ev.Offset < 0 || ev.Length <= 0 || ev.Offset > len(s.baseline) ||
		len(s.baseline)+ev.Length != doc.Len() {
		return nil, fmt.Errorf("insert %d runes at %d over %d: %w", ev.Length, ev.Offset, len(s.baseline), ErrOffset)
	}
	text, err := doc.Slice(ev.Offset, ev.Offset+ev.Length)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOffset, err)
	}

	byteOffset, err := s.byteOffset(ev.Offset)
	if err != nil {
		return nil, err
	}
	encoded, err := s.codec.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if err := s.buf.Insert(byteOffset, encoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOffset, err)
	}

	return &Splice{
		Kind:       textdoc.EventInsert,
		TextOffset: ev.Offset,
		Text:       text,
		ByteOffset: byteOffset,
		Bytes:      encoded,
	}, nil
}

func (s *Synchronizer) remove(ev textdoc.Event) (*Splice, error) {
	if ev.Offset < 0 || ev.Length <= 0 || ev.Offset+ev.Length > len(s.baseline) {
		return nil, fmt.Errorf("remove %d runes at %d over %d: %w", ev.Length, ev.Offset, len(s.baseline), ErrOffset)
	}

	byteOffset, err := s.byteOffset(ev.Offset)
	if err != nil {
		return nil, err
	}
	removedText := s.baseline[ev.Offset : ev.Offset+ev.Length]
	encoded, err := s.codec.EncodeRunes(removedText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if err := s.verify(byteOffset, encoded); err != nil {
		return nil, err
	}
	removed, err := s.buf.Remove(byteOffset, len(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOffset, err)
	}

	return &Splice{
		Kind:       textdoc.EventRemove,
		TextOffset: ev.Offset,
		Text:       string(removedText),
		ByteOffset: byteOffset,
		Bytes:      removed,
	}, nil
}

// byteOffset encodes the baseline prefix [0, offset) and returns its length.
func (s *Synchronizer) byteOffset(offset int) (int, error) {
	prefix, err := s.codec.EncodeRunes(s.baseline[:offset])
	if err != nil {
		return 0, fmt.Errorf("%w: prefix: %v", ErrEncode, err)
	}
	if len(prefix) > s.buf.Len() {
		return 0, fmt.Errorf("prefix of %d bytes over buffer of %d: %w", len(prefix), s.buf.Len(), ErrOffset)
	}
	if err := s.verify(0, prefix); err != nil {
		return 0, err
	}
	return len(prefix), nil
}

// verify checks that the buffer holds exactly want at offset.
func (s *Synchronizer) verify(offset int, want []byte) error {
	got, err := s.buf.Slice(offset, offset+len(want))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%d bytes at %d: %w", len(want), offset, ErrMismatch)
	}
	return nil
}

func (s *Synchronizer) finishLoad(doc *textdoc.Document) {
	s.state = StateEditing
	s.baseline = doc.Runes()
	s.logger.Debug("load finished", "runes", len(s.baseline))
}
