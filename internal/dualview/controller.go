// Package dualview keeps a decoded text view, a hex pane and an ASCII pane
// over one raw byte buffer.
//
// Every edit goes through the text surface. The synchronizer turns it into a
// byte splice, the panes are rendered again from the buffer and the active
// search is run again, so highlights always describe the current bytes.
// A Controller is not safe for concurrent use; only Prepared.Decode may run
// off the UI goroutine.
package dualview

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"pktedit/internal/buffer"
	"pktedit/internal/charset"
	"pktedit/internal/hexpane"
	"pktedit/internal/history"
	"pktedit/internal/search"
	"pktedit/internal/textdoc"
	"pktedit/internal/textsync"
	"pktedit/internal/truncate"
)

var (
	// ErrReadOnly is returned for edits on a truncated preview.
	ErrReadOnly = errors.New("payload is truncated; show all to edit")
	// ErrLoadPending is returned for edits while a load is in flight.
	ErrLoadPending = errors.New("load in progress")
)

type Controller struct {
	opts   Options
	logger *log.Logger

	buf  *buffer.Buffer
	doc  *textdoc.Document
	sync *textsync.Synchronizer
	hist *history.History
	hl   *search.Highlighter

	charsetName string
	codec       *charset.Codec

	payload  []byte
	original []byte
	decision truncate.Decision
	lossless bool

	hexText   string
	asciiText string

	query  string
	result search.Result

	generation uint64
	pending    bool

	listeners []func([]byte)

	splices []textsync.Splice
	editErr error
}

// New returns a Controller holding an empty payload.
func New(opts ...Option) (*Controller, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.normalize()

	codec, err := charset.Resolve(o.Charset, nil)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		opts:        o,
		logger:      o.Logger,
		buf:         buffer.New(),
		doc:         textdoc.New(),
		hist:        history.New(o.UndoLimit),
		hl:          search.NewHighlighter(o.SearchLimit, o.Logger),
		charsetName: o.Charset,
		codec:       codec,
		decision:    truncate.Full(nil),
		lossless:    true,
	}
	c.doc.SetChunk(o.LoadChunk)
	c.sync = textsync.New(c.buf, codec, o.Logger)
	c.doc.Listen(c.handleEvent)
	return c, nil
}

func (c *Controller) handleEvent(doc *textdoc.Document, ev textdoc.Event) {
	splice, err := c.sync.HandleEvent(doc, ev)
	if err != nil {
		if c.editErr == nil {
			c.editErr = err
		}
		return
	}
	if splice != nil {
		c.splices = append(c.splices, *splice)
	}
}

// OnDataChanged registers fn to be called with the new bytes after every
// completed edit, undo and redo.
func (c *Controller) OnDataChanged(fn func([]byte)) {
	c.listeners = append(c.listeners, fn)
}

// Bytes returns a copy of the current payload bytes.
func (c *Controller) Bytes() []byte {
	return c.buf.Bytes()
}

// ByteAt returns the byte at off, or false when off is outside the payload.
func (c *Controller) ByteAt(off int) (byte, bool) {
	return c.buf.GetByte(off)
}

func (c *Controller) Len() int {
	return c.buf.Len()
}

// Text returns the text surface content. For a truncated load it starts
// with the banner.
func (c *Controller) Text() string {
	return c.doc.Text()
}

// TextLen is the text surface length in runes.
func (c *Controller) TextLen() int {
	return c.doc.Len()
}

func (c *Controller) HexText() string {
	return c.hexText
}

func (c *Controller) ASCIIText() string {
	return c.asciiText
}

// Banner returns the truncation banner shown above a preview, or "".
func (c *Controller) Banner() string {
	if c.Truncated() {
		return truncate.Banner
	}
	return ""
}

// BannerLen is the number of leading text runes taken by the banner.
func (c *Controller) BannerLen() int {
	return len([]rune(c.Banner()))
}

func (c *Controller) Decision() truncate.Decision {
	return c.decision
}

func (c *Controller) Truncated() bool {
	return !c.decision.ShowFull
}

func (c *Controller) ReadOnly() bool {
	return c.Truncated()
}

// Pending reports whether a prepared load has not been completed yet.
func (c *Controller) Pending() bool {
	return c.pending
}

// Modified reports whether the bytes differ from what the last load placed
// in the buffer.
func (c *Controller) Modified() bool {
	return !bytes.Equal(c.buf.Bytes(), c.original)
}

// Lossless reports whether the loaded bytes decode and re-encode exactly in
// the active charset.
func (c *Controller) Lossless() bool {
	return c.lossless
}

// Charset is the name of the active codec.
func (c *Controller) Charset() string {
	return c.codec.Name()
}

// CharsetSetting is the configured charset, which may be charset.Auto.
func (c *Controller) CharsetSetting() string {
	return c.charsetName
}

func (c *Controller) State() textsync.State {
	return c.sync.State()
}

func (c *Controller) CanUndo() bool {
	return c.hist.CanUndo()
}

func (c *Controller) CanRedo() bool {
	return c.hist.CanRedo()
}

// Edit is one change to the text surface. Offset and Length are in runes;
// Length is ignored for inserts.
type Edit struct {
	Kind   textdoc.EventKind
	Offset int
	Length int
	Text   string
}

func (c *Controller) Insert(offset int, text string) error {
	return c.Apply(Edit{Kind: textdoc.EventInsert, Offset: offset, Text: text})
}

func (c *Controller) Remove(offset, length int) error {
	return c.Apply(Edit{Kind: textdoc.EventRemove, Offset: offset, Length: length})
}

// Apply performs a user edit. If the edit cannot be translated to bytes it
// is dropped, the text surface is restored to the last synchronized text
// and the error is returned.
func (c *Controller) Apply(e Edit) error {
	if err := c.editable(); err != nil {
		return err
	}

	c.splices = nil
	c.editErr = nil
	var err error
	switch e.Kind {
	case textdoc.EventInsert:
		err = c.doc.Insert(e.Offset, e.Text)
	case textdoc.EventRemove:
		err = c.doc.Remove(e.Offset, e.Length)
	default:
		err = fmt.Errorf("edit kind %v: %w", e.Kind, textsync.ErrOffset)
	}
	if err != nil {
		return err
	}
	if c.editErr != nil {
		err := c.editErr
		c.revert()
		return err
	}

	for _, s := range c.splices {
		c.hist.Record(s)
	}
	if len(c.splices) > 0 {
		c.changed()
	}
	return nil
}

func (c *Controller) editable() error {
	if c.pending {
		return ErrLoadPending
	}
	if c.ReadOnly() {
		return ErrReadOnly
	}
	return nil
}

// revert puts the last synchronized text back on the surface.
func (c *Controller) revert() {
	baseline := c.sync.Baseline()
	c.sync.BeginLoad(c.doc, len([]rune(baseline)))
	c.doc.SetText(baseline)
	c.editErr = nil
	c.splices = nil
}

// Undo reverts the latest edit. It reports false when there is nothing to
// undo.
func (c *Controller) Undo() (bool, error) {
	if err := c.editable(); err != nil {
		return false, err
	}
	s, ok := c.hist.Undo()
	if !ok {
		return false, nil
	}
	if err := c.replay(history.Invert(s)); err != nil {
		c.hist.Abandon(true)
		return false, err
	}
	c.changed()
	return true, nil
}

// Redo applies the latest undone edit again.
func (c *Controller) Redo() (bool, error) {
	if err := c.editable(); err != nil {
		return false, err
	}
	s, ok := c.hist.Redo()
	if !ok {
		return false, nil
	}
	if err := c.replay(s); err != nil {
		c.hist.Abandon(false)
		return false, err
	}
	c.changed()
	return true, nil
}

// replay applies s to the buffer byte for byte and then to the text surface
// with the synchronizer's replay guard armed, so the splice is not
// translated a second time.
func (c *Controller) replay(s textsync.Splice) error {
	n := s.TextLength()
	switch s.Kind {
	case textdoc.EventInsert:
		if s.TextOffset < 0 || s.TextOffset > c.doc.Len() || n == 0 {
			return fmt.Errorf("replay insert at %d: %w", s.TextOffset, textsync.ErrOffset)
		}
		if err := c.buf.Insert(s.ByteOffset, s.Bytes); err != nil {
			return err
		}
		c.sync.ArmReplay()
		return c.doc.Insert(s.TextOffset, s.Text)
	case textdoc.EventRemove:
		if s.TextOffset < 0 || s.TextOffset+n > c.doc.Len() || n == 0 {
			return fmt.Errorf("replay remove at %d: %w", s.TextOffset, textsync.ErrOffset)
		}
		if _, err := c.buf.Remove(s.ByteOffset, len(s.Bytes)); err != nil {
			return err
		}
		c.sync.ArmReplay()
		return c.doc.Remove(s.TextOffset, n)
	default:
		return fmt.Errorf("replay kind %v: %w", s.Kind, textsync.ErrOffset)
	}
}

func (c *Controller) changed() {
	data := c.buf.Bytes()
	c.hexText = hexpane.RenderHex(data)
	c.asciiText = hexpane.RenderASCII(data)
	c.refreshSearch()
	for _, fn := range c.listeners {
		fn(c.buf.Bytes())
	}
}

// Search runs query over the bytes and keeps it active: later edits run it
// again. An empty query clears the highlights.
func (c *Controller) Search(query string) search.Result {
	c.query = query
	c.refreshSearch()
	return c.result
}

// SearchResult is the result of the active search against the current bytes.
func (c *Controller) SearchResult() search.Result {
	return c.result
}

func (c *Controller) Query() string {
	return c.query
}

// SearchText finds query in the text surface; offsets are runes.
func (c *Controller) SearchText(query string) search.Result {
	return c.hl.FindText(c.doc.Text(), query)
}

func (c *Controller) refreshSearch() {
	if c.query == "" {
		c.result = search.Result{}
		return
	}
	c.result = c.hl.Run(c.buf.Bytes(), c.query, c.codec)
}

// Selection is one byte range projected into both panes.
type Selection struct {
	ByteStart  int
	ByteEnd    int
	HexStart   int
	HexEnd     int
	ASCIIStart int
	ASCIIEnd   int
}

func (c *Controller) selection(start, end int) Selection {
	sel := Selection{ByteStart: start, ByteEnd: end}
	sel.HexStart, sel.HexEnd = hexpane.HexSpan(start, end)
	sel.ASCIIStart, sel.ASCIIEnd = hexpane.ASCIISpan(start, end)
	return sel
}

// SelectionFromHex projects a hex pane selection onto the bytes and the
// ASCII pane.
func (c *Controller) SelectionFromHex(from, to int) Selection {
	start, end := hexpane.HexSelectionToBytes(from, to, c.buf.Len())
	return c.selection(start, end)
}

// SelectionFromASCII projects an ASCII pane selection onto the bytes and the
// hex pane.
func (c *Controller) SelectionFromASCII(from, to int) Selection {
	start, end := hexpane.ASCIISelectionToBytes(from, to, c.buf.Len())
	return c.selection(start, end)
}

// ByteOffsetOfText returns the byte offset at which text offset pos starts.
// It fails with textsync.ErrMismatch when the text before pos does not
// re-encode to the leading bytes.
func (c *Controller) ByteOffsetOfText(pos int) (int, error) {
	if pos < 0 || pos > c.doc.Len() {
		return 0, fmt.Errorf("text offset %d of %d: %w", pos, c.doc.Len(), textsync.ErrOffset)
	}
	prefix := c.doc.Runes()[c.BannerLen():max(pos, c.BannerLen())]
	b, err := c.codec.EncodeRunes(prefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", textsync.ErrEncode, err)
	}
	if len(b) > c.buf.Len() {
		return 0, fmt.Errorf("text offset %d: %w", pos, textsync.ErrMismatch)
	}
	if got, _ := c.buf.Slice(0, len(b)); !bytes.Equal(got, b) {
		return 0, fmt.Errorf("text offset %d: %w", pos, textsync.ErrMismatch)
	}
	return len(b), nil
}
