package dualview

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pktedit/internal/charset"
	"pktedit/internal/hexpane"
	"pktedit/internal/logging"
	"pktedit/internal/textsync"
	"pktedit/internal/truncate"
)

func newController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestNewIsEmpty(t *testing.T) {
	c := newController(t)
	assert.Empty(t, c.Bytes())
	assert.Equal(t, "", c.Text())
	assert.False(t, c.Truncated())
	assert.False(t, c.Modified())
	assert.Equal(t, textsync.StateEditing, c.State())
	assert.Equal(t, "UTF-8", c.Charset())
}

func TestNewUnknownCharset(t *testing.T) {
	_, err := New(WithCharset("klingon"), WithLogger(logging.Discard()))
	assert.True(t, errors.Is(err, charset.ErrUnknownCharset))
}

func TestLoadRendersAllViews(t *testing.T) {
	c := newController(t)
	payload := []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")
	require.NoError(t, c.Load(payload))

	assert.Equal(t, payload, c.Bytes())
	assert.Equal(t, string(payload), c.Text())
	assert.Equal(t, hexpane.RenderHex(payload), c.HexText())
	assert.Equal(t, hexpane.RenderASCII(payload), c.ASCIIText())
	assert.True(t, c.Lossless())
	assert.False(t, c.Modified())
}

func TestByteAt(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Load([]byte{0x00, 0xAB}))

	b, ok := c.ByteAt(1)
	assert.True(t, ok)
	assert.Equal(t, byte(0xAB), b)
	_, ok = c.ByteAt(2)
	assert.False(t, ok)
	_, ok = c.ByteAt(-1)
	assert.False(t, ok)
}

func TestLoadIsIdempotent(t *testing.T) {
	c := newController(t)
	payload := []byte("héllo\x00\x01 wörld 日本")

	require.NoError(t, c.Load(payload))
	text, hex, ascii, data := c.Text(), c.HexText(), c.ASCIIText(), c.Bytes()

	require.NoError(t, c.Load(payload))
	assert.Equal(t, text, c.Text())
	assert.Equal(t, hex, c.HexText())
	assert.Equal(t, ascii, c.ASCIIText())
	assert.Equal(t, data, c.Bytes())
}

func TestMultibyteInsert(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Load([]byte("abcde日fg")))

	require.NoError(t, c.Insert(5, "X"))
	assert.Equal(t, []byte("abcdeX日fg"), c.Bytes())

	off, err := c.ByteOffsetOfText(7)
	require.NoError(t, err)
	assert.Equal(t, 9, off)
}

func TestUndoRedoScenario(t *testing.T) {
	c := newController(t)
	original := []byte("abcdef")
	require.NoError(t, c.Load(original))

	require.NoError(t, c.Insert(3, "X"))
	inserted := c.Bytes()
	assert.Equal(t, []byte("abcXdef"), inserted)
	assert.True(t, c.CanUndo())

	ok, err := c.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original, c.Bytes())
	assert.Equal(t, string(original), c.Text())
	assert.False(t, c.Modified())

	ok, err = c.Redo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, inserted, c.Bytes())
	assert.Equal(t, "abcXdef", c.Text())

	// Editing after undo/redo still translates correctly.
	require.NoError(t, c.Remove(0, 1))
	assert.Equal(t, []byte("bcXdef"), c.Bytes())
}

func TestUndoRemoveRestoresExactBytes(t *testing.T) {
	c := newController(t)
	payload := []byte("ab日本c")
	require.NoError(t, c.Load(payload))

	require.NoError(t, c.Remove(2, 2))
	assert.Equal(t, []byte("abc"), c.Bytes())

	ok, err := c.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, c.Bytes())
	assert.Equal(t, "ab日本c", c.Text())
}

func TestUndoNothing(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Load([]byte("x")))

	ok, err := c.Undo()
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = c.Redo()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadResetsHistory(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Load([]byte("abc")))
	require.NoError(t, c.Insert(0, "z"))
	require.NoError(t, c.Load([]byte("abc")))
	assert.False(t, c.CanUndo())
}

func TestUndoLimit(t *testing.T) {
	c := newController(t, WithUndoLimit(2))
	require.NoError(t, c.Load(nil))
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, c.Insert(c.TextLen(), s))
	}
	for c.CanUndo() {
		_, err := c.Undo()
		require.NoError(t, err)
	}
	assert.Equal(t, []byte("a"), c.Bytes())
}

func TestDataChangedOncePerEdit(t *testing.T) {
	c := newController(t)
	var got [][]byte
	c.OnDataChanged(func(b []byte) {
		got = append(got, b)
	})

	require.NoError(t, c.Load([]byte("abc")))
	assert.Empty(t, got, "loading is not an edit")

	require.NoError(t, c.Insert(1, "XY"))
	require.NoError(t, c.Remove(0, 1))
	_, err := c.Undo()
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []byte("aXYbc"), got[0])
	assert.Equal(t, []byte("XYbc"), got[1])
	assert.Equal(t, []byte("aXYbc"), got[2])

	// Listeners receive their own copy.
	got[0][0] = 'z'
	assert.Equal(t, []byte("aXYbc"), c.Bytes())
}

func TestEncodeFailureRevertsText(t *testing.T) {
	c := newController(t, WithCharset("ISO-8859-1"))
	require.NoError(t, c.Load([]byte("caf\xe9")))
	changed := 0
	c.OnDataChanged(func([]byte) { changed++ })

	err := c.Insert(2, "日")
	require.Error(t, err)
	assert.True(t, errors.Is(err, textsync.ErrEncode))
	assert.Equal(t, "café", c.Text())
	assert.Equal(t, []byte("caf\xe9"), c.Bytes())
	assert.Equal(t, 0, changed)
	assert.False(t, c.CanUndo())

	// The view is usable again.
	require.NoError(t, c.Insert(4, "!"))
	assert.Equal(t, []byte("caf\xe9!"), c.Bytes())
}

func TestLossyPayloadEditsNeverDiverge(t *testing.T) {
	payload := []byte{0xFF, 'a', 'b', 'c', 'd', 'e'}
	c := newController(t)
	require.NoError(t, c.Load(payload))
	require.False(t, c.Lossless())
	text := c.Text()

	off, err := c.ByteOffsetOfText(0)
	require.NoError(t, err)
	assert.Equal(t, 0, off)
	_, err = c.ByteOffsetOfText(1)
	assert.True(t, errors.Is(err, textsync.ErrMismatch), "got %v", err)

	err = c.Insert(1, "X")
	assert.True(t, errors.Is(err, textsync.ErrMismatch), "got %v", err)
	assert.Equal(t, payload, c.Bytes())
	assert.Equal(t, text, c.Text())

	err = c.Remove(0, 1)
	assert.True(t, errors.Is(err, textsync.ErrMismatch), "got %v", err)
	assert.Equal(t, payload, c.Bytes())
	assert.Equal(t, text, c.Text())
	assert.False(t, c.CanUndo())

	// Edits in front of the undecodable byte still land.
	require.NoError(t, c.Insert(0, "Z"))
	assert.Equal(t, append([]byte("Z"), payload...), c.Bytes())
}

func TestISO2022JPEditInsideRunReverts(t *testing.T) {
	payload := []byte("\x1b$BF|K\\\x1b(Babc")
	c := newController(t, WithCharset("ISO-2022-JP"))
	require.NoError(t, c.Load(payload))
	require.True(t, c.Lossless())
	require.Equal(t, "日本abc", c.Text())

	err := c.Insert(1, "X")
	assert.True(t, errors.Is(err, textsync.ErrMismatch), "got %v", err)
	assert.Equal(t, payload, c.Bytes())
	assert.Equal(t, "日本abc", c.Text())

	require.NoError(t, c.Insert(5, "!"))
	assert.Equal(t, append(append([]byte(nil), payload...), '!'), c.Bytes())
}

func TestOutOfRangeEdit(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Load([]byte("abc")))

	assert.Error(t, c.Insert(10, "x"))
	assert.Error(t, c.Remove(2, 5))
	assert.Equal(t, []byte("abc"), c.Bytes())
	assert.Equal(t, "abc", c.Text())
}

func truncatingController(t *testing.T) *Controller {
	t.Helper()
	return newController(t,
		WithThresholds(truncate.Thresholds{Text: 10, Binary: 5, Preview: 4}),
		WithClassifier(func([]byte) bool { return false }),
	)
}

func TestTruncationBoundary(t *testing.T) {
	c := truncatingController(t)

	exact := []byte("0123456789")
	require.NoError(t, c.Load(exact))
	assert.False(t, c.Truncated())
	assert.Equal(t, exact, c.Bytes())
	assert.Equal(t, "", c.Banner())

	over := []byte("0123456789A")
	require.NoError(t, c.Load(over))
	assert.True(t, c.Truncated())
	assert.True(t, c.ReadOnly())
	assert.Equal(t, []byte("0123"), c.Bytes())
	assert.Equal(t, truncate.Banner+"0123", c.Text())
	assert.Equal(t, truncate.Banner, c.Banner())
	assert.Equal(t, hexpane.RenderHex([]byte("0123")), c.HexText())
	assert.Equal(t, 10, c.Decision().Threshold)
}

func TestTruncatedIsReadOnlyUntilShowAll(t *testing.T) {
	c := truncatingController(t)
	full := []byte("0123456789ABCDEF")
	require.NoError(t, c.Load(full))

	assert.True(t, errors.Is(c.Insert(0, "x"), ErrReadOnly))
	assert.True(t, errors.Is(c.Remove(0, 1), ErrReadOnly))
	_, err := c.Undo()
	assert.True(t, errors.Is(err, ErrReadOnly))

	require.NoError(t, c.ShowAll())
	assert.False(t, c.Truncated())
	assert.Equal(t, full, c.Bytes())
	assert.Equal(t, string(full), c.Text())
	assert.False(t, c.Modified())

	require.NoError(t, c.Insert(0, "x"))
	assert.Equal(t, append([]byte("x"), full...), c.Bytes())

	// Show all is not re-applied to the same load.
	require.NoError(t, c.ShowAll())
	assert.Equal(t, append([]byte("x"), full...), c.Bytes())
}

func TestBinaryThreshold(t *testing.T) {
	c := newController(t,
		WithThresholds(truncate.Thresholds{Text: 100, Binary: 40, Preview: 8}),
		WithClassifier(truncate.HeuristicClassifier),
	)

	require.NoError(t, c.Load(make([]byte, 40)))
	assert.False(t, c.Truncated())

	require.NoError(t, c.Load(make([]byte, 41)))
	assert.True(t, c.Truncated())
	assert.True(t, c.Decision().Binary)
	assert.Equal(t, 8, c.Len())
}

func TestStaleLoadDiscarded(t *testing.T) {
	c := newController(t)
	first := c.Prepare([]byte("first"))
	second := c.Prepare([]byte("second"))
	assert.True(t, c.Pending())
	assert.True(t, errors.Is(c.Insert(0, "x"), ErrLoadPending))

	done := make(chan error, 2)
	go func() { done <- first.Decode() }()
	go func() { done <- second.Decode() }()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	assert.True(t, errors.Is(c.Complete(first), ErrStaleLoad))
	assert.True(t, c.Pending())
	assert.Empty(t, c.Bytes())

	require.NoError(t, c.Complete(second))
	assert.False(t, c.Pending())
	assert.Equal(t, []byte("second"), c.Bytes())
	assert.Greater(t, second.Generation(), first.Generation())

	// A later Load supersedes a prepared one.
	third := c.Prepare([]byte("third"))
	require.NoError(t, c.Load([]byte("fourth")))
	assert.True(t, errors.Is(c.Complete(third), ErrStaleLoad))
	assert.Equal(t, []byte("fourth"), c.Bytes())
}

func TestSearchScenario(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Load([]byte{0xaa, 0xbb, 0xcc, 0xaa, 0xbb}))

	res := c.Search("AABB")
	require.Len(t, res.Occurrences, 2)
	assert.Equal(t, 0, res.Occurrences[0].Start)
	assert.Equal(t, 3, res.Occurrences[1].Start)
	for _, r := range res.Regions {
		assert.Equal(t, hexpane.ByteToHexPane(r.Start), r.HexStart)
		assert.Equal(t, hexpane.ByteToASCIIPane(r.Start), r.ASCIIStart)
		assert.Equal(t, "AA BB", c.HexText()[r.HexStart:r.HexEnd])
	}
}

func TestSearchRerunsAfterEdit(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Load([]byte("xxGETxxGET")))

	res := c.Search("GET")
	require.Len(t, res.Occurrences, 2)
	assert.Equal(t, 2, res.Occurrences[0].Start)

	require.NoError(t, c.Insert(0, "GET "))
	res = c.SearchResult()
	require.Len(t, res.Occurrences, 3)
	assert.Equal(t, 0, res.Occurrences[0].Start)
	assert.Equal(t, 6, res.Occurrences[1].Start)

	require.NoError(t, c.Remove(0, 4))
	assert.Len(t, c.SearchResult().Occurrences, 2)

	c.Search("")
	assert.Empty(t, c.SearchResult().Regions)
	assert.Equal(t, "", c.Query())
}

func TestSearchLimit(t *testing.T) {
	c := newController(t, WithSearchLimit(10))
	require.NoError(t, c.Load([]byte("abcdefgh")))
	res := c.Search("abc")
	assert.True(t, res.Skipped)
	assert.Equal(t, "Too Long", res.Status())
}

func TestSearchText(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Load([]byte("日本語と日本")))
	res := c.SearchText("日本")
	require.Len(t, res.Occurrences, 2)
	assert.Equal(t, 4, res.Occurrences[1].Start)
}

func TestSetCharset(t *testing.T) {
	sjis, err := charset.Lookup("Shift_JIS")
	require.NoError(t, err)
	payload, err := sjis.Encode("こんにちは")
	require.NoError(t, err)

	c := newController(t)
	require.NoError(t, c.Load(payload))
	assert.False(t, c.Lossless())

	require.NoError(t, c.SetCharset("Shift_JIS"))
	assert.True(t, c.Lossless())
	assert.Equal(t, "こんにちは", c.Text())
	assert.Equal(t, payload, c.Bytes())
	assert.False(t, c.Modified())

	require.NoError(t, c.Insert(5, "!"))
	want, err := sjis.Encode("こんにちは!")
	require.NoError(t, err)
	assert.Equal(t, want, c.Bytes())

	assert.Error(t, c.SetCharset("klingon"))
	assert.Equal(t, "Shift_JIS", c.Charset())
}

func TestAutoCharset(t *testing.T) {
	sjis, err := charset.Lookup("Shift_JIS")
	require.NoError(t, err)
	body, err := sjis.Encode("日本語")
	require.NoError(t, err)
	payload := append([]byte("HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=Shift_JIS\r\n\r\n"), body...)

	c := newController(t, WithCharset(charset.Auto))
	require.NoError(t, c.Load(payload))
	assert.Equal(t, "Shift_JIS", c.Charset())
	assert.Equal(t, charset.Auto, c.CharsetSetting())
	assert.True(t, c.Lossless())
}

func TestSelectionProjection(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Load(bytes.Repeat([]byte("a"), 40)))

	sel := c.SelectionFromHex(45, 54)
	assert.Equal(t, 15, sel.ByteStart)
	assert.Equal(t, 18, sel.ByteEnd)
	assert.Equal(t, 15, sel.ASCIIStart)
	assert.Equal(t, hexpane.ByteToASCIIPane(17)+1, sel.ASCIIEnd)

	sel = c.SelectionFromASCII(0, 3)
	assert.Equal(t, 0, sel.ByteStart)
	assert.Equal(t, 3, sel.ByteEnd)
	assert.Equal(t, 0, sel.HexStart)
	assert.Equal(t, 8, sel.HexEnd)
}

type spliceModel struct {
	runes []rune
	bytes []byte
}

func (m *spliceModel) insert(off int, s string) {
	at := len(string(m.runes[:off]))
	m.bytes = append(m.bytes[:at:at], append([]byte(s), m.bytes[at:]...)...)
	m.runes = append(m.runes[:off:off], append([]rune(s), m.runes[off:]...)...)
}

func (m *spliceModel) remove(off, n int) {
	at := len(string(m.runes[:off]))
	end := at + len(string(m.runes[off:off+n]))
	m.bytes = append(m.bytes[:at:at], m.bytes[end:]...)
	m.runes = append(m.runes[:off:off], m.runes[off+n:]...)
}

func checkEditFidelity(t *testing.T, seed int64, steps int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	alphabet := []string{"a", "Z", " ", "é", "日", "\n", "ö"}

	initial := "héllo wörld 日本"
	c := newController(t)
	require.NoError(t, c.Load([]byte(initial)))
	model := &spliceModel{runes: []rune(initial), bytes: []byte(initial)}

	for i := 0; i < steps; i++ {
		n := len(model.runes)
		if n == 0 || rng.Intn(2) == 0 {
			off := rng.Intn(n + 1)
			s := alphabet[rng.Intn(len(alphabet))]
			if rng.Intn(3) == 0 {
				s += alphabet[rng.Intn(len(alphabet))]
			}
			require.NoError(t, c.Insert(off, s))
			model.insert(off, s)
		} else {
			off := rng.Intn(n)
			length := 1 + rng.Intn(min(3, n-off))
			require.NoError(t, c.Remove(off, length))
			model.remove(off, length)
		}
		require.Equal(t, model.bytes, c.Bytes(), "step %d", i)
	}
	assert.Equal(t, string(model.runes), c.Text())
	assert.Equal(t, hexpane.RenderHex(model.bytes), c.HexText())

	// Undoing everything returns the original payload.
	for c.CanUndo() {
		_, err := c.Undo()
		require.NoError(t, err)
	}
	if steps <= 100 {
		assert.Equal(t, []byte(initial), c.Bytes())
	}
}

func TestEditFidelity(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		checkEditFidelity(t, seed, 60)
	}
}

func FuzzEditFidelity(f *testing.F) {
	f.Add(int64(1), uint8(10))
	f.Add(int64(42), uint8(80))

	f.Fuzz(func(t *testing.T, seed int64, steps uint8) {
		checkEditFidelity(t, seed, int(steps)%100)
	})
}
