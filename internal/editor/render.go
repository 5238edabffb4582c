package editor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"pktedit/internal/hexpane"
)

type mark int

const (
	markNone mark = iota
	markSearch
	markSelection
	markCaret
)

func (m *Model) markStyle(k mark) lipgloss.Style {
	switch k {
	case markCaret:
		return m.styles.Caret
	case markSelection:
		return m.styles.Selection
	case markSearch:
		return m.styles.Search
	default:
		return m.styles.Normal
	}
}

// paint renders s with one style per run of equally marked characters.
func (m *Model) paint(s []rune, markAt func(i int) mark) string {
	var b strings.Builder
	start := 0
	for i := 1; i <= len(s); i++ {
		if i < len(s) && markAt(i) == markAt(start) {
			continue
		}
		run := string(s[start:i])
		if k := markAt(start); k == markNone {
			b.WriteString(run)
		} else {
			b.WriteString(m.markStyle(k).Render(run))
		}
		start = i
	}
	return b.String()
}

// paneMarks returns the marker for character i of a byte pane, given the
// span function that projects byte ranges into that pane.
func (m *Model) paneMarks(span func(start, end int) (int, int), hex bool) func(i int) mark {
	caretStart, caretEnd := -1, -1
	if m.ctrl.Len() > 0 {
		caretStart, caretEnd = span(m.byteCaret, m.byteCaret+1)
	}
	selStart, selEnd := m.selection.ASCIIStart, m.selection.ASCIIEnd
	if hex {
		selStart, selEnd = m.selection.HexStart, m.selection.HexEnd
	}
	res := m.ctrl.SearchResult()
	return func(i int) mark {
		if i >= caretStart && i < caretEnd && m.pane != PaneText {
			return markCaret
		}
		if m.selecting && i >= selStart && i < selEnd {
			return markSelection
		}
		for _, r := range res.Regions {
			start, end := r.ASCIIStart, r.ASCIIEnd
			if hex {
				start, end = r.HexStart, r.HexEnd
			}
			if i >= start && i < end {
				return markSearch
			}
		}
		return markNone
	}
}

func (m *Model) renderHexPane() string {
	return m.renderBytePane(m.ctrl.HexText(), hexpane.HexLine, hexpane.HexSpan, true)
}

func (m *Model) renderASCIIPane() string {
	return m.renderBytePane(m.ctrl.ASCIIText(), hexpane.ASCIILine, hexpane.ASCIISpan, false)
}

func (m *Model) renderBytePane(text string, lineLen int, span func(start, end int) (int, int), hex bool) string {
	rows := m.visibleRows()
	marks := m.paneMarks(span, hex)
	pane := []rune(text)

	var lines []string
	for row := m.scrollY; row < m.scrollY+rows; row++ {
		start := row * lineLen
		if start >= len(pane) {
			lines = append(lines, "")
			continue
		}
		end := min(start+lineLen-1, len(pane))
		line := m.paint(pane[start:end], func(i int) mark { return marks(start + i) })
		if hex {
			line = m.styles.StatusLabel.Render(fmt.Sprintf("%08X ", row*hexpane.BytesPerRow)) + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTextPane() string {
	runes := []rune(m.ctrl.Text())
	skip := bannerLines(m.ctrl.Banner())
	rows := m.visibleRows()

	var matches [][2]int
	if q := m.ctrl.Query(); q != "" {
		for _, o := range m.ctrl.SearchText(q).Occurrences {
			matches = append(matches, [2]int{o.Start, o.End})
		}
	}
	marks := func(i int) mark {
		if i == m.caret && m.pane == PaneText {
			return markCaret
		}
		for _, r := range matches {
			if i >= r[0] && i < r[1] {
				return markSearch
			}
		}
		return markNone
	}

	starts := lineStarts(runes)
	var lines []string
	for row := skip + m.textScroll; row < skip+m.textScroll+rows; row++ {
		if row >= len(starts) {
			lines = append(lines, "")
			continue
		}
		start := starts[row]
		end := len(runes)
		if row+1 < len(starts) {
			end = starts[row+1] - 1
		}
		lines = append(lines, m.renderTextLine(runes, start, end, marks))
	}
	return lipgloss.NewStyle().Width(textPaneWidth).Render(strings.Join(lines, "\n"))
}

// renderTextLine draws runes[start:end] within textPaneWidth cells. Control
// characters are shown as dots and a caret at the line end as a space.
func (m *Model) renderTextLine(runes []rune, start, end int, marks func(int) mark) string {
	shown := make([]rune, 0, end-start+1)
	width := 0
	for i := start; i < end; i++ {
		r := runes[i]
		if r < 0x20 || r == 0x7f {
			r = '.'
		}
		w := runewidth.RuneWidth(r)
		if width+w > textPaneWidth-1 {
			break
		}
		width += w
		shown = append(shown, r)
	}
	if len(shown) == end-start {
		shown = append(shown, ' ')
	}
	return m.paint(shown, func(i int) mark { return marks(start + i) })
}

func lineStarts(runes []rune) []int {
	starts := []int{0}
	for i, r := range runes {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineCol returns the line and column of rune offset pos.
func lineCol(runes []rune, pos int) (int, int) {
	starts := lineStarts(runes)
	line := 0
	for i, s := range starts {
		if s > pos {
			break
		}
		line = i
	}
	return line, pos - starts[line]
}

// posOf returns the rune offset of line and col, clamped to the text.
func posOf(runes []rune, line, col int) int {
	starts := lineStarts(runes)
	line = max(line, 0)
	if line >= len(starts) {
		return len(runes)
	}
	end := len(runes)
	if line+1 < len(starts) {
		end = starts[line+1] - 1
	}
	return min(starts[line]+max(col, 0), end)
}

func bannerLines(banner string) int {
	return strings.Count(banner, "\n")
}
