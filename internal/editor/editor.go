package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"pktedit/internal/charset"
	"pktedit/internal/config"
	"pktedit/internal/dualview"
	"pktedit/internal/hexpane"
	"pktedit/internal/logging"
	"pktedit/internal/textsync"
)

type Pane int

const (
	PaneText Pane = iota
	PaneHex
	PaneASCII
)

func (p Pane) String() string {
	switch p {
	case PaneHex:
		return "Hex"
	case PaneASCII:
		return "ASCII"
	default:
		return "Text"
	}
}

type View int

const (
	ViewMain View = iota
	ViewHelp
	ViewSearch
	ViewConfirmQuit
)

type loadedMsg struct {
	prepared *dualview.Prepared
}

// Options describe where the payload came from and where it goes.
type Options struct {
	Name string
	Out  string
	// ShowAll opens a large payload in full instead of as a preview.
	ShowAll bool
	Logger  *log.Logger
}

type Model struct {
	ctrl   *dualview.Controller
	config *config.Config
	styles *config.Styles
	logger *log.Logger

	name    string
	out     string
	showAll bool

	pane       Pane
	view       View
	caret      int // rune offset in the text surface
	byteCaret  int
	textScroll int
	scrollY    int
	width      int
	height     int

	// Shift selection in the byte panes, anchored where it started.
	selecting bool
	selAnchor int
	selection dualview.Selection

	search textinput.Model

	initCmd     tea.Cmd
	writeOnExit bool

	// Error/status message
	statusMsg string
}

const textPaneWidth = 40

func NewModel(ctrl *dualview.Controller, cfg *config.Config, opts Options) *Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	input := textinput.New()
	input.Placeholder = "hex bytes or text"
	input.Prompt = "Find: "
	input.CharLimit = 1024
	input.Width = 50

	return &Model{
		ctrl:    ctrl,
		config:  cfg,
		styles:  config.NewStyles(&cfg.Theme),
		logger:  logger,
		name:    opts.Name,
		out:     opts.Out,
		showAll: opts.ShowAll,
		view:    ViewMain,
		search:  input,
	}
}

// Load starts a background load of payload. The returned command decodes it
// off the UI goroutine; the result is applied when it comes back.
func (m *Model) Load(payload []byte) tea.Cmd {
	p := m.ctrl.Prepare(payload)
	m.initCmd = func() tea.Msg {
		// A decode error comes back out of Complete.
		_ = p.Decode()
		return loadedMsg{prepared: p}
	}
	return m.initCmd
}

// Controller gives the caller access to the edited bytes after the program
// exits.
func (m *Model) Controller() *dualview.Controller {
	return m.ctrl
}

// WriteOnExit reports whether the user asked to write the bytes to the
// output on quit.
func (m *Model) WriteOnExit() bool {
	return m.writeOnExit
}

func (m *Model) Init() tea.Cmd {
	return m.initCmd
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.completeLoad(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.view == ViewSearch {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) completeLoad(msg loadedMsg) {
	if err := m.ctrl.Complete(msg.prepared); err != nil {
		if !errors.Is(err, dualview.ErrStaleLoad) {
			m.statusMsg = fmt.Sprintf("Load failed: %v", err)
		}
		return
	}
	if m.showAll && m.ctrl.Truncated() {
		if err := m.ctrl.ShowAll(); err != nil {
			m.reportError(err)
		}
	}
	m.clearSelection()
	m.caret = m.ctrl.BannerLen()
	m.byteCaret = 0
	m.textScroll = 0
	m.scrollY = 0
	if !m.ctrl.Lossless() {
		m.statusMsg = fmt.Sprintf("Payload is not valid %s; text after undecodable bytes is read-only", m.ctrl.Charset())
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear status message on any key
	m.statusMsg = ""

	switch m.view {
	case ViewHelp:
		return m.handleHelpKey(msg)
	case ViewSearch:
		return m.handleSearchKey(msg)
	case ViewConfirmQuit:
		return m.handleConfirmQuitKey(msg)
	default:
		return m.handleMainKey(msg)
	}
}

func (m *Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+q", "esc":
		return m.tryQuit()
	case "f1":
		m.view = ViewHelp
	case "tab":
		m.pane = (m.pane + 1) % 3
	case "shift+tab":
		m.pane = (m.pane + 2) % 3
	case "ctrl+z":
		m.undo()
	case "ctrl+y":
		m.redo()
	case "ctrl+f":
		m.view = ViewSearch
		return m, m.search.Focus()
	case "ctrl+a":
		m.showAllPayload()
	case "ctrl+e":
		m.cycleCharset()

	// Navigation
	case "up":
		m.move(0, -1)
	case "down":
		m.move(0, 1)
	case "left":
		m.move(-1, 0)
	case "right":
		m.move(1, 0)
	case "pgup":
		m.move(0, -m.visibleRows())
	case "pgdown":
		m.move(0, m.visibleRows())
	case "home":
		m.moveLineEdge(false)
	case "end":
		m.moveLineEdge(true)
	case "shift+up":
		m.extendSelection(0, -1)
	case "shift+down":
		m.extendSelection(0, 1)
	case "shift+left":
		m.extendSelection(-1, 0)
	case "shift+right":
		m.extendSelection(1, 0)

	// Editing, text pane only
	case "enter":
		m.insert("\n")
	case "backspace":
		m.delete(true)
	case "delete":
		m.delete(false)
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			text := string(msg.Runes)
			if msg.Type == tea.KeySpace {
				text = " "
			}
			m.insert(text)
		}
	}

	return m, nil
}

func (m *Model) insert(text string) {
	if m.pane != PaneText {
		m.statusMsg = "Edit in the text pane (TAB to switch)"
		return
	}
	if err := m.ctrl.Insert(m.caret, text); err != nil {
		m.reportError(err)
		return
	}
	m.setCaret(m.caret + len([]rune(text)))
}

func (m *Model) delete(backspace bool) {
	if m.pane != PaneText {
		m.statusMsg = "Edit in the text pane (TAB to switch)"
		return
	}
	pos := m.caret
	if backspace {
		if pos <= m.ctrl.BannerLen() {
			return
		}
		pos--
	}
	if pos >= m.ctrl.TextLen() {
		return
	}
	if err := m.ctrl.Remove(pos, 1); err != nil {
		m.reportError(err)
		return
	}
	m.setCaret(pos)
}

func (m *Model) undo() {
	ok, err := m.ctrl.Undo()
	if err != nil {
		m.reportError(err)
		return
	}
	if !ok {
		m.statusMsg = "Nothing to undo"
	}
	m.setCaret(m.caret)
}

func (m *Model) redo() {
	ok, err := m.ctrl.Redo()
	if err != nil {
		m.reportError(err)
		return
	}
	if !ok {
		m.statusMsg = "Nothing to redo"
	}
	m.setCaret(m.caret)
}

func (m *Model) showAllPayload() {
	if !m.ctrl.Truncated() {
		m.statusMsg = "Full payload already shown"
		return
	}
	if err := m.ctrl.ShowAll(); err != nil {
		m.reportError(err)
		return
	}
	m.setCaret(0)
	m.statusMsg = fmt.Sprintf("Showing all %d bytes", m.ctrl.Len())
}

func (m *Model) cycleCharset() {
	names := charset.Available()
	current := m.ctrl.CharsetSetting()
	next := names[0]
	for i, name := range names {
		if strings.EqualFold(name, current) {
			next = names[(i+1)%len(names)]
			break
		}
	}
	if err := m.ctrl.SetCharset(next); err != nil {
		m.reportError(err)
		return
	}
	m.setCaret(m.ctrl.BannerLen())
	m.statusMsg = fmt.Sprintf("Charset: %s (%s)", next, m.ctrl.Charset())
	m.logger.Info("charset changed", logging.FieldCharset, m.ctrl.Charset())
}

func (m *Model) reportError(err error) {
	switch {
	case errors.Is(err, dualview.ErrReadOnly):
		m.statusMsg = "Preview is read-only. Press ^A to show the whole payload."
	case errors.Is(err, dualview.ErrLoadPending):
		m.statusMsg = "Still loading..."
	case errors.Is(err, textsync.ErrMismatch):
		m.statusMsg = fmt.Sprintf("Cannot edit here: the text does not map back to the bytes in %s (undecodable or escaped bytes)", m.ctrl.Charset())
	default:
		m.statusMsg = fmt.Sprintf("Error: %v", err)
	}
}

func (m *Model) move(dx, dy int) {
	m.clearSelection()
	if m.pane == PaneText {
		runes := []rune(m.ctrl.Text())
		if dy != 0 {
			line, col := lineCol(runes, m.caret)
			m.setCaret(posOf(runes, line+dy, col))
			return
		}
		m.setCaret(m.caret + dx)
		return
	}
	m.setByteCaret(m.byteCaret + dx + dy*hexpane.BytesPerRow)
}

func (m *Model) moveLineEdge(end bool) {
	m.clearSelection()
	if m.pane == PaneText {
		runes := []rune(m.ctrl.Text())
		line, _ := lineCol(runes, m.caret)
		col := 0
		if end {
			col = len(runes)
		}
		m.setCaret(posOf(runes, line, col))
		return
	}
	row := m.byteCaret / hexpane.BytesPerRow * hexpane.BytesPerRow
	if end {
		row += hexpane.BytesPerRow - 1
	}
	m.setByteCaret(row)
}

// setCaret moves the text caret and keeps the byte caret on the byte the
// text caret starts at.
func (m *Model) setCaret(pos int) {
	m.clearSelection()
	pos = max(pos, m.ctrl.BannerLen())
	pos = min(pos, m.ctrl.TextLen())
	m.caret = pos
	if off, err := m.ctrl.ByteOffsetOfText(pos); err == nil {
		m.setByteCaret(off)
	}
	m.ensureCaretVisible()
}

// extendSelection moves the byte caret and grows the selection from its
// anchor. The range is projected through the active pane's coordinates.
func (m *Model) extendSelection(dx, dy int) {
	if m.pane == PaneText {
		m.statusMsg = "Select bytes in the hex or ASCII pane (TAB to switch)"
		return
	}
	if m.ctrl.Len() == 0 {
		return
	}
	if !m.selecting {
		m.selecting = true
		m.selAnchor = m.byteCaret
	}
	m.setByteCaret(m.byteCaret + dx + dy*hexpane.BytesPerRow)

	lo := min(m.selAnchor, m.byteCaret)
	hi := max(m.selAnchor, m.byteCaret) + 1
	if m.pane == PaneHex {
		m.selection = m.ctrl.SelectionFromHex(hexpane.HexSpan(lo, hi))
	} else {
		m.selection = m.ctrl.SelectionFromASCII(hexpane.ASCIISpan(lo, hi))
	}
}

func (m *Model) clearSelection() {
	m.selecting = false
	m.selection = dualview.Selection{}
}

func (m *Model) setByteCaret(pos int) {
	pos = min(pos, m.ctrl.Len()-1)
	pos = max(pos, 0)
	m.byteCaret = pos

	visRows := m.visibleRows()
	row := pos / hexpane.BytesPerRow
	if row < m.scrollY {
		m.scrollY = row
	} else if row >= m.scrollY+visRows {
		m.scrollY = row - visRows + 1
	}
}

func (m *Model) ensureCaretVisible() {
	runes := []rune(m.ctrl.Text())
	line, _ := lineCol(runes, m.caret)
	line -= bannerLines(m.ctrl.Banner())
	visRows := m.visibleRows()
	if line < m.textScroll {
		m.textScroll = max(line, 0)
	} else if line >= m.textScroll+visRows {
		m.textScroll = line - visRows + 1
	}
}

func (m *Model) visibleRows() int {
	// Account for legend, pane borders and titles, search line, status
	rows := m.height - 8
	if m.ctrl.Truncated() {
		rows -= bannerLines(m.ctrl.Banner())
	}
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) tryQuit() (tea.Model, tea.Cmd) {
	if m.out != "" && m.ctrl.Modified() {
		m.view = ViewConfirmQuit
		return m, nil
	}
	return m, tea.Quit
}

func (m *Model) handleHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f1", "q":
		m.view = ViewMain
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.search.Blur()
		m.view = ViewMain
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.ctrl.Query() {
		m.ctrl.Search(m.search.Value())
		m.jumpToFirstMatch()
	}
	return m, cmd
}

func (m *Model) jumpToFirstMatch() {
	res := m.ctrl.SearchResult()
	if len(res.Occurrences) > 0 {
		m.setByteCaret(res.Occurrences[0].Start)
	}
}

func (m *Model) handleConfirmQuitKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.writeOnExit = true
		return m, tea.Quit
	case "n", "N":
		return m, tea.Quit
	case "esc":
		m.view = ViewMain
	}
	return m, nil
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	// Legend
	b.WriteString(m.renderLegend())
	b.WriteString("\n")

	switch m.view {
	case ViewHelp:
		b.WriteString(m.renderHelp())
	case ViewConfirmQuit:
		b.WriteString(m.renderMainView())
		b.WriteString("\n")
		b.WriteString(m.renderConfirmDialog(fmt.Sprintf("Write changes to %s? (Y/N)", m.out)))
	default:
		b.WriteString(m.renderMainView())
	}

	// Status message
	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(m.statusMsg)
	}

	return b.String()
}

func (m *Model) renderLegend() string {
	var items []string

	key := func(k, desc string) string {
		return m.styles.LegendHighlight.Render(k) + m.styles.Legend.Render(" "+desc)
	}

	items = append(items, key("^Q", "Quit"))
	items = append(items, key("F1", "Help"))

	if m.view == ViewMain {
		items = append(items, key("TAB", "Pane"))
		items = append(items, key("^F", "Find"))
		if m.ctrl.CanUndo() {
			items = append(items, key("^Z", "Undo"))
		} else {
			items = append(items, m.styles.Disabled.Render("^Z Undo"))
		}
		if m.ctrl.CanRedo() {
			items = append(items, key("^Y", "Redo"))
		} else {
			items = append(items, m.styles.Disabled.Render("^Y Redo"))
		}
		if m.ctrl.Truncated() {
			items = append(items, key("^A", "Show all"))
		}
		items = append(items, key("^E", "Charset"))
	} else if m.view == ViewSearch {
		items = append(items, m.styles.LegendHighlight.Render("ESC")+m.styles.Legend.Render(" Back"))
	}

	legend := strings.Join(items, m.styles.Legend.Render(" | "))
	return m.styles.Legend.Width(m.width).Render(legend)
}

func (m *Model) renderMainView() string {
	var b strings.Builder

	if banner := m.ctrl.Banner(); banner != "" {
		b.WriteString(m.styles.Banner.Render(strings.TrimRight(banner, "\n")))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.framePane(PaneText, m.renderTextPane()),
		m.framePane(PaneHex, m.renderHexPane()),
		m.framePane(PaneASCII, m.renderASCIIPane()),
	))
	b.WriteString("\n")

	if m.view == ViewSearch || m.ctrl.Query() != "" {
		b.WriteString(m.search.View())
		if status := m.ctrl.SearchResult().Status(); status != "" {
			b.WriteString("  ")
			b.WriteString(m.styles.StatusValue.Render(status))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatus())
	return b.String()
}

func (m *Model) framePane(p Pane, body string) string {
	style := m.styles.Border
	title := m.styles.StatusLabel.Render(p.String())
	if p == m.pane {
		style = m.styles.ActiveBorder
		title = m.styles.PaneTitle.Render(p.String())
	}
	return style.Render(title + "\n" + body)
}

func (m *Model) renderStatus() string {
	var parts []string

	name := m.name
	if name == "" {
		name = "[stdin]"
	}
	if m.ctrl.Modified() {
		name = m.styles.Modified.Render("*" + name)
	}
	parts = append(parts, name)

	label := func(l, v string) string {
		return m.styles.StatusLabel.Render(l+": ") + m.styles.StatusValue.Render(v)
	}
	parts = append(parts, label("Size", fmt.Sprintf("%d", m.ctrl.Len())))
	parts = append(parts, label("Offset", fmt.Sprintf("%08X", m.byteCaret)))
	if b, ok := m.ctrl.ByteAt(m.byteCaret); ok {
		parts = append(parts, label("Byte", fmt.Sprintf("%02X", b)))
	}
	if m.selecting {
		sel := m.selection
		parts = append(parts, label("Sel", fmt.Sprintf("%08X-%08X (%d bytes)", sel.ByteStart, sel.ByteEnd, sel.ByteEnd-sel.ByteStart)))
	}

	cs := m.ctrl.Charset()
	if strings.EqualFold(m.ctrl.CharsetSetting(), charset.Auto) {
		cs = "AUTO/" + cs
	}
	parts = append(parts, label("Charset", cs))

	if m.ctrl.Truncated() {
		d := m.ctrl.Decision()
		parts = append(parts, m.styles.Banner.Render(fmt.Sprintf("preview %d bytes (over %d)", d.PreviewLength, d.Threshold)))
	}
	if m.ctrl.Pending() {
		parts = append(parts, m.styles.Disabled.Render("loading"))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderHelp() string {
	help := `
HELP - pktedit
==============

PANES
  TAB / Shift+TAB  Switch between text, hex and ASCII panes
  Arrow keys       Move caret
  PgUp/PgDown      Page up/down
  Home/End         Start/end of line
  Shift+Arrows     Select bytes (hex and ASCII panes)

EDITING (text pane)
  Typing           Insert at caret
  Enter            Insert line break
  Backspace        Delete before caret
  Delete           Delete at caret
  Ctrl+Z           Undo
  Ctrl+Y           Redo

OTHER
  Ctrl+F           Find (hex pairs such as "0D 0A", or text)
  Ctrl+A           Show the whole payload when truncated
  Ctrl+E           Next charset
  F1               Help (this screen)
  Ctrl+Q / ESC     Quit

Press ESC or F1 to close this help screen.
`
	return help
}

func (m *Model) renderConfirmDialog(message string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.config.Theme.BorderColor)).
		Padding(1, 2).
		Render(message)
	return box
}
