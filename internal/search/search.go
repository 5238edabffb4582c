// Package search finds query occurrences in the raw bytes and projects them
// into hex and ASCII pane highlight regions.
package search

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"

	"pktedit/internal/hexpane"
	"pktedit/internal/logging"
)

// DefaultLimit is the largest rendered hex pane, in characters, that is
// searched.
const DefaultLimit = 1000000

type Mode int

const (
	ModeHex Mode = iota
	ModeLiteral
)

func (m Mode) String() string {
	if m == ModeHex {
		return "hex"
	}
	return "literal"
}

// Encoder turns literal query text into bytes.
type Encoder interface {
	Encode(s string) ([]byte, error)
}

type Query struct {
	Raw     string
	Pattern []byte
	Mode    Mode
}

func (q Query) Empty() bool {
	return len(q.Pattern) == 0
}

// BuildQuery reads raw as hex pairs once whitespace is stripped, and
// otherwise as literal text. Literal text is encoded with enc, or as UTF-8
// when enc is nil or cannot encode it.
func BuildQuery(raw string, enc Encoder) Query {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if pattern, ok := parseHex(stripped); ok {
		return Query{Raw: raw, Pattern: pattern, Mode: ModeHex}
	}

	pattern := []byte(raw)
	if enc != nil && raw != "" {
		if b, err := enc.Encode(raw); err == nil {
			pattern = b
		}
	}
	return Query{Raw: raw, Pattern: pattern, Mode: ModeLiteral}
}

func parseHex(s string) ([]byte, bool) {
	if s == "" || len(s)%2 != 0 {
		return nil, false
	}
	result := make([]byte, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		b, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			return nil, false
		}
		result[i/2] = byte(b)
	}
	return result, true
}

// Occurrence is the range [Start, End) of one match.
type Occurrence struct {
	Start int
	End   int
}

// FindAll returns the non-overlapping occurrences of pattern in data, left
// to right. After a match the scan resumes at its end, so "AA" occurs once
// in "AAA".
func FindAll(data, pattern []byte) []Occurrence {
	if len(pattern) == 0 || len(data) == 0 {
		return nil
	}

	var result []Occurrence
	for i := 0; i <= len(data)-len(pattern); {
		if matchAt(data, pattern, i) {
			result = append(result, Occurrence{Start: i, End: i + len(pattern)})
			i += len(pattern)
			continue
		}
		i++
	}
	return result
}

func matchAt(data, pattern []byte, i int) bool {
	for j := 0; j < len(pattern); j++ {
		if data[i+j] != pattern[j] {
			return false
		}
	}
	return true
}

// Region is an occurrence projected into both panes. Pane ranges are
// half-open character offsets into hexpane.RenderHex and RenderASCII.
type Region struct {
	Occurrence
	HexStart   int
	HexEnd     int
	ASCIIStart int
	ASCIIEnd   int
}

// Highlight projects occurrences into the panes. The ASCII span comes
// straight from the byte range; the hex span is derived back from the ASCII
// span so both panes cover the same bytes.
func Highlight(occurrences []Occurrence) []Region {
	regions := make([]Region, 0, len(occurrences))
	for _, o := range occurrences {
		if o.End <= o.Start {
			continue
		}
		asciiStart, asciiEnd := hexpane.ASCIISpan(o.Start, o.End)
		hexStart := hexpane.ByteToHexPane(hexpane.ASCIIPaneToByte(asciiStart))
		hexEnd := hexpane.ByteToHexPane(hexpane.ASCIIPaneToByte(asciiEnd-1)) + 2
		regions = append(regions, Region{
			Occurrence: o,
			HexStart:   hexStart,
			HexEnd:     hexEnd,
			ASCIIStart: asciiStart,
			ASCIIEnd:   asciiEnd,
		})
	}
	return regions
}

// Result is the outcome of one search. Skipped is set when the content was
// too large to search.
type Result struct {
	Query       Query
	Occurrences []Occurrence
	Regions     []Region
	Skipped     bool
}

// Status is the label shown next to the search field.
func (r Result) Status() string {
	switch {
	case r.Skipped:
		return "Too Long"
	case r.Query.Raw == "":
		return ""
	case len(r.Occurrences) == 0:
		return "Not found"
	default:
		return fmt.Sprintf("%d found", len(r.Occurrences))
	}
}

type Highlighter struct {
	limit  int
	logger *log.Logger
}

func NewHighlighter(limit int, logger *log.Logger) *Highlighter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Highlighter{limit: limit, logger: logger}
}

func (h *Highlighter) Limit() int {
	return h.limit
}

// Run searches data for raw and returns a fresh region set. It never
// reuses regions from an earlier run.
func (h *Highlighter) Run(data []byte, raw string, enc Encoder) Result {
	q := BuildQuery(raw, enc)
	res := Result{Query: q}
	if q.Empty() || len(data) == 0 {
		return res
	}
	if size := hexpane.HexLength(len(data)); size > h.limit {
		h.logger.Warn("search skipped, content too large to highlight",
			logging.FieldSize, size,
			logging.FieldLimit, h.limit)
		res.Skipped = true
		return res
	}

	res.Occurrences = FindAll(data, q.Pattern)
	res.Regions = Highlight(res.Occurrences)
	h.logger.Debug("search",
		logging.FieldQuery, raw,
		"mode", q.Mode,
		logging.FieldMatches, len(res.Occurrences))
	return res
}

// FindText returns the non-overlapping rune ranges of query in text. It is
// the text pane counterpart of Run and honours the same size limit.
func (h *Highlighter) FindText(text, query string) Result {
	res := Result{Query: Query{Raw: query, Pattern: []byte(query), Mode: ModeLiteral}}
	if query == "" || text == "" {
		return res
	}
	runes := []rune(text)
	if len(runes) > h.limit {
		h.logger.Warn("text search skipped, content too large",
			logging.FieldSize, len(runes),
			logging.FieldLimit, h.limit)
		res.Skipped = true
		return res
	}

	pattern := []rune(query)
	for i := 0; i <= len(runes)-len(pattern); {
		if matchRunesAt(runes, pattern, i) {
			res.Occurrences = append(res.Occurrences, Occurrence{Start: i, End: i + len(pattern)})
			i += len(pattern)
			continue
		}
		i++
	}
	return res
}

func matchRunesAt(text, pattern []rune, i int) bool {
	for j := range pattern {
		if text[i+j] != pattern[j] {
			return false
		}
	}
	return true
}
