// Package charset converts between payload bytes and the decoded text shown
// on the text surface.
package charset

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

const (
	// Auto asks Resolve to guess the charset from the payload.
	Auto = "AUTO"
	// Default is used when nothing better is known.
	Default = "UTF-8"
)

var ErrUnknownCharset = errors.New("unknown charset")

type entry struct {
	name string
	enc  encoding.Encoding
}

// known is ordered: it is the list offered to the user.
var known = []entry{
	{"UTF-8", unicode.UTF8},
	{"Shift_JIS", japanese.ShiftJIS},
	{"EUC-JP", japanese.EUCJP},
	{"ISO-2022-JP", japanese.ISO2022JP},
	{"ISO-8859-1", charmap.ISO8859_1},
	{"windows-1252", charmap.Windows1252},
	{"UTF-16LE", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	{"UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
}

var aliases = map[string]string{
	"utf8":           "UTF-8",
	"sjis":           "Shift_JIS",
	"shift-jis":      "Shift_JIS",
	"x-sjis":         "Shift_JIS",
	"eucjp":          "EUC-JP",
	"x-euc-jp":       "EUC-JP",
	"x-euc-jp-linux": "EUC-JP",
	"latin1":         "ISO-8859-1",
	"iso8859-1":      "ISO-8859-1",
	"cp1252":         "windows-1252",
}

// Codec encodes and decodes text in one charset.
type Codec struct {
	name string
	enc  encoding.Encoding
}

// Available returns the charset names offered to the user, Auto first.
func Available() []string {
	names := []string{Auto}
	for _, e := range known {
		names = append(names, e.name)
	}
	return names
}

// Lookup returns the codec for a charset name. Names are matched case
// insensitively; names outside the built-in list go through the IANA index.
func Lookup(name string) (*Codec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = strings.ToLower(canonical)
	}
	for _, e := range known {
		if strings.ToLower(e.name) == key {
			return &Codec{name: e.name, enc: e.enc}, nil
		}
	}

	enc, err := ianaindex.IANA.Encoding(key)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCharset)
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		canonical = name
	}
	return &Codec{name: canonical, enc: enc}, nil
}

// Resolve is Lookup with support for Auto, which guesses from payload.
func Resolve(name string, payload []byte) (*Codec, error) {
	if strings.EqualFold(name, Auto) {
		return Lookup(Guess(payload))
	}
	return Lookup(name)
}

func (c *Codec) Name() string {
	return c.name
}

// Decode converts payload bytes to text. Byte sequences that are invalid in
// the charset decode to U+FFFD.
func (c *Codec) Decode(b []byte) (string, error) {
	s, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", c.name, err)
	}
	return string(s), nil
}

// Encode converts text to bytes. It fails if the text holds a rune the
// charset cannot represent.
func (c *Codec) Encode(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}
	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.name, err)
	}
	return b, nil
}

func (c *Codec) EncodeRunes(rs []rune) ([]byte, error) {
	return c.Encode(string(rs))
}

// Lossless reports whether decoding and re-encoding b reproduces it exactly.
func (c *Codec) Lossless(b []byte) bool {
	s, err := c.Decode(b)
	if err != nil {
		return false
	}
	back, err := c.Encode(s)
	if err != nil {
		return false
	}
	return string(back) == string(b)
}
