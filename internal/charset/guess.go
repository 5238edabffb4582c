package charset

import (
	"bufio"
	"bytes"
	"mime"
	"regexp"
	"strings"
)

var metaCharset = regexp.MustCompile(`(?i)<meta[^>]*?charset\s*=\s*["']?\s*([A-Za-z0-9_.:\-]+)`)

// Guess picks a charset name for an HTTP message or HTML document: the
// Content-Type header wins, then a <meta> declaration, then Default. Names
// that Lookup does not know are ignored.
func Guess(raw []byte) string {
	if name := fromHeader(raw); name != "" {
		if _, err := Lookup(name); err == nil {
			return name
		}
	}
	if name := fromMeta(raw); name != "" {
		if _, err := Lookup(name); err == nil {
			return name
		}
	}
	return Default
}

func fromHeader(raw []byte) string {
	head := raw
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		head = raw[:i]
	} else if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		head = raw[:i]
	}

	sc := bufio.NewScanner(bytes.NewReader(head))
	sc.Buffer(make([]byte, 0, 4096), len(head)+1)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Type") {
			continue
		}
		_, params, err := mime.ParseMediaType(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		if cs := params["charset"]; cs != "" {
			return cs
		}
	}
	return ""
}

func fromMeta(raw []byte) string {
	m := metaCharset.FindSubmatch(raw)
	if m == nil {
		return ""
	}
	return string(m[1])
}
