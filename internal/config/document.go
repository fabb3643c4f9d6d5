package config

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Line is one line of a config document. Key is empty for blank lines,
// comments and lines that are not `key = value`.
type Line struct {
	Raw   string
	Key   string
	Value string
}

// IsBlank reports whether the line is empty or whitespace.
func (l Line) IsBlank() bool { return strings.TrimSpace(l.Raw) == "" }

// IsComment reports whether the line is a # comment.
func (l Line) IsComment() bool { return strings.HasPrefix(strings.TrimSpace(l.Raw), "#") }

// Document is the line model of a config file. Rendering an unmodified
// document reproduces the input, apart from CRLF line endings and a missing
// final newline.
type Document struct {
	Lines []Line
}

// Parse reads a document from r.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parseBytes(data), nil
}

func parseBytes(data []byte) *Document {
	doc := &Document{}
	if len(data) == 0 {
		return doc
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	for _, raw := range strings.Split(text, "\n") {
		doc.Lines = append(doc.Lines, parseLine(raw))
	}
	return doc
}

func parseLine(raw string) Line {
	line := Line{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return line
	}

	key, value, ok := strings.Cut(trimmed, "=")
	if !ok {
		return line
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || strings.ContainsAny(key, " \t") {
		return line
	}
	line.Key = key
	line.Value = strings.TrimSpace(value)
	return line
}

// Bytes renders the document with a trailing newline.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	for _, l := range d.Lines {
		buf.WriteString(l.Raw)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// HasKey reports whether any line sets key, valid or not.
func (d *Document) HasKey(key string) bool {
	for _, l := range d.Lines {
		if l.Key == key {
			return true
		}
	}
	return false
}

// appendBlock appends lines, separated from existing content by one blank line.
func (d *Document) appendBlock(raws ...string) {
	if n := len(d.Lines); n > 0 && !d.Lines[n-1].IsBlank() {
		d.Lines = append(d.Lines, Line{})
	}
	for _, raw := range raws {
		d.Lines = append(d.Lines, parseLine(raw))
	}
}

func kvLine(key, value string) Line {
	return Line{Raw: kvRaw(key, value), Key: key, Value: value}
}

func kvRaw(key, value string) string {
	if value == "" {
		return key + " ="
	}
	return key + " = " + value
}
