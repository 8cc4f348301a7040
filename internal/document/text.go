// Package document provides utilities for text document manipulation.
package document

import (
	"fmt"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Text is an immutable document snapshot with a line-start table.
// It converts between UTF-8 byte offsets (tree-sitter) and UTF-16
// positions (LSP).
type Text struct {
	content    string
	lineStarts []int
}

// NewText indexes the line starts of content.
func NewText(content string) *Text {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &Text{content: content, lineStarts: starts}
}

// String returns the document content.
func (t *Text) String() string {
	return t.content
}

// Bytes returns the document content as a byte slice for the parser.
func (t *Text) Bytes() []byte {
	return []byte(t.content)
}

// line returns the text of a line without its newline.
func (t *Text) line(n int) string {
	start := t.lineStarts[n]
	end := len(t.content)
	if n+1 < len(t.lineStarts) {
		end = t.lineStarts[n+1] - 1
	}

	return t.content[start:end]
}

// Offset converts an LSP position to a byte offset.
func (t *Text) Offset(pos protocol.Position) (int, error) {
	line := int(pos.Line)
	if line >= len(t.lineStarts) {
		return 0, fmt.Errorf("line %d out of range (0-%d)", line, len(t.lineStarts)-1)
	}

	col, err := utf16ToByteColumn(t.line(line), int(pos.Character))
	if err != nil {
		return 0, err
	}

	return t.lineStarts[line] + col, nil
}

// Position converts a byte offset to an LSP position. Offsets past the end
// clamp to the end of the document.
func (t *Text) Position(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(t.content) {
		offset = len(t.content)
	}

	line := t.lineOf(offset)

	return protocol.Position{
		Line:      uint32(line),
		Character: uint32(byteToUTF16Column(t.line(line), offset-t.lineStarts[line])),
	}
}

// PointPosition converts a tree-sitter point (row, byte column) to an LSP
// position.
func (t *Text) PointPosition(row, byteColumn uint32) protocol.Position {
	if int(row) >= len(t.lineStarts) {
		return t.Position(len(t.content))
	}

	return protocol.Position{
		Line:      row,
		Character: uint32(byteToUTF16Column(t.line(int(row)), int(byteColumn))),
	}
}

// PositionPoint converts an LSP position to a tree-sitter (row, byte column)
// pair.
func (t *Text) PositionPoint(pos protocol.Position) (row, byteColumn uint32, err error) {
	offset, err := t.Offset(pos)
	if err != nil {
		return 0, 0, err
	}

	return pos.Line, uint32(offset - t.lineStarts[pos.Line]), nil
}

// lineOf finds the line containing offset by binary search.
func (t *Text) lineOf(offset int) int {
	lo, hi := 0, len(t.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo
}

// ApplyContentChange applies a TextDocumentContentChangeEvent to the given text
// and returns the updated text. A change without a range replaces the whole
// document.
func ApplyContentChange(text string, change protocol.TextDocumentContentChangeEvent) (string, error) {
	if change.Range == nil {
		return change.Text, nil
	}

	doc := NewText(text)

	start, err := doc.Offset(change.Range.Start)
	if err != nil {
		return "", fmt.Errorf("invalid start position: %w", err)
	}

	end, err := doc.Offset(change.Range.End)
	if err != nil {
		return "", fmt.Errorf("invalid end position: %w", err)
	}

	if start > end {
		return "", fmt.Errorf("start offset %d after end offset %d", start, end)
	}

	return text[:start] + change.Text + text[end:], nil
}

// utf16ToByteColumn converts a UTF-16 code unit column to a byte column
// within line. A column exactly at the end of the line is allowed.
func utf16ToByteColumn(line string, column int) (int, error) {
	units := 0
	for i, r := range line {
		if units >= column {
			return i, nil
		}
		units += utf16Len(r)
	}

	if units >= column {
		return len(line), nil
	}

	return 0, fmt.Errorf("UTF-16 offset %d exceeds line length %d", column, units)
}

// byteToUTF16Column converts a byte column within line to UTF-16 code units.
func byteToUTF16Column(line string, column int) int {
	if column > len(line) {
		column = len(line)
	}

	units := 0
	for i := 0; i < column; {
		r, size := utf8.DecodeRuneInString(line[i:])
		units += utf16Len(r)
		i += size
	}

	return units
}

func utf16Len(r rune) int {
	if r > 0xFFFF {
		return 2
	}

	return 1
}
