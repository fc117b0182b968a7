package cc1

import (
	"fmt"
	"sort"
)

const eof = -1

// Location is a position within a translation unit.  Line and Col are
// 1-based, Cursor is the byte offset into the source buffer.
type Location struct {
	File   string
	Line   int32
	Col    int32
	Cursor int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Span is a region of the input between two locations.
type Span struct {
	Start Location
	End   Location
}

func NewSpan(start, end Location) Span {
	return Span{Start: start, End: end}
}

func (s Span) String() string {
	if s.Start.Line == s.End.Line && s.Start.Col == s.End.Col {
		return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Col)
	}
	return fmt.Sprintf("%d:%d..%d:%d", s.Start.Line, s.Start.Col, s.End.Line, s.End.Col)
}

// LineIndex allows fast conversion from byte cursor offsets to
// line/column pairs.
//
// It stores the start byte offset of each line (0-based).  Given a
// cursor, it finds the line by binary searching line starts (O(log
// lines)) and computes the column as (bytes since lineStart + 1).
//
// Construction is O(n) over the input and is cached per compilation.
type LineIndex struct {
	file      string
	input     []byte
	lineStart []int
}

func NewLineIndex(file string, input []byte) *LineIndex {
	// Always include line 1 starting at offset 0.
	lineStart := make([]int, 1, 64)
	lineStart[0] = 0
	for i, b := range input {
		if b == '\n' {
			// next line starts after '\n'
			lineStart = append(lineStart, i+1)
		}
	}
	return &LineIndex{file: file, input: input, lineStart: lineStart}
}

func (li *LineIndex) LocationAt(cursor int) Location {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(li.input) {
		cursor = len(li.input)
	}

	// Find first lineStart > cursor, then step back one.
	lineIdx := sort.Search(len(li.lineStart), func(i int) bool {
		return li.lineStart[i] > cursor
	}) - 1
	if lineIdx < 0 {
		lineIdx = 0
	}

	lineStart := li.lineStart[lineIdx]

	return Location{
		File:   li.file,
		Line:   int32(lineIdx + 1),
		Col:    int32(cursor-lineStart) + 1,
		Cursor: cursor,
	}
}
