package core

import (
	"strings"
	"unicode/utf8"
)

type lineKind int

const (
	lineText lineKind = iota
	lineRow
	lineRule
	lineBlank
	lineCut
)

// receiptLine is one element of a receipt. Both the ESC/POS and the HTML
// generators consume the same lines so a preview matches the paper.
type receiptLine struct {
	kind     lineKind
	text     string
	right    string
	bold     bool
	large    bool
	inverted bool
	centered bool
}

type receiptLayout struct {
	title string
	lines []receiptLine
}

type lineOption func(*receiptLine)

func bold(l *receiptLine)     { l.bold = true }
func large(l *receiptLine)    { l.large = true }
func inverted(l *receiptLine) { l.inverted = true }
func centered(l *receiptLine) { l.centered = true }

func (r *receiptLayout) text(s string, opts ...lineOption) {
	line := receiptLine{kind: lineText, text: s}
	for _, opt := range opts {
		opt(&line)
	}
	r.lines = append(r.lines, line)
}

func (r *receiptLayout) row(left, right string, opts ...lineOption) {
	line := receiptLine{kind: lineRow, text: left, right: right}
	for _, opt := range opts {
		opt(&line)
	}
	r.lines = append(r.lines, line)
}

func (r *receiptLayout) rule()  { r.lines = append(r.lines, receiptLine{kind: lineRule}) }
func (r *receiptLayout) blank() { r.lines = append(r.lines, receiptLine{kind: lineBlank}) }
func (r *receiptLayout) cut()   { r.lines = append(r.lines, receiptLine{kind: lineCut}) }

// wrapText breaks s into lines of at most cols runes, splitting on spaces and
// hard-splitting words that do not fit on a line of their own.
func wrapText(s string, cols int) []string {
	if cols <= 0 || utf8.RuneCountInString(s) <= cols {
		return []string{s}
	}

	var lines []string
	var current []rune
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > cols {
			if len(current) > 0 {
				lines = append(lines, string(current))
				current = nil
			}
			lines = append(lines, string(w[:cols]))
			w = w[cols:]
		}
		switch {
		case len(current) == 0:
			current = w
		case len(current)+1+len(w) <= cols:
			current = append(append(current, ' '), w...)
		default:
			lines = append(lines, string(current))
			current = w
		}
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}

// padRow right-aligns right against left within cols runes. When both do not
// fit on one line the left side wraps and right gets a line of its own.
func padRow(left, right string, cols int) []string {
	l, r := utf8.RuneCountInString(left), utf8.RuneCountInString(right)
	if l+r+1 <= cols {
		return []string{left + strings.Repeat(" ", cols-l-r) + right}
	}
	lines := wrapText(left, cols)
	if r < cols {
		right = strings.Repeat(" ", cols-r) + right
	}
	return append(lines, right)
}
