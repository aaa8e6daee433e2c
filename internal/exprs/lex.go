package exprs

import (
	"fmt"
	"unicode/utf8"
)

// State-function lexer in the style of text/template/parse.

type ItemType int

const (
	ItemError ItemType = iota
	ItemEOF
	ItemText
	ItemQuotedName
	ItemNamePlaceholder
	ItemValuePlaceholder
)

type Item struct {
	Type ItemType
	Pos  int
	Val  string
}

func (i Item) String() string {
	switch i.Type {
	case ItemEOF:
		return "EOF"
	case ItemNamePlaceholder:
		return "$"
	case ItemValuePlaceholder:
		return "?"
	case ItemQuotedName:
		// strip quotes
		return i.Val[1 : len(i.Val)-1]
	}
	return i.Val
}

const eof = -1

type stateFn func(*lexer) stateFn

type lexer struct {
	input string
	start int
	pos   int
	width int
	items []Item
}

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *lexer) backup() {
	l.pos -= l.width
}

func (l *lexer) emit(t ItemType) {
	l.items = append(l.items, Item{
		Type: t,
		Pos:  l.start,
		Val:  l.input[l.start:l.pos],
	})
	l.start = l.pos
}

func (l *lexer) errorf(format string, args ...any) stateFn {
	l.items = append(l.items, Item{ItemError, l.start, fmt.Sprintf(format, args...)})
	return nil
}

func (l *lexer) run() {
	for state := lexText; state != nil; {
		state = state(l)
	}
}

func lexText(l *lexer) stateFn {
	for {
		var nextFn stateFn
		switch l.next() {
		case '\'':
			nextFn = lexQuotedName
		case '$':
			nextFn = lexSingle(ItemNamePlaceholder)
		case '?':
			nextFn = lexSingle(ItemValuePlaceholder)
		case eof:
			if l.pos > l.start {
				l.emit(ItemText)
			}
			l.emit(ItemEOF)
			return nil
		default:
			continue
		}

		l.backup()
		if l.pos > l.start {
			l.emit(ItemText)
		}
		return nextFn
	}
}

func lexQuotedName(l *lexer) stateFn {
	l.next() // opening '
	for {
		switch l.next() {
		case '\'':
			if l.pos-l.start == 2 {
				return l.errorf("empty quoted name")
			}
			l.emit(ItemQuotedName)
			return lexText
		case eof:
			return l.errorf("unterminated quoted name")
		}
	}
}

func lexSingle(t ItemType) stateFn {
	return func(l *lexer) stateFn {
		l.next()
		l.emit(t)
		return lexText
	}
}
