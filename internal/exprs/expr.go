// Package exprs lexes the small pieces of DynamoDB expression syntax that dynamodel
// accepts from callers: raw filter fragments and document paths.
package exprs

import (
	"fmt"
	"sync"
)

// Fragment is a lexed raw expression fragment.
type Fragment struct {
	Items []Item
	err   error
}

// Placeholders returns the number of value and name placeholders in the fragment.
func (f *Fragment) Placeholders() (values, names int) {
	for _, item := range f.Items {
		switch item.Type {
		case ItemValuePlaceholder:
			values++
		case ItemNamePlaceholder:
			names++
		}
	}
	return
}

// Parse lexes input, where ? stands for a value, $ stands for an attribute name,
// and 'single quotes' surround an attribute name that must be escaped.
// Results are cached, as fragments tend to be constants.
func Parse(input string) (*Fragment, error) {
	fragCache.RLock()
	frag := fragCache.m[input]
	fragCache.RUnlock()
	if frag != nil {
		return frag, frag.err
	}

	frag = &Fragment{}
	l := &lexer{input: input}
	l.run()
	for _, item := range l.items {
		if item.Type == ItemError {
			frag.err = fmt.Errorf("dynamodel: expression lex error: %s at position %d", item.Val, item.Pos)
			break
		}
		if item.Type == ItemEOF {
			break
		}
		frag.Items = append(frag.Items, item)
	}

	fragCache.Lock()
	fragCache.m[input] = frag
	fragCache.Unlock()
	return frag, frag.err
}

var fragCache = struct {
	m map[string]*Fragment
	sync.RWMutex
}{m: make(map[string]*Fragment)}
