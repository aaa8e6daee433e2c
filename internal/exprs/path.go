package exprs

import (
	"fmt"
	"unicode"
)

// CheckPath validates a document path such as "a.b[2].c" for use in an expression.
// Placeholder syntax (#name) is allowed in segments.
func CheckPath(path string) error {
	if path == "" {
		return fmt.Errorf("dynamodel: empty attribute path")
	}
	segment := 0
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '.':
			if segment == 0 {
				return fmt.Errorf("dynamodel: empty segment in path %q at position %d", path, i)
			}
			segment = 0
		case c == '[':
			if segment == 0 {
				return fmt.Errorf("dynamodel: index without name in path %q at position %d", path, i)
			}
			j := i + 1
			for j < len(path) && path[j] >= '0' && path[j] <= '9' {
				j++
			}
			if j == i+1 || j >= len(path) || path[j] != ']' {
				return fmt.Errorf("dynamodel: bad list index in path %q at position %d", path, i)
			}
			i = j
		case c == ']':
			return fmt.Errorf("dynamodel: unbalanced ] in path %q at position %d", path, i)
		case unicode.IsSpace(rune(c)) || c == '(' || c == ')' || c == ',' || c == ':':
			return fmt.Errorf("dynamodel: invalid character %q in path %q", c, path)
		default:
			segment++
		}
	}
	if segment == 0 && path[len(path)-1] == '.' {
		return fmt.Errorf("dynamodel: path %q ends with a dot", path)
	}
	return nil
}
