package completion

import (
	"encoding/json"
	"errors"
)

var (
	ErrNoJSON        = errors.New("no JSON object in reply")
	ErrMalformedJSON = errors.New("no well-formed JSON object in reply")
)

// ExtractJSONObject returns the first balanced, well-formed JSON object in
// text. Braces inside string literals are ignored. A balanced span that
// fails to parse is skipped as a whole so nested fragments of it are never
// returned, and an opening brace that is never closed is passed over.
func ExtractJSONObject(text string) (json.RawMessage, error) {
	sawBalanced := false
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := matchBrace(text, i)
		if end < 0 {
			continue
		}
		sawBalanced = true
		candidate := text[i : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
		i = end
	}
	if sawBalanced {
		return nil, ErrMalformedJSON
	}
	return nil, ErrNoJSON
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
