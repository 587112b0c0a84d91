// Package partialjson parses truncated JSON fragments for their
// structurally valid prefix. It exists to render in-progress tool-call
// arguments while bytes are still arriving; it returns a partial value
// or nothing and never fails loudly.
package partialjson

import (
	"encoding/json"
	"strings"
)

// Parse decodes as much of a possibly truncated JSON document as is
// structurally recoverable. The second return is false when nothing
// valid could be reconstructed.
func Parse(input string) (any, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, false
	}

	// Fast path: already complete.
	if json.Valid([]byte(trimmed)) {
		var value any
		if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
			return nil, false
		}
		return value, true
	}

	repaired, ok := repair(trimmed)
	if !ok {
		return nil, false
	}
	var value any
	if err := json.Unmarshal([]byte(repaired), &value); err != nil {
		return nil, false
	}
	return value, true
}

// ParseObject is Parse restricted to object roots, which is what tool
// call argument buffers always are.
func ParseObject(input string) (map[string]any, bool) {
	value, ok := Parse(input)
	if !ok {
		return nil, false
	}
	object, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	return object, true
}

// containerFrame tracks one open object or array while scanning.
type containerFrame struct {
	opener byte
	// memberStart is the byte offset where the current (possibly
	// incomplete) member began. Cutting back to it removes a dangling
	// key or value without damaging completed members.
	memberStart int
	// sawMember reports whether at least one complete member was
	// committed at this depth, which decides whether a trailing comma
	// needs trimming after a cut.
	sawMember bool
}

// repair completes a truncated JSON document by cutting the trailing
// incomplete token and closing every open string, object, and array.
func repair(input string) (string, bool) {
	var stack []containerFrame
	inString := false
	escaped := false
	stringStart := 0

	for i := 0; i < len(input); i++ {
		c := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			stringStart = i
		case '{', '[':
			stack = append(stack, containerFrame{opener: c, memberStart: i + 1})
		case '}', ']':
			if len(stack) == 0 {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				stack[len(stack)-1].sawMember = true
			}
		case ',':
			if len(stack) > 0 {
				stack[len(stack)-1].sawMember = true
				stack[len(stack)-1].memberStart = i + 1
			}
		}
	}

	out := input

	if inString {
		if isDanglingKey(out, stringStart, stack) {
			out = cutCurrentMember(out, stack)
		} else if escaped {
			out = out[:len(out)-1] + `"`
		} else {
			out += `"`
		}
	}

	out = trimIncompleteTail(out, stack)

	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i].opener {
		case '{':
			out += "}"
		case '[':
			out += "]"
		}
	}
	return out, true
}

// isDanglingKey reports whether the unterminated string that starts at
// stringStart is an object key rather than a value.
func isDanglingKey(input string, stringStart int, stack []containerFrame) bool {
	if len(stack) == 0 || stack[len(stack)-1].opener != '{' {
		return false
	}
	between := strings.TrimSpace(input[stack[len(stack)-1].memberStart:stringStart])
	return between == ""
}

// cutCurrentMember drops the in-flight member at the deepest open object
// or array, leaving only completed members behind.
func cutCurrentMember(input string, stack []containerFrame) string {
	if len(stack) == 0 {
		return input
	}
	frame := stack[len(stack)-1]
	out := strings.TrimRight(input[:frame.memberStart], " \t\r\n")
	if frame.sawMember {
		out = strings.TrimSuffix(out, ",")
	}
	return out
}

// trimIncompleteTail removes trailing syntax that cannot be completed:
// a dangling colon (together with its key), a trailing comma, or a
// half-received literal such as "tru" or "12e".
func trimIncompleteTail(input string, stack []containerFrame) string {
	out := strings.TrimRight(input, " \t\r\n")
	if out == "" {
		return out
	}

	last := out[len(out)-1]
	switch {
	case last == ',':
		return strings.TrimRight(out[:len(out)-1], " \t\r\n")
	case last == ':':
		return cutCurrentMember(out, stack)
	case last == '"':
		if isKeyWithoutColon(out, stack) {
			return cutCurrentMember(out, stack)
		}
		return out
	case last == '{' || last == '[' || last == '}' || last == ']':
		return out
	}

	// The tail is a bare literal. Keep valid number prefixes after
	// trimming non-terminal number characters; cut everything else.
	start := len(out)
	for start > 0 && !isTokenBoundary(out[start-1]) {
		start--
	}
	token := out[start:]
	if completed, ok := completeLiteral(token); ok {
		return out[:start] + completed
	}
	cut := strings.TrimRight(out[:start], " \t\r\n")
	if cut == "" {
		return cut
	}
	switch cut[len(cut)-1] {
	case ',':
		return strings.TrimRight(cut[:len(cut)-1], " \t\r\n")
	case ':':
		return cutCurrentMember(cut, stack)
	}
	return cut
}

// isKeyWithoutColon reports whether the trailing complete string is an
// object key still waiting for its colon, e.g. `{"a":1,"b"`.
func isKeyWithoutColon(input string, stack []containerFrame) bool {
	if len(stack) == 0 || stack[len(stack)-1].opener != '{' {
		return false
	}
	member := input[stack[len(stack)-1].memberStart:]
	inString := false
	escaped := false
	for i := 0; i < len(member); i++ {
		c := member[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ':':
			return false
		}
	}
	return true
}

func isTokenBoundary(c byte) bool {
	switch c {
	case '{', '[', ',', ':', ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

// completeLiteral turns a truncated scalar token into a valid one when
// possible: literal prefixes resolve to their keyword, numbers are
// trimmed back to a valid form.
func completeLiteral(token string) (string, bool) {
	for _, keyword := range []string{"true", "false", "null"} {
		if strings.HasPrefix(keyword, token) {
			return keyword, true
		}
	}

	number := token
	for number != "" {
		c := number[len(number)-1]
		if c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			number = number[:len(number)-1]
			continue
		}
		break
	}
	if number != "" && json.Valid([]byte(number)) {
		return number, true
	}
	return "", false
}
