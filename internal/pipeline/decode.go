package pipeline

import (
	"encoding/json"
	"errors"
)

type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultParseError
	ResultModelError
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultParseError:
		return "parse_error"
	case ResultModelError:
		return "model_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one model call and its decoding. Only ResultOK
// carries items.
type Result[T any] struct {
	Kind  ResultKind
	Items []T
	Err   error
}

var ErrNoJSONArray = errors.New("no JSON array in model output")

// FirstJSONArray returns the first balanced top-level [...] in text. Brackets
// inside JSON strings are ignored.
func FirstJSONArray(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if start < 0 {
			if ch == '[' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// DecodeArray decodes model text into items. Text without a decodable array
// yields ResultParseError.
func DecodeArray[T any](text string) Result[T] {
	raw, ok := FirstJSONArray(text)
	if !ok {
		return Result[T]{Kind: ResultParseError, Err: ErrNoJSONArray}
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return Result[T]{Kind: ResultParseError, Err: err}
	}
	return Result[T]{Kind: ResultOK, Items: items}
}

func modelError[T any](err error) Result[T] {
	return Result[T]{Kind: ResultModelError, Err: err}
}
