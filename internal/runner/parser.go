package runner

import (
	"encoding/json"
	"regexp"
	"strings"
)

// parsed is the tagged union the model's reply decodes into: exactly one
// of ToolCall or FinalAnswer is set on success.
type parsed struct {
	ToolCall   *toolCallIntent
	FinalAnswer string
}

type toolCallIntent struct {
	Name       string          `json:"tool_call"`
	Parameters json.RawMessage `json:"parameters"`
}

type rawEnvelope struct {
	ToolCall    string          `json:"tool_call"`
	Parameters  json.RawMessage `json:"parameters"`
	FinalAnswer *string         `json:"final_answer"`
}

var fencedJSONBlock = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// parseResponse tries a strict JSON parse of the whole text; failing
// that, the first fenced ```json block; failing that, the first balanced
// {...} substring. Returns false if none of the three yield a usable
// tagged union.
func parseResponse(text string) (parsed, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return parsed{}, false
	}

	if p, ok := tryDecode(text); ok {
		return p, true
	}

	if m := fencedJSONBlock.FindStringSubmatch(text); m != nil {
		if p, ok := tryDecode(m[1]); ok {
			return p, true
		}
	}

	if sub, ok := firstBalancedObject(text); ok {
		if p, ok := tryDecode(sub); ok {
			return p, true
		}
	}

	return parsed{}, false
}

func tryDecode(s string) (parsed, bool) {
	var env rawEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return parsed{}, false
	}
	if env.FinalAnswer != nil {
		return parsed{FinalAnswer: *env.FinalAnswer}, true
	}
	if strings.TrimSpace(env.ToolCall) != "" {
		return parsed{ToolCall: &toolCallIntent{Name: env.ToolCall, Parameters: env.Parameters}}, true
	}
	return parsed{}, false
}

// firstBalancedObject returns the first brace-balanced {...} substring,
// respecting string literals so braces inside quoted values don't
// unbalance the scan.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// looksLikeDataNeedPhrase reports whether text suggests the model wants
// more data despite failing to emit valid JSON (§4.F.3 recovery).
func looksLikeDataNeedPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range []string{"need more data", "insufficient", "let me request"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
