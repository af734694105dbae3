package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

var ErrNotJSON = errors.New("model output is not a JSON object")

// Decode parses model output into v. It tries, in order: strict JSON, the
// outermost {...} with code fences removed, json-repair, then Hjson.
func Decode(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	body := outerObject(stripFences(raw))
	if body == "" {
		return ErrNotJSON
	}
	if err := json.Unmarshal([]byte(body), v); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.RepairJSON(body); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return nil
		}
	}

	var loose any
	if err := hjson.Unmarshal([]byte(body), &loose); err != nil {
		return fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	b, err := json.Marshal(loose)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // language tag
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

// outerObject returns the text from the first '{' to the last '}', or the
// text from the first '{' when the object was cut off.
func outerObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}
