package utils

import (
	"fmt"
	"strings"
)

// ExtractJSONObject returns the outermost JSON object embedded in text.
// Model responses sometimes wrap the object in prose or code fences, so
// a direct unmarshal is tried first by callers and this is the fallback.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return text[start : end+1], nil
}
