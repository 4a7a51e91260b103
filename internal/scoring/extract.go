package scoring

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned by [extractJSON] when the text contains no brace-
// delimited object.
var ErrNoJSON = errors.New("no JSON object in model output")

// extractJSON pulls the outermost brace-delimited object out of free-form
// model output. Grader models are told to return only JSON but often wrap it
// in prose or code fences; the greedy first-{ to last-} slice survives both.
func extractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}
