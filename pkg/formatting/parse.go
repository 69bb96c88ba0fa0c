// Package formatting provides parsing utilities for model responses and
// human-readable value types.
package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when content cannot be parsed as JSON,
// either directly or from a markdown code fence.
var ErrParseFailed = errors.New("failed to parse response")

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// ExtractJSON returns the raw JSON payload from content. Models often wrap
// JSON in a markdown code fence or surrounding prose; direct parsing is
// attempted first, then fence extraction. Returns ErrParseFailed when no
// valid JSON is found.
func ExtractJSON(content string) ([]byte, error) {
	content = strings.TrimSpace(content)

	if json.Valid([]byte(content)) {
		return []byte(content), nil
	}

	matches := jsonBlockRegex.FindStringSubmatch(content)
	if len(matches) >= 2 {
		cleaned := strings.TrimSpace(matches[1])
		if json.Valid([]byte(cleaned)) {
			return []byte(cleaned), nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrParseFailed, content)
}

// Parse attempts to unmarshal content as JSON into T, tolerating markdown
// code fences the same way ExtractJSON does.
func Parse[T any](content string) (T, error) {
	var result T

	raw, err := ExtractJSON(content)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("%w: %s", ErrParseFailed, content)
	}
	return result, nil
}
