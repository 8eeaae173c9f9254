package service

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object in model output")

// extractJSONObject returns the outermost {...} of s, ignoring markdown
// fences and prose around it.
func extractJSONObject(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return s[start : end+1], nil
}

// decodeModelJSON decodes the JSON object embedded in model output into v.
func decodeModelJSON(s string, v any) error {
	obj, err := extractJSONObject(s)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(obj), v)
}
