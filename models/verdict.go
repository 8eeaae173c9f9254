package models

import (
	"encoding/json"
	"strings"
)

// Verdict is the canonical verdict code persisted with every answer.
type Verdict string

const (
	VerdictTrue    Verdict = "TRUE"
	VerdictPartial Verdict = "PARTIAL"
	VerdictFalse   Verdict = "FALSE"
	VerdictError   Verdict = "ERROR"
)

// Display labels shown to users.
const (
	LabelTrue    = "사실"
	LabelPartial = "일부 사실"
	LabelFalse   = "사실 아님"
)

// Partial phrases contain whole-match phrases ("일부 사실" contains "사실"),
// so the lists are checked in the order partial, false, true.
var (
	partialPhrases = []string{"일부 사실", "일부사실", "부분적", "partial", "partly", "mixed"}
	falsePhrases   = []string{
		"사실 아님", "사실아님", "사실 아닙", "사실 아니", "사실이 아", "사실과 다", "사실과 달",
		"거짓", "틀렸", "틀린", "틀립", "false", "untrue", "not true", "incorrect", "not correct", "wrong",
	}
	truePhrases = []string{"사실", "true", "correct"}
)

// ParseVerdict maps free text to a canonical verdict. Unmatched text maps to
// VerdictPartial.
func ParseVerdict(text string) Verdict {
	t := strings.ToLower(strings.TrimSpace(text))
	switch Verdict(strings.ToUpper(t)) {
	case VerdictTrue, VerdictPartial, VerdictFalse, VerdictError:
		return Verdict(strings.ToUpper(t))
	}
	if containsAny(t, partialPhrases) {
		return VerdictPartial
	}
	if containsAny(t, falsePhrases) {
		return VerdictFalse
	}
	if containsAny(t, truePhrases) {
		return VerdictTrue
	}
	return VerdictPartial
}

// Label returns the user-facing label for the verdict.
func (v Verdict) Label() string {
	switch v {
	case VerdictTrue:
		return LabelTrue
	case VerdictFalse:
		return LabelFalse
	case VerdictError:
		return string(VerdictError)
	default:
		return LabelPartial
	}
}

// Valid reports whether v is one of the canonical codes.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictTrue, VerdictPartial, VerdictFalse, VerdictError:
		return true
	}
	return false
}

// UnmarshalJSON accepts canonical codes and free-text labels alike.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*v = ""
		return nil
	}
	*v = ParseVerdict(s)
	return nil
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
