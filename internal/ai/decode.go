package ai

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

var errNoJSONObject = errors.New("no JSON object in response")

// flexFloat accepts a JSON number or a numeric string. Null, a missing
// field or an unparsable value leave it unset.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		f.value, f.set = v, true
	}
	return nil
}

// or returns the parsed value, or def when none was given.
func (f flexFloat) or(def float64) float64 {
	if !f.set {
		return def
	}
	return f.value
}

type providerReply struct {
	Title          string    `json:"title"`
	Headline       string    `json:"headline"`
	Description    string    `json:"description"`
	Summary        string    `json:"summary"`
	Category       string    `json:"category"`
	Location       string    `json:"location"`
	Confidence     flexFloat `json:"confidence_score"`
	ExcludedReason *string   `json:"excluded_reason"`
}

// DecodeReply parses the JSON object in a provider reply. Code fences and
// prose around the object are ignored.
func DecodeReply(reply string) (types.ExtractionResult, error) {
	obj := extractJSON(reply)
	if obj == "" {
		return types.ExtractionResult{}, &types.ParseError{Stage: "extract_json", Err: errNoJSONObject}
	}
	var r providerReply
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return types.ExtractionResult{}, &types.ParseError{Stage: "decode_json", Err: err}
	}

	res := types.ExtractionResult{
		Title:       strings.TrimSpace(r.Title),
		Headline:    strings.TrimSpace(r.Headline),
		Description: strings.TrimSpace(r.Description),
		Summary:     strings.TrimSpace(r.Summary),
		Category:    types.CoerceCategory(r.Category),
		Location:    strings.TrimSpace(r.Location),
		Confidence:  clamp01(r.Confidence.or(heuristicConfidence)),
		Method:      types.MethodProvider,
	}
	if r.ExcludedReason != nil && !blankReason(*r.ExcludedReason) {
		res.ExcludedReason = strings.TrimSpace(*r.ExcludedReason)
	}
	return res, nil
}

// blankReason treats the placeholders models emit for "not excluded" as empty.
func blankReason(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "n/a", "na", "false", "no":
		return true
	}
	return false
}

// extractJSON returns the first balanced JSON object in s, or "".
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
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
				return s[start : i+1]
			}
		}
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
