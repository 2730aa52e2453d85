package ai

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

const (
	heuristicConfidence = 0.5
	basicConfidence     = 0.3
)

// ParseLabeled reads "Label: value" lines from a non-JSON reply, including
// quoted near-JSON lines. Labels are matched case-insensitively; an unknown category becomes News and an
// unparsable confidence keeps the 0.5 default.
func ParseLabeled(text string) types.ExtractionResult {
	res := types.ExtractionResult{
		Category:   types.CategoryNews,
		Confidence: heuristicConfidence,
		Method:     types.MethodHeuristic,
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-*• ")
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimRight(strings.TrimSpace(value), ",")
		value = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), `*"`))

		switch strings.ToLower(strings.Trim(strings.TrimSpace(label), `*" `)) {
		case "title":
			res.Title = value
		case "headline":
			res.Headline = value
		case "description":
			res.Description = value
		case "summary":
			res.Summary = value
		case "category":
			res.Category = types.CoerceCategory(value)
		case "location":
			res.Location = value
		case "confidence", "confidence score", "confidence_score":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				res.Confidence = clamp01(v)
			}
		case "excluded reason", "excluded_reason":
			if !blankReason(value) {
				res.ExcludedReason = value
			}
		}
	}
	return res
}

// BasicExtraction derives fields from the raw text alone. It is used when no
// provider is configured and always reports confidence 0.3.
func BasicExtraction(text string) types.ExtractionResult {
	title := ""
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			title = line
			break
		}
	}
	if title == "" {
		title = prefix(text, 50)
	}
	return types.ExtractionResult{
		Title:       title,
		Description: prefix(text, 500),
		Summary:     prefix(text, 200),
		Category:    types.CategoryNews,
		Confidence:  basicConfidence,
		Method:      types.MethodBasic,
	}
}

// EmptyResult is returned when extraction could not run or failed.
func EmptyResult(marker string) types.ExtractionResult {
	return types.ExtractionResult{
		Category: types.CategoryNews,
		Error:    marker,
		Method:   types.MethodFailed,
	}
}

// prefix returns the first n characters of s, never splitting a rune.
func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
