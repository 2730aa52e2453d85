package types

// ExtractionResult is the structured view of a candidate produced by the extractor.
type ExtractionResult struct {
	Title          string   `json:"title"`
	Headline       string   `json:"headline"`
	Description    string   `json:"description"`
	Summary        string   `json:"summary"`
	Category       Category `json:"category"`
	Location       string   `json:"location"`
	Confidence     float64  `json:"confidence_score"`
	ExcludedReason string   `json:"excluded_reason,omitempty"`

	// Error marks a result produced after a failure; it is never set on success.
	Error string `json:"error,omitempty"`

	// Method records which extraction path produced the result.
	Method ExtractionMethod `json:"method"`
}

// ExtractionMethod names the path that produced an ExtractionResult.
type ExtractionMethod string

const (
	MethodProvider  ExtractionMethod = "provider"
	MethodHeuristic ExtractionMethod = "heuristic"
	MethodBasic     ExtractionMethod = "basic"
	MethodFailed    ExtractionMethod = "failed"
)

// Excluded reports whether the provider asked for the item to be skipped.
func (r ExtractionResult) Excluded() bool {
	return r.ExcludedReason != ""
}

// Degraded reports whether the result came from a fallback path rather than a provider.
func (r ExtractionResult) Degraded() bool {
	return r.Method == MethodBasic || r.Method == MethodFailed
}
