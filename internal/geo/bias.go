package geo

import (
	"regexp"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// stateToken matches a trailing ", XX" state abbreviation such as ", CA".
var stateToken = regexp.MustCompile(`,\s*[A-Z]{2}\b`)

// Bias steers ambiguous queries toward the configured target region.
type Bias struct {
	suffix       string
	suffixKey    string
	markers      *regexp.Regexp
	localPlaces  *regexp.Regexp
	adminRegions []string
}

// NewBias builds a Bias from region settings. An empty suffix disables query rewriting.
func NewBias(cfg config.RegionConfig) *Bias {
	return &Bias{
		suffix:       cfg.BiasSuffix,
		suffixKey:    normalizeKey(strings.TrimLeft(cfg.BiasSuffix, ", ")),
		markers:      termPattern(cfg.Markers),
		localPlaces:  termPattern(cfg.LocalPlaces),
		adminRegions: cfg.AdminRegions,
	}
}

// termPattern compiles a case-insensitive whole-word alternation, or nil for no terms.
func termPattern(terms []string) *regexp.Regexp {
	var quoted []string
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// HasRegionalMarker reports whether text already names a state or country.
func (b *Bias) HasRegionalMarker(text string) bool {
	if stateToken.MatchString(text) {
		return true
	}
	return b.markers != nil && b.markers.MatchString(text)
}

// IsLocalPlace reports whether text names one of the configured local places.
func (b *Bias) IsLocalPlace(text string) bool {
	return b.localPlaces != nil && b.localPlaces.MatchString(text)
}

// Apply returns the query to send to the provider and whether it was rewritten.
func (b *Bias) Apply(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if b.suffix == "" || b.HasRegionalMarker(text) || b.IsLocalPlace(text) {
		return text, false
	}
	return text + b.suffix, true
}

// Strip removes a trailing region suffix from a normalized key. It returns
// "" when key does not carry the suffix.
func (b *Bias) Strip(key string) string {
	if b.suffixKey == "" {
		return ""
	}
	rest := strings.TrimSuffix(key, b.suffixKey)
	if rest == key || rest == "" {
		return ""
	}
	if last := rest[len(rest)-1]; last != ',' && last != ' ' {
		return ""
	}
	return strings.TrimRight(rest, ", ")
}

// Prefer picks the first candidate inside the target region, else the first candidate.
func (b *Bias) Prefer(cands []types.GeoCandidate) types.GeoCandidate {
	for _, c := range cands {
		for _, region := range c.AdminRegion {
			for _, want := range b.adminRegions {
				if strings.EqualFold(region, want) {
					return c
				}
			}
		}
	}
	return cands[0]
}

// normalizeKey lowercases, trims and collapses inner whitespace.
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
