package sources

import (
	"net/url"
	"strings"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// categoryKeywords is checked in order; the first bucket with a hit wins.
var categoryKeywords = []struct {
	category types.Category
	words    []string
}{
	{types.CategoryEvent, []string{
		"event", "festival", "parade", "concert", "exhibition", "show", "ceremony", "celebration",
		"workshop", "meeting", "conference", "gathering", "upcoming", "schedule",
	}},
	{types.CategoryBusiness, []string{
		"business", "company", "store", "shop", "restaurant", "cafe", "market", "grand opening",
		"closing", "economic", "commercial", "retail", "entrepreneur", "enterprise",
	}},
	{types.CategoryCrime, []string{
		"police", "crime", "arrest", "investigation", "safety", "accident", "crash", "fire",
		"emergency", "warning", "alert", "shooting", "robbery", "theft", "burglary", "assault",
		"traffic", "violation",
	}},
	{types.CategoryCause, []string{
		"volunteer", "charity", "donation", "fundraiser", "nonprofit", "community service",
		"campaign", "awareness", "support", "cause", "drive", "helping", "benefit",
	}},
}

// GuessCategory assigns a category from keywords in the title and content.
func GuessCategory(title, content string) types.Category {
	text := strings.ToLower(title + " " + content)
	for _, bucket := range categoryKeywords {
		for _, w := range bucket.words {
			if strings.Contains(text, w) {
				return bucket.category
			}
		}
	}
	return types.CategoryNews
}

// SourceFromLink names a publisher after the second-level label of the
// link's host, e.g. "https://www.newsday.com/x" gives "Newsday".
func SourceFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "Unknown Source"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	if name == "" {
		return "Unknown Source"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
