// Package parser turns fetched HTML and feed markup into the plain text and
// links the source fetchers hand to extraction.
package parser

const (
	// ListingSelector matches anchors inside typical article listing containers.
	ListingSelector = "article a, .article a, .news-item a, .post a"

	// ContentSelector matches the element that usually wraps an article body.
	ContentSelector = "article, .article, .post, .news-item, main"
)

// BoilerplateMarkers flag body lines that belong to consent banners and footers.
var BoilerplateMarkers = []string{"Cookie", "Privacy Policy"}
