package types

import "time"

// SourceKind identifies the fetch strategy used for a source.
type SourceKind string

const (
	SourceRSS     SourceKind = "rss"
	SourceWebsite SourceKind = "website"
	SourceAPI     SourceKind = "api"
)

// SourceDescriptor is a configured origin of news content.
type SourceDescriptor struct {
	ID        string    `json:"id"         bson:"_id"`
	Name      string    `json:"source_name" bson:"source_name"`
	URL       string    `json:"url"        bson:"url"`
	Category  Category  `json:"category"   bson:"category"`
	Active    bool      `json:"is_active"  bson:"is_active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// Location is geocoded for this source's items when extraction finds no place.
	Location string `json:"location,omitempty" bson:"location,omitempty"`
}

// Candidate is a raw fetched document before extraction.
type Candidate struct {
	// Text is the plain text handed to the extractor.
	Text string

	// URL is the article (or entry) link; it becomes the record's source URL.
	URL string

	// Title is the title seen by the fetcher, used when extraction yields none.
	Title string

	// SourceName is the publisher, when the fetcher knows it.
	SourceName string

	// Published is the publication time, zero when unknown.
	Published time.Time

	// DefaultLocation is geocoded when the extracted location is empty or unresolvable.
	DefaultLocation string

	// CategoryHint is a keyword-derived category used only for degraded extractions.
	CategoryHint Category
}
