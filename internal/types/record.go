package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category is the fixed set of hyperlocal news buckets.
type Category string

const (
	CategoryNews     Category = "News"
	CategoryBusiness Category = "Business"
	CategoryCause    Category = "Cause"
	CategoryEvent    Category = "Event"
	CategoryCrime    Category = "Crime & Safety"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryNews, CategoryBusiness, CategoryCause, CategoryEvent, CategoryCrime}

// Valid reports whether c is one of the five known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches s against the known categories, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}
	return "", false
}

// CoerceCategory returns the matching category, or News for anything unrecognized.
func CoerceCategory(s string) Category {
	if c, ok := ParseCategory(s); ok {
		return c
	}
	return CategoryNews
}

// NewsRecord is a persisted, geolocated news item.
type NewsRecord struct {
	ID          string    `json:"id"                  bson:"_id"`
	Title       string    `json:"title"               bson:"title"`
	Headline    string    `json:"headline,omitempty"  bson:"headline,omitempty"`
	Description string    `json:"description"         bson:"description"`
	Summary     string    `json:"summary"             bson:"summary"`
	Category    Category  `json:"category"            bson:"category"`
	Latitude    float64   `json:"latitude"            bson:"latitude"`
	Longitude   float64   `json:"longitude"           bson:"longitude"`
	Location    string    `json:"location,omitempty"  bson:"location,omitempty"`
	SourceURL   string    `json:"source_url"          bson:"source_url"`
	SourceName  string    `json:"source_name,omitempty" bson:"source_name,omitempty"`
	PublishedAt time.Time `json:"date_time"           bson:"date_time"`
	Confidence  float64   `json:"confidence_score"    bson:"confidence_score"`
	CreatedAt   time.Time `json:"created_at"          bson:"created_at"`

	// coordsSet distinguishes (0,0) from "never resolved".
	coordsSet bool
}

// SetCoordinates attaches a resolved point to the record.
func (r *NewsRecord) SetCoordinates(p GeoPoint) {
	r.Latitude = p.Latitude
	r.Longitude = p.Longitude
	r.coordsSet = true
}

// HasCoordinates reports whether the record carries a valid WGS84 position.
func (r *NewsRecord) HasCoordinates() bool {
	if !r.coordsSet && r.Latitude == 0 && r.Longitude == 0 {
		return false
	}
	return r.Latitude >= -90 && r.Latitude <= 90 && r.Longitude >= -180 && r.Longitude <= 180
}

// Point returns the record position as a GeoPoint.
func (r *NewsRecord) Point() GeoPoint {
	return GeoPoint{Latitude: r.Latitude, Longitude: r.Longitude}
}

// ToJSON serializes the record to JSON bytes.
func (r *NewsRecord) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// CSVHeader is the column order used by ToFlatMap consumers.
var CSVHeader = []string{
	"Date_Time", "Title", "Headline", "Description", "Summary", "Category",
	"Location", "Latitude", "Longitude", "Source_URL", "Confidence_Score",
}

// ToFlatMap returns a flat map suitable for CSV export.
func (r *NewsRecord) ToFlatMap() map[string]string {
	lat := strconv.FormatFloat(r.Latitude, 'f', -1, 64)
	lng := strconv.FormatFloat(r.Longitude, 'f', -1, 64)
	ts := ""
	if !r.PublishedAt.IsZero() {
		ts = r.PublishedAt.Format(time.RFC3339)
	}
	return map[string]string{
		"Date_Time":        ts,
		"Title":            r.Title,
		"Headline":         r.Headline,
		"Description":      r.Description,
		"Summary":          r.Summary,
		"Category":         string(r.Category),
		"Location":         fmt.Sprintf("%s, %s", lat, lng),
		"Latitude":         lat,
		"Longitude":        lng,
		"Source_URL":       r.SourceURL,
		"Confidence_Score": strconv.FormatFloat(r.Confidence, 'f', 2, 64),
	}
}

// Clone creates a copy of the record.
func (r *NewsRecord) Clone() *NewsRecord {
	clone := *r
	return &clone
}
