package types

import (
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a scrape run.
type RunStatus string

const (
	RunStarted             RunStatus = "started"
	RunInProgress          RunStatus = "in_progress"
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed_with_errors"
)

// Terminal reports whether no further transitions are allowed.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunCompletedWithErrors
}

// ScrapeRun tracks one execution of the ingestion pipeline.
type ScrapeRun struct {
	ID         string     `json:"id"              bson:"_id"`
	StartTime  time.Time  `json:"start_time"      bson:"start_time"`
	EndTime    *time.Time `json:"end_time"        bson:"end_time,omitempty"`
	Status     RunStatus  `json:"status"          bson:"status"`
	Total      int        `json:"total_items"     bson:"total_items"`
	Successful int        `json:"successful_items" bson:"successful_items"`
	Errors     int        `json:"error_items"     bson:"error_items"`
	Log        []string   `json:"log"             bson:"log"`
}

// Details returns the log trail as a single newline-separated string.
func (r *ScrapeRun) Details() string {
	return strings.Join(r.Log, "\n")
}

// Clone returns a copy that shares nothing with r.
func (r *ScrapeRun) Clone() *ScrapeRun {
	c := *r
	c.Log = append([]string(nil), r.Log...)
	if r.EndTime != nil {
		t := *r.EndTime
		c.EndTime = &t
	}
	return &c
}
