package models

import "time"

// Resource is one fetched document belonging to a dataset. The raw
// document bytes and their hash are kept so a re-crawl can skip parsing
// when nothing changed.
type Resource struct {
	URL            string     `db:"url" json:"url" validate:"required"`
	DatasetID      string     `db:"dataset_id" json:"dataset_id" validate:"required"`
	LastFetch      *time.Time `db:"last_fetch" json:"last_fetch"`
	LastStatusCode *int       `db:"last_status_code" json:"last_status_code"`
	LastSucc       *time.Time `db:"last_succ" json:"last_succ"`
	Document       []byte     `db:"document" json:"-"`
	DocumentHash   *string    `db:"document_hash" json:"document_hash"`
	LastParsed     *time.Time `db:"last_parsed" json:"last_parsed"`
	LastParseError *string    `db:"last_parse_error" json:"last_parse_error"`
	Version        *string    `db:"version" json:"version"`
}

// ResourceContext carries the identifying fields of a resource through
// the parse and reconcile pipeline, mostly for warning attribution.
type ResourceContext struct {
	URL       string
	DatasetID string
}
