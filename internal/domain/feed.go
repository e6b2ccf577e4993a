package domain

import (
	"errors"
	"time"
)

// Origin is the closed set of sites a Feed can come from.
type Origin string

const (
	OriginCountryPage Origin = "the_country_page"
	OriginWordPage    Origin = "the_word_page"
	OriginLocalPage   Origin = "local_page"
)

// Valid reports whether the origin belongs to the known set.
func (o Origin) Valid() bool {
	switch o {
	case OriginCountryPage, OriginWordPage, OriginLocalPage:
		return true
	}
	return false
}

// ErrDuplicateURL signals that a feed with the same URL already exists.
// The unique index on url is the single source of truth for this.
var ErrDuplicateURL = errors.New("duplicate url")

// ErrNotFound signals a missing feed on read/update/delete paths.
var ErrNotFound = errors.New("feed not found")

// Feed is the persisted article unit, identified by its canonical URL.
type Feed struct {
	ID          string
	Title       string
	Subtitle    string
	Category    string
	URL         string
	ImageURL    string
	Author      string
	Origin      Origin
	Content     string
	PublishedAt time.Time
	UpdatedAt   *time.Time
}

// FeedDraft carries everything needed to create a Feed except timestamps,
// which are stamped by the ingestion service depending on the call path.
type FeedDraft struct {
	Title    string
	Subtitle string
	Category string
	URL      string
	ImageURL string
	Author   string
	Origin   Origin
	Content  string
}

// FeedPatch applies partial updates through the explicit update path.
// Nil fields are left untouched.
type FeedPatch struct {
	Title    *string
	Subtitle *string
	Category *string
	ImageURL *string
	Author   *string
	Content  *string
}

// CandidateLink is an unfetched article URL discovered on a listing page.
// It lives only between discovery and extraction.
type CandidateLink struct {
	Title    string
	URL      string
	Category string
	Host     string
}

// FeedLogEntry is an append-only failure record for operator diagnosis.
type FeedLogEntry struct {
	Message   string
	URL       string
	Detail    string
	CreatedAt time.Time
}
