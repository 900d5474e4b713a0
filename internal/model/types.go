package model

import "time"

// ImageSize holds known pixel dimensions of a remote image.
type ImageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Status is the slice of a Pixelfed status this service cares about.
// ReblogID is the identifier of the reblogged original; empty means the
// status is not a reblog.
type Status struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id,omitempty"`
	ReblogID  string    `json:"reblog_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// IsReblog reports whether the status carries a reference to an original post.
func (s Status) IsReblog() bool {
	return s.ReblogID != ""
}

// ViewedStatusRecord is one persisted "this status was shown on this
// account's timeline" row. Rows are append-only; the same status/account
// pair may appear more than once, correctness lives in the lookup policy.
type ViewedStatusRecord struct {
	ID        string    `json:"id"`
	ReblogID  string    `json:"reblog_id,omitempty"`
	AccountID string    `json:"account_id"`
	Date      time.Time `json:"date"`
}

// SeenEvent is the wire shape for externally reported "status was
// displayed" events consumed from the ingest side.
type SeenEvent struct {
	AccountID string    `json:"account_id"`
	StatusID  string    `json:"status_id"`
	ReblogID  string    `json:"reblog_id,omitempty"`
	ShownAt   time.Time `json:"shown_at,omitempty"`
}
