// Package tracker decides whether a reblog arriving on a timeline duplicates
// content the account has already been shown, backed by a persisted,
// time-windowed index of viewed statuses.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/PattaFeuFeu/Vernissage/internal/activity"
	"github.com/PattaFeuFeu/Vernissage/internal/metrics"
	"github.com/PattaFeuFeu/Vernissage/internal/model"
	"github.com/PattaFeuFeu/Vernissage/internal/storage"
)

const DefaultRetentionMonths = 1

type Tracker struct {
	store           storage.Store
	logger          *slog.Logger
	activity        *activity.Store
	metrics         *metrics.Store
	retentionMonths int
	now             func() time.Time
}

type Option func(*Tracker)

// WithRetentionMonths overrides the calendar-month retention window.
func WithRetentionMonths(months int) Option {
	return func(t *Tracker) {
		if months > 0 {
			t.retentionMonths = months
		}
	}
}

// WithClock injects the time source used for stamping and purging records.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithActivity attaches a recent-activity log.
func WithActivity(store *activity.Store) Option {
	return func(t *Tracker) {
		t.activity = store
	}
}

// WithMetrics attaches per-account dedup counters.
func WithMetrics(store *metrics.Store) Option {
	return func(t *Tracker) {
		t.metrics = store
	}
}

func New(store storage.Store, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:           store,
		logger:          logger,
		retentionMonths: DefaultRetentionMonths,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HasBeenSeen reports whether the original post behind a reblog has already
// been shown on the account's timeline. Non-reblogs are never duplicates.
// Store errors fail open: a possible duplicate is shown rather than content
// being hidden.
func (t *Tracker) HasBeenSeen(ctx context.Context, accountID string, status model.Status) bool {
	if !status.IsReblog() {
		return false
	}
	rec, ok, err := t.store.FindViewedStatus(ctx, accountID, status.ReblogID)
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("viewed status lookup failed",
				"account_id", accountID,
				"status_id", status.ID,
				"err", err,
			)
		}
		return false
	}
	seen := false
	switch {
	case !ok:
	case rec.ReblogID == "":
		// The original itself was shown directly, no reblog path involved.
		seen = true
	case rec.ID != status.ID:
		// A different reblog of the same original was already shown.
		seen = true
	default:
		// The match is this exact reblog instance; it has not been
		// displayed under another identity.
	}
	t.reportDecision(accountID, status, seen)
	return seen
}

func (t *Tracker) reportDecision(accountID string, status model.Status, seen bool) {
	if t.metrics != nil {
		if seen {
			t.metrics.AddDuplicate(accountID)
		} else {
			t.metrics.AddMiss(accountID)
		}
	}
	if seen && t.activity != nil {
		t.activity.Add(activity.Event{
			Timestamp: t.now().UTC(),
			Kind:      activity.KindDuplicate,
			AccountID: accountID,
			StatusID:  status.ID,
			ReblogID:  status.ReblogID,
		})
	}
}

// RecordSeen appends a viewed-status row for the given status, stamped with
// the current time. Rows are never updated or merged.
func (t *Tracker) RecordSeen(ctx context.Context, accountID string, status model.Status) error {
	rec := model.ViewedStatusRecord{
		ID:        status.ID,
		ReblogID:  status.ReblogID,
		AccountID: accountID,
		Date:      t.now().UTC(),
	}
	if err := t.store.InsertViewedStatus(ctx, rec); err != nil {
		if t.logger != nil {
			t.logger.Warn("viewed status insert failed",
				"account_id", accountID,
				"status_id", status.ID,
				"err", err,
			)
		}
		return err
	}
	if t.metrics != nil {
		t.metrics.AddRecorded(accountID)
	}
	if t.activity != nil {
		t.activity.Add(activity.Event{
			Timestamp: rec.Date,
			Kind:      activity.KindRecorded,
			AccountID: accountID,
			StatusID:  status.ID,
			ReblogID:  status.ReblogID,
		})
	}
	return nil
}

// PurgeStale deletes rows older than the retention window across all
// accounts. The cutoff is "now minus retention in calendar months"; rows
// stamped exactly at the cutoff survive. A failed sweep is logged and left
// for the next cycle.
func (t *Tracker) PurgeStale(ctx context.Context) (int64, error) {
	cutoff := t.now().UTC().AddDate(0, -t.retentionMonths, 0)
	removed, err := t.store.DeleteViewedStatusesBefore(ctx, cutoff)
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("viewed status purge failed", "cutoff", cutoff, "err", err)
		}
		return 0, err
	}
	if removed > 0 && t.logger != nil {
		t.logger.Info("purged stale viewed statuses", "removed", removed, "cutoff", cutoff)
	}
	if t.activity != nil {
		t.activity.Add(activity.Event{
			Timestamp: t.now().UTC(),
			Kind:      activity.KindPurge,
			Removed:   removed,
		})
	}
	return removed, nil
}

// StartPurgeLoop runs PurgeStale on a ticker until ctx is done.
func (t *Tracker) StartPurgeLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_, _ = t.PurgeStale(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
