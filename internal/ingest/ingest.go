package ingest

import (
	"context"
	"log/slog"

	"github.com/PattaFeuFeu/Vernissage/internal/model"
	"github.com/PattaFeuFeu/Vernissage/internal/tracker"
)

func SendNonBlocking(ctx context.Context, out chan<- model.SeenEvent, ev model.SeenEvent, logger *slog.Logger) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("seen event channel full, dropping event", "account_id", ev.AccountID, "status_id", ev.StatusID)
		}
		return false
	}
}

// StartRecorder drains seen events into the tracker until ctx is done.
// Insert failures are already logged by the tracker and are not retried;
// dedup is best-effort.
func StartRecorder(ctx context.Context, in <-chan model.SeenEvent, tr *tracker.Tracker) {
	go func() {
		for {
			select {
			case ev := <-in:
				status := model.Status{ID: ev.StatusID, ReblogID: ev.ReblogID}
				_ = tr.RecordSeen(ctx, ev.AccountID, status)
			case <-ctx.Done():
				return
			}
		}
	}()
}
