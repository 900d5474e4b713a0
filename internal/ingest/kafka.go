package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/PattaFeuFeu/Vernissage/internal/config"
	"github.com/PattaFeuFeu/Vernissage/internal/model"
)

// StartKafka consumes "status displayed" events published by other timeline
// frontends so every renderer shares one dedup index.
func StartKafka(ctx context.Context, cfg *config.Manager, out chan<- model.SeenEvent, logger *slog.Logger) {
	current := cfg.Get().Ingest.Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.Topic, "group_id", current.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  current.Brokers,
		Topic:    current.Topic,
		GroupID:  current.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				continue
			}
			var ev model.SeenEvent
			if err := json.Unmarshal(m.Value, &ev); err != nil {
				if logger != nil {
					logger.Warn("kafka decode error", "err", err)
				}
				continue
			}
			if ev.AccountID == "" || ev.StatusID == "" {
				continue
			}
			SendNonBlocking(ctx, out, ev, logger)
		}
	}()
}
