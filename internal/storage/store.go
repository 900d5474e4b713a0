package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/PattaFeuFeu/Vernissage/internal/config"
	"github.com/PattaFeuFeu/Vernissage/internal/model"
)

// Store persists viewed-status rows. Lookups use the OR-predicate over the
// row's own id and its reblog origin, scoped to one account.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	InsertViewedStatus(ctx context.Context, rec model.ViewedStatusRecord) error
	FindViewedStatus(ctx context.Context, accountID, statusID string) (model.ViewedStatusRecord, bool, error)
	DeleteViewedStatusesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountViewedStatuses(ctx context.Context) (int64, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// nullable maps an empty reblog id to a SQL NULL so "seen directly" and
// "seen via reblog" stay distinguishable in storage.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func scanRecord(row *sql.Row) (model.ViewedStatusRecord, bool, error) {
	var rec model.ViewedStatusRecord
	var reblogID sql.NullString
	err := row.Scan(&rec.ID, &reblogID, &rec.AccountID, &rec.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ViewedStatusRecord{}, false, nil
	}
	if err != nil {
		return model.ViewedStatusRecord{}, false, err
	}
	if reblogID.Valid {
		rec.ReblogID = reblogID.String
	}
	return rec, true, nil
}
