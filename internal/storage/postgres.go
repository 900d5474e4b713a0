package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/PattaFeuFeu/Vernissage/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/vernissage?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS viewed_statuses (
			pk BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			reblog_id TEXT,
			account_id TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_viewed_account_id ON viewed_statuses(account_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_viewed_account_reblog ON viewed_statuses(account_id, reblog_id)`,
		`CREATE INDEX IF NOT EXISTS idx_viewed_date ON viewed_statuses(date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresStore) InsertViewedStatus(ctx context.Context, rec model.ViewedStatusRecord) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO viewed_statuses (id, reblog_id, account_id, date) VALUES ($1, $2, $3, $4)`,
		rec.ID,
		nullable(rec.ReblogID),
		rec.AccountID,
		rec.Date.UTC(),
	)
	return err
}

func (s *postgresStore) FindViewedStatus(ctx context.Context, accountID, statusID string) (model.ViewedStatusRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, reblog_id, account_id, date FROM viewed_statuses
		WHERE account_id = $1 AND (id = $2 OR reblog_id = $2)
		ORDER BY date DESC, pk DESC
		LIMIT 1`,
		accountID, statusID,
	)
	return scanRecord(row)
}

func (s *postgresStore) DeleteViewedStatusesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM viewed_statuses WHERE date < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *postgresStore) CountViewedStatuses(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM viewed_statuses`).Scan(&n)
	return n, err
}
