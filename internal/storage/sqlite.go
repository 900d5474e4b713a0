package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PattaFeuFeu/Vernissage/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:vernissage.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// The tracker is driven from a single logical context; one connection
	// keeps sqlite writes serialized.
	db.SetMaxOpenConns(1)
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS viewed_statuses (
			rowid_pk INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			reblog_id TEXT,
			account_id TEXT NOT NULL,
			date TIMESTAMP NOT NULL
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

func (s *sqliteStore) InsertViewedStatus(ctx context.Context, rec model.ViewedStatusRecord) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO viewed_statuses (id, reblog_id, account_id, date) VALUES (?, ?, ?, ?)`,
		rec.ID,
		nullable(rec.ReblogID),
		rec.AccountID,
		rec.Date.UTC(),
	)
	return err
}

func (s *sqliteStore) FindViewedStatus(ctx context.Context, accountID, statusID string) (model.ViewedStatusRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, reblog_id, account_id, date FROM viewed_statuses
		WHERE account_id = ? AND (id = ? OR reblog_id = ?)
		ORDER BY date DESC, rowid_pk DESC
		LIMIT 1`,
		accountID, statusID, statusID,
	)
	return scanRecord(row)
}

func (s *sqliteStore) DeleteViewedStatusesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM viewed_statuses WHERE date < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteStore) CountViewedStatuses(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM viewed_statuses`).Scan(&n)
	return n, err
}
