package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite

	"examsim-server/exam"
	"examsim-server/models"
)

const defaultSQLiteDSN = "file:examsim.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS exam_sets (
  id TEXT PRIMARY KEY,
  created_at INTEGER NOT NULL,
  status TEXT NOT NULL,
  question_count INTEGER NOT NULL,
  body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS exam_sets_created_at_idx ON exam_sets (created_at DESC);

CREATE TABLE IF NOT EXISTS error_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp INTEGER NOT NULL,
  source TEXT NOT NULL,
  section TEXT NOT NULL DEFAULT '',
  error_message TEXT NOT NULL,
  detail TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS admin_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp INTEGER NOT NULL,
  action TEXT NOT NULL,
  actor TEXT NOT NULL,
  target TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore keeps exam sets in a local SQLite file, the default for a
// single machine.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens dsn and ensures the schema exists.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("error executing schema SQL: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveExamSet(ctx context.Context, set *models.ExamSet) error {
	body, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("%w: %v", exam.ErrPersistWrite, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exam_sets (id, created_at, status, question_count, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status=excluded.status, question_count=excluded.question_count, body=excluded.body`,
		set.ID, set.CreatedAt.UnixNano(), set.Status, len(set.Questions), string(body))
	if err != nil {
		return fmt.Errorf("%w: %v", exam.ErrPersistWrite, err)
	}
	return nil
}

func (s *SQLiteStore) GetExamSet(ctx context.Context, id string) (*models.ExamSet, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM exam_sets WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exam set %s: %w", id, err)
	}
	var set models.ExamSet
	if err := json.Unmarshal([]byte(body), &set); err != nil {
		return nil, fmt.Errorf("failed to decode exam set %s: %w", id, err)
	}
	return &set, nil
}

func (s *SQLiteStore) ListExamSets(ctx context.Context, limit int) ([]models.ExamSetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, status, question_count FROM exam_sets
		ORDER BY created_at DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query exam sets: %w", err)
	}
	defer rows.Close()

	var out []models.ExamSetInfo
	for rows.Next() {
		var info models.ExamSetInfo
		var created int64
		if err := rows.Scan(&info.ID, &created, &info.Status, &info.Questions); err != nil {
			return nil, fmt.Errorf("failed to scan exam set: %w", err)
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LogError(ctx context.Context, source, section, errMsg, detail string) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO error_logs (timestamp, source, section, error_message, detail)
		VALUES (?, ?, ?, ?, ?)`, time.Now().UnixNano(), source, section, errMsg, detail)
	if err != nil {
		logStoreFailure("error log", err, errMsg)
	}
}

func (s *SQLiteStore) LogAdminEvent(ctx context.Context, actor, action, target, notes string) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO admin_events (timestamp, action, actor, target, notes)
		VALUES (?, ?, ?, ?, ?)`, time.Now().UnixNano(), action, actor, target, notes)
	if err != nil {
		logStoreFailure("admin event", err, fmt.Sprintf("%s by %s on %s", action, actor, target))
	}
}

func (s *SQLiteStore) RecentErrors(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, source, section, error_message, detail
		FROM error_logs ORDER BY id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query error logs: %w", err)
	}
	defer rows.Close()

	var out []models.ErrorLog
	for rows.Next() {
		var e models.ErrorLog
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.Source, &e.Section, &e.ErrorMessage, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan error log: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecentAdminEvents(ctx context.Context, limit int) ([]models.AdminEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, action, actor, target, notes
		FROM admin_events ORDER BY id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query admin events: %w", err)
	}
	defer rows.Close()

	var out []models.AdminEvent
	for rows.Next() {
		var e models.AdminEvent
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.Action, &e.Actor, &e.Target, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan admin event: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
