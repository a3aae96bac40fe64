package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"examsim-server/exam"
	"examsim-server/models"
)

// PGStore keeps exam sets in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres initializes the PostgreSQL connection pool and creates the schema.
func OpenPostgres(ctx context.Context, connString string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Ping the database to verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("Successfully connected to PostgreSQL database!")

	s := &PGStore{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// createSchema sets up the tables. In production use a migration tool.
func (s *PGStore) createSchema(ctx context.Context) error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS exam_sets (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		status VARCHAR(16) NOT NULL CHECK (status IN ('complete', 'partial')),
		question_count INT NOT NULL,
		body JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS exam_sets_created_at_idx ON exam_sets (created_at DESC);

	CREATE TABLE IF NOT EXISTS error_logs (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		source TEXT NOT NULL, -- e.g., "validator", "assembly", "bank"
		section VARCHAR(64),
		error_message TEXT NOT NULL,
		detail TEXT
	);

	CREATE TABLE IF NOT EXISTS admin_events (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		action VARCHAR(255),
		actor VARCHAR(255), -- Token subject or 'system'
		target TEXT,
		notes TEXT
	);
	`
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

func (s *PGStore) SaveExamSet(ctx context.Context, set *models.ExamSet) error {
	body, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("%w: %v", exam.ErrPersistWrite, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO exam_sets (id, created_at, status, question_count, body)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			question_count = EXCLUDED.question_count,
			body = EXCLUDED.body
	`, set.ID, set.CreatedAt, set.Status, len(set.Questions), body)
	if err != nil {
		return fmt.Errorf("%w: %v", exam.ErrPersistWrite, err)
	}
	return nil
}

func (s *PGStore) GetExamSet(ctx context.Context, id string) (*models.ExamSet, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM exam_sets WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exam set %s: %w", id, err)
	}
	var set models.ExamSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to decode exam set %s: %w", id, err)
	}
	return &set, nil
}

func (s *PGStore) ListExamSets(ctx context.Context, limit int) ([]models.ExamSetInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, status, question_count FROM exam_sets
		ORDER BY created_at DESC LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query exam sets: %w", err)
	}
	defer rows.Close()

	var out []models.ExamSetInfo
	for rows.Next() {
		var info models.ExamSetInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.Status, &info.Questions); err != nil {
			return nil, fmt.Errorf("failed to scan exam set: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// LogError adds an entry to the error_logs table
func (s *PGStore) LogError(ctx context.Context, source, section, errMsg, detail string) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO error_logs (source, section, error_message, detail)
		VALUES ($1, $2, $3, $4)
	`, source, section, errMsg, detail)
	if err != nil {
		logStoreFailure("error log", err, errMsg)
	}
}

// LogAdminEvent adds an entry to the admin_events table
func (s *PGStore) LogAdminEvent(ctx context.Context, actor, action, target, notes string) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admin_events (action, actor, target, notes)
		VALUES ($1, $2, $3, $4)
	`, action, actor, target, notes)
	if err != nil {
		logStoreFailure("admin event", err, fmt.Sprintf("%s by %s on %s", action, actor, target))
	}
}

func (s *PGStore) RecentErrors(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, source, COALESCE(section, ''), error_message, COALESCE(detail, '')
		FROM error_logs ORDER BY id DESC LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query error logs: %w", err)
	}
	defer rows.Close()

	var out []models.ErrorLog
	for rows.Next() {
		var e models.ErrorLog
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Source, &e.Section, &e.ErrorMessage, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan error log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) RecentAdminEvents(ctx context.Context, limit int) ([]models.AdminEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, COALESCE(action, ''), COALESCE(actor, ''), COALESCE(target, ''), COALESCE(notes, '')
		FROM admin_events ORDER BY id DESC LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query admin events: %w", err)
	}
	defer rows.Close()

	var out []models.AdminEvent
	for rows.Next() {
		var e models.AdminEvent
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.Actor, &e.Target, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan admin event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
