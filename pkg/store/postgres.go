package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/agentplexus/receptionist/pkg/model"
)

// PostgresStore persists Call and CallbackTask rows against the Schema
// DDL below, grounded field-for-field on the original
// SQLAlchemy models (calls/callback_tasks tables, same column names and
// indexes, minus the ORM relationship machinery that has no Go analogue
// here).
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore opens a connection pool against dsn (a standard
// "postgres://..." URL) using lib/pq as the driver.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// Schema is the DDL this store expects; migrations are out of scope (see
// spec.md Non-goals) but the statements are exposed here so `migrate`
// has something concrete to run at process start in small deployments.
const Schema = `
CREATE TABLE IF NOT EXISTS calls (
	id              TEXT PRIMARY KEY,
	from_number     TEXT NOT NULL,
	language        TEXT,
	customer_type   TEXT,
	intent          TEXT,
	status          TEXT NOT NULL DEFAULT 'init',
	summary         TEXT,
	transcript      TEXT,
	costs           JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ix_calls_from_number_created_at ON calls (from_number, created_at);
CREATE INDEX IF NOT EXISTS ix_calls_status_created_at ON calls (status, created_at);

CREATE TABLE IF NOT EXISTS callback_tasks (
	id                TEXT PRIMARY KEY,
	call_id           TEXT NOT NULL UNIQUE REFERENCES calls(id) ON DELETE CASCADE,
	priority          INTEGER NOT NULL DEFAULT 2,
	assignee          TEXT,
	name              TEXT,
	callback_number   TEXT NOT NULL,
	best_time_window  TEXT,
	notes             TEXT,
	status            TEXT NOT NULL DEFAULT 'pending',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ix_callback_tasks_status_priority ON callback_tasks (status, priority);
CREATE INDEX IF NOT EXISTS ix_callback_tasks_assignee_status ON callback_tasks (assignee, status);
`

// Migrate applies Schema. It is idempotent (IF NOT EXISTS throughout).
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func marshalCosts(costs map[string]float64) ([]byte, error) {
	if costs == nil {
		return nil, nil
	}
	return json.Marshal(costs)
}

func (s *PostgresStore) CreateCall(ctx context.Context, call *model.Call) error {
	costsJSON, err := marshalCosts(call.Costs)
	if err != nil {
		return fmt.Errorf("store: marshal costs: %w", err)
	}
	const q = `
		INSERT INTO calls (id, from_number, language, customer_type, intent, status, summary, transcript, costs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	row := s.db.QueryRowContext(ctx, q,
		call.ID, call.FromNumber, call.Language, call.CustomerType,
		call.Intent, call.Status, call.Summary, call.Transcript, costsJSON)
	return row.Scan(&call.CreatedAt, &call.UpdatedAt)
}

func (s *PostgresStore) GetCall(ctx context.Context, id string) (*model.Call, error) {
	const q = `
		SELECT id, from_number, language, customer_type, intent, status, summary, transcript, costs, created_at, updated_at
		FROM calls WHERE id = $1`
	row := s.db.QueryRowContext(ctx, q, id)
	return scanCall(row)
}

func scanCall(row *sql.Row) (*model.Call, error) {
	var c model.Call
	var lang, ctype sql.NullString
	var costsJSON []byte
	err := row.Scan(&c.ID, &c.FromNumber, &lang, &ctype, &c.Intent, &c.Status,
		&c.Summary, &c.Transcript, &costsJSON, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan call: %w", err)
	}
	if lang.Valid {
		l := model.Language(lang.String)
		c.Language = &l
	}
	if ctype.Valid {
		ct := model.CustomerType(ctype.String)
		c.CustomerType = &ct
	}
	if len(costsJSON) > 0 {
		if err := json.Unmarshal(costsJSON, &c.Costs); err != nil {
			return nil, fmt.Errorf("store: unmarshal costs: %w", err)
		}
	}
	return &c, nil
}

func (s *PostgresStore) UpdateCall(ctx context.Context, id string, upd CallUpdate) (*model.Call, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	const sel = `
		SELECT id, from_number, language, customer_type, intent, status, summary, transcript, costs, created_at, updated_at
		FROM calls WHERE id = $1 FOR UPDATE`
	row := tx.QueryRowContext(ctx, sel, id)
	current, err := scanCall(row)
	if err != nil {
		return nil, err
	}

	if upd.Language != nil {
		current.Language = upd.Language
	}
	if upd.CustomerType != nil {
		current.CustomerType = upd.CustomerType
	}
	if upd.Intent != nil {
		current.Intent = upd.Intent
	}
	if upd.Status != nil {
		current.Status = *upd.Status
	}
	if upd.Summary != nil {
		current.Summary = upd.Summary
	}
	if upd.Transcript != nil {
		current.Transcript = upd.Transcript
	}
	if upd.Costs != nil {
		current.Costs = upd.Costs
	}

	costsJSON, err := marshalCosts(current.Costs)
	if err != nil {
		return nil, fmt.Errorf("store: marshal costs: %w", err)
	}

	const upq = `
		UPDATE calls SET language=$2, customer_type=$3, intent=$4, status=$5,
			summary=$6, transcript=$7, costs=$8, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`
	if err := tx.QueryRowContext(ctx, upq, id, current.Language, current.CustomerType,
		current.Intent, current.Status, current.Summary, current.Transcript, costsJSON,
	).Scan(&current.UpdatedAt); err != nil {
		return nil, fmt.Errorf("store: update call: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return current, nil
}

func (s *PostgresStore) CreateCallbackTask(ctx context.Context, task *model.CallbackTask) error {
	const q = `
		INSERT INTO callback_tasks (id, call_id, priority, assignee, name, callback_number, best_time_window, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	row := s.db.QueryRowContext(ctx, q,
		task.ID, task.CallID, task.Priority, task.Assignee, task.Name,
		task.CallbackNumber, task.BestTimeWindow, task.Notes, task.Status)
	return row.Scan(&task.CreatedAt, &task.UpdatedAt)
}

func (s *PostgresStore) GetCallbackTaskByCallID(ctx context.Context, callID string) (*model.CallbackTask, error) {
	const q = `
		SELECT id, call_id, priority, assignee, name, callback_number, best_time_window, notes, status, created_at, updated_at
		FROM callback_tasks WHERE call_id = $1`
	row := s.db.QueryRowContext(ctx, q, callID)
	var t model.CallbackTask
	err := row.Scan(&t.ID, &t.CallID, &t.Priority, &t.Assignee, &t.Name,
		&t.CallbackNumber, &t.BestTimeWindow, &t.Notes, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan callback task: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) EnsureCallBySid(ctx context.Context, sid, fromNumber string) (*model.Call, error) {
	const q = `
		INSERT INTO calls (id, from_number, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET id = calls.id
		RETURNING id, from_number, language, customer_type, intent, status, summary, transcript, costs, created_at, updated_at`
	row := s.db.QueryRowContext(ctx, q, sid, fromNumber, model.CallStatusInit)
	return scanCall(row)
}

var _ Store = (*PostgresStore)(nil)
