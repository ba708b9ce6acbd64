package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/clickup-gmud/internal/audit"
)

const journalColumns = 12

// JournalRepo хранит события GMUD в таблице gmud_events.
type JournalRepo struct {
	db *sql.DB
}

func NewJournalRepo(ctx context.Context, connString string, maxConns int) (*JournalRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 5
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &JournalRepo{db: db}, nil
}

func (r *JournalRepo) Close() error {
	return r.db.Close()
}

// ErrSchemaMissing: таблицы журнала нет, миграции не применены.
var ErrSchemaMissing = errors.New("gmud_events table is missing, run migrations")

// WriteBatch пишет пачку одним INSERT. Уже записанные id пропускаются,
// новые события той же пачки сохраняются.
func (r *JournalRepo) WriteBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	query, args, err := buildInsert(events)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: write %d events: %w", len(events), schemaErr(err))
	}
	return nil
}

// schemaErr подменяет undefined_table на ErrSchemaMissing, остальное отдает как есть.
func schemaErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	}
	return err
}

// ListByTask отдает историю GMUD от старых событий к новым.
func (r *JournalRepo) ListByTask(ctx context.Context, taskID string, limit int) ([]audit.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, trace_id, kind, task_id, environment, house, actor, status, outcome, payload, duration_ms, created_at
	          FROM gmud_events WHERE task_id = $1 ORDER BY created_at ASC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", schemaErr(err))
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e       audit.Event
			kind    string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.TraceID, &kind, &e.TaskID, &e.Environment, &e.House, &e.Actor,
			&e.Status, &e.Outcome, &payload, &e.DurationMs, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Kind = audit.Kind(kind)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("postgres: decode payload of %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func buildInsert(events []audit.Event) (string, []any, error) {
	var placeholders strings.Builder
	args := make([]any, 0, len(events)*journalColumns)

	for i, e := range events {
		if i > 0 {
			placeholders.WriteString(",")
		}
		p := i * journalColumns
		placeholders.WriteString("(")
		for c := 1; c <= journalColumns; c++ {
			if c > 1 {
				placeholders.WriteString(", ")
			}
			fmt.Fprintf(&placeholders, "$%d", p+c)
		}
		placeholders.WriteString(")")

		var payload []byte
		if len(e.Payload) > 0 {
			var err error
			if payload, err = json.Marshal(e.Payload); err != nil {
				return "", nil, fmt.Errorf("postgres: encode payload of %s: %w", e.ID, err)
			}
		}

		args = append(args,
			e.ID, e.TraceID, string(e.Kind), e.TaskID, e.Environment, e.House, e.Actor,
			e.Status, e.Outcome, payload, e.DurationMs, e.Timestamp,
		)
	}

	query := "INSERT INTO gmud_events (id, trace_id, kind, task_id, environment, house, actor, status, outcome, payload, duration_ms, created_at) VALUES " +
		placeholders.String() + " ON CONFLICT (id) DO NOTHING"
	return query, args, nil
}
