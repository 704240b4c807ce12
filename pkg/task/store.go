// Package task provides a2asrv.TaskStore implementations for the coffeeshop
// agents. The default is the SDK's in-memory store; SQLStore persists order
// tasks across restarts in sqlite, postgres or mysql.
package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists order tasks in a relational database.
type SQLStore struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

var _ a2asrv.TaskStore = (*SQLStore)(nil)

// Separate statements for table and indexes keep SQLite happy.
const (
	createTableSQL = `
CREATE TABLE IF NOT EXISTS order_tasks (
    id VARCHAR(255) PRIMARY KEY,
    context_id VARCHAR(255) NOT NULL,
    status_json TEXT NOT NULL,
    history_json TEXT,
    artifacts_json TEXT,
    metadata_json TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`

	createContextIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_order_tasks_context_id ON order_tasks(context_id)`

	createUpdatedAtIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_order_tasks_updated_at ON order_tasks(updated_at)`
)

// Open connects with the given driver and DSN and initializes the schema.
// Driver must be one of sqlite3, postgres or mysql.
func Open(driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open task database: %w", err)
	}
	store, err := NewSQLStore(db, driver, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an existing connection. The connection should be shared
// with any other component using the same sqlite file to avoid lock errors.
func NewSQLStore(db *sql.DB, driver string, logger *slog.Logger) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dialect := driver
	if driver == "sqlite3" {
		dialect = "sqlite"
	}
	switch dialect {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported task store driver: %s (supported: sqlite3, postgres, mysql)", driver)
	}

	s := &SQLStore{db: db, dialect: dialect, logger: logger}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize task schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range []string{createTableSQL, createContextIndexSQL, createUpdatedAtIndexSQL} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save upserts a task.
func (s *SQLStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task is required")
	}

	row, err := taskToRow(task)
	if err != nil {
		return fmt.Errorf("failed to serialize task: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.upsertQuery(),
		row.id, row.contextID, row.statusJSON,
		row.historyJSON, row.artifactsJSON, row.metadataJSON,
		row.createdAt, row.updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	s.logger.Debug("task saved", "task_id", task.ID, "state", task.Status.State)
	return nil
}

// Get loads a task by id, returning a2a.ErrTaskNotFound when it is unknown.
func (s *SQLStore) Get(ctx context.Context, taskID a2a.TaskID) (*a2a.Task, error) {
	query := `
SELECT id, context_id, status_json, history_json, artifacts_json, metadata_json
FROM order_tasks
WHERE id = ?`
	if s.dialect == "postgres" {
		query = `
SELECT id, context_id, status_json, history_json, artifacts_json, metadata_json
FROM order_tasks
WHERE id = $1`
	}

	var row taskRow
	err := s.db.QueryRowContext(ctx, query, string(taskID)).Scan(
		&row.id, &row.contextID, &row.statusJSON,
		&row.historyJSON, &row.artifactsJSON, &row.metadataJSON,
	)
	if err == sql.ErrNoRows {
		return nil, a2a.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}

	return rowToTask(&row)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// upsertQuery returns the dialect-specific INSERT .. ON CONFLICT statement.
// All three variants preserve created_at on update.
func (s *SQLStore) upsertQuery() string {
	switch s.dialect {
	case "postgres":
		return `
INSERT INTO order_tasks (id, context_id, status_json, history_json, artifacts_json, metadata_json, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    context_id = EXCLUDED.context_id,
    status_json = EXCLUDED.status_json,
    history_json = EXCLUDED.history_json,
    artifacts_json = EXCLUDED.artifacts_json,
    metadata_json = EXCLUDED.metadata_json,
    updated_at = EXCLUDED.updated_at`
	case "mysql":
		return `
INSERT INTO order_tasks (id, context_id, status_json, history_json, artifacts_json, metadata_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    context_id = VALUES(context_id),
    status_json = VALUES(status_json),
    history_json = VALUES(history_json),
    artifacts_json = VALUES(artifacts_json),
    metadata_json = VALUES(metadata_json),
    updated_at = VALUES(updated_at)`
	default:
		// SQLite 3.24+ upsert.
		return `
INSERT INTO order_tasks (id, context_id, status_json, history_json, artifacts_json, metadata_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    context_id = excluded.context_id,
    status_json = excluded.status_json,
    history_json = excluded.history_json,
    artifacts_json = excluded.artifacts_json,
    metadata_json = excluded.metadata_json,
    updated_at = excluded.updated_at`
	}
}

type taskRow struct {
	id            string
	contextID     string
	statusJSON    string
	historyJSON   string
	artifactsJSON string
	metadataJSON  string
	createdAt     time.Time
	updatedAt     time.Time
}

func taskToRow(task *a2a.Task) (*taskRow, error) {
	statusJSON, err := json.Marshal(task.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}

	historyJSON := []byte("[]")
	if len(task.History) > 0 {
		if historyJSON, err = json.Marshal(task.History); err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
		}
	}

	artifactsJSON := []byte("[]")
	if len(task.Artifacts) > 0 {
		if artifactsJSON, err = json.Marshal(task.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to marshal artifacts: %w", err)
		}
	}

	metadataJSON := []byte("{}")
	if len(task.Metadata) > 0 {
		if metadataJSON, err = json.Marshal(task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	now := time.Now().UTC()
	return &taskRow{
		id:            string(task.ID),
		contextID:     task.ContextID,
		statusJSON:    string(statusJSON),
		historyJSON:   string(historyJSON),
		artifactsJSON: string(artifactsJSON),
		metadataJSON:  string(metadataJSON),
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func rowToTask(row *taskRow) (*a2a.Task, error) {
	task := &a2a.Task{
		ID:        a2a.TaskID(row.id),
		ContextID: row.contextID,
	}

	if row.statusJSON == "" {
		return nil, fmt.Errorf("task %s has no status", row.id)
	}
	if err := json.Unmarshal([]byte(row.statusJSON), &task.Status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	if row.historyJSON != "" && row.historyJSON != "[]" {
		if err := json.Unmarshal([]byte(row.historyJSON), &task.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}

	if row.artifactsJSON != "" && row.artifactsJSON != "[]" {
		if err := json.Unmarshal([]byte(row.artifactsJSON), &task.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifacts: %w", err)
		}
	}

	if row.metadataJSON != "" && row.metadataJSON != "{}" {
		if err := json.Unmarshal([]byte(row.metadataJSON), &task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return task, nil
}
