package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"reloadr-hq/reloadr/pkg/config"
)

// SQLiteStorage implements Storage on a SQLite database file.
type SQLiteStorage struct {
	db     *sql.DB
	config config.SQLiteConfig
	logger *slog.Logger
}

var journalModes = map[string]bool{"wal": true, "delete": true, "truncate": true, "memory": true}

// NewSQLiteStorage opens (creating if needed) the database at cfg.Path and
// prepares the schema. Busy timeout and journal mode are applied to every
// pooled connection.
func NewSQLiteStorage(cfg config.SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, NewStorageError("sqlite", "open", fmt.Errorf("database path is required"))
	}
	mode := strings.ToLower(cfg.JournalMode)
	if mode == "" {
		mode = config.DefaultJournalSQLiteJournalMode
	}
	if !journalModes[mode] {
		return nil, NewStorageError("sqlite", "open", fmt.Errorf("unsupported journal mode %q", cfg.JournalMode))
	}
	if cfg.Driver == "" {
		cfg.Driver = config.DefaultJournalSQLiteDriver
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = config.DefaultJournalSQLiteMaxOpenConns
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journal.sqlite")

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("sqlite", "open", err)
		}
	}

	dsn, err := sqliteDSN(cfg.Driver, cfg.Path, cfg.BusyTimeout, mode)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStorage{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite journal initialized",
		"driver", cfg.Driver,
		"path", cfg.Path,
		"journal_mode", mode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// sqliteDSN builds the connection string applying the busy timeout and
// journal mode. The two drivers spell pragmas differently.
func sqliteDSN(driver, path string, busy time.Duration, mode string) (string, error) {
	switch driver {
	case "sqlite3":
		return fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=%s", path, busy.Milliseconds(), strings.ToUpper(mode)), nil
	case "sqlite":
		return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)", path, busy.Milliseconds(), strings.ToUpper(mode)), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// initialize creates the schema and checks its version.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a record.
func (s *SQLiteStorage) Store(ctx context.Context, record *Record) error {
	_, err := s.db.ExecContext(ctx, insertRecord,
		record.ID, record.Symbol, record.Kind, record.File,
		nullable(record.Hash), record.Status, nullable(record.Error),
		int64(record.Duration), record.Retagged, record.Migrated,
		record.Timestamp.UnixNano(),
	)
	if err != nil {
		return NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns the records matching q.
func (s *SQLiteStorage) Query(ctx context.Context, q *Query) ([]*Record, error) {
	where, args := buildWhereClause(q)

	order := "DESC"
	if q.Ascending {
		order = "ASC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	stmt := "SELECT " + selectColumns + " FROM reloads"
	if where != "" {
		stmt += " WHERE " + where
	}
	stmt += fmt.Sprintf(" ORDER BY timestamp %s, rowid %s LIMIT %d", order, order, limit)
	if q.Offset > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of records matching q.
func (s *SQLiteStorage) Count(ctx context.Context, q *Query) (int64, error) {
	where, args := buildWhereClause(q)

	stmt := "SELECT COUNT(*) FROM reloads"
	if where != "" {
		stmt += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Prune deletes the records older than before.
func (s *SQLiteStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM reloads WHERE timestamp < ?", before.UnixNano())
	if err != nil {
		return 0, NewStorageError("sqlite", "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "prune", err)
	}
	return n, nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite journal closed")
	return nil
}

// buildWhereClause builds the WHERE clause (without the keyword) and its
// arguments.
func buildWhereClause(q *Query) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if q.Symbol != "" {
		add("symbol = ?", q.Symbol)
	}
	if q.Kind != "" {
		add("kind = ?", q.Kind)
	}
	if q.Status != "" {
		add("status = ?", q.Status)
	}
	if q.File != "" {
		add("file = ?", q.File)
	}
	if q.StartTime != nil {
		add("timestamp >= ?", q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		add("timestamp <= ?", q.EndTime.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*Record, error) {
	var record Record
	var hash, errMsg sql.NullString
	var duration, ts int64

	err := rows.Scan(
		&record.ID, &record.Symbol, &record.Kind, &record.File,
		&hash, &record.Status, &errMsg,
		&duration, &record.Retagged, &record.Migrated, &ts,
	)
	if err != nil {
		return nil, err
	}

	record.Hash = hash.String
	record.Error = errMsg.String
	record.Duration = time.Duration(duration)
	record.Timestamp = time.Unix(0, ts)
	return &record, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
