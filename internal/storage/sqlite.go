// Package storage is the local SQLite record store. It keeps the reservas
// and despesas tables with the same columns as the spreadsheet so it can
// stand in for it during development or as an offline copy.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hostel/internal/sheets"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ sheets.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewSQLiteStoreFromDB(db, logger), nil
}

// NewSQLiteStoreFromDB wraps an already migrated database.
func NewSQLiteStoreFromDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: db, logger: logger}
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context, table sheets.Table) ([]sheets.Row, error) {
	cols, err := sheets.Columns(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, table)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", strings.Join(cols, ", "), table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("read "+string(table), err)
	}
	defer rows.Close()

	out := make([]sheets.Row, 0)
	cells := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range cells {
		ptrs[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, unavailable("scan "+string(table), err)
		}
		row := make(sheets.Row, len(cols))
		for i, c := range cols {
			row[c] = cellText(cells[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read "+string(table), err)
	}
	return out, nil
}

func (s *SQLiteStore) Append(ctx context.Context, table sheets.Table, values []any) error {
	cols, args, err := bind(table, values)
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return unavailable("append "+string(table), err)
	}
	s.logger.DebugContext(ctx, "Row appended to SQLite", "table", string(table), "id", args[0])
	return nil
}

// Update overwrites the first row (in insertion order) whose id matches,
// the way the spreadsheet adapter does.
func (s *SQLiteStore) Update(ctx context.Context, table sheets.Table, id int64, values []any) error {
	cols, args, err := bind(table, values)
	if err != nil {
		return err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE seq = (SELECT seq FROM %s WHERE id = ? ORDER BY seq LIMIT 1)",
		table, strings.Join(sets, ", "), table)
	res, err := s.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return unavailable("update "+string(table), err)
	}
	return affected(res, table, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, table sheets.Table, id int64) error {
	if _, err := sheets.Columns(table); err != nil {
		return fmt.Errorf("%w: %s", err, table)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE seq = (SELECT seq FROM %s WHERE id = ? ORDER BY seq LIMIT 1)", table, table)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return unavailable("delete "+string(table), err)
	}
	return affected(res, table, id)
}

// bind pairs values with the table's columns, padding short rows with NULL.
func bind(table sheets.Table, values []any) ([]string, []any, error) {
	cols, err := sheets.Columns(table)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, table)
	}
	if len(values) == 0 || len(values) > len(cols) {
		return nil, nil, fmt.Errorf("%s: got %d values for %d columns", table, len(values), len(cols))
	}
	args := make([]any, len(cols))
	copy(args, values)
	return cols, args, nil
}

func affected(res sql.Result, table sheets.Table, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s id=%d", sheets.ErrNotFound, table, id)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: sqlite %s: %w", sheets.ErrStoreUnavailable, op, err)
}

func cellText(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return sheets.CellText(v)
}
