// Package storage is the durable record store of the pipeline: one row per
// candidate dataset, keyed by an auto-assigned DRPID, tracked through the
// stage state machine via the status / errors / warnings columns.
//
// The store is safe for concurrent use from multiple goroutines and, in WAL
// mode, from multiple processes sharing the database file (the interactive
// collector UI reads and writes the same file while a pipeline run is in
// progress).
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DefaultPath is used when no db path is configured.
const DefaultPath = "drp_pipeline.db"

// Store wraps the projects database. Create with Open and close with Close.
type Store struct {
	db   *sql.DB
	path string

	// serializes read-modify-write appends so concurrent AppendToField
	// calls within this process cannot lose updates
	appendMu sync.Mutex
}

// Open opens (creating if necessary) the projects database at path.
//
// A plain path opens a local SQLite file in WAL mode with a 30s busy
// timeout. A libsql:// URL opens a remote libsql database with the same
// query surface.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	var db *sql.DB
	var err error
	if strings.HasPrefix(path, "libsql://") {
		db, err = sql.Open("libsql", path)
	} else {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create database directory: %w", mkErr)
			}
		}
		dsn := fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(30000)",
			path,
		)
		db, err = sql.Open("sqlite", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	slog.Info("storage initialized", "path", path)
	return &Store{db: db, path: path}, nil
}

// OpenMemory opens an in-memory store with the schema loaded. Used by tests
// and the noop module.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}
	return &Store{db: db, path: ":memory:"}, nil
}

// Path returns the database path or URL the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new record with only source_url set and returns its
// DRPID. Returns ErrDuplicateURL if the URL is already present.
func (s *Store) Create(ctx context.Context, sourceURL string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (source_url) VALUES (?)", sourceURL)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateURL, sourceURL)
		}
		return 0, fmt.Errorf("create record for %s: %w", sourceURL, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get record id: %w", err)
	}
	return id, nil
}

// Get returns the record with the given DRPID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, drpid int64) (Record, error) {
	query := "SELECT " + strings.Join(selectColumns, ", ") +
		" FROM projects WHERE DRPID = ?"
	row := s.db.QueryRowContext(ctx, query, drpid)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: DRPID %d", ErrNotFound, drpid)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record %d: %w", drpid, err)
	}
	return rec, nil
}

// Update merges the given column/value pairs into the record. Only the
// listed columns change. Setting DRPID or source_url fails with
// ErrImmutableField; unknown columns fail with ErrInvalidField; a missing
// record fails with ErrNotFound. The update is a single statement and
// therefore atomic.
func (s *Store) Update(ctx context.Context, drpid int64, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	cols := make([]string, 0, len(values))
	args := make([]any, 0, len(values)+1)
	for col := range values {
		if col == "DRPID" || col == "source_url" {
			return fmt.Errorf("%w: %s", ErrImmutableField, col)
		}
		if !mutableColumns[col] {
			return fmt.Errorf("%w: %s", ErrInvalidField, col)
		}
		cols = append(cols, col)
	}
	// keep the column list stable for deterministic statements
	sort.Strings(cols)
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
		args = append(args, values[col])
	}
	args = append(args, drpid)

	query := "UPDATE projects SET " + strings.Join(sets, ", ") + " WHERE DRPID = ?"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update record %d: %w", drpid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record %d: %w", drpid, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: DRPID %d", ErrNotFound, drpid)
	}
	return nil
}

// Delete removes the record with the given DRPID, or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, drpid int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE DRPID = ?", drpid)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", drpid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %d: %w", drpid, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: DRPID %d", ErrNotFound, drpid)
	}
	return nil
}

// ExistsBySourceURL reports whether a record with the given source URL
// already exists.
func (s *Store) ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM projects WHERE source_url = ?)", sourceURL,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by source_url: %w", err)
	}
	return exists == 1, nil
}

// ListOptions narrows ListEligible results. Zero values mean "no limit".
type ListOptions struct {
	// Limit caps the number of rows returned; 0 = unlimited.
	Limit int
	// StartRow skips the first (StartRow - 1) rows of the full table,
	// 1-origin. Ignored when MinDRPID is set.
	StartRow int
	// MinDRPID restricts results to DRPID >= MinDRPID.
	MinDRPID int64
}

// ListEligible returns the records whose status equals prereqStatus and
// whose errors field is empty, in ascending DRPID order. An empty
// prereqStatus returns nil immediately: a module with no prerequisite has no
// per-record iteration.
func (s *Store) ListEligible(ctx context.Context, prereqStatus string, opts ListOptions) ([]Record, error) {
	if prereqStatus == "" {
		return nil, nil
	}

	query := "SELECT " + strings.Join(selectColumns, ", ") +
		" FROM projects WHERE status = ? AND (errors IS NULL OR errors = '')"
	args := []any{prereqStatus}

	if opts.MinDRPID > 0 {
		query += " AND DRPID >= ?"
		args = append(args, opts.MinDRPID)
	} else if opts.StartRow > 1 {
		// DRPID of the row at position StartRow in the full table
		query += " AND DRPID >= (SELECT DRPID FROM projects ORDER BY DRPID LIMIT 1 OFFSET ?)"
		args = append(args, opts.StartRow-1)
	}

	query += " ORDER BY DRPID ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list eligible projects: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListWithStatusNotes returns all records with a non-blank status_notes
// value, ordered by DRPID.
func (s *Store) ListWithStatusNotes(ctx context.Context) ([]Record, error) {
	query := "SELECT " + strings.Join(selectColumns, ", ") +
		" FROM projects WHERE status_notes IS NOT NULL AND TRIM(status_notes) != ''" +
		" ORDER BY DRPID ASC"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list records with status notes: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// AppendToField appends text as a new line to the warnings or errors field.
// The first append sets the field verbatim; later appends join with a
// newline. The read-modify-write runs in one transaction so concurrent
// appends to the same record cannot lose entries.
func (s *Store) AppendToField(ctx context.Context, drpid int64, field, text string) error {
	if field != "warnings" && field != "errors" {
		return fmt.Errorf("%w: field must be warnings or errors, got %q", ErrInvalidField, field)
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append to %s: %w", field, err)
	}
	defer tx.Rollback()

	var current sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT "+field+" FROM projects WHERE DRPID = ?", drpid,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: DRPID %d", ErrNotFound, drpid)
	}
	if err != nil {
		return fmt.Errorf("read %s for append: %w", field, err)
	}

	value := text
	if current.Valid && current.String != "" {
		value = strings.TrimRight(current.String+"\n"+text, " \t\n")
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE projects SET "+field+" = ? WHERE DRPID = ?", value, drpid,
	); err != nil {
		return fmt.Errorf("append to %s: %w", field, err)
	}
	return tx.Commit()
}

// ClearAll deletes every record and resets the DRPID counter so new ids
// start at 1 again. Reset/testing workflows only.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM projects"); err != nil {
		return fmt.Errorf("clear all records: %w", err)
	}
	// sqlite_sequence may not exist until the first AUTOINCREMENT insert
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sqlite_sequence WHERE name = 'projects'",
	); err != nil && !strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("reset id counter: %w", err)
	}
	slog.Info("all records cleared and id counter reset")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	var (
		status, statusNotes, warnings, errs     sql.NullString
		dlID, folderPath, title, agency, office sql.NullString
		summary, keywords, timeStart, timeEnd   sql.NullString
		dataTypes, extensions, downloadDate     sql.NullString
		collectionNotes, fileSize, publishedURL sql.NullString
	)
	err := row.Scan(
		&r.DRPID, &r.SourceURL,
		&status, &statusNotes, &warnings, &errs, &dlID,
		&folderPath, &title, &agency, &office, &summary, &keywords,
		&timeStart, &timeEnd, &dataTypes, &extensions,
		&downloadDate, &collectionNotes, &fileSize, &publishedURL,
	)
	if err != nil {
		return Record{}, err
	}
	r.Status = status.String
	r.StatusNotes = statusNotes.String
	r.Warnings = warnings.String
	r.Errors = errs.String
	r.DataLumosID = dlID.String
	r.FolderPath = folderPath.String
	r.Title = title.String
	r.Agency = agency.String
	r.Office = office.String
	r.Summary = summary.String
	r.Keywords = keywords.String
	r.TimeStart = timeStart.String
	r.TimeEnd = timeEnd.String
	r.DataTypes = dataTypes.String
	r.Extensions = extensions.String
	r.DownloadDate = downloadDate.String
	r.CollectionNotes = collectionNotes.String
	r.FileSize = fileSize.String
	r.PublishedURL = publishedURL.String
	return r, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
