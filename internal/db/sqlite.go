package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/normalize"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested result set does not exist
var ErrNotFound = errors.New("result set not found")

// DB wraps the SQLite archive of committed result sets
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the archive and initializes the schema
func New(dbPath string) (*DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps PRAGMA foreign_keys in effect for every statement
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := conn.Exec(createResultSetsTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create result sets schema: %w", err)
	}

	if _, err := conn.Exec(createResultRecordsTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create result records schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveResultSet stores records as a new set in one transaction
func (db *DB) SaveResultSet(mode, jobID string, records []models.ResultRecord) (models.ResultSet, error) {
	set := models.ResultSet{
		Mode:      mode,
		JobID:     jobID,
		Count:     len(records),
		FetchedAt: time.Now().UTC(),
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return set, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(insertResultSet, set.Mode, set.JobID, set.Count, set.FetchedAt.Format(time.RFC3339Nano))
	if err != nil {
		return set, fmt.Errorf("failed to insert result set: %w", err)
	}
	if set.ID, err = res.LastInsertId(); err != nil {
		return set, fmt.Errorf("failed to read result set id: %w", err)
	}

	stmt, err := tx.Prepare(insertResultRecord)
	if err != nil {
		return set, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(set.ID, i, r.URL, r.Subcat, r.City, r.ZipCode, r.RawDate); err != nil {
			return set, fmt.Errorf("failed to insert record %s: %w", r.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return set, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return set, nil
}

// ListResultSets returns up to limit sets, newest first
func (db *DB) ListResultSets(limit int) ([]models.ResultSet, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(selectResultSets, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query result sets: %w", err)
	}
	defer rows.Close()

	var sets []models.ResultSet
	for rows.Next() {
		set, err := scanResultSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

// GetResultSet loads one set with its records in their original order
func (db *DB) GetResultSet(id int64) (models.ResultSet, []models.ResultRecord, error) {
	set, err := scanResultSet(db.conn.QueryRow(selectResultSet, id))
	if err != nil {
		return set, nil, err
	}
	records, err := db.getRecords(set.ID)
	return set, records, err
}

// LatestResultSet loads the most recently saved set
func (db *DB) LatestResultSet() (models.ResultSet, []models.ResultRecord, error) {
	set, err := scanResultSet(db.conn.QueryRow(selectLatestResultSet))
	if err != nil {
		return set, nil, err
	}
	records, err := db.getRecords(set.ID)
	return set, records, err
}

// PruneResultSets deletes all but the newest keep sets
func (db *DB) PruneResultSets(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := db.conn.Exec(pruneResultSets, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune result sets: %w", err)
	}
	return res.RowsAffected()
}

func (db *DB) getRecords(setID int64) ([]models.ResultRecord, error) {
	rows, err := db.conn.Query(selectResultRecords, setID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.ResultRecord
	for rows.Next() {
		var r models.ResultRecord
		if err := rows.Scan(&r.URL, &r.Subcat, &r.City, &r.ZipCode, &r.RawDate); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Day = normalize.DayOf(r.RawDate)
		records = append(records, r)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResultSet(row rowScanner) (models.ResultSet, error) {
	var set models.ResultSet
	var fetchedAt string
	if err := row.Scan(&set.ID, &set.Mode, &set.JobID, &set.Count, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return set, ErrNotFound
		}
		return set, fmt.Errorf("failed to scan result set: %w", err)
	}
	set.FetchedAt, _ = time.Parse(time.RFC3339Nano, fetchedAt)
	return set, nil
}
