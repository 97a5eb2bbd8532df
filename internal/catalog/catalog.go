// Package catalog mirrors published campaign records into a SQLite index
// for querying. The buckets on disk stay authoritative; the catalog is
// rebuilt from whatever each run writes.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sevabrata/campaignsync/internal/types"
)

// ErrNotFound is returned when a campaign id has no catalog entry.
var ErrNotFound = errors.New("campaign not in catalog")

// Entry is the indexed summary of one published campaign.
type Entry struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Status       types.Status  `json:"status"`
	File         string        `json:"file"`
	TargetAmount int64         `json:"target_amount"`
	RaisedAmount int64         `json:"raised_amount"`
	Currency     string        `json:"currency"`
	Category     string        `json:"category"`
	Urgency      types.Urgency `json:"urgency"`
	Tags         []string      `json:"tags"`
	CreatedDate  string        `json:"created_date"`
	LastUpdated  string        `json:"last_updated"`
	LastRunID    string        `json:"last_run_id"`
	SyncedAt     time.Time     `json:"synced_at"`
}

// EntryFromCampaign builds the catalog entry for a record stored at file.
func EntryFromCampaign(c types.Campaign, file string) Entry {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return Entry{
		ID:           c.ID,
		Title:        c.Title,
		Status:       c.Status,
		File:         file,
		TargetAmount: c.TargetAmount,
		RaisedAmount: c.RaisedAmount,
		Currency:     c.Currency,
		Category:     c.Category,
		Urgency:      c.Urgency,
		Tags:         tags,
		CreatedDate:  c.CreatedDate,
		LastUpdated:  c.LastUpdated,
	}
}

// Catalog is the SQLite-backed campaign index.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at dbPath and applies migrations.
func Open(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Catalog{db: db}, nil
}

// enablePragmas sets SQLite pragmas for a single-writer index.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Upsert records entries as synced by runID, replacing earlier rows with the same id.
// All entries are written in one transaction.
func (c *Catalog) Upsert(ctx context.Context, runID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO campaigns (id, title, status, bucket_file, target_amount, raised_amount,
			currency, category, urgency, tags, created_date, last_updated, last_run_id, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			bucket_file = excluded.bucket_file,
			target_amount = excluded.target_amount,
			raised_amount = excluded.raised_amount,
			currency = excluded.currency,
			category = excluded.category,
			urgency = excluded.urgency,
			tags = excluded.tags,
			created_date = excluded.created_date,
			last_updated = excluded.last_updated,
			last_run_id = excluded.last_run_id,
			synced_at = excluded.synced_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	syncedAt := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		tags, err := json.Marshal(e.Tags)
		if err != nil {
			return fmt.Errorf("encode tags for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Title, string(e.Status), e.File, e.TargetAmount, e.RaisedAmount,
			e.Currency, e.Category, string(e.Urgency), string(tags),
			e.CreatedDate, e.LastUpdated, runID, syncedAt,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, title, status, bucket_file, target_amount, raised_amount,
	currency, category, urgency, tags, created_date, last_updated, last_run_id, synced_at
	FROM campaigns`

// List returns catalog entries ordered by status then id.
// An empty status lists every bucket.
func (c *Catalog) List(ctx context.Context, status types.Status) ([]Entry, error) {
	query := selectColumns
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY status, id"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get returns the entry for id, or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, id string) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// Count returns the number of indexed campaigns.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM campaigns").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e        Entry
		status   string
		urgency  string
		tags     string
		syncedAt string
	)
	if err := s.Scan(&e.ID, &e.Title, &status, &e.File, &e.TargetAmount, &e.RaisedAmount,
		&e.Currency, &e.Category, &urgency, &tags, &e.CreatedDate, &e.LastUpdated,
		&e.LastRunID, &syncedAt); err != nil {
		return nil, err
	}
	e.Status = types.Status(status)
	e.Urgency = types.Urgency(urgency)
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for %s: %w", e.ID, err)
	}
	if t, err := time.Parse(time.RFC3339, syncedAt); err == nil {
		e.SyncedAt = t
	}
	return &e, nil
}
