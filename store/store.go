// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists record collections in DuckDB.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // database/sql driver
	"github.com/jcodagnone/mailgeo/record"
)

// Stage is the lifecycle bucket a collection belongs to.
type Stage string

const (
	// GeoInfo holds the output of the resolution pipeline.
	GeoInfo Stage = "geoinfo"
	// Labels holds collections linked with label numbers.
	Labels Stage = "labels"
	// History holds collections linked with delivery events.
	History Stage = "history"
)

// Stages lists every known stage in lifecycle order.
var Stages = []Stage{GeoInfo, Labels, History}

// ErrNotFound is returned when a collection doesn't exist.
var ErrNotFound = errors.New("collection not found")

// DatabaseFile is the name of the database inside the db directory.
const DatabaseFile = "mailgeo.duckdb"

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}

	return "", fmt.Errorf("unknown stage %q, expected one of %v", s, Stages)
}

// Collection summarizes a stored collection.
type Collection struct {
	Stage     Stage     `json:"stage"`
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	Failed    int       `json:"failed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository stores ordered record collections, keyed by stage and name.
type Repository interface {
	// CreateSchema creates the collections table
	CreateSchema() error

	// Save replaces a whole collection
	Save(stage Stage, name string, records []record.Record) error

	// Append stores a single record at the given position, replacing any
	// previous record there
	Append(stage Stage, name string, position int, r record.Record) error

	// Load returns the collection in position order
	Load(stage Stage, name string) ([]record.Record, error)

	// List returns the collections of a stage sorted by name
	List(stage Stage) ([]Collection, error)

	// Delete removes a collection
	Delete(stage Stage, name string) error

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a repository on top of an open DuckDB connection.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

// Open opens (creating it if needed) the database in dir and ensures the
// schema exists.
func Open(dir string) (Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	db, err := sql.Open("duckdb", filepath.Join(dir, DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	repo := NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return repo, nil
}

func (r *sqlRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			stage VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			position INTEGER NOT NULL,
			record VARCHAR NOT NULL,
			failed BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

func (r *sqlRepository) Save(stage Stage, name string, records []record.Record) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer rollback(tx)

	if _, err := tx.Exec(`DELETE FROM collections WHERE stage = ? AND name = ?`, string(stage), name); err != nil {
		return fmt.Errorf("clearing %s/%s: %w", stage, name, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO collections(stage, name, position, record, failed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()

	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}

		if _, err := stmt.Exec(string(stage), name, i, string(data), rec.IsFailed(), now); err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (r *sqlRepository) Append(stage Stage, name string, position int, rec record.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer rollback(tx)

	if _, err := tx.Exec(`
		DELETE FROM collections WHERE stage = ? AND name = ? AND position = ?
	`, string(stage), name, position); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO collections(stage, name, position, record, failed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(stage), name, position, string(data), rec.IsFailed(), time.Now()); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *sqlRepository) Load(stage Stage, name string) ([]record.Record, error) {
	rows, err := r.db.Query(`
		SELECT record FROM collections
		WHERE stage = ? AND name = ?
		ORDER BY position
	`, string(stage), name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []record.Record

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var rec record.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding record %d of %s/%s: %w", len(ret), stage, name, err)
		}

		ret = append(ret, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ret) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", stage, name, ErrNotFound)
	}

	return ret, nil
}

func (r *sqlRepository) List(stage Stage) ([]Collection, error) {
	rows, err := r.db.Query(`
		SELECT name, count(*), count(*) FILTER (WHERE failed), max(updated_at)
		FROM collections
		WHERE stage = ?
		GROUP BY name
		ORDER BY name
	`, string(stage))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []Collection

	for rows.Next() {
		c := Collection{Stage: stage}
		if err := rows.Scan(&c.Name, &c.Size, &c.Failed, &c.UpdatedAt); err != nil {
			return nil, err
		}

		ret = append(ret, c)
	}

	return ret, rows.Err()
}

func (r *sqlRepository) Delete(stage Stage, name string) error {
	_, err := r.db.Exec(`DELETE FROM collections WHERE stage = ? AND name = ?`, string(stage), name)

	return err
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("rolling back: %v", err)
	}
}
