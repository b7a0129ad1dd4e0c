// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/solvault/internal/markdown"
	"github.com/jeranaias/solvault/internal/solution"
)

// ErrSolutionNotFound indicates no solution exists for the ID.
var ErrSolutionNotFound = errors.New("solution not found")

// solutionsSchema holds committed solution candidates. Topics, languages,
// and code blocks are JSON columns; the vault is queried whole, not by
// sub-field.
const solutionsSchema = `
CREATE TABLE IF NOT EXISTS solutions (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	query        TEXT NOT NULL,
	answer       TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	difficulty   TEXT NOT NULL DEFAULT '',
	topics       TEXT NOT NULL DEFAULT '[]',
	languages    TEXT NOT NULL DEFAULT '[]',
	code_blocks  TEXT NOT NULL DEFAULT '[]',
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_solutions_created ON solutions(created_at);
`

// =============================================================================
// STORED SOLUTION
// =============================================================================

// StoredSolution is a committed solution candidate with its vault identity.
type StoredSolution struct {
	ID          string
	Title       string
	Query       string
	Answer      string
	Description string
	Difficulty  string
	Topics      []string
	Languages   []string
	CodeBlocks  []markdown.CodeBlock
	CreatedAt   time.Time
}

// =============================================================================
// SOLUTION STORE
// =============================================================================

// SolutionStore is the solution vault, backed by SQLite.
type SolutionStore struct {
	db *sql.DB
}

// OpenSolutionStore opens (or creates) the vault database at path.
func OpenSolutionStore(path string) (*SolutionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time; keep the pool to a single
	// connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(solutionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SolutionStore{db: db}, nil
}

// Close releases the database handle.
func (s *SolutionStore) Close() error {
	return s.db.Close()
}

// Save commits a candidate to the vault and returns its assigned ID. This
// is the explicit commit step: candidates live in memory until a human
// saves them.
func (s *SolutionStore) Save(c solution.Candidate) (string, error) {
	id := uuid.NewString()

	topics, err := json.Marshal(emptyIfNil(c.Topics))
	if err != nil {
		return "", err
	}
	languages, err := json.Marshal(emptyIfNil(c.Languages))
	if err != nil {
		return "", err
	}
	blocks, err := json.Marshal(c.CodeBlocks)
	if err != nil {
		return "", err
	}

	_, err = s.db.Exec(
		`INSERT INTO solutions (id, title, query, answer, description, difficulty, topics, languages, code_blocks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.Title, c.Query, c.Answer, c.Description, string(c.Difficulty),
		string(topics), string(languages), string(blocks), time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save solution: %w", err)
	}
	return id, nil
}

// Get retrieves one solution by ID.
func (s *SolutionStore) Get(id string) (*StoredSolution, error) {
	row := s.db.QueryRow(
		`SELECT id, title, query, answer, description, difficulty, topics, languages, code_blocks, created_at
		 FROM solutions WHERE id = ?`, id)

	sol, err := scanSolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSolutionNotFound
	}
	return sol, err
}

// List returns all solutions, most recent first. This is the candidate pool
// the router matches against.
func (s *SolutionStore) List() ([]StoredSolution, error) {
	rows, err := s.db.Query(
		`SELECT id, title, query, answer, description, difficulty, topics, languages, code_blocks, created_at
		 FROM solutions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var solutions []StoredSolution
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, err
		}
		solutions = append(solutions, *sol)
	}
	return solutions, rows.Err()
}

// Delete removes a solution from the vault.
func (s *SolutionStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM solutions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrSolutionNotFound
	}
	return nil
}

// Count returns the number of committed solutions.
func (s *SolutionStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM solutions`).Scan(&n)
	return n, err
}

// =============================================================================
// HELPERS
// =============================================================================

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSolution(row scanner) (*StoredSolution, error) {
	var sol StoredSolution
	var topics, languages, blocks string

	err := row.Scan(&sol.ID, &sol.Title, &sol.Query, &sol.Answer, &sol.Description,
		&sol.Difficulty, &topics, &languages, &blocks, &sol.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(topics), &sol.Topics); err != nil {
		return nil, fmt.Errorf("corrupt topics column for %s: %w", sol.ID, err)
	}
	if err := json.Unmarshal([]byte(languages), &sol.Languages); err != nil {
		return nil, fmt.Errorf("corrupt languages column for %s: %w", sol.ID, err)
	}
	if err := json.Unmarshal([]byte(blocks), &sol.CodeBlocks); err != nil {
		return nil, fmt.Errorf("corrupt code_blocks column for %s: %w", sol.ID, err)
	}
	return &sol, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
