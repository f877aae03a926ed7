// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists annotated documents in SQLite so linked entities can
// be looked up by knowledge-base identifier and exported after a run.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/entity-linker/pkg/types"
)

const dbFile = "annotations.db"

// entsGroup is the group value under which a document's primary entities are
// stored. Named span groups are never empty.
const entsGroup = ""

// ErrNotFound is returned when a document is not in the store.
var ErrNotFound = errors.New("document not found")

// Store manages the annotation SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// Run identifies one annotation run and the linker settings it used.
type Run struct {
	ID        string             `json:"id" yaml:"id"`
	StartedAt time.Time          `json:"started_at" yaml:"started_at"`
	Config    types.LinkerConfig `json:"config" yaml:"config"`
}

// Open opens or creates the annotation database at cfg.Dir/annotations.db and
// creates the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("store directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: cfg.Dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database and exports.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			config TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			run_id TEXT REFERENCES runs(id),
			text TEXT NOT NULL,
			tokens TEXT NOT NULL,
			raw_result TEXT,
			annotated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS spans (
			doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			grp TEXT NOT NULL,
			position INTEGER NOT NULL,
			start_token INTEGER NOT NULL,
			end_token INTEGER NOT NULL,
			start_char INTEGER NOT NULL,
			end_char INTEGER NOT NULL,
			text TEXT NOT NULL,
			label TEXT NOT NULL,
			kb_id TEXT,
			raw TEXT,
			PRIMARY KEY (doc_id, grp, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spans_kb_id ON spans(kb_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_run_id ON documents(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun records a new run with a fresh identifier and a snapshot of cfg.
func (s *Store) SaveRun(ctx context.Context, cfg types.LinkerConfig) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Config:    cfg,
	}
	snapshot, err := yaml.Marshal(cfg)
	if err != nil {
		return Run{}, fmt.Errorf("marshaling config snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, config) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt.Format(time.RFC3339Nano), string(snapshot),
	)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// LoadRun returns the run with the given identifier.
func (s *Store) LoadRun(ctx context.Context, id string) (Run, error) {
	var startedAt, snapshot string
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, config FROM runs WHERE id = ?`, id,
	).Scan(&startedAt, &snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("querying run: %w", err)
	}

	run := Run{ID: id}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if err := yaml.Unmarshal([]byte(snapshot), &run.Config); err != nil {
		return Run{}, fmt.Errorf("parsing config snapshot: %w", err)
	}
	return run, nil
}

// SaveDocument writes doc with its entities and span groups, replacing any
// earlier version stored under the same ID. A document without an ID is
// given one. runID may be empty.
func (s *Store) SaveDocument(ctx context.Context, runID string, doc *types.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	tokensJSON, err := json.Marshal(doc.Tokens)
	if err != nil {
		return fmt.Errorf("marshaling tokens: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM spans WHERE doc_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("deleting old spans: %w", err)
	}

	var run any
	if runID != "" {
		run = runID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, run_id, text, tokens, raw_result, annotated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			run_id=excluded.run_id, text=excluded.text, tokens=excluded.tokens,
			raw_result=excluded.raw_result, annotated_at=excluded.annotated_at`,
		doc.ID, run, doc.Text, string(tokensJSON), string(doc.RawResult),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO spans (doc_id, grp, position, start_token, end_token, start_char, end_char, text, label, kb_id, raw)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	insert := func(group string, spans []types.Span) error {
		for i, sp := range spans {
			_, err := stmt.ExecContext(ctx,
				doc.ID, group, i, sp.StartToken, sp.EndToken, sp.StartChar, sp.EndChar,
				sp.Text, sp.Label, sp.KBID, string(sp.Raw),
			)
			if err != nil {
				return fmt.Errorf("inserting span %s[%d]: %w", group, i, err)
			}
		}
		return nil
	}

	if err := insert(entsGroup, doc.Ents); err != nil {
		return err
	}
	for group, spans := range doc.Spans {
		if group == entsGroup {
			continue
		}
		if err := insert(group, spans); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadDocument returns the stored document with the given ID.
func (s *Store) LoadDocument(ctx context.Context, id string) (*types.Document, error) {
	var text, tokensJSON, rawResult string
	err := s.db.QueryRowContext(ctx,
		`SELECT text, tokens, COALESCE(raw_result, '') FROM documents WHERE id = ?`, id,
	).Scan(&text, &tokensJSON, &rawResult)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}

	var tokens []types.Token
	if err := json.Unmarshal([]byte(tokensJSON), &tokens); err != nil {
		return nil, fmt.Errorf("parsing tokens of %s: %w", id, err)
	}
	doc := types.NewDocument(text, tokens)
	doc.ID = id
	if rawResult != "" {
		doc.RawResult = json.RawMessage(rawResult)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT grp, start_token, end_token, start_char, end_char, text, label,
			COALESCE(kb_id, ''), COALESCE(raw, '')
		FROM spans WHERE doc_id = ? ORDER BY grp, position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying spans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		group, sp, err := scanSpan(rows)
		if err != nil {
			return nil, err
		}
		if group == entsGroup {
			doc.Ents = append(doc.Ents, sp)
			continue
		}
		doc.Spans[group] = append(doc.Spans[group], sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spans: %w", err)
	}
	return doc, nil
}

// DocumentIDs returns the identifiers of all stored documents in order.
func (s *Store) DocumentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Hit is a stored span linked to a knowledge-base identifier.
type Hit struct {
	DocID string     `json:"doc_id" yaml:"doc_id"`
	RunID string     `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Group string     `json:"group,omitempty" yaml:"group,omitempty"`
	Span  types.Span `json:"span" yaml:"span"`
}

// FindByKBID returns every stored span linked to kbID, ordered by document,
// group and position. Hits in the primary entities have an empty Group; hits
// in documents saved outside a run have an empty RunID.
func (s *Store) FindByKBID(ctx context.Context, kbID string) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.doc_id, COALESCE(d.run_id, ''), s.grp, s.start_token, s.end_token,
			s.start_char, s.end_char, s.text, s.label, COALESCE(s.kb_id, ''), COALESCE(s.raw, '')
		FROM spans s JOIN documents d ON d.id = s.doc_id
		WHERE s.kb_id = ? ORDER BY s.doc_id, s.grp, s.position`, kbID)
	if err != nil {
		return nil, fmt.Errorf("querying spans: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var docID, runID string
		group, sp, err := scanSpan(rows, &docID, &runID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{DocID: docID, RunID: runID, Group: group, Span: sp})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spans: %w", err)
	}
	return hits, nil
}

// scanSpan reads one span row. prefix receives any leading columns.
func scanSpan(rows *sql.Rows, prefix ...any) (string, types.Span, error) {
	var (
		group string
		sp    types.Span
		raw   string
	)
	dest := append(prefix, &group, &sp.StartToken, &sp.EndToken, &sp.StartChar, &sp.EndChar,
		&sp.Text, &sp.Label, &sp.KBID, &raw)
	if err := rows.Scan(dest...); err != nil {
		return "", types.Span{}, fmt.Errorf("scanning span: %w", err)
	}
	if raw != "" {
		sp.Raw = json.RawMessage(raw)
	}
	return group, sp, nil
}
