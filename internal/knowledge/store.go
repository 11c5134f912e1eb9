// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge indexes extracted knowledge points and generated QA
// pairs in a SQLite database with a full-text table, so a finished
// dataset can be searched by text, category, difficulty and paper.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

const (
	dbFile = "qa.db"

	defaultMaxResults = 20
)

// Kind distinguishes indexed knowledge points from QA pairs.
type Kind string

const (
	KindKnowledge Kind = "knowledge"
	KindQA        Kind = "qa"
)

// Store manages the index database under <output>/index/.
type Store struct {
	db         *sql.DB
	layout     artifact.Layout
	maxResults int
}

// NewStore opens or creates the index database for layout and creates
// the schema if it does not exist.
func NewStore(layout artifact.Layout) (*Store, error) {
	dbDir := layout.IndexDir()
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, layout: layout, maxResults: defaultMaxResults}
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

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			source TEXT NOT NULL,
			paper_id TEXT NOT NULL REFERENCES papers(id),
			category TEXT,
			difficulty TEXT,
			reasoning TEXT,
			primary_text TEXT NOT NULL,
			secondary_text TEXT,
			keywords TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_paper_id ON items(paper_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_source ON items(source)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			source TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
		// Full-text table over item text, kept in sync by triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts4(primary_text, secondary_text)`,
		`CREATE TRIGGER IF NOT EXISTS items_ai AFTER INSERT ON items BEGIN
			INSERT INTO items_fts(docid, primary_text, secondary_text)
			VALUES (new.rowid, new.primary_text, new.secondary_text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS items_ad AFTER DELETE ON items BEGIN
			DELETE FROM items_fts WHERE docid = old.rowid;
		END`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from an indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of files considered.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// item is one row to insert.
type item struct {
	id, kind, category, difficulty, reasoning string
	primary, secondary                        string
	keywords                                  []string
}

// document is one artifact file reduced to what the index stores.
type document struct {
	paperID, title string
	items          []item
}

// Ingest indexes every knowledge and QA file under the layout. Files
// whose modification time matches the last indexing are skipped; a
// changed file replaces its earlier rows. Failed results are not
// indexed.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	sources := []struct {
		kind Kind
		dir  string
	}{
		{KindKnowledge, s.layout.KnowledgeDir()},
		{KindQA, s.layout.QADir()},
	}
	for _, src := range sources {
		paths, err := artifact.ListJSON(src.dir)
		if err != nil {
			return summary, err
		}
		for _, path := range paths {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			default:
			}
			s.ingestFile(ctx, src.kind, path, w, &summary)
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Store) ingestFile(ctx context.Context, kind Kind, path string, w io.Writer, summary *IngestSummary) {
	source := string(kind) + "/" + artifact.Stem(path)

	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "failed   %s: %v\n", source, err)
		summary.Failed++
		return
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

	var storedModTime string
	err = s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM indexing_status WHERE source = ?`, source,
	).Scan(&storedModTime)
	if err == nil && storedModTime == modTime {
		fmt.Fprintf(w, "skipped  %s\n", source)
		summary.Skipped++
		return
	}
	isUpdate := err == nil

	doc, err := load(kind, path)
	if err != nil {
		fmt.Fprintf(w, "failed   %s: %v\n", source, err)
		summary.Failed++
		return
	}

	if err := s.ingestDocument(ctx, source, doc, modTime); err != nil {
		fmt.Fprintf(w, "failed   %s: %v\n", source, err)
		summary.Failed++
		return
	}

	if isUpdate {
		fmt.Fprintf(w, "updated  %s (%d items)\n", source, len(doc.items))
		summary.Updated++
	} else {
		fmt.Fprintf(w, "indexing %s (%d items)\n", source, len(doc.items))
		summary.Indexed++
	}
}

// load reads an artifact and flattens it into index rows.
func load(kind Kind, path string) (*document, error) {
	if kind == KindKnowledge {
		ex, err := artifact.LoadExtraction(path)
		if err != nil {
			return nil, err
		}
		if ex.Failed() {
			return nil, fmt.Errorf("failed result: %s", failure(ex.TokenUsage, "no knowledge points"))
		}
		doc := &document{paperID: ex.PaperID, title: ex.PaperTitle}
		for i, kp := range ex.KnowledgePoints {
			doc.items = append(doc.items, item{
				id:        fmt.Sprintf("%s#kp%03d", ex.PaperID, i+1),
				kind:      string(KindKnowledge),
				category:  kp.Category,
				reasoning: string(kp.Complexity),
				primary:   kp.Content,
				secondary: kp.Evidence,
				keywords:  kp.Keywords,
			})
		}
		return doc, nil
	}

	gen, err := artifact.LoadGeneration(path)
	if err != nil {
		return nil, err
	}
	if gen.Failed() {
		return nil, fmt.Errorf("failed result: %s", failure(gen.TokenUsage, "no QA pairs"))
	}
	doc := &document{paperID: gen.PaperID, title: gen.PaperTitle}
	for i, qa := range gen.QAPairs {
		doc.items = append(doc.items, item{
			id:         fmt.Sprintf("%s#qa%03d", gen.PaperID, i+1),
			kind:       string(KindQA),
			category:   qa.Category,
			difficulty: string(qa.Difficulty),
			reasoning:  string(qa.ReasoningType),
			primary:    qa.Question,
			secondary:  qa.Answer,
		})
	}
	return doc, nil
}

func failure(u types.UsageRecord, fallback string) string {
	if u.Error != "" {
		return u.Error
	}
	return fallback
}

func (s *Store) ingestDocument(ctx context.Context, source string, doc *document, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE source = ?`, source); err != nil {
		return fmt.Errorf("deleting old items: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO papers (id, title) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET title=excluded.title`,
		doc.paperID, doc.title,
	)
	if err != nil {
		return fmt.Errorf("upserting paper: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (id, kind, source, paper_id, category, difficulty, reasoning, primary_text, secondary_text, keywords)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range doc.items {
		keywords := it.keywords
		if keywords == nil {
			keywords = []string{}
		}
		keywordsJSON, _ := json.Marshal(keywords)
		_, err := stmt.ExecContext(ctx,
			it.id, it.kind, source, doc.paperID,
			it.category, it.difficulty, it.reasoning,
			it.primary, it.secondary, string(keywordsJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting item %s: %w", it.id, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (source, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		source, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}
