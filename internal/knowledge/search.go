// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// QueryOptions holds parameters for index queries.
type QueryOptions struct {
	// Query is an FTS4 MATCH expression over question/answer or
	// content/evidence text.
	Query string

	Kind       Kind
	Category   string
	Difficulty string
	PaperID    string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Kind == "" && q.Category == "" && q.Difficulty == "" && q.PaperID == ""
}

// Result is one indexed item with its paper title. For QA items Text is
// the question and Detail the answer; for knowledge points they are the
// content and evidence.
type Result struct {
	ID         string   `json:"id"`
	Kind       Kind     `json:"kind"`
	PaperID    string   `json:"paper_id"`
	PaperTitle string   `json:"paper_title"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Text       string   `json:"text"`
	Detail     string   `json:"detail,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
}

// Search queries the index with optional full-text search and
// structured filters. Results come back in paper order, then in the
// order items appear in their file.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]Result, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT i.id, i.kind, i.paper_id, p.title, i.category, i.difficulty,
			i.reasoning, i.primary_text, i.secondary_text, i.keywords
		FROM items i
		LEFT JOIN papers p ON i.paper_id = p.id
		WHERE 1=1`)

	if opts.Query != "" {
		qb.WriteString(` AND i.rowid IN (SELECT docid FROM items_fts WHERE items_fts MATCH ?)`)
		args = append(args, opts.Query)
	}
	if opts.Kind != "" {
		qb.WriteString(` AND i.kind = ?`)
		args = append(args, string(opts.Kind))
	}
	if opts.Category != "" {
		qb.WriteString(` AND i.category = ?`)
		args = append(args, opts.Category)
	}
	if opts.Difficulty != "" {
		qb.WriteString(` AND i.difficulty = ?`)
		args = append(args, opts.Difficulty)
	}
	if opts.PaperID != "" {
		qb.WriteString(` AND i.paper_id = ?`)
		args = append(args, opts.PaperID)
	}

	qb.WriteString(` ORDER BY i.paper_id, i.kind, i.rowid LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r                     Result
			kind                  string
			title, difficulty     sql.NullString
			reasoning, secondary  sql.NullString
			category, keywordsRaw sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &kind, &r.PaperID, &title, &category, &difficulty,
			&reasoning, &r.Text, &secondary, &keywordsRaw,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Kind = Kind(kind)
		r.PaperTitle = title.String
		r.Category = category.String
		r.Difficulty = difficulty.String
		r.Reasoning = reasoning.String
		r.Detail = secondary.String
		if keywordsRaw.Valid {
			json.Unmarshal([]byte(keywordsRaw.String), &r.Keywords)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Count returns the number of indexed items of kind, or of every kind
// when kind is empty.
func (s *Store) Count(ctx context.Context, kind Kind) (int, error) {
	q := `SELECT count(*) FROM items`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}
