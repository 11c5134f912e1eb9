// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists pipeline progress so an interrupted run can
// resume. The checkpoint is one JSON document per output directory,
// rewritten whole on every update.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/qa-extractor/internal/artifact"
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// FileName is the checkpoint file name inside the output directory.
const FileName = ".checkpoint.json"

// TimestampLayout formats Checkpoint.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05"

// Store reads and writes the checkpoint for one output directory.
type Store struct {
	path    string
	current *types.Checkpoint
	runID   string
	now     func() time.Time
}

// NewStore returns a Store for outputDir. runID is stamped on every save;
// it may be empty.
func NewStore(outputDir, runID string) *Store {
	return &Store{
		path:  filepath.Join(outputDir, FileName),
		runID: runID,
		now:   time.Now,
	}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string { return s.path }

// Exists reports whether a checkpoint file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the checkpoint from disk and makes it current. A missing,
// unreadable or malformed file yields nil; resume then starts fresh.
func (s *Store) Load() *types.Checkpoint {
	var cp types.Checkpoint
	if err := artifact.ReadJSON(s.path, &cp); err != nil {
		return nil
	}
	s.current = &cp
	return &cp
}

// Current returns the in-memory checkpoint, or nil if none has been
// loaded or created.
func (s *Store) Current() *types.Checkpoint {
	return s.current
}

// Save stamps cp with the current time and run id, makes it current and
// writes it.
func (s *Store) Save(cp *types.Checkpoint) error {
	cp.Timestamp = s.now().Format(TimestampLayout)
	if s.runID != "" {
		cp.RunID = s.runID
	}
	if cp.ProcessedFiles == nil {
		cp.ProcessedFiles = []string{}
	}
	if cp.Errors == nil {
		cp.Errors = []string{}
	}
	s.current = cp
	if err := artifact.WriteJSON(s.path, cp); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// Field is one change applied by Update.
type Field func(cp *types.Checkpoint)

// WithStage sets the stage.
func WithStage(stage types.Stage) Field {
	return func(cp *types.Checkpoint) { cp.Stage = stage }
}

// WithProcessedFile records key as processed and as the last file.
// A key already present is not added again.
func WithProcessedFile(key string) Field {
	return func(cp *types.Checkpoint) {
		if !cp.HasProcessed(key) {
			cp.ProcessedFiles = append(cp.ProcessedFiles, key)
		}
		cp.LastFile = key
	}
}

// WithTokenStats replaces the token usage snapshot.
func WithTokenStats(snap types.TokenSnapshot) Field {
	return func(cp *types.Checkpoint) { cp.TokenStats = snap }
}

// WithKnowledgeCount sets the knowledge point total.
func WithKnowledgeCount(n int) Field {
	return func(cp *types.Checkpoint) { cp.KnowledgeCount = n }
}

// WithQACount sets the QA pair total.
func WithQACount(n int) Field {
	return func(cp *types.Checkpoint) { cp.QACount = n }
}

// WithError appends msg to the error list.
func WithError(msg string) Field {
	return func(cp *types.Checkpoint) { cp.Errors = append(cp.Errors, msg) }
}

// Update applies fields to the in-memory checkpoint, creating an empty
// one if needed, and saves the result.
func (s *Store) Update(fields ...Field) error {
	cp := s.current
	if cp == nil {
		cp = &types.Checkpoint{Stage: types.StageExtract}
	}
	for _, f := range fields {
		f(cp)
	}
	return s.Save(cp)
}

// Unprocessed returns the keys in all that the current checkpoint has
// not recorded, in their original order. It does not look at the
// filesystem.
func (s *Store) Unprocessed(all []string) []string {
	done := map[string]bool{}
	if s.current != nil {
		for _, k := range s.current.ProcessedFiles {
			done[k] = true
		}
	}
	var out []string
	for _, k := range all {
		if !done[k] {
			out = append(out, k)
		}
	}
	return out
}

// Clear removes the checkpoint file and forgets the in-memory copy.
func (s *Store) Clear() error {
	s.current = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing checkpoint: %w", err)
	}
	return nil
}
