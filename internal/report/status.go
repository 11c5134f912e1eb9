// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"

	"github.com/pdiddy/qa-extractor/pkg/types"
)

// State is the coarse progress of one stage.
type State string

const (
	Done       State = "Done"
	InProgress State = "In Progress"
	Partial    State = "Partial"
	Pending    State = "Pending"
)

// StageStatus is one row of the status view.
type StageStatus struct {
	Name   string
	State  State
	Detail string
}

// Status derives per-stage state from the files on disk and, when
// present, the checkpoint. A stage the checkpoint is currently in
// reports In Progress.
func Status(s *Stats, cp *types.Checkpoint) []StageStatus {
	current := types.Stage("")
	if cp != nil {
		current = cp.Stage
	}

	extract := StageStatus{
		Name:   "Extraction",
		Detail: fmt.Sprintf("%d papers, %d knowledge points, %d failed", s.Papers, s.KnowledgePoints, s.FailedExtractions),
	}
	switch {
	case current == types.StageExtract:
		extract.State = InProgress
	case s.Papers == 0:
		extract.State = Pending
	case s.FailedExtractions > 0:
		extract.State = Partial
	default:
		extract.State = Done
	}

	generate := StageStatus{
		Name:   "QA Generation",
		Detail: fmt.Sprintf("%d/%d papers, %d QA pairs, %d failed", s.QAFiles, s.Papers, s.QAPairs-s.CrossDocPairs, s.FailedGenerations),
	}
	switch {
	case current == types.StageGenerate:
		generate.State = InProgress
	case s.QAFiles == 0:
		generate.State = Pending
	case s.QAFiles < s.Papers || s.FailedGenerations > 0:
		generate.State = Partial
	default:
		generate.State = Done
	}

	cross := StageStatus{
		Name:   "Cross-Document QA",
		Detail: fmt.Sprintf("%d QA pairs", s.CrossDocPairs),
	}
	switch {
	case current == types.StageCrossDoc:
		cross.State = InProgress
	case !s.CrossDocPresent:
		cross.State = Pending
	case s.CrossDocFailed:
		cross.State = Partial
	default:
		cross.State = Done
	}

	return []StageStatus{extract, generate, cross}
}
