// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"github.com/pdiddy/qa-extractor/pkg/types"
)

// LoadExtraction reads an extraction result.
func LoadExtraction(path string) (*types.ExtractionResult, error) {
	var r types.ExtractionResult
	if err := ReadJSON(path, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadGeneration reads a generation result.
func LoadGeneration(path string) (*types.GenerationResult, error) {
	var r types.GenerationResult
	if err := ReadJSON(path, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ReusableExtraction returns the result stored at path when the file
// exists, decodes, and is not failed. Any other outcome means the item
// must be processed again.
func ReusableExtraction(path string) (*types.ExtractionResult, bool) {
	r, err := LoadExtraction(path)
	if err != nil || r.Failed() {
		return nil, false
	}
	return r, true
}

// ReusableGeneration is ReusableExtraction for generation results.
func ReusableGeneration(path string) (*types.GenerationResult, bool) {
	r, err := LoadGeneration(path)
	if err != nil || r.Failed() {
		return nil, false
	}
	return r, true
}

// LoadExtractions reads every knowledge file under the layout in name
// order. Files that fail to decode are reported in skipped.
func (l Layout) LoadExtractions() (results []*types.ExtractionResult, skipped []string, err error) {
	paths, err := ListJSON(l.KnowledgeDir())
	if err != nil {
		return nil, nil, err
	}
	for _, p := range paths {
		r, err := LoadExtraction(p)
		if err != nil {
			skipped = append(skipped, p)
			continue
		}
		results = append(results, r)
	}
	return results, skipped, nil
}

// LoadGenerations reads every QA file under the layout in name order,
// the cross-document result included. Files that fail to decode are
// reported in skipped.
func (l Layout) LoadGenerations() (results []*types.GenerationResult, skipped []string, err error) {
	paths, err := ListJSON(l.QADir())
	if err != nil {
		return nil, nil, err
	}
	for _, p := range paths {
		r, err := LoadGeneration(p)
		if err != nil {
			skipped = append(skipped, p)
			continue
		}
		results = append(results, r)
	}
	return results, skipped, nil
}

// QAStems returns the paper ids that have a QA file, excluding the
// cross-document result.
func (l Layout) QAStems() (map[string]bool, error) {
	paths, err := ListJSON(l.QADir())
	if err != nil {
		return nil, err
	}
	stems := make(map[string]bool, len(paths))
	for _, p := range paths {
		if s := Stem(p); s != types.CrossDocID {
			stems[s] = true
		}
	}
	return stems, nil
}
