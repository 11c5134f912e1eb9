// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package category

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/qa-extractor/pkg/types"
)

func TestMatch(t *testing.T) {
	cats := types.DefaultCategories
	tests := []struct {
		name      string
		candidate string
		want      string
		wantOK    bool
	}{
		{"exact", "Performance Metrics", "Performance Metrics", true},
		{"singular near match", "Performance Metric", "Performance Metrics", true},
		{"case insensitive", "characterization methods", "Characterization Methods", true},
		{"candidate contains canonical", "Stability & Degradation Studies", "Stability & Degradation", true},
		{"fragment picks first in order", "Design", "Materials Design & Synthesis", true},
		{"unrelated", "Unrelated Topic", "", false},
		{"blank", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Match(tt.candidate, cats)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_ExactBeatsEarlierContainment(t *testing.T) {
	cats := []string{"Metrics and More", "Metrics"}
	got, ok := Match("Metrics", cats)
	assert.True(t, ok)
	assert.Equal(t, "Metrics", got)
}

func TestMatchOrFirst(t *testing.T) {
	cats := []string{"A cat", "B cat"}
	assert.Equal(t, "B cat", MatchOrFirst("b cat", cats))
	assert.Equal(t, "A cat", MatchOrFirst("zzz", cats))
	assert.Equal(t, "", MatchOrFirst("zzz", nil))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "materials_design_synthesis", Slug("Materials Design & Synthesis"))
	assert.Equal(t, "structure-property_relationships", Slug("Structure-Property Relationships"))
	assert.Equal(t, "a_b", Slug("A/B"))
}
