package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/scangate/internal/domain/model"
)

func ceiling(n int) *int { return &n }

func TestThresholdSpec_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		ceilings model.ThresholdSpec
		counts   model.FindingCounts
		want     model.Verdict
		breaches []string
	}{
		{
			name:     "equal to ceiling passes",
			ceilings: model.ThresholdSpec{Total: ceiling(5)},
			counts:   model.FindingCounts{Total: 5},
			want:     model.VerdictPass,
		},
		{
			name:       "one over fails",
			ceilings: model.ThresholdSpec{Total: ceiling(5)},
			counts:     model.FindingCounts{Total: 6},
			want:       model.VerdictFail,
			breaches: []string{"total"},
		},
		{
			name:       "ceilings are OR'd",
			ceilings: model.ThresholdSpec{Total: ceiling(100), Low: ceiling(0)},
			counts:     model.FindingCounts{Total: 1, Low: 1},
			want:       model.VerdictFail,
			breaches: []string{"low"},
		},
		{
			name:       "every breach reported",
			ceilings: model.ThresholdSpec{Critical: ceiling(0), High: ceiling(0), Medium: ceiling(2)},
			counts:     model.FindingCounts{Total: 6, Critical: 1, High: 2, Medium: 3},
			want:       model.VerdictFail,
			breaches: []string{"critical", "high", "medium"},
		},
		{
			name:     "unset ceilings are unbounded",
			ceilings: model.ThresholdSpec{High: ceiling(0)},
			counts:   model.FindingCounts{Total: 1000, Low: 1000},
			want:     model.VerdictPass,
		},
		{
			name:     "info is never gated",
			ceilings: model.ThresholdSpec{Low: ceiling(0)},
			counts:   model.FindingCounts{Total: 3, Info: 3},
			want:     model.VerdictPass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, breaches := tt.ceilings.Evaluate(tt.counts)
			assert.Equal(t, tt.want, verdict)

			var names []string
			for _, b := range breaches {
				names = append(names, b.Name)
			}
			assert.Equal(t, tt.breaches, names)
		})
	}
}

func TestThresholdSpec_Validate(t *testing.T) {
	assert.ErrorIs(t, model.ThresholdSpec{}.Validate(), model.ErrConfiguration)
	assert.ErrorIs(t, model.ThresholdSpec{High: ceiling(-1)}.Validate(), model.ErrConfiguration)
	require.NoError(t, model.ThresholdSpec{High: ceiling(0)}.Validate())
	assert.True(t, model.ThresholdSpec{}.IsEmpty())
}
