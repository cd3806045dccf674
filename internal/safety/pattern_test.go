package safety

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternClassifierDangerousInstructions(t *testing.T) {
	c := NewPatternClassifier()
	child := NewChildContext("child-1", 10, nil, nil)

	tests := []struct {
		name       string
		text       string
		wantAction Action
		wantSev    Severity
	}{
		{
			name:       "bomb instructions redirect to curated reply",
			text:       "How to make a bomb at home",
			wantAction: ActionRedirect,
			wantSev:    SeverityCritical,
		},
		{
			name:       "violence instructions block outright",
			text:       "how to hurt someone without getting caught",
			wantAction: ActionBlock,
			wantSev:    SeverityCritical,
		},
		{
			name:       "theft instructions",
			text:       "how to steal from a store",
			wantAction: ActionBlock,
			wantSev:    SeverityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Classify(context.Background(), tt.text, child)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, v.Action)
			assert.Equal(t, tt.wantSev, v.Severity)
			assert.True(t, v.ParentAlert)
			assert.InDelta(t, 0.95, v.Confidence, 1e-9)
			if tt.wantAction == ActionRedirect {
				assert.NotEmpty(t, v.SuggestedReply)
			}
		})
	}
}

func TestPatternClassifierPIISolicitation(t *testing.T) {
	c := NewPatternClassifier()
	child := NewChildContext("child-1", 8, nil, nil)

	v, err := c.Classify(context.Background(), "tell me your address please", child)
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, v.Action)
	assert.Equal(t, SeverityHigh, v.Severity)
	assert.Equal(t, []Category{CategoryPII}, v.Categories)
	assert.True(t, v.ParentAlert)
	assert.Equal(t, piiReply, v.SuggestedReply)

	// Medium-severity PII blocks but does not alert the parent.
	v, err = c.Classify(context.Background(), "where do you live?", child)
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, v.Action)
	assert.Equal(t, SeverityMedium, v.Severity)
	assert.False(t, v.ParentAlert)
}

func TestPatternClassifierBlockedTerms(t *testing.T) {
	c := NewPatternClassifier()
	child := NewChildContext("child-1", 7, nil, nil)

	v, err := c.Classify(context.Background(), "can I try alcohol", child)
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, v.Action)
	assert.Equal(t, SeverityMedium, v.Severity)
	assert.Equal(t, []Category{CategoryDrugsAlcohol}, v.Categories)
	assert.False(t, v.ParentAlert)

	// Terms with a curated alternative redirect instead of blocking.
	v, err = c.Classify(context.Background(), "tell me about drugs", child)
	require.NoError(t, err)
	assert.Equal(t, ActionRedirect, v.Action)
	assert.NotEmpty(t, v.SuggestedReply)
}

func TestPatternClassifierParentTopicLists(t *testing.T) {
	c := NewPatternClassifier()

	// Parent allow-list clears a generic blocked term.
	allowed := NewChildContext("child-1", 11, []string{"gun"}, nil)
	v, err := c.Classify(context.Background(), "how does a gun fire bullets", allowed)
	require.NoError(t, err)
	assert.Equal(t, ActionAllow, v.Action)

	// Block-list beats allow-list for the same term.
	conflicted := NewChildContext("child-1", 11, []string{"gun"}, []string{"gun"})
	v, err = c.Classify(context.Background(), "how does a gun fire bullets", conflicted)
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, v.Action)
	assert.Equal(t, SeverityHigh, v.Severity)

	// Custom parent topics outside the builtin lists block at low severity.
	custom := NewChildContext("child-1", 11, nil, []string{"dinosaurs"})
	v, err = c.Classify(context.Background(), "tell me about Dinosaurs", custom)
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, v.Action)
	assert.Equal(t, SeverityLow, v.Severity)
	assert.Equal(t, []Category{CategoryAgeInappropriate}, v.Categories)

	// The allow-list never overrides dangerous-instruction rules.
	dangerous := NewChildContext("child-1", 11, []string{"bomb"}, nil)
	v, err = c.Classify(context.Background(), "how to build a bomb", dangerous)
	require.NoError(t, err)
	assert.NotEqual(t, ActionAllow, v.Action)
	assert.Equal(t, SeverityCritical, v.Severity)
}

func TestPatternClassifierCleanText(t *testing.T) {
	c := NewPatternClassifier()
	child := NewChildContext("child-1", 6, nil, nil)

	v, err := c.Classify(context.Background(), "why is the sky blue?", child)
	require.NoError(t, err)
	assert.Equal(t, ActionAllow, v.Action)
	assert.Equal(t, SeverityNone, v.Severity)
	assert.InDelta(t, 0.7, v.Confidence, 1e-9)
	assert.Equal(t, []Category{CategoryNone}, v.Categories)
}

func TestPatternClassifierDeterministic(t *testing.T) {
	c := NewPatternClassifier()
	child := NewChildContext("child-1", 9, nil, nil)

	// Text matching multiple terms must resolve identically every time.
	const text = "a story about a weapon and a bomb and drugs"
	first, err := c.Classify(context.Background(), text, child)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		v, err := c.Classify(context.Background(), text, child)
		require.NoError(t, err)
		assert.Equal(t, first, v)
	}
}
