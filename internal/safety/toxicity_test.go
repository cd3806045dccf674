package safety

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScorer struct {
	scores map[string]float64
	err    error
}

func (f *fakeScorer) Score(context.Context, string) (map[string]float64, error) {
	return f.scores, f.err
}

func TestToxicityThresholdsPerAgeBand(t *testing.T) {
	// The same score lands differently depending on the reader's age band.
	scorer := &fakeScorer{scores: map[string]float64{AttrToxicity: 0.35}}
	c := NewToxicityClassifier(scorer, nil)

	tests := []struct {
		age        int
		wantAction Action
	}{
		{age: 4, wantAction: ActionBlock},   // early childhood: block >= 0.3
		{age: 7, wantAction: ActionReview},  // middle childhood: review >= 0.25
		{age: 10, wantAction: ActionReview}, // late childhood: review >= 0.35
		{age: 14, wantAction: ActionAllow},  // early teen: review >= 0.45
		{age: 17, wantAction: ActionAllow},  // late teen: review >= 0.55
	}
	for _, tt := range tests {
		child := NewChildContext("child-1", tt.age, nil, nil)
		v, err := c.Classify(context.Background(), "some message", child)
		require.NoError(t, err)
		assert.Equal(t, tt.wantAction, v.Action, "age %d", tt.age)
	}
}

func TestToxicityThresholdsTightenForYoungerBands(t *testing.T) {
	bands := []AgeGroup{
		AgeGroupEarlyChildhood,
		AgeGroupMiddleChildhood,
		AgeGroupLateChildhood,
		AgeGroupEarlyTeen,
		AgeGroupLateTeen,
	}
	for i := 1; i < len(bands); i++ {
		younger, older := ageThresholds[bands[i-1]], ageThresholds[bands[i]]
		assert.Less(t, younger.block, older.block, "%s vs %s", bands[i-1], bands[i])
		assert.Less(t, younger.review, older.review, "%s vs %s", bands[i-1], bands[i])
		assert.Less(t, younger.review, younger.block, "%s review below block", bands[i-1])
	}
}

func TestToxicitySeverityAndAlerts(t *testing.T) {
	child := NewChildContext("child-1", 7, nil, nil)

	// Extreme score: High severity block with parent alert.
	c := NewToxicityClassifier(&fakeScorer{scores: map[string]float64{AttrSevereToxicity: 0.92}}, nil)
	v, err := c.Classify(context.Background(), "some message", child)
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, v.Action)
	assert.Equal(t, SeverityHigh, v.Severity)
	assert.True(t, v.ParentAlert)
	assert.Contains(t, v.Categories, CategoryHarassment)

	// Borderline review score stays low severity, no alert.
	c = NewToxicityClassifier(&fakeScorer{scores: map[string]float64{AttrInsult: 0.3}}, nil)
	v, err = c.Classify(context.Background(), "some message", child)
	require.NoError(t, err)
	assert.Equal(t, ActionReview, v.Action)
	assert.Equal(t, SeverityLow, v.Severity)
	assert.False(t, v.ParentAlert)

	// Raw scores and metadata travel with the verdict for audit.
	assert.Equal(t, 0.3, v.RawScores[AttrInsult])
	assert.Equal(t, AttrInsult, v.Metadata["max_attribute"])
}

func TestToxicityShortTextSkipsScoring(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("should not be called")}
	c := NewToxicityClassifier(scorer, nil)
	child := NewChildContext("child-1", 7, nil, nil)

	v, err := c.Classify(context.Background(), " hi ", child)
	require.NoError(t, err)
	assert.Equal(t, ActionAllow, v.Action)
	assert.InDelta(t, 0.5, v.Confidence, 1e-9)
}

func TestToxicityFailSafe(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("service unavailable")}
	child := NewChildContext("child-1", 7, nil, nil)

	// Default policy: failure blocks and alerts.
	c := NewToxicityClassifier(scorer, nil)
	v, err := c.Classify(context.Background(), "some message", child)
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, v.Action)
	assert.Equal(t, SeverityHigh, v.Severity)
	assert.True(t, v.ParentAlert)
	assert.Zero(t, v.Confidence)

	// Opt-out policy degrades to Allow.
	c = NewToxicityClassifier(scorer, nil, WithoutToxicityFailSafe())
	v, err = c.Classify(context.Background(), "some message", child)
	require.NoError(t, err)
	assert.Equal(t, ActionAllow, v.Action)
}

func TestToxicityUnavailableWithoutScorer(t *testing.T) {
	c := NewToxicityClassifier(nil, nil)
	assert.False(t, c.Available())
}

func TestKeywordScorerFeedsSameThresholds(t *testing.T) {
	c := NewToxicityClassifier(NewKeywordToxicityScorer(), nil)

	young := NewChildContext("child-1", 4, nil, nil)
	v, err := c.Classify(context.Background(), "I hate this and want it to die", young)
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, v.Action)
	assert.Equal(t, SeverityMedium, v.Severity)

	teen := NewChildContext("child-2", 17, nil, nil)
	v, err = c.Classify(context.Background(), "that was a dumb idea", teen)
	require.NoError(t, err)
	assert.Equal(t, ActionAllow, v.Action)
}
