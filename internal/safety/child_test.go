package safety

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeGroupForAge(t *testing.T) {
	tests := []struct {
		age  int
		want AgeGroup
	}{
		{3, AgeGroupEarlyChildhood},
		{5, AgeGroupEarlyChildhood},
		{6, AgeGroupMiddleChildhood},
		{8, AgeGroupMiddleChildhood},
		{9, AgeGroupLateChildhood},
		{12, AgeGroupLateChildhood},
		{13, AgeGroupEarlyTeen},
		{15, AgeGroupEarlyTeen},
		{16, AgeGroupLateTeen},
		{17, AgeGroupLateTeen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AgeGroupForAge(tt.age), "age %d", tt.age)
	}
}

func TestTopicListPrecedence(t *testing.T) {
	c := NewChildContext("child-1", 10, []string{"space", "gun"}, []string{"gun"})

	assert.True(t, c.TopicAllowed("space"))
	assert.False(t, c.TopicAllowed("gun"), "block-list wins over allow-list")
	assert.True(t, c.TopicBlocked("gun"))
	assert.False(t, c.TopicAllowed("unlisted"))
}

func TestActionJSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(ActionWarnParent)
	require.NoError(t, err)
	assert.Equal(t, `"warn_parent"`, string(raw))

	var a Action
	require.NoError(t, json.Unmarshal([]byte(`"redirect"`), &a))
	assert.Equal(t, ActionRedirect, a)

	assert.Error(t, json.Unmarshal([]byte(`"explode"`), &a))
}

func TestActionPriorityOrdering(t *testing.T) {
	ordered := []Action{ActionAllow, ActionSimplify, ActionWarnParent, ActionRedirect, ActionReview, ActionBlock}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Priority(), ordered[i-1].Priority())
	}
}

func TestSeverityJSON(t *testing.T) {
	raw, err := json.Marshal(SeverityCritical)
	require.NoError(t, err)
	assert.Equal(t, `"critical"`, string(raw))

	var s Severity
	require.NoError(t, json.Unmarshal([]byte(`"medium"`), &s))
	assert.Equal(t, SeverityMedium, s)
}
