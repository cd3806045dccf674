package safety

// AgeGroup buckets a child's age into a developmental band. Threshold
// strictness in the classifiers tightens monotonically for younger bands.
type AgeGroup string

const (
	AgeGroupEarlyChildhood  AgeGroup = "early_childhood"  // 3-5
	AgeGroupMiddleChildhood AgeGroup = "middle_childhood" // 6-8
	AgeGroupLateChildhood   AgeGroup = "late_childhood"   // 9-12
	AgeGroupEarlyTeen       AgeGroup = "early_teen"       // 13-15
	AgeGroupLateTeen        AgeGroup = "late_teen"        // 16-17
)

// AgeGroupForAge maps an age in years to its band.
func AgeGroupForAge(age int) AgeGroup {
	switch {
	case age <= 5:
		return AgeGroupEarlyChildhood
	case age <= 8:
		return AgeGroupMiddleChildhood
	case age <= 12:
		return AgeGroupLateChildhood
	case age <= 15:
		return AgeGroupEarlyTeen
	default:
		return AgeGroupLateTeen
	}
}

// ChildContext is the read-only per-child input to classifiers: the child's
// age band plus the parent-defined topic preferences. A topic present in
// BlockedTopics always wins over the same topic in AllowedTopics.
type ChildContext struct {
	ChildID       string
	Age           int
	AgeGroup      AgeGroup
	AllowedTopics []string
	BlockedTopics []string
}

// NewChildContext builds a context with the age band derived from age.
func NewChildContext(childID string, age int, allowed, blocked []string) ChildContext {
	return ChildContext{
		ChildID:       childID,
		Age:           age,
		AgeGroup:      AgeGroupForAge(age),
		AllowedTopics: allowed,
		BlockedTopics: blocked,
	}
}

// TopicAllowed reports whether the parent allow-list covers topic and the
// block-list does not override it.
func (c ChildContext) TopicAllowed(topic string) bool {
	if c.TopicBlocked(topic) {
		return false
	}
	for _, t := range c.AllowedTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// TopicBlocked reports whether the parent block-list covers topic.
func (c ChildContext) TopicBlocked(topic string) bool {
	for _, t := range c.BlockedTopics {
		if t == topic {
			return true
		}
	}
	return false
}
