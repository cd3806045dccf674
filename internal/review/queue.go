package review

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wardenlabs/childguard/internal/observability/metrics"
	"github.com/wardenlabs/childguard/internal/safety"
	"github.com/wardenlabs/childguard/pkg/logging"
)

const (
	defaultMaxSize = 1000
	defaultTTL     = 24 * time.Hour
)

// QueueConfig controls queue capacity and expiry policy.
type QueueConfig struct {
	// MaxSize bounds the queue; the oldest tickets are silently evicted once
	// capacity is exceeded. Defaults to 1000.
	MaxSize int
	// TTL is how long a pending ticket may wait before it expires.
	// Defaults to 24h.
	TTL time.Duration
	// ExpireAction is recorded as the decision of expired tickets.
	// Defaults to Block.
	ExpireAction safety.Action
	// Archive, when set, receives terminal tickets best-effort.
	Archive Archive
	Logger  *logging.Logger
	Metrics *metrics.SafetyMetrics
}

// Queue is a bounded, mutex-protected review queue indexed by insertion
// order and by ID. The expiry sweep runs lazily on reads, so staleness is
// bounded by read frequency; callers needing tighter bounds can poll
// Pending from a background task.
type Queue struct {
	mu           sync.Mutex
	items        []*Ticket
	byID         map[string]*Ticket
	maxSize      int
	ttl          time.Duration
	expireAction safety.Action
	archive      Archive
	onUrgent     []func(Ticket)
	onExpired    []func(Ticket)
	logger       *logging.Logger
	metrics      *metrics.SafetyMetrics
	now          func() time.Time
}

// NewQueue creates a review queue.
func NewQueue(cfg QueueConfig) *Queue {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.ExpireAction == 0 {
		cfg.ExpireAction = safety.ActionBlock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Queue{
		byID:         make(map[string]*Ticket),
		maxSize:      cfg.MaxSize,
		ttl:          cfg.TTL,
		expireAction: cfg.ExpireAction,
		archive:      cfg.Archive,
		logger:       logger,
		metrics:      cfg.Metrics,
		now:          time.Now,
	}
}

// AddRequest carries the inputs for filing a ticket.
type AddRequest struct {
	Content           string
	SubjectID         string
	ClassifierResults []safety.Verdict
	// Priority overrides triage when non-empty.
	Priority Priority
}

// Add files a ticket, computing priority from the classifier results unless
// overridden. Urgent tickets fire the registered callbacks synchronously;
// callback panics are isolated and logged, never propagated.
func (q *Queue) Add(ctx context.Context, req AddRequest) (Ticket, error) {
	priority := req.Priority
	if priority == "" {
		priority = computePriority(req.ClassifierResults)
	}

	ticket := &Ticket{
		ID:                uuid.NewString(),
		Content:           req.Content,
		SubjectID:         req.SubjectID,
		ClassifierResults: req.ClassifierResults,
		CreatedAt:         q.now(),
		Status:            StatusPending,
		Priority:          priority,
	}

	q.mu.Lock()
	q.items = append(q.items, ticket)
	q.byID[ticket.ID] = ticket
	for len(q.items) > q.maxSize {
		evicted := q.items[0]
		q.items = q.items[1:]
		delete(q.byID, evicted.ID)
		q.logger.Warn("review queue at capacity, evicting oldest ticket",
			"ticket_id", evicted.ID, "status", string(evicted.Status))
	}
	pending := q.pendingCountLocked()
	snapshot := *ticket
	q.mu.Unlock()

	q.metrics.SetReviewPending(pending)
	q.logger.Info("review ticket filed",
		"ticket_id", snapshot.ID,
		"subject_id", snapshot.SubjectID,
		"priority", string(snapshot.Priority),
	)

	if priority == PriorityUrgent {
		q.notifyUrgent(snapshot)
	}
	return snapshot, nil
}

// AddForReview satisfies safety.ReviewSink.
func (q *Queue) AddForReview(ctx context.Context, content, subjectID string, results []safety.Verdict) (string, error) {
	t, err := q.Add(ctx, AddRequest{Content: content, SubjectID: subjectID, ClassifierResults: results})
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// OnUrgent registers a callback invoked synchronously when a ticket is
// filed at urgent priority.
func (q *Queue) OnUrgent(fn func(Ticket)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onUrgent = append(q.onUrgent, fn)
}

// OnExpired registers a callback invoked when a pending ticket expires.
func (q *Queue) OnExpired(fn func(Ticket)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onExpired = append(q.onExpired, fn)
}

// Pending sweeps stale tickets, then returns pending tickets sorted by
// priority (urgent first) and age (oldest first within a tier), truncated
// to limit. An empty priority filter returns all tiers.
func (q *Queue) Pending(ctx context.Context, limit int, priority Priority) []Ticket {
	if limit <= 0 {
		limit = 10
	}

	expired := q.sweepExpired(ctx)
	for _, t := range expired {
		for _, fn := range q.callbacksSnapshot(&q.onExpired) {
			q.invokeCallback("expired", fn, t)
		}
	}

	q.mu.Lock()
	var pending []Ticket
	for _, t := range q.items {
		if t.Status != StatusPending {
			continue
		}
		if priority != "" && t.Priority != priority {
			continue
		}
		pending = append(pending, *t)
	}
	count := q.pendingCountLocked()
	q.mu.Unlock()

	q.metrics.SetReviewPending(count)

	sort.SliceStable(pending, func(i, j int) bool {
		ri, rj := priorityRank[pending[i].Priority], priorityRank[pending[j].Priority]
		if ri != rj {
			return ri < rj
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}

// SubmitReview records a human decision on a pending ticket: Allow approves,
// anything else rejects. Returns false without error when the ticket is
// missing or no longer pending; that is an expected race, not a fault.
func (q *Queue) SubmitReview(ctx context.Context, ticketID string, decision safety.Action, reviewerID, notes string) bool {
	q.mu.Lock()
	ticket, ok := q.byID[ticketID]
	if !ok {
		q.mu.Unlock()
		q.logger.Warn("review ticket not found", "ticket_id", ticketID)
		return false
	}
	if ticket.Status != StatusPending {
		status := ticket.Status
		q.mu.Unlock()
		q.logger.Warn("review ticket not pending", "ticket_id", ticketID, "status", string(status))
		return false
	}

	if decision == safety.ActionAllow {
		ticket.Status = StatusApproved
	} else {
		ticket.Status = StatusRejected
	}
	reviewedAt := q.now()
	ticket.ReviewerID = reviewerID
	ticket.ReviewedAt = &reviewedAt
	ticket.Decision = &decision
	ticket.Notes = notes
	snapshot := *ticket
	pending := q.pendingCountLocked()
	q.mu.Unlock()

	q.metrics.SetReviewPending(pending)
	q.logger.Info("review submitted",
		"ticket_id", ticketID,
		"decision", decision.String(),
		"reviewer_id", reviewerID,
	)
	q.archiveTicket(ctx, snapshot)
	return true
}

// Decision returns the adjudicated action for a ticket: nil when the ticket
// is missing or still pending, the configured expiry action when expired,
// and the stored decision otherwise.
func (q *Queue) Decision(ticketID string) *safety.Action {
	q.mu.Lock()
	defer q.mu.Unlock()

	ticket, ok := q.byID[ticketID]
	if !ok || ticket.Status == StatusPending {
		return nil
	}
	if ticket.Status == StatusExpired {
		action := q.expireAction
		return &action
	}
	if ticket.Decision == nil {
		return nil
	}
	action := *ticket.Decision
	return &action
}

// Get returns a copy of a ticket by ID.
func (q *Queue) Get(ticketID string) (Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ticket, ok := q.byID[ticketID]
	if !ok {
		return Ticket{}, false
	}
	return *ticket, true
}

// Stats reports operational counts for dashboards.
type Stats struct {
	Total      int              `json:"total"`
	Pending    int              `json:"pending"`
	Urgent     int              `json:"urgent"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByPriority map[Priority]int `json:"by_priority"`
}

// Stats returns queue totals plus status and pending-priority histograms.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{
		Total:      len(q.items),
		ByStatus:   make(map[Status]int),
		ByPriority: make(map[Priority]int),
	}
	for _, t := range q.items {
		s.ByStatus[t.Status]++
		if t.Status == StatusPending {
			s.Pending++
			s.ByPriority[t.Priority]++
			if t.Priority == PriorityUrgent {
				s.Urgent++
			}
		}
	}
	return s
}

// sweepExpired transitions pending tickets older than the TTL to Expired
// with the configured default decision. Returns copies of the newly expired
// tickets.
func (q *Queue) sweepExpired(ctx context.Context) []Ticket {
	now := q.now()

	q.mu.Lock()
	var expired []Ticket
	for _, t := range q.items {
		if t.Status != StatusPending || t.Age(now) <= q.ttl {
			continue
		}
		t.Status = StatusExpired
		action := q.expireAction
		t.Decision = &action
		expired = append(expired, *t)
	}
	q.mu.Unlock()

	for _, t := range expired {
		q.logger.Warn("review ticket expired",
			"ticket_id", t.ID,
			"age_hours", t.Age(now).Hours(),
		)
		q.archiveTicket(ctx, t)
	}
	return expired
}

func (q *Queue) pendingCountLocked() int {
	n := 0
	for _, t := range q.items {
		if t.Status == StatusPending {
			n++
		}
	}
	return n
}

func (q *Queue) notifyUrgent(t Ticket) {
	for _, fn := range q.callbacksSnapshot(&q.onUrgent) {
		q.invokeCallback("urgent", fn, t)
	}
}

func (q *Queue) callbacksSnapshot(list *[]func(Ticket)) []func(Ticket) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]func(Ticket), len(*list))
	copy(out, *list)
	return out
}

// invokeCallback isolates one notification callback: failures are logged,
// never propagated.
func (q *Queue) invokeCallback(kind string, fn func(Ticket), t Ticket) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("review callback panicked", "kind", kind, "ticket_id", t.ID, "panic", r)
		}
	}()
	fn(t)
}

func (q *Queue) archiveTicket(ctx context.Context, t Ticket) {
	if q.archive == nil {
		return
	}
	if err := q.archive.Store(ctx, t); err != nil {
		q.logger.Error("ticket archive failed", "ticket_id", t.ID, "error", err)
	}
}
