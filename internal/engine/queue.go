package engine

import (
	"github.com/roach88/sysa/internal/model"
	"github.com/roach88/sysa/internal/rule"
)

// invocation is one scheduled call of a rule body.
type invocation struct {
	key  rule.Key
	rule *rule.Rule
	// item is the triggering value; unused for Once rules.
	item    model.Item
	lineage *lineage
}

// pendingQueue is the FIFO of invocations for the next round. Its order is
// the start order of that round, which is also the order their facts are
// applied in.
//
// Only the run goroutine touches it.
type pendingQueue struct {
	items []*invocation
	fired map[rule.Key]bool
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{fired: make(map[rule.Key]bool)}
}

// Claim marks key as fired. A claimed key never gets another invocation
// in this run.
func (q *pendingQueue) Claim(key rule.Key) {
	q.fired[key] = true
}

// Claimed reports whether key already fired in this run.
func (q *pendingQueue) Claimed(key rule.Key) bool { return q.fired[key] }

// Push queues an invocation whose key was claimed.
func (q *pendingQueue) Push(inv *invocation) {
	q.items = append(q.items, inv)
}

// Drain returns the queued invocations and empties the queue.
func (q *pendingQueue) Drain() []*invocation {
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued invocations.
func (q *pendingQueue) Len() int { return len(q.items) }

