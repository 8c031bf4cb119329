package queue

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oshokin/alarm-queue/internal/allocator"
	"github.com/oshokin/alarm-queue/internal/domain/alarm"
	"github.com/oshokin/alarm-queue/internal/telemetry"
)

// lifecycle is the state of a queue instance.
type lifecycle int

const (
	active lifecycle = iota + 1
	destroyed
)

var (
	// stateSize is the storage requested from the allocator for the queue itself.
	stateSize = int(reflect.TypeFor[AlarmQueue]().Size())
	// nodeSize is the storage requested for every normal message.
	nodeSize = int(reflect.TypeFor[node]().Size())
)

// node holds one normal message in the pending list.
type node struct {
	payload any
	block   allocator.Block
	next    *node
}

// AlarmQueue is a two-tier message queue. Use New to create one.
// A nil *AlarmQueue is uninitialized and every method reports ErrUninitializedQueue.
type AlarmQueue struct {
	// mu guards every field below it.
	mu sync.Mutex
	// notEmpty is signalled whenever a message is accepted.
	notEmpty *sync.Cond
	// slotFree is broadcast whenever the alarm slot is emptied.
	slotFree *sync.Cond

	// head and tail delimit the pending normal messages, oldest first.
	head *node
	tail *node
	// normals is the length of the pending list.
	normals int

	// alarm is the payload in the alarm slot, valid while hasAlarm is set.
	alarm    any
	hasAlarm bool

	state lifecycle
	block allocator.Block

	discipline Discipline
	alloc      allocator.Allocator
	log        *zap.SugaredLogger
	metrics    *telemetry.QueueMetrics
}

// New creates an empty, active queue.
// It fails without side effects when the discipline is unknown or the state
// block cannot be allocated.
func New(opts ...Option) (*AlarmQueue, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if !o.discipline.Valid() {
		return nil, fmt.Errorf("create alarm queue: %w: %s", errUnknownDiscipline, o.discipline)
	}

	block, err := o.allocator.Allocate(stateSize)
	if err != nil {
		o.log.Warnw("Alarm queue state allocation failed", "error", err)

		return nil, fmt.Errorf("create alarm queue: %w: %w", ErrNoRoom, err)
	}

	q := &AlarmQueue{
		state:      active,
		block:      block,
		discipline: o.discipline,
		alloc:      o.allocator,
		log:        o.log,
		metrics:    o.metrics,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.slotFree = sync.NewCond(&q.mu)

	q.log.Debugw("Alarm queue created", "discipline", q.discipline)

	return q, nil
}

// Send hands payload to the queue.
//
// A normal message is appended to the pending list and never blocks. An alarm
// message takes the alarm slot; if the slot is occupied the blocking discipline
// waits until a Receive empties it, and the non-blocking discipline returns
// ErrNoRoom. On error the queue is unchanged and the caller still owns payload.
func (q *AlarmQueue) Send(payload any, kind alarm.Kind) error {
	if q == nil {
		return ErrUninitializedQueue
	}

	if isNil(payload) {
		return ErrNullMessage
	}

	if !kind.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != active {
		return ErrUninitializedQueue
	}

	var err error
	if kind == alarm.Alarm {
		err = q.putAlarm(payload)
	} else {
		err = q.putNormal(payload)
	}

	if err != nil {
		q.metrics.Rejected()

		return err
	}

	q.metrics.Sent(kind)
	q.notEmpty.Signal()

	return nil
}

// putAlarm occupies the alarm slot, waiting for it under the blocking discipline.
func (q *AlarmQueue) putAlarm(payload any) error {
	if q.hasAlarm {
		if q.discipline == NonBlocking {
			return fmt.Errorf("%w: alarm slot is occupied", ErrNoRoom)
		}

		done := q.metrics.TraceWait(true)
		for q.hasAlarm && q.state == active {
			q.slotFree.Wait()
		}
		done()

		if q.state != active {
			return ErrUninitializedQueue
		}
	}

	q.alarm = payload
	q.hasAlarm = true

	return nil
}

// putNormal appends payload to the pending list.
func (q *AlarmQueue) putNormal(payload any) error {
	block, err := q.alloc.Allocate(nodeSize)
	if err != nil {
		q.log.Warnw("Normal message rejected", "pending", q.normals, "error", err)

		return fmt.Errorf("%w: %w", ErrNoRoom, err)
	}

	n := &node{
		payload: payload,
		block:   block,
	}

	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}

	q.tail = n
	q.normals++

	return nil
}

// Receive removes the next message and returns it with its kind.
//
// The alarm slot is always served first, otherwise the oldest normal message.
// On an empty queue the blocking discipline waits for a Send and the
// non-blocking discipline returns ErrNoMessage. Ownership of the payload
// passes back to the caller.
func (q *AlarmQueue) Receive() (alarm.Kind, any, error) {
	if q == nil {
		return 0, nil, ErrUninitializedQueue
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != active {
		return 0, nil, ErrUninitializedQueue
	}

	if q.empty() {
		if q.discipline == NonBlocking {
			return 0, nil, ErrNoMessage
		}

		done := q.metrics.TraceWait(false)
		for q.empty() && q.state == active {
			q.notEmpty.Wait()
		}
		done()

		if q.state != active {
			return 0, nil, ErrUninitializedQueue
		}
	}

	if q.hasAlarm {
		payload := q.alarm
		q.alarm = nil
		q.hasAlarm = false

		q.metrics.Received(alarm.Alarm)
		// Several senders may be waiting for the slot; only one will win it.
		q.slotFree.Broadcast()

		return alarm.Alarm, payload, nil
	}

	n := q.head
	q.head = n.next

	if q.head == nil {
		q.tail = nil
	}

	q.normals--

	if err := q.alloc.Release(n.block); err != nil {
		q.log.Errorw("Failed to release message node", "error", err)
	}

	q.metrics.Received(alarm.Normal)

	return alarm.Normal, n.payload, nil
}

// ReceiveMessage is Receive returning the message as one value.
func (q *AlarmQueue) ReceiveMessage() (*alarm.Message, error) {
	kind, payload, err := q.Receive()
	if err != nil {
		return nil, err
	}

	return &alarm.Message{Payload: payload, Kind: kind}, nil
}

// Size returns the number of outstanding messages, the alarm included.
func (q *AlarmQueue) Size() (int, error) {
	if q == nil {
		return 0, ErrUninitializedQueue
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != active {
		return 0, ErrUninitializedQueue
	}

	return q.normals + q.alarms(), nil
}

// Alarms returns 1 when an alarm is outstanding and 0 otherwise.
func (q *AlarmQueue) Alarms() (int, error) {
	if q == nil {
		return 0, ErrUninitializedQueue
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != active {
		return 0, ErrUninitializedQueue
	}

	return q.alarms(), nil
}

// Discipline returns the discipline the queue was created with.
func (q *AlarmQueue) Discipline() Discipline {
	if q == nil {
		return Blocking
	}

	return q.discipline
}

// Metrics returns a snapshot of the queue counters.
func (q *AlarmQueue) Metrics() telemetry.Snapshot {
	if q == nil {
		return telemetry.Snapshot{}
	}

	return q.metrics.Snapshot()
}

// Destroy releases every message still held, then the queue itself.
// Payloads implementing alarm.Releaser are released; errors from payloads and
// the allocator are combined into the result. Goroutines suspended in Send or
// Receive wake up and return ErrUninitializedQueue; a payload they were
// sending stays owned by them.
func (q *AlarmQueue) Destroy() error {
	if q == nil {
		return ErrUninitializedQueue
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != active {
		return ErrUninitializedQueue
	}

	var (
		err      error
		released = q.normals + q.alarms()
	)

	for n := q.head; n != nil; {
		next := n.next
		err = multierr.Append(err, releasePayload(n.payload))
		err = multierr.Append(err, q.alloc.Release(n.block))
		n.payload, n.next = nil, nil
		n = next
	}

	q.head, q.tail, q.normals = nil, nil, 0

	if q.hasAlarm {
		err = multierr.Append(err, releasePayload(q.alarm))
		q.alarm, q.hasAlarm = nil, false
	}

	err = multierr.Append(err, q.alloc.Release(q.block))
	q.state = destroyed

	q.notEmpty.Broadcast()
	q.slotFree.Broadcast()

	q.log.Debugw("Alarm queue destroyed", "released_messages", released, "error", err)

	return err
}

// empty reports whether no message is outstanding. Callers hold mu.
func (q *AlarmQueue) empty() bool {
	return !q.hasAlarm && q.head == nil
}

// alarms returns the alarm slot occupancy as a count. Callers hold mu.
func (q *AlarmQueue) alarms() int {
	if q.hasAlarm {
		return 1
	}

	return 0
}

// releasePayload frees payloads that own resources.
func releasePayload(payload any) error {
	r, ok := payload.(alarm.Releaser)
	if !ok {
		return nil
	}

	if err := r.Release(); err != nil {
		return fmt.Errorf("release payload: %w", err)
	}

	return nil
}

// isNil reports whether payload is nil or a typed nil reference.
func isNil(payload any) bool {
	if payload == nil {
		return true
	}

	switch v := reflect.ValueOf(payload); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}
