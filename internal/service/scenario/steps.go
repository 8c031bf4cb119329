package scenario

import (
	"errors"
	"fmt"

	"github.com/oshokin/alarm-queue/internal/domain/alarm"
	"github.com/oshokin/alarm-queue/internal/queue"
)

// errUnexpected is returned by a step whose observation differs from the expectation.
var errUnexpected = errors.New("unexpected result")

// step is one scripted action with its expectation.
type step struct {
	name string
	run  func(q *queue.AlarmQueue) error
}

// send expects payload to be accepted.
func send(payload int, kind alarm.Kind) step {
	return step{
		name: fmt.Sprintf("send %s(%d)", kind, payload),
		run: func(q *queue.AlarmQueue) error {
			return q.Send(payload, kind)
		},
	}
}

// sendRejected expects payload to be refused with want.
func sendRejected(payload int, kind alarm.Kind, want error) step {
	return step{
		name: fmt.Sprintf("send %s(%d) is rejected", kind, payload),
		run: func(q *queue.AlarmQueue) error {
			err := q.Send(payload, kind)
			if !errors.Is(err, want) {
				return fmt.Errorf("%w: got %v, want %v", errUnexpected, err, want)
			}

			return nil
		},
	}
}

// expectSize checks the outstanding message count and the alarm count.
func expectSize(size, alarms int) step {
	return step{
		name: fmt.Sprintf("size is %d with %d alarm(s)", size, alarms),
		run: func(q *queue.AlarmQueue) error {
			gotSize, err := q.Size()
			if err != nil {
				return err
			}

			gotAlarms, err := q.Alarms()
			if err != nil {
				return err
			}

			if gotSize != size || gotAlarms != alarms {
				return fmt.Errorf("%w: size %d with %d alarm(s)", errUnexpected, gotSize, gotAlarms)
			}

			return nil
		},
	}
}

// expectReceive checks the next delivered message.
func expectReceive(kind alarm.Kind, payload int) step {
	return step{
		name: fmt.Sprintf("receive %s(%d)", kind, payload),
		run: func(q *queue.AlarmQueue) error {
			gotKind, gotPayload, err := q.Receive()
			if err != nil {
				return err
			}

			if gotKind != kind || gotPayload != payload {
				return fmt.Errorf("%w: received %s(%v)", errUnexpected, gotKind, gotPayload)
			}

			return nil
		},
	}
}

// expectEmpty checks that a receive reports an empty queue.
func expectEmpty() step {
	return step{
		name: "receive on empty queue is rejected",
		run: func(q *queue.AlarmQueue) error {
			kind, payload, err := q.Receive()
			if !errors.Is(err, queue.ErrNoMessage) {
				return fmt.Errorf("%w: received %s(%v), error %v", errUnexpected, kind, payload, err)
			}

			return nil
		},
	}
}

// blockingScript is the acceptance sequence for a blocking queue.
// Every step completes without waiting because the alarm slot is drained in time.
func blockingScript() []step {
	return []step{
		send(1, alarm.Normal),
		send(2, alarm.Normal),
		send(3, alarm.Alarm),
		expectSize(3, 1),
		expectReceive(alarm.Alarm, 3),
		send(4, alarm.Alarm),
		send(5, alarm.Normal),
		expectReceive(alarm.Alarm, 4),
		expectReceive(alarm.Normal, 1),
		expectReceive(alarm.Normal, 2),
		expectReceive(alarm.Normal, 5),
		expectSize(0, 0),
	}
}

// nonBlockingScript additionally exercises the rejections of a non-blocking queue.
func nonBlockingScript() []step {
	return []step{
		send(1, alarm.Normal),
		send(2, alarm.Normal),
		send(3, alarm.Alarm),
		sendRejected(4, alarm.Alarm, queue.ErrNoRoom),
		send(5, alarm.Normal),
		expectSize(4, 1),
		expectReceive(alarm.Alarm, 3),
		send(6, alarm.Alarm),
		send(7, alarm.Normal),
		sendRejected(8, alarm.Alarm, queue.ErrNoRoom),
		send(9, alarm.Normal),
		expectSize(6, 1),
		expectReceive(alarm.Alarm, 6),
		expectReceive(alarm.Normal, 1),
		expectReceive(alarm.Normal, 2),
		expectReceive(alarm.Normal, 5),
		expectReceive(alarm.Normal, 7),
		expectReceive(alarm.Normal, 9),
		expectSize(0, 0),
		expectEmpty(),
	}
}

// script selects the sequence matching the discipline.
func script(d queue.Discipline) []step {
	if d == queue.NonBlocking {
		return nonBlockingScript()
	}

	return blockingScript()
}
