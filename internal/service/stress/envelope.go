package stress

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/oshokin/alarm-queue/internal/domain/alarm"
)

// Envelope is the payload sent by stress producers.
type Envelope struct {
	ID       uuid.UUID
	Producer int
	Seq      int
	Kind     alarm.Kind
}

// newEnvelope stamps a fresh identifier on a message.
func newEnvelope(producer, seq int, kind alarm.Kind) *Envelope {
	return &Envelope{
		ID:       uuid.New(),
		Producer: producer,
		Seq:      seq,
		Kind:     kind,
	}
}

// Digest fingerprints every field of the envelope.
func (e *Envelope) Digest() uint64 {
	buf := make([]byte, 0, len(e.ID)+3*binary.MaxVarintLen64)
	buf = append(buf, e.ID[:]...)
	buf = binary.AppendUvarint(buf, uint64(e.Producer))
	buf = binary.AppendUvarint(buf, uint64(e.Seq))
	buf = binary.AppendUvarint(buf, uint64(e.Kind))

	return xxhash.Sum64(buf)
}
