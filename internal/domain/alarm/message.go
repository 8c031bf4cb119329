package alarm

// Releaser is implemented by payloads that own resources.
// The queue calls Release on every payload it still holds when it is destroyed.
type Releaser interface {
	Release() error
}

// Message is a payload tagged with its delivery tier.
type Message struct {
	// Payload is the caller's opaque value. It is never nil for a delivered message.
	Payload any
	// Kind is the tier the message was sent with.
	Kind Kind
}

// IsAlarm reports whether the message was sent as an alarm.
func (m *Message) IsAlarm() bool {
	return m != nil && m.Kind == Alarm
}

// Clone returns a shallow copy of the message. The payload itself is shared.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}

	cloned := *m

	return &cloned
}
