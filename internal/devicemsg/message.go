// Package devicemsg defines the device-to-controller message envelope.
//
// A Message carries exactly one event variant. Messages are immutable and
// are built only through the New* constructors, one per variant:
//   - Clipboard text changed on the device
//   - Acknowledgement of a controller clipboard update
//   - Output report from a virtual HID device
//   - Secure-display state changed
package devicemsg

// Type identifies the variant carried by a Message. The values are the
// type tags written on the wire.
type Type uint8

const (
	TypeClipboard     Type = 0
	TypeAckClipboard  Type = 1
	TypeUhidOutput    Type = 2
	TypeSecureDisplay Type = 3
)

// String returns the string representation of the message type.
func (t Type) String() string {
	switch t {
	case TypeClipboard:
		return "clipboard"
	case TypeAckClipboard:
		return "ack_clipboard"
	case TypeUhidOutput:
		return "uhid_output"
	case TypeSecureDisplay:
		return "secure_display"
	default:
		return "unknown"
	}
}

// Message is a single device event.
type Message struct {
	typ      Type
	text     string
	sequence uint64
	id       uint16
	data     []byte
	secure   bool
}

// NewClipboard creates a message announcing the device clipboard text.
func NewClipboard(text string) Message {
	return Message{typ: TypeClipboard, text: text}
}

// NewAckClipboard acknowledges the controller clipboard request with the
// given sequence number.
func NewAckClipboard(sequence uint64) Message {
	return Message{typ: TypeAckClipboard, sequence: sequence}
}

// NewUhidOutput creates a message carrying an output report for the virtual
// HID device id. The data is copied.
func NewUhidOutput(id uint16, data []byte) Message {
	return Message{typ: TypeUhidOutput, id: id, data: cloneBytes(data)}
}

// NewSecureDisplay reports whether secure (non-capturable) content is on
// screen.
func NewSecureDisplay(active bool) Message {
	return Message{typ: TypeSecureDisplay, secure: active}
}

// Type returns the variant of the message.
func (m Message) Type() Type { return m.typ }

// Text returns the clipboard text, or "" for other variants.
func (m Message) Text() string { return m.text }

// Sequence returns the acknowledged clipboard sequence, or 0 for other
// variants.
func (m Message) Sequence() uint64 { return m.sequence }

// ID returns the HID device id, or 0 for other variants.
func (m Message) ID() uint16 { return m.id }

// Data returns a copy of the HID output report, or nil for other variants.
func (m Message) Data() []byte { return cloneBytes(m.data) }

// SecureActive reports the secure-display state, or false for other
// variants.
func (m Message) SecureActive() bool { return m.secure }

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Sender consumes device messages. Implementations own serialization and
// delivery; Send is expected not to block the caller for long.
type Sender interface {
	Send(msg Message)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(msg Message)

// Send calls f(msg).
func (f SenderFunc) Send(msg Message) { f(msg) }
