package devicemsg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"unicode/utf8"
)

// Wire limits.
const (
	// MaxMessageSize bounds a serialized message.
	MaxMessageSize = 1 << 18 // 256k

	// ClipboardTextMaxLength is the largest clipboard payload in bytes,
	// leaving room for the type tag and length prefix.
	ClipboardTextMaxLength = MaxMessageSize - 5
)

// Errors returned by the serializer.
var (
	ErrUnknownType     = errors.New("devicemsg: unknown message type")
	ErrPayloadTooLarge = errors.New("devicemsg: payload too large")
)

// Marshal serializes a message into its wire form.
//
// Layout by type (all integers big endian):
//
//	clipboard:      type:u8 len:u32 text
//	ack_clipboard:  type:u8 sequence:u64
//	uhid_output:    type:u8 id:u16 size:u16 data
//	secure_display: type:u8 active:u8
func Marshal(m Message) ([]byte, error) {
	switch m.typ {
	case TypeClipboard:
		text := truncateUTF8(m.text, ClipboardTextMaxLength)
		buf := make([]byte, 5, 5+len(text))
		buf[0] = byte(m.typ)
		binary.BigEndian.PutUint32(buf[1:5], uint32(len(text)))
		return append(buf, text...), nil

	case TypeAckClipboard:
		buf := make([]byte, 9)
		buf[0] = byte(m.typ)
		binary.BigEndian.PutUint64(buf[1:], m.sequence)
		return buf, nil

	case TypeUhidOutput:
		if len(m.data) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: uhid output of %d bytes", ErrPayloadTooLarge, len(m.data))
		}
		buf := make([]byte, 5, 5+len(m.data))
		buf[0] = byte(m.typ)
		binary.BigEndian.PutUint16(buf[1:3], m.id)
		binary.BigEndian.PutUint16(buf[3:5], uint16(len(m.data)))
		return append(buf, m.data...), nil

	case TypeSecureDisplay:
		buf := []byte{byte(m.typ), 0}
		if m.secure {
			buf[1] = 1
		}
		return buf, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, m.typ)
	}
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := max
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Writer serializes messages onto a stream. It is safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write serializes m and writes it in a single call to the underlying
// writer.
func (w *Writer) Write(m Message) error {
	buf, err := Marshal(m)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("write %s message: %w", m.typ, err)
	}
	return nil
}
