package hal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/armazcape/armazd/internal/foundation"
)

// evdev constants: EV_KEY events carry key press (1) / release (0).
const (
	evKey = 0x01
	// eventSize is sizeof(struct input_event) on 64-bit: two int64
	// timestamp words, type, code, value.
	eventSize = 24
)

// KeySwitch is a physical switch delivered as an evdev keycode on a
// /dev/input/eventN device. The descriptor is non-blocking; Poll
// returns None when no event is pending.
type KeySwitch struct {
	name    string
	keycode uint16
	fd      int
	buf     []byte
}

// OpenKeySwitch opens the input device for the given keycode.
func OpenKeySwitch(devicePath string, keycode uint16, name string) (*KeySwitch, error) {
	fd, err := unix.Open(devicePath, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("switch %s: open %s: %w", name, devicePath, err)
	}
	return &KeySwitch{
		name:    name,
		keycode: keycode,
		fd:      fd,
		buf:     make([]byte, eventSize*16),
	}, nil
}

func (s *KeySwitch) Name() string { return s.name }

// Poll drains pending input events and returns the most recent state of
// this switch's keycode, or None when nothing changed. EV_KEY repeats
// (value 2) and other keycodes are ignored.
func (s *KeySwitch) Poll() foundation.Option[bool] {
	result := foundation.None[bool]()
	for {
		n, err := unix.Read(s.fd, s.buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			// EAGAIN: no pending events.
			return result
		}
		if n <= 0 {
			return result
		}
		for off := 0; off+eventSize <= n; off += eventSize {
			ev := s.buf[off : off+eventSize]
			typ := binary.LittleEndian.Uint16(ev[16:18])
			code := binary.LittleEndian.Uint16(ev[18:20])
			value := int32(binary.LittleEndian.Uint32(ev[20:24]))
			if typ != evKey || code != s.keycode || value > 1 {
				continue
			}
			result = foundation.Some(value == 1)
		}
	}
}

// Close releases the input device.
func (s *KeySwitch) Close() error {
	return unix.Close(s.fd)
}
