package queue

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	headerEntrySize = 4 // Number of bytes used to keep information about entry size
)

// checkInvariants enables validation of cursor invariants after every mutation.
// Violations are implementation defects and panic.
var checkInvariants = false

// ringState is the storage shared by the ring based queues: one fixed buffer, read and write
// cursors and the gap marking where valid data ends before the write cursor wrapped to 0.
//
// Live records are [readFrom, gap) followed, when wrapped, by [0, writeTo).
type ringState struct {
	data     []byte
	readFrom int
	writeTo  int
	gap      int
	items    int
}

func pushSize(size int) int {
	return headerEntrySize + size
}

// validSize reports whether size can be stored in a record header
func validSize(size int) bool {
	return size >= 0 && uint64(size) <= math.MaxUint32
}

func (s *ringState) willFit(size int) bool {
	if !validSize(size) {
		return false
	}
	need := pushSize(size)

	switch {
	case s.readFrom < s.writeTo:
		// free space is the tail after writeTo and, by wrapping, the head before readFrom
		return len(s.data)-s.writeTo >= need || s.readFrom >= need
	case s.items > 0:
		return s.readFrom-s.writeTo >= need
	default:
		return need <= len(s.data)
	}
}

// reserve writes the header of a size bytes record and returns its payload region.
func (s *ringState) reserve(size int) ([]byte, bool) {
	if !s.willFit(size) {
		return nil, false
	}
	need := pushSize(size)

	wrapped := s.items > 0 && s.readFrom >= s.writeTo
	if !wrapped && len(s.data)-s.writeTo < need {
		// gap keeps pointing at the end of the tail data
		s.writeTo = 0
		wrapped = true
	}

	start := s.writeTo
	binary.LittleEndian.PutUint32(s.data[start:start+headerEntrySize], uint32(size))
	s.writeTo += need
	if !wrapped {
		s.gap = s.writeTo
	}
	s.items++

	payload := s.data[start+headerEntrySize : s.writeTo : s.writeTo]
	return payload, true
}

func (s *ringState) push(data []byte) bool {
	payload, ok := s.reserve(len(data))
	if !ok {
		return false
	}
	copy(payload, data)
	return true
}

func (s *ringState) peek() ([]byte, bool) {
	if s.items == 0 {
		return nil, false
	}
	item, err := s.recordAt(s.readFrom)
	if err != nil {
		panic(err)
	}
	return item, true
}

func (s *ringState) pop() ([]byte, bool) {
	item, ok := s.peek()
	if !ok {
		return nil, false
	}

	s.readFrom += pushSize(len(item))
	s.items--

	if s.items == 0 {
		s.readFrom, s.writeTo, s.gap = 0, 0, 0
	} else if s.readFrom == s.gap {
		s.readFrom = 0
		s.gap = s.writeTo
	}
	return item, true
}

// recordAt returns the payload of the record whose header starts at offset.
func (s *ringState) recordAt(offset int) ([]byte, error) {
	start := offset + headerEntrySize
	if offset < 0 || start > len(s.data) {
		return nil, fmt.Errorf("%w: header at %d outside buffer of %d bytes", ErrCorruptState, offset, len(s.data))
	}
	end := start + int(binary.LittleEndian.Uint32(s.data[offset:start]))
	if end > len(s.data) {
		return nil, fmt.Errorf("%w: record at %d ends at %d, buffer has %d bytes", ErrCorruptState, offset, end, len(s.data))
	}
	return s.data[start:end:end], nil
}

func (s *ringState) used() int {
	switch {
	case s.items == 0:
		return 0
	case s.writeTo > s.readFrom:
		return s.writeTo - s.readFrom
	default:
		// data spans the wrap point
		return s.gap - s.readFrom + s.writeTo
	}
}

func (s *ringState) clear() {
	s.readFrom, s.writeTo, s.gap, s.items = 0, 0, 0, 0
}

// compactInto moves live records, oldest first, to the beginning of dst and makes it the buffer.
func (s *ringState) compactInto(dst []byte) {
	n := 0
	if s.items > 0 {
		if s.writeTo > s.readFrom {
			n = copy(dst, s.data[s.readFrom:s.writeTo])
		} else {
			n = copy(dst, s.data[s.readFrom:s.gap])
			n += copy(dst[n:], s.data[:s.writeTo])
		}
	}
	s.data = dst
	s.readFrom = 0
	s.writeTo = n
	s.gap = n
}

func (s *ringState) validate() error {
	length := len(s.data)

	if s.items < 0 {
		return fmt.Errorf("%w: negative item count %d", ErrCorruptState, s.items)
	}
	if s.items == 0 {
		if s.gap != 0 || s.readFrom != 0 || s.writeTo != 0 {
			return fmt.Errorf("%w: empty queue with gap=%d readFrom=%d writeTo=%d",
				ErrCorruptState, s.gap, s.readFrom, s.writeTo)
		}
		return nil
	}

	switch {
	case s.gap < 0 || s.readFrom < 0 || s.writeTo < 0,
		s.gap > length || s.readFrom > length || s.writeTo > length:
		return fmt.Errorf("%w: cursor beyond buffer of %d bytes (gap=%d readFrom=%d writeTo=%d)",
			ErrCorruptState, length, s.gap, s.readFrom, s.writeTo)
	case s.writeTo == 0:
		return fmt.Errorf("%w: %d items with writeTo=0", ErrCorruptState, s.items)
	case s.readFrom >= s.gap:
		return fmt.Errorf("%w: readFrom=%d not before gap=%d", ErrCorruptState, s.readFrom, s.gap)
	case s.gap != s.writeTo && s.readFrom < s.writeTo:
		return fmt.Errorf("%w: gap=%d differs from writeTo=%d while readFrom=%d is behind it",
			ErrCorruptState, s.gap, s.writeTo, s.readFrom)
	}
	return nil
}

// validateRecords walks every live record header and checks they tile the used regions
// exactly and add up to the item count. It is used on state coming from outside.
func (s *ringState) validateRecords() error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.items == 0 {
		return nil
	}

	count := 0
	walk := func(from, to int) error {
		for offset := from; offset < to; {
			item, err := s.recordAt(offset)
			if err != nil {
				return err
			}
			offset += pushSize(len(item))
			if offset > to {
				return fmt.Errorf("%w: record crosses region end %d", ErrCorruptState, to)
			}
			count++
		}
		return nil
	}

	if err := walk(s.readFrom, s.gap); err != nil {
		return err
	}
	if s.readFrom >= s.writeTo {
		if err := walk(0, s.writeTo); err != nil {
			return err
		}
	}
	if count != s.items {
		return fmt.Errorf("%w: found %d records, expected %d", ErrCorruptState, count, s.items)
	}
	return nil
}

func (s *ringState) assertInvariants() {
	if !checkInvariants {
		return
	}
	if err := s.validate(); err != nil {
		panic(err)
	}
}
