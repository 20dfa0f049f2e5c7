package ringqueue

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	fileVersion = 1
)

var (
	// ErrChecksumMismatch is returned by Import when ring data does not match its checksum
	ErrChecksumMismatch = errors.New("ringqueue: layout checksum mismatch")
	// ErrNotEmpty is returned by Import into a queue holding items
	ErrNotEmpty = errors.New("ringqueue: import into non-empty queue")
	// ErrUnsupportedVersion is returned by Import for layouts written by another version
	ErrUnsupportedVersion = errors.New("ringqueue: unsupported layout version")
	// ErrOverflowDoesNotFit is returned by Import when swap items cannot be restored
	ErrOverflowDoesNotFit = errors.New("ringqueue: overflow items do not fit")
)

// Layout defines the structure of the queue on export.
type Layout struct {
	// which version of the layout we are working with.
	Version int `json:"version"`
	// unique id of the export.
	ID string `json:"id"`
	// when the layout was written.
	Date string `json:"date"`
	// sha256 of Data to make sure it's not been tampered with.
	Checksum string `json:"checksum"`
	// ring cursors and buffer as written by RingQueue.WriteTo.
	Data []byte `json:"data"`
	// items waiting in swap, oldest first.
	Overflow [][]byte `json:"overflow,omitempty"`
}

// Export captures ring and swap contents. Swap items are read by popping and pushing each one
// back, so a file swap grows by their size until it is drained.
func (q *Queue) Export() (Layout, error) {
	var data bytes.Buffer
	if _, err := q.ring.WriteTo(&data); err != nil {
		return Layout{}, fmt.Errorf("writing ring state: %w", err)
	}

	var overflow [][]byte
	if q.swap != nil {
		for i, n := 0, q.swap.Len(); i < n; i++ {
			item, ok := q.swap.Pop()
			if !ok {
				return Layout{}, fmt.Errorf("reading swap item %d of %d: %v", i, n, q.Err())
			}
			item = append([]byte{}, item...)
			if !q.swap.Push(item) {
				return Layout{}, fmt.Errorf("restoring swap item %d of %d: %v", i, n, q.Err())
			}
			overflow = append(overflow, item)
		}
	}

	checksum := sha256.Sum256(data.Bytes())
	return Layout{
		Version:  fileVersion,
		ID:       uuid.New().String(),
		Date:     time.Now().UTC().Format(time.RFC3339),
		Checksum: fmt.Sprintf("%x", checksum),
		Data:     data.Bytes(),
		Overflow: overflow,
	}, nil
}

// Import restores a layout into an empty queue with the same ring capacity.
// Consumers waiting at that moment are woken as on Resume.
func (q *Queue) Import(layout Layout) error {
	if !q.IsEmpty() {
		return ErrNotEmpty
	}
	if layout.Version != fileVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, layout.Version)
	}
	if fmt.Sprintf("%x", sha256.Sum256(layout.Data)) != layout.Checksum {
		return ErrChecksumMismatch
	}
	if len(layout.Overflow) > 0 && q.swap == nil {
		return fmt.Errorf("%w: no swap configured for %d items", ErrOverflowDoesNotFit, len(layout.Overflow))
	}

	if _, err := q.ring.ReadFrom(bytes.NewReader(layout.Data)); err != nil {
		return fmt.Errorf("reading ring state: %w", err)
	}
	for i, item := range layout.Overflow {
		if !q.swap.Push(item) {
			q.Clear()
			return fmt.Errorf("%w: item %d of %d", ErrOverflowDoesNotFit, i, len(layout.Overflow))
		}
	}
	q.logger.Printf("Imported layout %s of %s; Items: %d", layout.ID, layout.Date, q.Len())

	if !q.notifier.Suspended() && !q.IsEmpty() {
		q.notifier.Suspend()
		q.notifier.Resume()
	}
	return nil
}
