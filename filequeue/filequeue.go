// Package filequeue implements a disk backed byte queue meant to be the overflow store of a
// queue.Chain. Items are appended to a data file; an optional index file records the read and
// write offsets so that the queue survives restarts.
package filequeue

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/allegro/ringqueue/queue"
	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/s2"
)

const (
	// DefaultMaxBytes is used when Config.MaxBytes is not set
	DefaultMaxBytes = 1 << 30

	// Record header: stored length u32, flags u32, xxhash of the payload u64
	headerSize = 16
	// Index: read offset u64, write offset u64, items u64
	indexSize = 24

	flagCompressed = 1
)

var (
	// ErrCorrupt is reported when a record or the index fails validation
	ErrCorrupt = errors.New("filequeue: corrupt data")
	// ErrClosed is reported after Close
	ErrClosed = errors.New("filequeue: queue is closed")
)

// Logger is used to report I/O errors
type Logger = queue.Logger

// Config for file queue
type Config struct {
	// Path of the data file
	Path string
	// Path of the index file. When set, the queue resumes from it on Open.
	// Without an index the data file is truncated on Open.
	IndexPath string
	// Max number of bytes taken by records and their headers, DefaultMaxBytes when zero
	MaxBytes uint64
	// Compress stores payloads s2 encoded when that makes them smaller
	Compress bool
	// Logger for I/O errors, nothing is logged when nil
	Logger Logger
}

// Queue is a non-thread safe fifo queue kept in a file.
//
// I/O errors cannot be reported through the queue.ByteQueue methods. The first one is kept,
// logged, makes every later Push and Pop fail and is returned by Err.
type Queue struct {
	config   Config
	data     *os.File
	index    *os.File
	readOff  uint64
	writeOff uint64
	items    int

	// oldest record, cached by Peek
	head     []byte
	headSize uint64

	err error
}

// Open opens or creates the queue files
func Open(config Config) (*Queue, error) {
	if config.Path == "" {
		return nil, errors.New("filequeue: data file path is required")
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating queue directory: %w", err)
	}

	data, err := os.OpenFile(config.Path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	q := &Queue{config: config, data: data}

	if config.IndexPath == "" {
		if err := q.truncate(); err != nil {
			data.Close()
			return nil, err
		}
		return q, nil
	}

	index, err := os.OpenFile(config.IndexPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	q.index = index
	if err := q.loadIndex(); err != nil {
		data.Close()
		index.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) loadIndex() error {
	var buf [indexSize]byte
	n, err := q.index.ReadAt(buf[:], 0)
	if n == 0 && errors.Is(err, io.EOF) {
		return q.truncate()
	}
	if n < indexSize {
		return fmt.Errorf("%w: index has %d bytes", ErrCorrupt, n)
	}

	readOff := binary.LittleEndian.Uint64(buf[0:])
	writeOff := binary.LittleEndian.Uint64(buf[8:])
	items := binary.LittleEndian.Uint64(buf[16:])

	info, err := q.data.Stat()
	if err != nil {
		return fmt.Errorf("reading data file size: %w", err)
	}
	switch {
	case readOff > writeOff, writeOff > uint64(info.Size()):
		return fmt.Errorf("%w: index offsets %d..%d outside data file of %d bytes", ErrCorrupt, readOff, writeOff, info.Size())
	case (items == 0) != (readOff == writeOff), items > (writeOff-readOff)/headerSize:
		return fmt.Errorf("%w: index claims %d items in %d bytes", ErrCorrupt, items, writeOff-readOff)
	}

	// anything after writeOff was written after the index was last updated
	if err := q.data.Truncate(int64(writeOff)); err != nil {
		return fmt.Errorf("truncating data file: %w", err)
	}
	q.readOff, q.writeOff, q.items = readOff, writeOff, int(items)
	return nil
}

// Push appends data to the data file
func (q *Queue) Push(data []byte) bool {
	if q.err != nil || !q.WillFit(len(data)) {
		return false
	}

	stored, flags := data, uint32(0)
	if q.config.Compress {
		if encoded := s2.Encode(nil, data); len(encoded) < len(data) {
			stored, flags = encoded, flagCompressed
		}
	}

	record := make([]byte, headerSize+len(stored))
	binary.LittleEndian.PutUint32(record[0:], uint32(len(stored)))
	binary.LittleEndian.PutUint32(record[4:], flags)
	binary.LittleEndian.PutUint64(record[8:], xxhash.Sum64(data))
	copy(record[headerSize:], stored)

	if _, err := q.data.WriteAt(record, int64(q.writeOff)); err != nil {
		return q.fail(fmt.Errorf("writing record at %d: %w", q.writeOff, err))
	}
	q.writeOff += uint64(len(record))
	q.items++
	q.writeIndex()
	return true
}

// Pop reads the oldest record and moves read offset to the next one.
// The data file is truncated when the last record is popped.
func (q *Queue) Pop() ([]byte, bool) {
	item, ok := q.Peek()
	if !ok {
		return nil, false
	}

	q.readOff += q.headSize
	q.items--
	q.head, q.headSize = nil, 0

	if q.items == 0 {
		q.fail(q.truncate())
	} else {
		q.writeIndex()
	}
	return item, true
}

// Peek reads the oldest record without moving read offset
func (q *Queue) Peek() ([]byte, bool) {
	if q.err != nil || q.items == 0 {
		return nil, false
	}
	if q.headSize == 0 {
		item, size, err := q.readRecord(q.readOff)
		if err != nil {
			q.fail(err)
			return nil, false
		}
		q.head, q.headSize = item, size
	}
	return q.head, true
}

func (q *Queue) readRecord(offset uint64) ([]byte, uint64, error) {
	var header [headerSize]byte
	if _, err := q.data.ReadAt(header[:], int64(offset)); err != nil {
		return nil, 0, fmt.Errorf("reading record header at %d: %w", offset, err)
	}
	storedLen := uint64(binary.LittleEndian.Uint32(header[0:]))
	flags := binary.LittleEndian.Uint32(header[4:])
	sum := binary.LittleEndian.Uint64(header[8:])

	size := headerSize + storedLen
	if offset+size > q.writeOff {
		return nil, 0, fmt.Errorf("%w: record at %d of %d bytes passes write offset %d", ErrCorrupt, offset, size, q.writeOff)
	}

	payload := make([]byte, storedLen)
	if _, err := q.data.ReadAt(payload, int64(offset+headerSize)); err != nil {
		return nil, 0, fmt.Errorf("reading record at %d: %w", offset, err)
	}
	if flags&flagCompressed != 0 {
		decoded, err := s2.Decode(nil, payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: record at %d: %v", ErrCorrupt, offset, err)
		}
		payload = decoded
	}
	if xxhash.Sum64(payload) != sum {
		return nil, 0, fmt.Errorf("%w: checksum mismatch for record at %d", ErrCorrupt, offset)
	}
	return payload, size, nil
}

// WillFit reports whether an item of size bytes fits under MaxBytes
func (q *Queue) WillFit(size int) bool {
	if size < 0 || uint64(size) > math.MaxUint32 {
		return false
	}
	return q.UsedSpace()+headerSize+uint64(size) <= q.config.MaxBytes
}

// UsedSpace returns number of bytes taken by records, compressed payloads count as stored
func (q *Queue) UsedSpace() uint64 {
	return q.writeOff - q.readOff
}

// FreeSpace returns TotalSpace() - UsedSpace()
func (q *Queue) FreeSpace() uint64 {
	return q.TotalSpace() - q.UsedSpace()
}

// TotalSpace returns MaxBytes, or used space when a reopened queue holds more than that
func (q *Queue) TotalSpace() uint64 {
	if used := q.UsedSpace(); used > q.config.MaxBytes {
		return used
	}
	return q.config.MaxBytes
}

// Len returns number of records kept in queue
func (q *Queue) Len() int {
	return q.items
}

// IsEmpty reports whether there are no records in queue
func (q *Queue) IsEmpty() bool {
	return q.items == 0
}

// Clear discards all records and truncates the data file
func (q *Queue) Clear() {
	q.fail(q.truncate())
}

// TODO: compact the data file when the consumed prefix dominates it; it only shrinks once empty.
func (q *Queue) truncate() error {
	q.readOff, q.writeOff, q.items = 0, 0, 0
	q.head, q.headSize = nil, 0
	if err := q.data.Truncate(0); err != nil {
		return fmt.Errorf("truncating data file: %w", err)
	}
	return q.indexError()
}

func (q *Queue) writeIndex() {
	q.fail(q.indexError())
}

func (q *Queue) indexError() error {
	if q.index == nil {
		return nil
	}
	var buf [indexSize]byte
	binary.LittleEndian.PutUint64(buf[0:], q.readOff)
	binary.LittleEndian.PutUint64(buf[8:], q.writeOff)
	binary.LittleEndian.PutUint64(buf[16:], uint64(q.items))
	if _, err := q.index.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// fail latches err. It returns false so that callers can return its result.
func (q *Queue) fail(err error) bool {
	if err == nil || q.err != nil {
		return false
	}
	q.err = err
	if q.config.Logger != nil {
		q.config.Logger.Printf("filequeue %s: %v", q.config.Path, err)
	}
	return false
}

// Err returns the first error met by the queue
func (q *Queue) Err() error {
	if q.err == ErrClosed {
		return nil
	}
	return q.err
}

// Sync flushes both files to stable storage
func (q *Queue) Sync() error {
	if err := q.data.Sync(); err != nil {
		return fmt.Errorf("syncing data file: %w", err)
	}
	if q.index != nil {
		if err := q.index.Sync(); err != nil {
			return fmt.Errorf("syncing index file: %w", err)
		}
	}
	return nil
}

// Close syncs and closes the queue files
func (q *Queue) Close() error {
	if q.err == ErrClosed {
		return nil
	}
	err := q.Sync()
	if closeErr := q.data.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing data file: %w", closeErr)
	}
	if q.index != nil {
		if closeErr := q.index.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("closing index file: %w", closeErr)
		}
	}
	q.err = ErrClosed
	return err
}
