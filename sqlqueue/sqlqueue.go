// Package sqlqueue keeps queued items as rows of a SQLite table. It serves as a persistent
// overflow store of a queue.Chain when a single data file is not wanted.
package sqlqueue

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/allegro/ringqueue/queue"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const (
	// DefaultMaxBytes is used when Config.MaxBytes is not set
	DefaultMaxBytes = 1 << 30

	// accounted for every row on top of its payload
	rowOverhead = 8
)

var (
	// ErrInconsistent is reported when the table does not hold the rows the queue counted
	ErrInconsistent = errors.New("sqlqueue: table does not match queue state")
	// ErrClosed is reported after Close
	ErrClosed = errors.New("sqlqueue: queue is closed")
)

// Logger is used to report database errors
type Logger = queue.Logger

// Config for SQLite queue
type Config struct {
	// Path of the database file
	Path string
	// Max number of bytes taken by rows, DefaultMaxBytes when zero
	MaxBytes uint64
	// Logger for database errors, nothing is logged when nil
	Logger Logger
}

// Queue is a non-thread safe fifo queue kept in a SQLite table.
// Like filequeue, the first database error is latched and reported by Err.
type Queue struct {
	config Config
	conn   *sql.DB
	items  int
	used   uint64

	headID int64
	head   []byte
	cached bool

	err error
}

// Open opens or creates the database and resumes from rows left in it
func Open(config Config) (*Queue, error) {
	if config.Path == "" {
		return nil, errors.New("sqlqueue: database path is required")
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := initialize(conn); err != nil {
		return nil, closeOnError(conn, err)
	}

	q := &Queue{config: config, conn: conn}
	var payloadBytes int64
	row := conn.QueryRow("SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM items")
	if err := row.Scan(&q.items, &payloadBytes); err != nil {
		return nil, closeOnError(conn, fmt.Errorf("counting items: %w", err))
	}
	q.used = uint64(payloadBytes) + uint64(q.items)*rowOverhead
	return q, nil
}

// closeOnError closes conn after a failed Open and joins a close failure to err
func closeOnError(conn *sql.DB, err error) error {
	if closeErr := conn.Close(); closeErr != nil {
		return errors.Join(err, fmt.Errorf("closing database: %w", closeErr))
	}
	return err
}

func initialize(conn *sql.DB) error {
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Push inserts data as the newest row
func (q *Queue) Push(data []byte) bool {
	if q.err != nil || !q.WillFit(len(data)) {
		return false
	}
	if data == nil {
		data = []byte{}
	}
	if _, err := q.conn.Exec("INSERT INTO items (payload) VALUES (?)", data); err != nil {
		return q.fail(fmt.Errorf("inserting item: %w", err))
	}
	q.items++
	q.used += rowOverhead + uint64(len(data))
	return true
}

// Pop deletes the oldest row and returns its payload
func (q *Queue) Pop() ([]byte, bool) {
	item, ok := q.Peek()
	if !ok {
		return nil, false
	}
	if _, err := q.conn.Exec("DELETE FROM items WHERE id = ?", q.headID); err != nil {
		return nil, q.fail(fmt.Errorf("deleting item %d: %w", q.headID, err))
	}
	q.items--
	q.used -= rowOverhead + uint64(len(item))
	q.head, q.cached = nil, false
	return item, true
}

// Peek returns payload of the oldest row
func (q *Queue) Peek() ([]byte, bool) {
	if q.err != nil || q.items == 0 {
		return nil, false
	}
	if !q.cached {
		var id int64
		var payload []byte
		err := q.conn.QueryRow("SELECT id, payload FROM items ORDER BY id LIMIT 1").Scan(&id, &payload)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, q.fail(fmt.Errorf("%w: %d items expected, none found", ErrInconsistent, q.items))
		}
		if err != nil {
			return nil, q.fail(fmt.Errorf("selecting oldest item: %w", err))
		}
		if payload == nil {
			payload = []byte{}
		}
		q.headID, q.head, q.cached = id, payload, true
	}
	return q.head, true
}

// WillFit reports whether a row of size bytes fits under MaxBytes
func (q *Queue) WillFit(size int) bool {
	return size >= 0 && q.used+rowOverhead+uint64(size) <= q.config.MaxBytes
}

// UsedSpace returns number of bytes taken by payloads plus per row overhead
func (q *Queue) UsedSpace() uint64 {
	return q.used
}

// FreeSpace returns TotalSpace() - UsedSpace()
func (q *Queue) FreeSpace() uint64 {
	return q.TotalSpace() - q.used
}

// TotalSpace returns MaxBytes, or used space when a reopened database holds more than that
func (q *Queue) TotalSpace() uint64 {
	if q.used > q.config.MaxBytes {
		return q.used
	}
	return q.config.MaxBytes
}

// Len returns number of rows
func (q *Queue) Len() int {
	return q.items
}

// IsEmpty reports whether the table has no rows
func (q *Queue) IsEmpty() bool {
	return q.items == 0
}

// Clear deletes all rows
func (q *Queue) Clear() {
	if q.err == ErrClosed {
		return
	}
	q.items, q.used = 0, 0
	q.head, q.cached = nil, false
	if _, err := q.conn.Exec("DELETE FROM items"); err != nil {
		q.fail(fmt.Errorf("deleting items: %w", err))
	}
}

func (q *Queue) fail(err error) bool {
	if q.err == nil {
		q.err = err
		if q.config.Logger != nil {
			q.config.Logger.Printf("sqlqueue %s: %v", q.config.Path, err)
		}
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

// Close closes the database
func (q *Queue) Close() error {
	if q.err == ErrClosed {
		return nil
	}
	q.err = ErrClosed
	return q.conn.Close()
}
