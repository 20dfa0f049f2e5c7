package ringqueue

import (
	"encoding/json"
	"fmt"
	"io"
)

// Storage is used for streaming or storing the queue externally.
type Storage interface {
	// Save streams the queue in a given implementation.
	Save(io.Writer) error
	// Load restores the queue from storage or streaming provider.
	Load(io.Reader) error
}

var _ Storage = (*Queue)(nil)

// Save writes Export result as JSON
func (q *Queue) Save(w io.Writer) error {
	layout, err := q.Export()
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(layout); err != nil {
		return fmt.Errorf("encoding layout: %w", err)
	}
	return nil
}

// Load reads a layout written by Save and imports it
func (q *Queue) Load(r io.Reader) error {
	var layout Layout
	if err := json.NewDecoder(r).Decode(&layout); err != nil {
		return fmt.Errorf("decoding layout: %w", err)
	}
	return q.Import(layout)
}
