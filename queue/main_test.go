package queue

import (
	"fmt"
	"math/rand"
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	checkInvariants = true
	os.Exit(m.Run())
}

func pop(queue ByteQueue) []byte {
	entry, _ := queue.Pop()
	return entry
}

// blob creates a slice of size bytes filled with char
func blob(char byte, size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = char
	}
	return b
}

// randomItem returns an item of random length up to maxSize with recognizable content
func randomItem(rnd *rand.Rand, seq int, maxSize int) []byte {
	return blob(byte(seq), rnd.Intn(maxSize+1))
}

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Printf(format string, v ...interface{}) {
	l.messages = append(l.messages, fmt.Sprintf(format, v...))
}
