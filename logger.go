package ringqueue

import (
	"log"
	"os"

	"github.com/allegro/ringqueue/queue"
)

// Logger is invoked when `Config.Verbose=true`
type Logger = queue.Logger

var _ Logger = &log.Logger{}

// DefaultLogger returns a `Logger` implementation
// backed by stdlib's log
func DefaultLogger() *log.Logger {
	return log.New(os.Stdout, "ringqueue: ", log.LstdFlags)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

func newLogger(custom Logger, verbose bool) Logger {
	if !verbose {
		return nopLogger{}
	}
	if custom != nil {
		return custom
	}

	return DefaultLogger()
}
