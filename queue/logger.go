package queue

// Logger receives verbose messages about memory management and swap errors.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}
