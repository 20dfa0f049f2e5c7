// Command queuepipe copies stdin lines to stdout through a ringqueue.Queue.
//
// With -hold every line is queued before anything is written, so large inputs exercise the
// swap. With -hold and -state the queue is saved instead of written, and the next run started
// with the same -state emits the saved lines first.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/allegro/ringqueue"
	"github.com/allegro/ringqueue/queue"
)

type options struct {
	configPath string
	capacity   int
	swapKind   string
	swapPath   string
	statePath  string
	logfile    string
	hold       bool
	verbose    bool
}

var opts options

func init() {
	flag.StringVar(&opts.configPath, "config", "", "YAML config file.")
	flag.IntVar(&opts.capacity, "capacity", 0, "Ring buffer size in bytes, overrides config.")
	flag.StringVar(&opts.swapKind, "swap", "", "Swap kind: none, memory, file or sqlite. Overrides config.")
	flag.StringVar(&opts.swapPath, "swapPath", "", "Swap file or database path, overrides config.")
	flag.StringVar(&opts.statePath, "state", "", "Queue state file for handover between runs.")
	flag.BoolVar(&opts.hold, "hold", false, "Queue all input before writing it.")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging.")
	flag.StringVar(&opts.logfile, "logfile", "", "Location of the logfile.")
}

func main() {
	flag.Parse()
	os.Exit(pipe(opts, os.Stdin, os.Stdout, os.Stderr))
}

// pipe runs queuepipe and returns its exit code. The logfile is closed before it returns.
func pipe(opts options, in io.Reader, out, stderr io.Writer) int {
	logger := log.New(stderr, "", log.LstdFlags)
	if opts.logfile != "" {
		f, err := os.OpenFile(opts.logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			logger.Print(err)
			return 1
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	if err := run(opts, in, out, logger); err != nil {
		logger.Print(err)
		return 1
	}
	return 0
}

func loadConfig(opts options) (ringqueue.Config, error) {
	config := ringqueue.DefaultConfig()
	config.Verbose = false
	if opts.configPath != "" {
		loaded, err := ringqueue.LoadConfig(opts.configPath)
		if err != nil {
			return config, err
		}
		config = loaded
	}
	if opts.capacity > 0 {
		config.Capacity = opts.capacity
	}
	if opts.swapKind != "" {
		config.Swap.Kind = opts.swapKind
	}
	if opts.swapPath != "" {
		config.Swap.Path = opts.swapPath
	}
	if opts.verbose {
		config.Verbose = true
	}
	return config, nil
}

func run(opts options, in io.Reader, out io.Writer, logger *log.Logger) error {
	config, err := loadConfig(opts)
	if err != nil {
		return err
	}
	config.Logger = logger

	q, err := ringqueue.New(config)
	if err != nil {
		return err
	}
	defer q.Close()

	if opts.hold {
		q.Suspend()
	}
	if err := restoreState(q, opts.statePath, logger); err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	var writeErr error
	var consume queue.NotifyFunc
	consume = func() {
		for {
			item, ok := q.Pop()
			if !ok {
				break
			}
			if writeErr == nil {
				_, writeErr = w.Write(item)
			}
			if writeErr == nil {
				writeErr = w.WriteByte('\n')
			}
		}
		q.Ready(consume)
	}
	q.Ready(consume)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() && writeErr == nil {
		if !q.Push(scanner.Bytes()) {
			logger.Printf("queue full, dropped line of %d bytes", len(scanner.Bytes()))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if opts.hold && opts.statePath != "" {
		return saveState(q, opts.statePath, logger)
	}
	q.Resume()
	if config.Verbose {
		logger.Printf("stats: %+v", q.Stats())
	}
	if writeErr != nil {
		return fmt.Errorf("writing output: %w", writeErr)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return q.Err()
}

func restoreState(q *ringqueue.Queue, path string, logger *log.Logger) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening state: %w", err)
	}
	err = q.Load(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("loading state %s: %w", path, err)
	}
	logger.Printf("restored %d items from %s", q.Len(), path)
	return os.Remove(path)
}

func saveState(q *ringqueue.Queue, path string, logger *log.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating state: %w", err)
	}
	if err := q.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("saving state: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	logger.Printf("saved %d items to %s", q.Len(), path)
	return nil
}
