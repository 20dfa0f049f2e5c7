package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/allegro/ringqueue/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestCopiesLines(t *testing.T) {
	t.Parallel()

	// given
	var out bytes.Buffer

	// when
	err := run(options{capacity: 64}, strings.NewReader("a\nbb\n\nccc\n"), &out, discardLogger())

	// then
	require.NoError(t, err)
	assert.Equal(t, "a\nbb\n\nccc\n", out.String())
}

func TestHoldSpillsToSwap(t *testing.T) {
	t.Parallel()

	// given
	var out bytes.Buffer
	var logs bytes.Buffer
	input := strings.Repeat("line\n", 100)

	// when
	err := run(options{capacity: queue.SizeFor(4, 4), swapKind: "memory", hold: true, verbose: true},
		strings.NewReader(input), &out, log.New(&logs, "", 0))

	// then
	require.NoError(t, err)
	assert.Equal(t, input, out.String())
	assert.Contains(t, logs.String(), "spilling to memory swap")
	assert.Contains(t, logs.String(), "Spilled:96")
}

func TestHoldWithoutSwapDropsLines(t *testing.T) {
	t.Parallel()

	// given
	var out bytes.Buffer
	var logs bytes.Buffer

	// when
	err := run(options{capacity: queue.SizeFor(2, 1), hold: true}, strings.NewReader("1\n2\n3\n"), &out, log.New(&logs, "", 0))

	// then
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", out.String())
	assert.Contains(t, logs.String(), "queue full, dropped line of 1 bytes")
}

func TestStateHandover(t *testing.T) {
	t.Parallel()

	// given
	state := filepath.Join(t.TempDir(), "state.json")
	opts := options{capacity: queue.SizeFor(2, 5), swapKind: "memory", statePath: state}
	held := opts
	held.hold = true
	var first bytes.Buffer

	// when
	err := run(held, strings.NewReader("one\ntwo\nthree\n"), &first, discardLogger())

	// then
	require.NoError(t, err)
	assert.Empty(t, first.String())
	assert.FileExists(t, state)

	// when
	var second bytes.Buffer
	err = run(opts, strings.NewReader("four\n"), &second, discardLogger())

	// then
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\nfour\n", second.String())
	assert.NoFileExists(t, state)
}

func TestConfigFile(t *testing.T) {
	t.Parallel()

	// given
	dir := t.TempDir()
	configPath := filepath.Join(dir, "queuepipe.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
capacity: 16
swap:
  kind: sqlite
  path: `+filepath.Join(dir, "swap.db")+`
`), 0644))
	var out bytes.Buffer
	input := strings.Repeat("0123456789\n", 20)

	// when
	err := run(options{configPath: configPath, hold: true}, strings.NewReader(input), &out, discardLogger())

	// then
	require.NoError(t, err)
	assert.Equal(t, input, out.String())
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()

	// when
	err := run(options{capacity: 64, swapKind: "tape"}, strings.NewReader(""), io.Discard, discardLogger())

	// then
	assert.EqualError(t, err, `unknown swap kind "tape"`)
}

func TestFailureIsLoggedToLogfile(t *testing.T) {
	t.Parallel()

	// given
	logfile := filepath.Join(t.TempDir(), "queuepipe.log")
	var stderr bytes.Buffer

	// when
	code := pipe(options{capacity: 64, swapKind: "tape", logfile: logfile}, strings.NewReader(""), io.Discard, &stderr)

	// then
	assert.Equal(t, 1, code)
	assert.Empty(t, stderr.String())
	logged, err := os.ReadFile(logfile)
	require.NoError(t, err)
	assert.Contains(t, string(logged), `unknown swap kind "tape"`)
}

func TestPipeExitCodes(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		// given
		var out, stderr bytes.Buffer

		// when
		code := pipe(options{capacity: 64}, strings.NewReader("a\nb\n"), &out, &stderr)

		// then
		assert.Equal(t, 0, code)
		assert.Equal(t, "a\nb\n", out.String())
		assert.Empty(t, stderr.String())
	})

	t.Run("unwritable logfile", func(t *testing.T) {
		t.Parallel()

		// given
		logfile := filepath.Join(t.TempDir(), "missing", "queuepipe.log")
		var stderr bytes.Buffer

		// when
		code := pipe(options{capacity: 64, logfile: logfile}, strings.NewReader("a\n"), io.Discard, &stderr)

		// then
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "queuepipe.log")
	})
}
