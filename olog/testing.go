package olog

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test returns a logger tuned for unit testing.
// It records every line logged and exposes assertions on them, following
// stretchr/testify as close as possible: every assert func returns a bool
// indicating whether the assertion was successful.
func Test(t *testing.T) *TestLogger {
	if t == nil {
		panic("t is nil")
	}

	buf := &testBuffer{
		mu:    sync.Mutex{},
		lines: []*bytes.Buffer{},
	}

	return &TestLogger{
		Logger: slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		t:      t,
		buf:    buf,
	}
}

// TestLogger can be injected as a logger dependency and asserted on.
type TestLogger struct {
	*slog.Logger

	t   *testing.T
	buf *testBuffer
}

// Lines returns every line logged so far.
func (l *TestLogger) Lines() []string {
	lines := []string{}

	for _, line := range l.buf.all() {
		lines = append(lines, line.String())
	}

	return lines
}

// Empty asserts that the logger has no lines logged.
func (l *TestLogger) Empty(msgAndArgs ...any) bool {
	l.t.Helper()

	if n := len(l.buf.all()); n > 0 {
		return assert.Fail(l.t, fmt.Sprintf("logger is not empty, it has %d line(s)", n), msgAndArgs...)
	}

	return true
}

// NotEmpty asserts that the logger has at least one line.
func (l *TestLogger) NotEmpty(msgAndArgs ...any) bool {
	l.t.Helper()

	if len(l.buf.all()) == 0 {
		return assert.Fail(l.t, "logger is empty, should not be", msgAndArgs...)
	}

	return true
}

// Contains asserts that at least one line contains the given substring.
func (l *TestLogger) Contains(contains string, msgAndArgs ...any) bool {
	l.t.Helper()

	for _, line := range l.buf.all() {
		if strings.Contains(line.String(), contains) {
			return true
		}
	}

	return assert.Fail(l.t, "log output does not have a line which contains: "+contains, msgAndArgs...)
}

// NotContains asserts that no line contains the given substring.
func (l *TestLogger) NotContains(notContains string, msgAndArgs ...any) bool {
	l.t.Helper()

	for _, line := range l.buf.all() {
		if strings.Contains(line.String(), notContains) {
			return assert.Fail(l.t, "log output contains: "+notContains+", should not be", msgAndArgs...)
		}
	}

	return true
}

// Total asserts that the logger has exactly total number of lines logged.
func (l *TestLogger) Total(total int, msgAndArgs ...any) bool {
	l.t.Helper()

	if n := len(l.buf.all()); n != total {
		return assert.Fail(l.t, fmt.Sprintf("logger does not have %d lines, it has: %d", total, n), msgAndArgs...)
	}

	return true
}

type testBuffer struct {
	mu    sync.Mutex
	lines []*bytes.Buffer
}

func (b *testBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := &bytes.Buffer{}
	n, err := buf.Write(p)

	b.lines = append(b.lines, buf)

	if err != nil {
		return n, fmt.Errorf("%w", err)
	}

	return n, nil
}

func (b *testBuffer) all() []*bytes.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]*bytes.Buffer{}, b.lines...)
}
