package attack

import (
	"fmt"
	"sync"
)

// StepLog is an append-only, ordered record of human-readable recovery steps.
type StepLog struct {
	mu       sync.Mutex
	entries  []string
	observer func(index int, message string)
}

func NewStepLog() *StepLog {
	return &StepLog{}
}

// Observe registers fn to be called with every entry appended from now on.
func (l *StepLog) Observe(fn func(index int, message string)) {
	l.mu.Lock()
	l.observer = fn
	l.mu.Unlock()
}

func (l *StepLog) Append(message string) {
	l.mu.Lock()
	l.entries = append(l.entries, message)
	index, fn := len(l.entries)-1, l.observer
	l.mu.Unlock()

	if fn != nil {
		fn(index, message)
	}
}

func (l *StepLog) Appendf(format string, args ...interface{}) {
	l.Append(fmt.Sprintf(format, args...))
}

// Entries returns a copy of all entries in append order.
func (l *StepLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *StepLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// DisplayByte renders a byte for the log: its hex value, followed by the
// character itself when it is printable.
func DisplayByte(b byte) string {
	switch {
	case b >= 0x20 && b < 0x7f:
		return fmt.Sprintf("0x%02x (%c)", b, b)
	case b == '\n':
		return "0x0a (\\n)"
	case b == '\r':
		return "0x0d (\\r)"
	case b == '\t':
		return "0x09 (\\t)"
	default:
		return fmt.Sprintf("0x%02x", b)
	}
}
