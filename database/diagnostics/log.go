// Package diagnostics keeps an in-process, append-only record of every statement
// the table layer executed, for profiling and debugging. Entries can optionally be
// exported to a Sink as they are recorded.
package diagnostics

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gaborage/go-tables/logger"
)

// Record is what a caller reports about one finished statement.
type Record struct {
	Statement  string
	Start      time.Time
	Result     int // rows returned, zero for statements without a row set
	Affected   int64
	Connection string
	Table      string
	Err        error
}

// Entry is one line of the log.
type Entry struct {
	ID         string        `json:"id" bson:"_id"`
	Statement  string        `json:"query" bson:"query"`
	Timer      string        `json:"timer" bson:"timer"`
	Duration   time.Duration `json:"durationNs" bson:"duration_ns"`
	Result     int           `json:"result" bson:"result"`
	Affected   string        `json:"affected" bson:"affected"`
	Connection string        `json:"connection,omitempty" bson:"connection,omitempty"`
	Table      string        `json:"table,omitempty" bson:"table,omitempty"`
	Error      string        `json:"error,omitempty" bson:"error,omitempty"`
	Time       time.Time     `json:"time" bson:"time"`
}

// Sink receives every entry right after it is appended. Write errors are logged
// and never reach the caller that recorded the statement.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// Log is safe for concurrent use. A nil *Log records nothing.
type Log struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
	sinks      []Sink
	log        logger.Logger
	now        func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithMaxEntries bounds the log to the n most recent entries. n <= 0 keeps everything.
func WithMaxEntries(n int) Option {
	return func(l *Log) { l.maxEntries = n }
}

// WithSink adds an export sink.
func WithSink(s Sink) Option {
	return func(l *Log) {
		if s != nil {
			l.sinks = append(l.sinks, s)
		}
	}
}

// WithLogger sets the logger used to report sink failures.
func WithLogger(log logger.Logger) Option {
	return func(l *Log) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends an entry built from r and returns it.
func (l *Log) Record(ctx context.Context, r Record) Entry {
	if l == nil {
		return Entry{}
	}
	now := l.now()
	elapsed := now.Sub(r.Start)
	if r.Start.IsZero() || elapsed < 0 {
		elapsed = 0
	}

	e := Entry{
		ID:         uuid.NewString(),
		Statement:  r.Statement,
		Timer:      TimerText(elapsed),
		Duration:   elapsed,
		Result:     r.Result,
		Affected:   AffectedText(r.Affected),
		Connection: r.Connection,
		Table:      r.Table,
		Time:       now,
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	if l.maxEntries > 0 && len(l.entries) > l.maxEntries {
		l.entries = append([]Entry(nil), l.entries[len(l.entries)-l.maxEntries:]...)
	}
	sinks := l.sinks
	l.mu.Unlock()

	for _, s := range sinks {
		if err := s.Write(ctx, e); err != nil {
			l.log.WithContext(ctx).Warn().Err(err).Str("entry", e.ID).Msg("Failed to export diagnostics entry")
		}
	}
	return e
}

// List returns a copy of the entries, oldest first.
func (l *Log) List() []Entry {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries held.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Reset drops every entry.
func (l *Log) Reset() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// AffectedText describes an affected row count: "None", "1 record" or "N records".
func AffectedText(n int64) string {
	switch {
	case n <= 0:
		return "None"
	case n == 1:
		return "1 record"
	default:
		return strconv.FormatInt(n, 10) + " records"
	}
}

// TimerText renders a duration as seconds with four decimals, e.g. "0.0123s".
func TimerText(d time.Duration) string {
	return fmt.Sprintf("%.4fs", d.Seconds())
}
