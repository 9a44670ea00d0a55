package logger

import (
	"context"
	"sync/atomic"
)

type contextKey string

const (
	dbCounterKey      contextKey = "db_statement_counter"
	dbElapsedKey      contextKey = "db_elapsed_nanos"
	publishCounterKey contextKey = "event_publish_counter"
)

// WithDBCounter returns a context that accumulates the number of statements run
// and their total elapsed time.
func WithDBCounter(ctx context.Context) context.Context {
	counter := int64(0)
	elapsed := int64(0)
	ctx = context.WithValue(ctx, dbCounterKey, &counter)
	return context.WithValue(ctx, dbElapsedKey, &elapsed)
}

// IncrementDBCounter increments the statement counter in the context
func IncrementDBCounter(ctx context.Context) {
	if counter, ok := ctx.Value(dbCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetDBCounter returns the statement count from the context
func GetDBCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(dbCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}

// AddDBElapsed adds elapsed nanoseconds to the database elapsed time in the context
func AddDBElapsed(ctx context.Context, nanos int64) {
	if elapsed, ok := ctx.Value(dbElapsedKey).(*int64); ok && elapsed != nil {
		atomic.AddInt64(elapsed, nanos)
	}
}

// GetDBElapsed returns the database elapsed time in nanoseconds from the context
func GetDBElapsed(ctx context.Context) int64 {
	if elapsed, ok := ctx.Value(dbElapsedKey).(*int64); ok && elapsed != nil {
		return atomic.LoadInt64(elapsed)
	}
	return 0
}

// WithPublishCounter returns a context that counts forwarded events.
func WithPublishCounter(ctx context.Context) context.Context {
	counter := int64(0)
	return context.WithValue(ctx, publishCounterKey, &counter)
}

// IncrementPublishCounter increments the forwarded event counter in the context
func IncrementPublishCounter(ctx context.Context) {
	if counter, ok := ctx.Value(publishCounterKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetPublishCounter returns the forwarded event count from the context
func GetPublishCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(publishCounterKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}
