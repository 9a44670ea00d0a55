// Package events implements the hook bus the table layer calls around every
// statement. BeforeQuery handlers may cancel a read; the other events are
// observational.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

// Name identifies a hook.
type Name string

const (
	// BeforeQuery runs before Execute and Query send anything. A handler returning
	// true cancels the operation.
	BeforeQuery Name = "BeforeQuery"
	// AfterQuery runs after Execute and Query, with the decoded rows.
	AfterQuery Name = "AfterQuery"
	// AfterDataInsert runs after Insert.
	AfterDataInsert Name = "AfterDataInsert"
	// AfterDataUpdate runs after Update.
	AfterDataUpdate Name = "AfterDataUpdate"
	// AfterDataDelete runs after Delete.
	AfterDataDelete Name = "AfterDataDelete"
)

// Event is the payload handed to every handler.
//
// For BeforeQuery, Statement holds the statement with its placeholders still in
// place and Args the values that will be bound. Callback is the pending result
// handler of the read, nil when the caller passed none; a handler that cancels
// the read may answer through it, from a cache for instance. After events carry
// the rendered statement, the outcome and the error, if any.
type Event struct {
	Name       Name
	Connection string
	Table      string
	Statement  string
	Args       []any
	Callback   func(rows []types.Row, err error)
	Rows       []types.Row
	Affected   int64
	InsertID   sql.NullInt64
	Err        error
}

// Handler reacts to an event. The return value is only meaningful for BeforeQuery.
type Handler func(ctx context.Context, e *Event) bool

// Bus dispatches events to the handlers registered by name.
// A nil *Bus has no handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
	log      logger.Logger
}

// NewBus creates an empty bus. Handler panics are logged to log and swallowed.
func NewBus(log logger.Logger) *Bus {
	if log == nil {
		log = logger.Nop()
	}
	return &Bus{handlers: make(map[Name][]Handler), log: log}
}

// On registers h for name. Handlers run in registration order.
func (b *Bus) On(name Name, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Has reports whether any handler is registered for name.
func (b *Bus) Has(name Name) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name]) > 0
}

// Call runs every handler registered for e.Name and reports whether any of them
// returned true. All handlers run even after one cancels.
func (b *Bus) Call(ctx context.Context, e *Event) bool {
	if b == nil || e == nil {
		return false
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[e.Name]...)
	b.mu.RUnlock()

	cancelled := false
	for _, h := range handlers {
		if b.invoke(ctx, h, e) {
			cancelled = true
		}
	}
	return cancelled
}

func (b *Bus) invoke(ctx context.Context, h Handler, e *Event) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithContext(ctx).Error().
				Str("event", string(e.Name)).
				Str("table", e.Table).
				Err(fmt.Errorf("panic: %v", r)).
				Msg("Event handler panicked")
			result = false
		}
	}()
	return h(ctx, e)
}
