package events

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-tables/logger"
)

func TestNilBus(t *testing.T) {
	var b *Bus
	assert.False(t, b.Has(BeforeQuery))
	assert.False(t, b.Call(context.Background(), &Event{Name: BeforeQuery}))
}

func TestOnAndHas(t *testing.T) {
	b := NewBus(nil)
	assert.False(t, b.Has(AfterQuery))

	b.On(AfterQuery, nil)
	assert.False(t, b.Has(AfterQuery))

	b.On(AfterQuery, func(context.Context, *Event) bool { return false })
	assert.True(t, b.Has(AfterQuery))
	assert.False(t, b.Has(AfterDataInsert))
}

func TestCallRunsHandlersInOrder(t *testing.T) {
	b := NewBus(nil)
	var order []int
	b.On(AfterDataDelete, func(_ context.Context, e *Event) bool {
		order = append(order, 1)
		assert.Equal(t, "users", e.Table)
		return false
	})
	b.On(AfterDataDelete, func(context.Context, *Event) bool {
		order = append(order, 2)
		return false
	})

	cancelled := b.Call(context.Background(), &Event{Name: AfterDataDelete, Table: "users"})
	assert.False(t, cancelled)
	assert.Equal(t, []int{1, 2}, order)
}

func TestCallReportsCancellation(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	b.On(BeforeQuery, func(context.Context, *Event) bool { calls++; return true })
	b.On(BeforeQuery, func(context.Context, *Event) bool { calls++; return false })

	assert.True(t, b.Call(context.Background(), &Event{Name: BeforeQuery}))
	assert.Equal(t, 2, calls)
}

func TestCallRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	b := NewBus(logger.NewWithWriter(&buf, "debug", nil))
	ran := false
	b.On(BeforeQuery, func(context.Context, *Event) bool { panic("boom") })
	b.On(BeforeQuery, func(context.Context, *Event) bool { ran = true; return false })

	var cancelled bool
	require.NotPanics(t, func() {
		cancelled = b.Call(context.Background(), &Event{Name: BeforeQuery, Table: "t"})
	})
	assert.False(t, cancelled)
	assert.True(t, ran)
	assert.Contains(t, buf.String(), "Event handler panicked")
	assert.Contains(t, buf.String(), "panic: boom")
}
