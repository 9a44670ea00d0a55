package table

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/gaborage/go-tables/database/events"
)

// NoLimit passed to Update applies it to every matching row.
const NoLimit = -1

// Insert writes one row. Columns are taken from data in sorted order and every
// value is bound as text. An empty data is a no-op: nothing is sent or logged and
// fn is not called.
func (t *Table) Insert(ctx context.Context, data map[string]any, fn ExecFunc) *Table {
	if len(data) == 0 {
		t.skipped(ctx, "insert", "no data")
		return t
	}
	st, err := t.insertStatement(data)
	t.mutate(ctx, st, err, events.AfterDataInsert, true, fn)
	return t
}

// Update sets columns on the rows matching every filter by equality. Names and
// values of sets have HTML entities folded back (&amp; and &quot;) and single
// quotes turned into &#39;. At most limit rows change; NoLimit updates every
// match and any other limit <= 0 means 1. Empty sets or filters make it a no-op.
func (t *Table) Update(ctx context.Context, sets, filters map[string]any, limit int, fn ExecFunc) *Table {
	if len(sets) == 0 || len(filters) == 0 {
		t.skipped(ctx, "update", "no sets or filters")
		return t
	}
	if limit <= 0 && limit != NoLimit {
		limit = 1
	}
	st, err := t.updateStatement(sets, filters, limit)
	t.mutate(ctx, st, err, events.AfterDataUpdate, false, fn)
	return t
}

// Delete removes at most limit rows matching every filter by equality. limit <= 0
// means 1. Empty filters make it a no-op.
func (t *Table) Delete(ctx context.Context, filters map[string]any, limit int, fn ExecFunc) *Table {
	if len(filters) == 0 {
		t.skipped(ctx, "delete", "no filters")
		return t
	}
	if limit <= 0 {
		limit = 1
	}
	st, err := t.deleteStatement(filters, limit)
	t.mutate(ctx, st, err, events.AfterDataDelete, false, fn)
	return t
}

// Exists reports whether any row matches every filter by equality. Empty filters
// and failed statements report false.
func (t *Table) Exists(ctx context.Context, filters map[string]any) bool {
	if len(filters) == 0 {
		return false
	}
	st, err := t.existsStatement(filters)
	if err != nil {
		t.log.WithContext(ctx).Error().Err(err).Str("table", t.name).Msg("Failed to assemble exists statement")
		return false
	}

	text := st.text()
	start := time.Now()
	query, err := st.bound(t.dialect)
	if err != nil {
		t.record(ctx, text, start, 0, err)
		return false
	}
	rs, err := t.session.Query(ctx, query, st.args...)
	if err != nil {
		err = &StatementError{Statement: text, Err: err}
	}
	t.record(ctx, text, start, 0, err)
	if err != nil || rs.Len() == 0 || len(rs.Rows[0]) == 0 {
		return false
	}

	total, convErr := strconv.ParseInt(strings.TrimSpace(rs.Rows[0][0].String), 10, 64)
	return convErr == nil && total > 0
}

// mutate executes an INSERT, UPDATE or DELETE, logs it, fires its after event and
// calls fn.
func (t *Table) mutate(ctx context.Context, st statement, buildErr error, name events.Name, insert bool, fn ExecFunc) {
	if buildErr != nil {
		t.log.WithContext(ctx).Error().Err(buildErr).Str("table", t.name).Msg("Failed to assemble statement")
		if fn != nil {
			fn(ExecResult{}, buildErr)
		}
		return
	}

	text := st.text()
	start := time.Now()

	query, err := st.bound(t.dialect)
	if err == nil {
		if insert {
			_, err = t.session.Insert(ctx, query, st.args...)
		} else {
			_, err = t.session.Exec(ctx, query, st.args...)
		}
	}

	var res ExecResult
	if err != nil {
		err = &StatementError{Statement: text, Err: err}
	} else {
		res.Affected = t.session.Affected()
		if insert {
			if id, ok := t.session.InsertID(); ok {
				res.InsertID = sql.NullInt64{Int64: id, Valid: true}
			}
		}
	}

	t.record(ctx, text, start, 0, err)

	if t.bus.Has(name) {
		e := t.event(name, st)
		e.Affected = res.Affected
		e.InsertID = res.InsertID
		e.Err = err
		t.bus.Call(ctx, e)
	}

	if fn != nil {
		fn(res, err)
	}
}

func (t *Table) skipped(ctx context.Context, op, reason string) {
	t.log.WithContext(ctx).Debug().
		Str("table", t.name).
		Str("operation", op).
		Msgf("Skipped %s: %s", op, reason)
}
