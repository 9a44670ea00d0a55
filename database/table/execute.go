package table

import (
	"context"
	"time"

	"github.com/gaborage/go-tables/database/events"
	"github.com/gaborage/go-tables/database/types"
)

// Execute runs the SELECT assembled from the QuerySpec and hands the decoded rows
// to fn. Registered number formats are applied before date/time layouts.
//
// The QuerySpec is left as it is afterwards: a later Execute without a Select
// reuses the same filters, orders and groups.
func (t *Table) Execute(ctx context.Context, fn QueryFunc) *Table {
	st, err := t.selectStatement()
	if err != nil {
		t.log.WithContext(ctx).Error().Err(err).Str("table", t.name).Msg("Failed to assemble select statement")
		if fn != nil {
			fn(nil, err)
		}
		return t
	}
	t.read(ctx, st, t.spec.formatter(), fn)
	return t
}

// Query runs query verbatim, ignoring the QuerySpec. Row-producing statements are
// decoded without formatting; anything else yields nil rows. fn may be nil.
func (t *Table) Query(ctx context.Context, query string, fn QueryFunc) *Table {
	t.read(ctx, statement{sql: query, raw: true}, nil, fn)
	return t
}

// read is the shared path of Execute and Query: BeforeQuery, execution, decode,
// AfterQuery, diagnostics, callback.
func (t *Table) read(ctx context.Context, st statement, f *formatter, fn QueryFunc) {
	if t.bus.Has(events.BeforeQuery) {
		before := t.event(events.BeforeQuery, st)
		before.Statement = st.placeholderText()
		before.Callback = fn
		if t.bus.Call(ctx, before) {
			t.log.WithContext(ctx).Debug().
				Str("table", t.name).
				Msg("Statement cancelled by BeforeQuery hook")
			return
		}
	}

	text := st.text()
	start := time.Now()
	var rows []types.Row

	query, err := st.bound(t.dialect)
	if err == nil {
		if types.ReturnsRows(query) {
			var rs *types.ResultSet
			rs, err = t.session.Query(ctx, query, st.args...)
			if err == nil {
				rows = decode(rs, f)
			}
		} else {
			_, err = t.session.Exec(ctx, query, st.args...)
		}
	}
	if err != nil {
		err = &StatementError{Statement: text, Err: err}
	}

	if t.bus.Has(events.AfterQuery) {
		after := t.event(events.AfterQuery, st)
		after.Rows = rows
		after.Affected = t.session.Affected()
		after.Err = err
		t.bus.Call(ctx, after)
	}

	t.record(ctx, text, start, len(rows), err)

	if fn != nil {
		fn(rows, err)
	}
}

// decode turns a driver result into rows: NULL becomes "", other values go
// through f when given.
func decode(rs *types.ResultSet, f *formatter) []types.Row {
	if rs == nil {
		return nil
	}
	rows := make([]types.Row, 0, len(rs.Rows))
	for _, record := range rs.Rows {
		values := make([]string, len(rs.Columns))
		for i, column := range rs.Columns {
			if i >= len(record) || !record[i].Valid {
				continue
			}
			values[i] = f.apply(column, record[i].String)
		}
		rows = append(rows, types.NewRow(rs.Columns, values))
	}
	return rows
}
