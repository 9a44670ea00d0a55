package table

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	opEqual = "="
	opIn    = "IN"
	opNotIn = "NOT IN"

	directionAsc = "ASC"
)

// Filter is one WHERE condition.
type Filter struct {
	Field string
	Op    string
	Value any
	// Inline is set for IN lists: Value is the parenthesised list, written into the
	// statement verbatim instead of being bound.
	Inline bool
}

// Order is one ORDER BY term.
type Order struct {
	Field     string
	Direction string
}

// QuerySpec is the read intent accumulated on a Table. Filters, orders and groups
// only grow until the next Select.
type QuerySpec struct {
	Fields        []string
	Filters       []Filter
	Orders        []Order
	Groups        []string
	Limit         *int
	Offset        *int
	NumberFormats map[string]NumberFormat
	DateFormats   map[string]string
}

func (s *QuerySpec) clone() QuerySpec {
	out := QuerySpec{
		Fields:  append([]string(nil), s.Fields...),
		Filters: append([]Filter(nil), s.Filters...),
		Orders:  append([]Order(nil), s.Orders...),
		Groups:  append([]string(nil), s.Groups...),
	}
	if s.Limit != nil {
		v := *s.Limit
		out.Limit = &v
	}
	if s.Offset != nil {
		v := *s.Offset
		out.Offset = &v
	}
	if len(s.NumberFormats) > 0 {
		out.NumberFormats = make(map[string]NumberFormat, len(s.NumberFormats))
		for k, v := range s.NumberFormats {
			out.NumberFormats[k] = v
		}
	}
	if len(s.DateFormats) > 0 {
		out.DateFormats = make(map[string]string, len(s.DateFormats))
		for k, v := range s.DateFormats {
			out.DateFormats[k] = v
		}
	}
	return out
}

func (s *QuerySpec) formatter() *formatter {
	if len(s.NumberFormats) == 0 && len(s.DateFormats) == 0 {
		return nil
	}
	return &formatter{numbers: s.NumberFormats, dates: s.DateFormats}
}

// Spec returns a copy of the accumulated query intent.
func (t *Table) Spec() QuerySpec { return t.spec.clone() }

// Select clears the whole QuerySpec and sets the selected fields. No fields means "*".
func (t *Table) Select(fields ...string) *Table {
	t.spec = QuerySpec{Fields: append([]string(nil), fields...)}
	return t
}

// Filter adds an equality condition.
func (t *Table) Filter(field string, value any) *Table {
	return t.FilterOp(field, opEqual, value)
}

// FilterOp adds a condition with an explicit comparison operator. For "in" and
// "not in" the value is wrapped in parentheses and written into the statement as
// is: a string must already be a comma-joined list, a slice is joined with its
// members rendered as literals. An empty op means "=".
func (t *Table) FilterOp(field, op string, value any) *Table {
	op = strings.TrimSpace(op)
	if op == "" {
		op = opEqual
	}

	f := Filter{Field: field, Op: op, Value: value}
	switch upper := strings.ToUpper(op); upper {
	case opIn, opNotIn:
		f.Op = upper
		f.Value = "(" + inlineList(value) + ")"
		f.Inline = true
	}
	t.spec.Filters = append(t.spec.Filters, f)
	return t
}

// Order adds an ORDER BY term. An empty direction means ASC.
func (t *Table) Order(field, direction string) *Table {
	direction = strings.TrimSpace(direction)
	if direction == "" {
		direction = directionAsc
	}
	t.spec.Orders = append(t.spec.Orders, Order{Field: field, Direction: direction})
	return t
}

// Group adds a GROUP BY field.
func (t *Table) Group(field string) *Table {
	t.spec.Groups = append(t.spec.Groups, field)
	return t
}

// Limit sets the row limit. Negative values are ignored.
func (t *Table) Limit(n int) *Table {
	if n >= 0 {
		t.spec.Limit = &n
	}
	return t
}

// Offset sets the row offset. It only takes effect together with a limit.
// Negative values are ignored.
func (t *Table) Offset(n int) *Table {
	if n >= 0 {
		t.spec.Offset = &n
	}
	return t
}

// FormatNumber renders field with f in Execute results.
func (t *Table) FormatNumber(field string, f NumberFormat) *Table {
	if t.spec.NumberFormats == nil {
		t.spec.NumberFormats = make(map[string]NumberFormat)
	}
	t.spec.NumberFormats[field] = f
	return t
}

// FormatDateTime renders field with a strftime layout in Execute results.
// Values that do not read as a date or time are left alone.
func (t *Table) FormatDateTime(field, layout string) *Table {
	if t.spec.DateFormats == nil {
		t.spec.DateFormats = make(map[string]string)
	}
	t.spec.DateFormats[field] = layout
	return t
}

func inlineList(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Sprint(value)
	}
	members := make([]string, rv.Len())
	for i := range members {
		members[i] = literal(rv.Index(i).Interface())
	}
	return strings.Join(members, ",")
}
