package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/gaborage/go-tables/database/types"
)

const sqlDateTime = "2006-01-02 15:04:05"

// statement is a built statement in "?" placeholder form. Literal question marks
// written inline are escaped as "??". raw statements are sent verbatim.
type statement struct {
	sql  string
	args []any
	raw  bool
}

// placeholderText is the statement with its placeholders in place.
func (s statement) placeholderText() string {
	if s.raw {
		return s.sql
	}
	return strings.ReplaceAll(s.sql, "??", "?")
}

// bound converts the statement to the driver's placeholder syntax.
func (s statement) bound(d types.Dialect) (string, error) {
	if s.raw {
		return s.sql, nil
	}
	format := d.Placeholder()
	if format == squirrel.Question {
		return strings.ReplaceAll(s.sql, "??", "?"), nil
	}
	return format.ReplacePlaceholders(s.sql)
}

// text renders the observable statement: each placeholder is replaced, in order,
// by its argument written as a literal.
func (s statement) text() string {
	if s.raw {
		return s.sql
	}
	var b strings.Builder
	b.Grow(len(s.sql) + 8*len(s.args))

	rest, i := s.sql, 0
	for {
		p := strings.IndexByte(rest, '?')
		if p < 0 {
			break
		}
		b.WriteString(rest[:p])
		if p+1 < len(rest) && rest[p+1] == '?' {
			b.WriteByte('?')
			rest = rest[p+2:]
			continue
		}
		if i < len(s.args) {
			b.WriteString(literal(s.args[i]))
		} else {
			b.WriteByte('?')
		}
		i++
		rest = rest[p+1:]
	}
	b.WriteString(rest)
	return b.String()
}

// literal writes v the way it appears in the observable statement: numbers bare,
// everything else single-quoted.
func literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return quoteString(val)
	case []byte:
		return quoteString(string(val))
	case time.Time:
		return quoteString(val.Format(sqlDateTime))
	default:
		return quoteString(fmt.Sprint(val))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// escapeInline protects question marks inside text written straight into a statement.
func escapeInline(s string) string {
	return strings.ReplaceAll(s, "?", "??")
}

// mutationValue is the bound form of an INSERT or UPDATE value: its text.
func mutationValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(sqlDateTime)
	default:
		return fmt.Sprint(val)
	}
}

var entityReplacements = [][2]string{
	{"&amp;amp;", "&"},
	{"&amp;", "&"},
	{"&quot;", `"`},
	{"'", "&#39;"},
}

// unescapeEntities applies the replacements one after another over the whole string.
func unescapeEntities(s string) string {
	for _, r := range entityReplacements {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sq builds every statement in "?" form; bound converts to the driver syntax.
var sq = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

func (t *Table) quote(name string) string { return t.dialect.QuoteIdentifier(name) }

// quoteTable quotes each dot-separated part of the table name.
func (t *Table) quoteTable() string {
	parts := strings.Split(t.name, ".")
	for i, p := range parts {
		parts[i] = t.quote(p)
	}
	return strings.Join(parts, ".")
}

func toStatement(b squirrel.Sqlizer) (statement, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return statement{}, err
	}
	return statement{sql: sql, args: args}, nil
}

// selectStatement assembles the SELECT for the current QuerySpec. Clause order is
// WHERE, GROUP BY, ORDER BY, LIMIT.
func (t *Table) selectStatement() (statement, error) {
	fields := t.spec.Fields
	if len(fields) == 0 {
		fields = []string{"*"}
	}
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = t.quote(f)
	}

	sb := sq.Select(columns...).From(t.quoteTable())
	for _, f := range t.spec.Filters {
		if f.Inline {
			sb = sb.Where(fmt.Sprintf("%s %s %s", t.quote(f.Field), f.Op, escapeInline(f.Value.(string))))
			continue
		}
		sb = sb.Where(fmt.Sprintf("%s %s ?", t.quote(f.Field), f.Op), f.Value)
	}
	if len(t.spec.Groups) > 0 {
		groups := make([]string, len(t.spec.Groups))
		for i, g := range t.spec.Groups {
			groups[i] = t.quote(g)
		}
		sb = sb.GroupBy(groups...)
	}
	for _, o := range t.spec.Orders {
		sb = sb.OrderBy(t.quote(o.Field) + " " + o.Direction)
	}
	if clause := t.dialect.LimitClause(t.spec.Limit, t.spec.Offset); clause != "" {
		sb = sb.Suffix(clause)
	}
	return toStatement(sb)
}

// equalityWhere is the AND of field = value over the sorted keys of filters.
func (t *Table) equalityWhere(filters map[string]any) squirrel.And {
	conds := make(squirrel.And, 0, len(filters))
	for _, k := range sortedKeys(filters) {
		conds = append(conds, squirrel.Expr(t.quote(k)+" = ?", mutationValue(filters[k])))
	}
	return conds
}

func (t *Table) insertStatement(data map[string]any) (statement, error) {
	keys := sortedKeys(data)
	columns := make([]string, len(keys))
	values := make([]any, len(keys))
	for i, k := range keys {
		columns[i] = t.quote(k)
		values[i] = mutationValue(data[k])
	}
	return toStatement(sq.Insert(t.quoteTable()).Columns(columns...).Values(values...))
}

func (t *Table) updateStatement(sets, filters map[string]any, limit int) (statement, error) {
	ub := sq.Update(t.quoteTable())
	for _, k := range sortedKeys(sets) {
		value := mutationValue(sets[k])
		if s, ok := value.(string); ok {
			value = unescapeEntities(s)
		}
		ub = ub.Set(t.quote(unescapeEntities(k)), value)
	}

	if limit == NoLimit {
		for _, cond := range t.equalityWhere(filters) {
			ub = ub.Where(cond)
		}
		return toStatement(ub)
	}
	if t.dialect.MutationLimit() {
		for _, cond := range t.equalityWhere(filters) {
			ub = ub.Where(cond)
		}
		return toStatement(ub.Limit(uint64(limit)))
	}
	locator, err := t.locatorCondition(filters, limit)
	if err != nil {
		return statement{}, err
	}
	return toStatement(ub.Where(locator))
}

func (t *Table) deleteStatement(filters map[string]any, limit int) (statement, error) {
	db := sq.Delete(t.quoteTable())
	if t.dialect.MutationLimit() {
		for _, cond := range t.equalityWhere(filters) {
			db = db.Where(cond)
		}
		return toStatement(db.Limit(uint64(limit)))
	}
	locator, err := t.locatorCondition(filters, limit)
	if err != nil {
		return statement{}, err
	}
	return toStatement(db.Where(locator))
}

// locatorCondition caps a mutation on dialects without UPDATE/DELETE ... LIMIT by
// matching the row locators of the first limit rows. Without a locator the cap is
// dropped and the plain filters are returned.
func (t *Table) locatorCondition(filters map[string]any, limit int) (squirrel.Sqlizer, error) {
	locator := t.dialect.RowLocator()
	if locator == "" {
		return t.equalityWhere(filters), nil
	}
	sub := sq.Select(locator).From(t.quoteTable())
	for _, cond := range t.equalityWhere(filters) {
		sub = sub.Where(cond)
	}
	sub = sub.Suffix(t.dialect.LimitClause(&limit, nil))
	sql, args, err := sub.ToSql()
	if err != nil {
		return nil, err
	}
	return squirrel.Expr(locator+" IN ("+sql+")", args...), nil
}

func (t *Table) existsStatement(filters map[string]any) (statement, error) {
	one := 1
	sb := sq.Select("COUNT(*) AS total").From(t.quoteTable())
	for _, cond := range t.equalityWhere(filters) {
		sb = sb.Where(cond)
	}
	return toStatement(sb.Suffix(t.dialect.LimitClause(&one, nil)))
}
