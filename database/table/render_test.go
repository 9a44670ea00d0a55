package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLiteral(t *testing.T) {
	ts := time.Date(2024, 2, 29, 8, 1, 2, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint8(3), "3"},
		{1.5, "1.5"},
		{float32(0.25), "0.25"},
		{1e21, "1000000000000000000000"},
		{true, "true"},
		{"x", "'x'"},
		{"it's", "'it''s'"},
		{[]byte("raw"), "'raw'"},
		{ts, "'2024-02-29 08:01:02'"},
		{time.Second, "'1s'"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, literal(tt.in))
	}
}

func TestUnescapeEntitiesRunsSequentially(t *testing.T) {
	assert.Equal(t, "&", unescapeEntities("&amp;amp;"))
	assert.Equal(t, "&", unescapeEntities("&amp;amp;amp;"))
	assert.Equal(t, `say "hi"`, unescapeEntities("say &quot;hi&quot;"))
	assert.Equal(t, "O&#39;Neil", unescapeEntities("O'Neil"))
}

func TestStatementText(t *testing.T) {
	st := statement{sql: "SELECT * FROM t WHERE a = ? AND b IN ('??') AND c = ?", args: []any{1, "z"}}
	assert.Equal(t, "SELECT * FROM t WHERE a = 1 AND b IN ('?') AND c = 'z'", st.text())
	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND b IN ('?') AND c = ?", st.placeholderText())

	short := statement{sql: "a = ? AND b = ?", args: []any{1}}
	assert.Equal(t, "a = 1 AND b = ?", short.text())

	raw := statement{sql: "SELECT '??'", raw: true}
	assert.Equal(t, "SELECT '??'", raw.text())
	assert.Equal(t, "SELECT '??'", raw.placeholderText())
}

func TestMutationValue(t *testing.T) {
	ts := time.Date(2024, 2, 29, 8, 1, 2, 0, time.UTC)
	assert.Nil(t, mutationValue(nil))
	assert.Equal(t, "12", mutationValue(12))
	assert.Equal(t, "1.5", mutationValue(1.5))
	assert.Equal(t, "b", mutationValue([]byte("b")))
	assert.Equal(t, "2024-02-29 08:01:02", mutationValue(ts))
	assert.Equal(t, "true", mutationValue(true))
}
