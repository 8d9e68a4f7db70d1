package sqlformat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clauses and select list",
			input: "select a, b from t where x = 1 and y = 2",
			want:  "SELECT\n  a,\n  b\nFROM t\nWHERE x = 1\n  AND y = 2\n",
		},
		{
			name:  "join with condition",
			input: "select a.id, b.v from a left join b on a.id = b.id and b.x > 1",
			want:  "SELECT\n  a.id,\n  b.v\nFROM a\nLEFT JOIN b ON a.id = b.id\n  AND b.x > 1\n",
		},
		{
			name:  "between keeps its and",
			input: "select x from t where d between 1 and 5 or y = 2",
			want:  "SELECT\n  x\nFROM t\nWHERE d BETWEEN 1 AND 5\n  OR y = 2\n",
		},
		{
			name:  "function calls and grouping",
			input: "select count(*) as n from t group by x order by n desc",
			want:  "SELECT\n  count(*) AS n\nFROM t\nGROUP BY x\nORDER BY n DESC\n",
		},
		{
			name:  "casts stay tight",
			input: "select a::int from t",
			want:  "SELECT\n  a::int\nFROM t\n",
		},
		{
			name:  "strings and comments survive",
			input: "select 'a;b' as s -- note\nfrom t;",
			want:  "SELECT\n  'a;b' AS s -- note\nFROM t;\n",
		},
		{
			name:  "subquery is indented",
			input: "select * from (select a from t) sub",
			want:  "SELECT\n  *\nFROM (\n  SELECT\n    a\n  FROM t\n) sub\n",
		},
		{
			name:  "multiple statements",
			input: "select 1; select 2;",
			want:  "SELECT\n  1;\n\nSELECT\n  2;\n",
		},
		{
			name:  "unary signs stay attached",
			input: "select -1, a - 1, +b, (-c) from t where x = -2 and y between -3 and 4",
			want:  "SELECT\n  -1,\n  a - 1,\n  +b,\n  (-c)\nFROM t\nWHERE x = -2\n  AND y BETWEEN -3 AND 4\n",
		},
		{
			name:  "binary minus after case end",
			input: "select case when a then 1 else -1 end - 1 from t",
			want:  "SELECT\n  CASE WHEN a THEN 1 ELSE -1 END - 1\nFROM t\n",
		},
		{
			name:  "function ddl keywords",
			input: "create or replace secure function f(x int) returns int language sql immutable as 'x + 1'",
			want:  "CREATE OR REPLACE SECURE FUNCTION f(x int) RETURNS int LANGUAGE sql IMMUTABLE AS 'x + 1'\n",
		},
		{
			name:  "empty input",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.input, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	input := "select a, sum(b) from t join u on t.id = u.id where a > 1 group by a"

	once, err := Format(input, Options{})
	require.NoError(t, err)
	twice, err := Format(once, Options{})
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestFormatSubqueriesToCTEs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "aliased derived table",
			input: "select * from (select a from t) as sub",
			want:  "WITH sub AS (\n  SELECT\n    a\n  FROM t\n)\nSELECT\n  *\nFROM sub\n",
		},
		{
			name:  "unaliased and nested hoist innermost first",
			input: "SELECT x FROM (SELECT x FROM (SELECT x FROM t))",
			want: "WITH _q_0 AS (\n  SELECT\n    x\n  FROM t\n),\n" +
				"_q_1 AS (\n  SELECT\n    x\n  FROM _q_0\n)\n" +
				"SELECT\n  x\nFROM _q_1\n",
		},
		{
			name:  "merges with existing with clause",
			input: "WITH base AS (SELECT * FROM t) SELECT * FROM (SELECT * FROM base) b",
			want: "WITH base AS (\n  SELECT\n    *\n  FROM t\n),\n" +
				"b AS (\n  SELECT\n    *\n  FROM base\n)\n" +
				"SELECT\n  *\nFROM b\n",
		},
		{
			name:  "alias that shadows a table is renamed",
			input: "SELECT * FROM (SELECT * FROM orders) orders",
			want:  "WITH _q_0 AS (\n  SELECT\n    *\n  FROM orders\n)\nSELECT\n  *\nFROM _q_0 AS orders\n",
		},
		{
			name:  "create table as select",
			input: "create or replace table x as select a from (select a from t)",
			want: "CREATE OR REPLACE TABLE x AS\nWITH _q_0 AS (\n  SELECT\n    a\n  FROM t\n)\n" +
				"SELECT\n  a\nFROM _q_0\n",
		},
		{
			name:  "scalar subqueries stay in place",
			input: "select a from t where a in (select a from u)",
			want:  "SELECT\n  a\nFROM t\nWHERE a IN (\n  SELECT\n    a\n  FROM u\n)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.input, Options{SubqueriesToCTEs: true})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSubqueriesToCTEsKeepsCorrelatedTables(t *testing.T) {
	correlated := "select (select max(q.x) from (select x from u where u.id = t.id) q) from t"

	got, err := Format(correlated, Options{SubqueriesToCTEs: true})
	require.NoError(t, err)
	plain, err := Format(correlated, Options{})
	require.NoError(t, err)
	assert.Equal(t, plain, got)
	assert.NotContains(t, got, "WITH")

	nested := "select * from (select y from (select y from u where u.k = v.k) i, v) m"
	got, err = Format(nested, Options{SubqueriesToCTEs: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "WITH m AS (\n"), got)
	assert.Equal(t, 1, strings.Count(got, " AS ("), got)
	assert.Contains(t, got, "u.k = v.k")
	assert.True(t, strings.HasSuffix(got, "FROM m\n"), got)
}

func TestSelfContained(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{name: "own table", sql: "select u.x from u where u.id = 1", want: true},
		{name: "own alias", sql: "select a.x from db.s.u a join v b on a.id = b.id", want: true},
		{name: "qualified table name", sql: "select u.x from db.s.u", want: true},
		{name: "star", sql: "select u.* from u", want: true},
		{name: "schema function", sql: "select util.f(x) from u", want: true},
		{name: "outer reference", sql: "select x from u where u.id = t.id", want: false},
		{name: "outer star", sql: "select t.* from u", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.sql)
			require.NoError(t, err)
			stmts, err := parse(tt.sql, toks)
			require.NoError(t, err)
			require.Len(t, stmts, 1)
			assert.Equal(t, tt.want, selfContained(stmts[0].nodes))
		})
	}
}

func TestFormatSyntaxErrors(t *testing.T) {
	inputs := map[string]string{
		"unclosed paren":       "select (a from t",
		"stray close paren":    "select a) from t",
		"unterminated string":  "select 'abc from t",
		"unterminated ident":   `select "abc from t`,
		"unterminated comment": "select a /* from t",
		"unterminated dollar":  "select $$abc",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Format(input, Options{})
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeSQLSyntax, errors.GetErrorCode(err))
		})
	}
}

func TestSplit(t *testing.T) {
	script := "select 1;\nselect ';' as s; -- trailing\n" +
		"create procedure p() returns int language sql as $$ begin return 1; end $$;\n" +
		"select 2"

	got, err := Split(script)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"select 1",
		"select ';' as s",
		"-- trailing\ncreate procedure p() returns int language sql as $$ begin return 1; end $$",
		"select 2",
	}, got)
}

func TestTokenize(t *testing.T) {
	toks, err := Tokenize(`SELECT "My Col", 1.5e3 FROM t::x // done`)
	require.NoError(t, err)

	kinds := make([]Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []Kind{Word, QuotedIdent, Comma, Number, Word, Word, Operator, Word, LineComment}, kinds)
	assert.Equal(t, "1.5e3", toks[3].Text)
	assert.Equal(t, "::", toks[6].Text)
}
