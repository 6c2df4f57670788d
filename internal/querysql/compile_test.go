package querysql

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/queryir"
)

func TestJSONPath(t *testing.T) {
	assert.Equal(t, `$."meal"`, JSONPath("meal"))
	assert.Equal(t, `$."meal"."name"`, JSONPath("meal.name"))
	assert.Equal(t, `$."a\"b"`, JSONPath(`a"b`))
}

func TestCompile_NilIsTrue(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(nil)
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
	assert.Empty(t, params)
}

func TestCompile_StringMatchIsParameterised(t *testing.T) {
	compiler := NewSQLCompiler()
	pred := queryir.NewStringMatch("meal", compare.StringSpec{"is": []any{"Breakfast", "Lunch"}})

	sql, params, err := compiler.Compile(pred)
	require.NoError(t, err)

	// Values never appear in the SQL text
	assert.NotContains(t, sql, "Breakfast")
	assert.NotContains(t, sql, "meal")
	assert.Contains(t, sql, " OR ")
	assert.Equal(t, []any{`$."meal"`, "Breakfast", `$."meal"`, "Lunch"}, params)
	assert.Equal(t, strings.Count(sql, "?"), len(params))
}

func TestCompile_EveryStringOperator(t *testing.T) {
	compiler := NewSQLCompiler()

	for _, op := range compare.Whitelist {
		t.Run(op, func(t *testing.T) {
			pred := queryir.NewStringMatch("food", compare.StringSpec{op: "x"})
			sql, params, err := compiler.Compile(pred)
			require.NoError(t, err)
			assert.Equal(t, strings.Count(sql, "?"), len(params), "placeholder/param mismatch: %s", sql)
		})
	}
}

func TestCompile_NoCaseUsesFold(t *testing.T) {
	sql, _, err := NewSQLCompiler().Compile(queryir.NewStringMatch("food", compare.StringSpec{"isnocase": "EGGS"}))
	require.NoError(t, err)
	assert.Contains(t, sql, FuncFold+"(")
}

func TestCompile_RegexUsesOperator(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.NewStringMatch("food", compare.StringSpec{"regex": "/^s/i"}))
	require.NoError(t, err)
	assert.Contains(t, sql, "REGEXP ?")
	assert.Contains(t, params, "/^s/i")
}

func TestCompile_NumberIn(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := []struct {
		name       string
		ranges     []compare.NumberRange
		wantSQL    string
		wantParams []any
	}{
		{
			name:    "no ranges never match",
			ranges:  nil,
			wantSQL: "1 = 0",
		},
		{
			name:    "empty range always matches",
			ranges:  []compare.NumberRange{{}},
			wantSQL: "(1 = 1)",
		},
		{
			name:       "half open",
			ranges:     []compare.NumberRange{{Gte: compare.Num(8), Lt: compare.Num(9)}},
			wantSQL:    "(tally_num(json_extract(doc, ?)) < ? AND tally_num(json_extract(doc, ?)) >= ?)",
			wantParams: []any{`$."hour"`, 9.0, `$."hour"`, 8.0},
		},
		{
			name:       "alternatives",
			ranges:     []compare.NumberRange{{Eq: compare.Num(1)}, {Eq: compare.Num(2)}},
			wantSQL:    "(tally_num(json_extract(doc, ?)) = ?) OR (tally_num(json_extract(doc, ?)) = ?)",
			wantParams: []any{`$."hour"`, 1.0, `$."hour"`, 2.0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := compiler.Compile(queryir.NumberIn{Field: "hour", Ranges: tc.ranges})
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, sql)
			assert.Equal(t, tc.wantParams, params)
		})
	}
}

func TestCompile_DateInUsesJulianDays(t *testing.T) {
	compiler := NewSQLCompiler()
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	sql, params, err := compiler.Compile(queryir.DateIn{
		Field:  "date",
		Ranges: []compare.DateRange{{Gte: compare.Date(start)}},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, FuncJulian+"(")
	assert.Equal(t, []any{`$."date"`, compare.JulianDay(start)}, params)

	sql, _, err = compiler.Compile(queryir.DateIn{
		Field:  "jd",
		Julian: true,
		Ranges: []compare.DateRange{{Gte: compare.Date(start)}},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, FuncNumber+"(")
	assert.NotContains(t, sql, FuncJulian)
}

func TestCompile_AndJoinsInOrder(t *testing.T) {
	pred := queryir.And{Predicates: []queryir.Predicate{
		queryir.NewStringMatch("meal", compare.StringSpec{"is": "Dinner"}),
		queryir.NumberIn{Field: "calories", Ranges: []compare.NumberRange{{Gt: compare.Num(100)}}},
	}}

	sql, params, err := NewSQLCompiler().Compile(pred)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "("))
	assert.Contains(t, sql, ") AND (")
	assert.Equal(t, []any{`$."meal"`, "Dinner", `$."calories"`, 100.0}, params)

	sql, params, err = NewSQLCompiler().Compile(queryir.And{})
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
	assert.Empty(t, params)
}

func TestSumQuery_OrderedAndScoped(t *testing.T) {
	sql, params, err := NewSQLCompiler().SumQuery("meals", "calories", nil)
	require.NoError(t, err)

	assert.Contains(t, sql, "ORDER BY id ASC")
	assert.Contains(t, sql, "dataset = ?")
	assert.NotContains(t, sql, "meals")
	assert.Equal(t, []any{`$."calories"`, "meals"}, params)
}

func TestCountQuery(t *testing.T) {
	pred := queryir.NewStringMatch("meal", compare.StringSpec{"left": "B"})
	sql, params, err := NewSQLCompiler().CountQuery("meals", pred)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT COUNT(*) FROM records"))
	assert.Equal(t, "meals", params[0])
	assert.Equal(t, strings.Count(sql, "?"), len(params))
}
