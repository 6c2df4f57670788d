package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/queryir"
)

// SQL functions the compiled statements rely on. The store registers them on
// every connection (see store.DriverName).
const (
	FuncNumber = "tally_num"    // tally_num(x) → REAL, or NULL when x is not numeric
	FuncJulian = "tally_julian" // tally_julian(x) → Julian day of a date value, or NULL
	FuncFold   = "tally_fold"   // tally_fold(x) → Unicode case-folded text
	FuncRegexp = "regexp"       // backs the REGEXP operator: regexp(pattern, value)
)

// SQLCompiler compiles queryir predicates to parameterised SQL over a table
// of JSON documents.
//
// CRITICAL: All values are parameterised (never interpolated), including
// JSON paths.
// CRITICAL: Row-returning queries include ORDER BY id for deterministic results.
type SQLCompiler struct {
	// Table holds one row per record: id, dataset, doc (JSON text).
	Table string
}

// NewSQLCompiler creates a compiler for the default records table.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: "records"}
}

// JSONPath converts a dotted field name into a quoted SQLite JSON path:
// "meal.name" → `$."meal"."name"`.
func JSONPath(field string) string {
	segs := strings.Split(field, ".")
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range segs {
		b.WriteString(`."`)
		b.WriteString(strings.ReplaceAll(seg, `"`, `\"`))
		b.WriteString(`"`)
	}
	return b.String()
}

// Compile converts a predicate to a WHERE fragment.
// Returns (sql, params, error). A nil predicate compiles to "1 = 1".
func (c *SQLCompiler) Compile(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case queryir.StringMatch:
		return c.compileStringMatch(pred)
	case queryir.NumberIn:
		return c.compileNumberIn(pred)
	case queryir.DateIn:
		return c.compileDateIn(pred)
	case queryir.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// SumQuery returns a statement selecting the numeric value of field for
// every matching record, in id order. Callers add the values themselves so
// that both backends accumulate identically.
func (c *SQLCompiler) SumQuery(dataset, field string, p queryir.Predicate) (string, []any, error) {
	where, params, err := c.Compile(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := fmt.Sprintf("SELECT %s(json_extract(doc, ?)) FROM %s WHERE dataset = ? AND (%s) ORDER BY id ASC",
		FuncNumber, c.Table, where)
	args := append([]any{JSONPath(field), dataset}, params...)
	return sql, args, nil
}

// CountQuery returns a statement counting matching records.
func (c *SQLCompiler) CountQuery(dataset string, p queryir.Predicate) (string, []any, error) {
	where, params, err := c.Compile(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE dataset = ? AND (%s)", c.Table, where)
	args := append([]any{dataset}, params...)
	return sql, args, nil
}

// compileAnd compiles an And predicate to a conjunction.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.Compile(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, "("+sql+")")
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}

// fragment accumulates SQL text and its parameters in order.
type fragment struct {
	parts  []string
	params []any
}

func (f *fragment) add(sql string, params ...any) {
	f.parts = append(f.parts, sql)
	f.params = append(f.params, params...)
}

func (f *fragment) join(sep, empty string) (string, []any) {
	if len(f.parts) == 0 {
		return empty, nil
	}
	return strings.Join(f.parts, sep), f.params
}

// compileStringMatch compiles sanitised string operators. Operators are
// ANDed; the values of one operator are ORed.
func (c *SQLCompiler) compileStringMatch(p queryir.StringMatch) (string, []any, error) {
	path := JSONPath(p.Field)
	var all fragment

	for _, m := range p.Matches {
		var alts fragment
		if m.Op == "hasall" {
			for _, test := range m.Values {
				sql, params := hasSQL(path, test)
				alts.add(sql, params...)
			}
			sql, params := alts.join(" AND ", "1 = 0")
			all.add("("+sql+")", params...)
			continue
		}
		for _, test := range m.Values {
			sql, params, err := stringOpSQL(m.Op, path, test)
			if err != nil {
				return "", nil, err
			}
			alts.add(sql, params...)
		}
		sql, params := alts.join(" OR ", "1 = 0")
		all.add("("+sql+")", params...)
	}

	sql, params := all.join(" AND ", "1 = 1")
	return sql, params, nil
}

// stringOpSQL compiles one operator/value pair.
func stringOpSQL(op, path, test string) (string, []any, error) {
	f := "CAST(json_extract(doc, ?) AS TEXT)"
	folded := FuncFold + "(" + f + ")"
	foldArg := FuncFold + "(?)"

	switch op {
	case "is":
		return f + " = ?", []any{path, test}, nil
	case "isnocase":
		return folded + " = " + foldArg, []any{path, test}, nil
	case "left":
		return "substr(" + f + ", 1, length(?)) = ?", []any{path, test, test}, nil
	case "leftnocase":
		return "substr(" + folded + ", 1, length(" + foldArg + ")) = " + foldArg,
			[]any{path, test, test}, nil
	case "right":
		return "(length(?) = 0 OR substr(" + f + ", -length(?)) = ?)",
			[]any{test, path, test, test}, nil
	case "rightnocase":
		return "(length(?) = 0 OR substr(" + folded + ", -length(" + foldArg + ")) = " + foldArg + ")",
			[]any{test, path, test, test}, nil
	case "like":
		return "instr(" + f + ", ?) > 0", []any{path, test}, nil
	case "regex":
		return f + " REGEXP ?", []any{path, test}, nil
	case "has":
		sql, params := hasSQL(path, test)
		return sql, params, nil
	case "lt":
		return f + " < ?", []any{path, test}, nil
	case "gt":
		return f + " > ?", []any{path, test}, nil
	case "lte":
		return f + " <= ?", []any{path, test}, nil
	case "gte":
		return f + " >= ?", []any{path, test}, nil
	default:
		return "", nil, fmt.Errorf("unsupported string operator %q", op)
	}
}

// hasSQL matches an array element, or a substring of a scalar.
func hasSQL(path, test string) (string, []any) {
	sql := "(CASE json_type(doc, ?) WHEN 'array' THEN " +
		"EXISTS (SELECT 1 FROM json_each(doc, ?) WHERE value = ?) " +
		"ELSE instr(json_extract(doc, ?), ?) > 0 END)"
	return sql, []any{path, path, test, path, test}
}

// compileNumberIn compiles number ranges. Non-numeric values become NULL
// and fail every bounded range.
func (c *SQLCompiler) compileNumberIn(p queryir.NumberIn) (string, []any, error) {
	expr := FuncNumber + "(json_extract(doc, ?))"
	path := JSONPath(p.Field)

	var alts fragment
	for _, r := range p.Ranges {
		sql, params := rangeSQL(expr, path, r)
		alts.add(sql, params...)
	}
	sql, params := alts.join(" OR ", "1 = 0")
	return sql, params, nil
}

// compileDateIn compiles date ranges in Julian day space.
func (c *SQLCompiler) compileDateIn(p queryir.DateIn) (string, []any, error) {
	fn := FuncJulian
	if p.Julian {
		fn = FuncNumber
	}
	expr := fn + "(json_extract(doc, ?))"
	path := JSONPath(p.Field)

	var alts fragment
	for _, r := range p.Ranges {
		sql, params := rangeSQL(expr, path, r.Julian())
		alts.add(sql, params...)
	}
	sql, params := alts.join(" OR ", "1 = 0")
	return sql, params, nil
}

// rangeSQL compiles one range. An empty range is always true.
func rangeSQL(expr, path string, r compare.NumberRange) (string, []any) {
	var all fragment
	bound := func(op string, v *float64) {
		if v != nil {
			all.add(expr+" "+op+" ?", path, *v)
		}
	}
	bound("<", r.Lt)
	bound(">", r.Gt)
	bound("<=", r.Lte)
	bound(">=", r.Gte)
	bound("=", r.Eq)
	sql, params := all.join(" AND ", "1 = 1")
	return "(" + sql + ")", params
}
