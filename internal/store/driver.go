package store

import (
	"database/sql"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/queryir"
	"github.com/roach88/tally/internal/querysql"
)

// DriverName is the database/sql driver that registers the helper
// functions compiled queries rely on.
const DriverName = "sqlite3_tally"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: registerFuncs,
	})
}

// registerFuncs installs the querysql helper functions on a new connection.
func registerFuncs(conn *sqlite3.SQLiteConn) error {
	funcs := []struct {
		name string
		impl any
	}{
		{querysql.FuncNumber, sqlNumber},
		{querysql.FuncJulian, sqlJulian},
		{querysql.FuncFold, sqlFold},
		{querysql.FuncRegexp, sqlRegexp},
	}
	for _, f := range funcs {
		if err := conn.RegisterFunc(f.name, f.impl, true); err != nil {
			return fmt.Errorf("register %s: %w", f.name, err)
		}
	}
	return nil
}

// sqlNumber returns x as a REAL, or NULL when x is not numeric.
func sqlNumber(x any) any {
	f, ok := compare.ToFloat(sqlText(x))
	if !ok {
		return nil
	}
	return f
}

// sqlJulian returns the Julian day of a date string, or NULL.
func sqlJulian(x any) any {
	t, ok := compare.ToTime(sqlText(x))
	if !ok {
		return nil
	}
	return compare.JulianDay(t)
}

// sqlFold case-folds text. NULL stays NULL.
func sqlFold(x any) any {
	switch v := sqlText(x).(type) {
	case nil:
		return nil
	case string:
		return cases.Fold().String(v)
	default:
		return cases.Fold().String(fmt.Sprint(v))
	}
}

// sqlRegexp backs `value REGEXP pattern`, which SQLite calls as
// regexp(pattern, value). Invalid patterns and NULL values never match.
func sqlRegexp(pattern, value any) bool {
	p, ok := sqlText(pattern).(string)
	if !ok {
		return false
	}
	s, ok := sqlText(value).(string)
	if !ok {
		return false
	}
	re, err := queryir.CompileRegex(p)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// sqlText normalises callback arguments. The driver hands NULL over as a
// nil []byte; other blobs become strings.
func sqlText(x any) any {
	if b, ok := x.([]byte); ok {
		if b == nil {
			return nil
		}
		return string(b)
	}
	return x
}
