package compiler

import (
	"log/slog"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/pipeline"
)

// labelFuncs are available in label templates:
//
//	{{date "Jan 2006" .Gte}}   formats a date bound
//	{{num .Lt}}                formats a number bound
//	{{upper .Value}}           upper-cases a string
var labelFuncs = template.FuncMap{
	"date":  formatDate,
	"num":   formatNum,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

func parseLabel(text string) (*template.Template, error) {
	return template.New("label").Funcs(labelFuncs).Parse(text)
}

// renderLabel executes tmpl against data. A template that fails at run
// time (a nil bound, say) yields pipeline.UnlabeledLabel.
func renderLabel(tmpl *template.Template, data any) string {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		slog.Debug("label template failed", "template", tmpl.Root.String(), "error", err)
		return pipeline.UnlabeledLabel
	}
	return b.String()
}

func stringLabeler(text string) (pipeline.StringLabeler, error) {
	if text == "" {
		return nil, nil
	}
	tmpl, err := parseLabel(text)
	if err != nil {
		return nil, err
	}
	return func(s compare.StringSpec) string { return renderLabel(tmpl, s) }, nil
}

func numberLabeler(text string) (pipeline.NumberLabeler, error) {
	if text == "" {
		return nil, nil
	}
	tmpl, err := parseLabel(text)
	if err != nil {
		return nil, err
	}
	return func(r compare.NumberRange) string { return renderLabel(tmpl, r) }, nil
}

func dateLabeler(text string) (pipeline.DateLabeler, error) {
	if text == "" {
		return nil, nil
	}
	tmpl, err := parseLabel(text)
	if err != nil {
		return nil, err
	}
	return func(r compare.DateRange) string { return renderLabel(tmpl, r) }, nil
}

func formatDate(layout string, v any) string {
	switch t := v.(type) {
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(layout)
	case time.Time:
		return t.Format(layout)
	default:
		return ""
	}
}

func formatNum(v any) string {
	switch n := v.(type) {
	case *float64:
		if n == nil {
			return ""
		}
		return strconv.FormatFloat(*n, 'f', -1, 64)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	default:
		return ""
	}
}
