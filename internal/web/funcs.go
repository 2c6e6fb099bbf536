package web

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

const (
	dateLayout     = "Mon 02 Jan 2006"
	dateTimeLayout = "Mon 02 Jan 2006 15:04"
)

var funcs = template.FuncMap{
	"date":     formatDate,
	"datetime": formatDateTime,
	"clock":    func(t time.Time) string { return t.Format("15:04") },
	"money":    money,
	"pct":      func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"lower":    strings.ToLower,
	"join":     strings.Join,
	"deref":    derefFloat,
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// formatDateTime accepts time.Time or *time.Time; nil renders as a dash.
func formatDateTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.Format(dateTimeLayout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format(dateTimeLayout)
	}
	return "-"
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
