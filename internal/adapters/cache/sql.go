package cache

import (
	"commute-eta-service/internal/platform/db"
	"strings"
)

// upsertQuery builds a rows-row INSERT into table that overwrites every
// non-key column when key already exists. Written with ? placeholders and
// rebound for d.
func upsertQuery(d db.Dialect, table string, key, cols []string, rows int) string {
	all := append(append([]string{}, key...), cols...)
	tuple := "(" + placeholders(len(all)) + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO " + table + " (" + strings.Join(all, ", ") + ") VALUES ")
	for i := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	b.WriteString(" ON CONFLICT (" + strings.Join(key, ", ") + ") DO UPDATE SET ")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c + " = excluded." + c)
	}
	return db.Rebind(d, b.String())
}

// placeholders returns n comma-separated ? markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
