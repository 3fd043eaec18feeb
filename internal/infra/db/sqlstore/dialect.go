package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect covers the few places mysql, postgres and sqlite disagree:
// placeholders, insert-or-ignore and column types.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// rebind rewrites ? placeholders to $n for postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// insertIgnore builds an insert that silently skips rows violating a unique key.
func (d Dialect) insertIgnore(table string, cols ...string) string {
	ph := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	list := strings.Join(cols, ", ")
	if d == MySQL {
		return d.rebind(fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, list, ph))
	}
	return d.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, list, ph))
}

// column types: %[1]s long text, %[2]s float, %[3]s timestamp
func (d Dialect) types() []any {
	switch d {
	case MySQL:
		return []any{"LONGTEXT", "DOUBLE", "DATETIME(6)"}
	case Postgres:
		return []any{"TEXT", "DOUBLE PRECISION", "TIMESTAMPTZ"}
	default:
		return []any{"TEXT", "REAL", "DATETIME"}
	}
}
