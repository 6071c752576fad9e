package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"statesdb/internal/ddl"
)

// RebindNumbered replaces each '?' outside single-quoted literals with
// prefix followed by its 1-based position ("$1", "@p1").
func RebindNumbered(query, prefix string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			sb.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			sb.WriteString(prefix)
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Placeholders returns n comma-separated '?' markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Bootstrap creates every table and index of sc that does not exist yet.
func Bootstrap(ctx context.Context, s Store, sc ddl.Schema) error {
	d := s.Dialect()
	for _, t := range sc.Tables {
		stmt, err := d.CreateTable(t)
		if err != nil {
			return fmt.Errorf("bootstrap %s: %w", t.FQN, err)
		}
		if _, err := s.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap %s: %w", t.FQN, err)
		}
	}
	return EnsureIndexes(ctx, s, sc.Indexes)
}

// EnsureIndexes creates the missing indexes of idx. The DDL is idempotent.
func EnsureIndexes(ctx context.Context, s Store, idx []ddl.IndexDef) error {
	d := s.Dialect()
	for _, ix := range idx {
		stmt, err := d.CreateIndex(ix)
		if err != nil {
			return fmt.Errorf("index %s: %w", ix.Name, err)
		}
		if _, err := s.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("index %s: %w", ix.Name, err)
		}
	}
	return nil
}

// TimeLayout is the fixed-width UTC layout used where timestamps are stored
// as text. Fixed width keeps lexical and chronological order the same.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

var timeLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

// NullTime scans a nullable timestamp that a driver may hand back as a
// time.Time or as text.
type NullTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (n *NullTime) Scan(src any) error {
	n.Time, n.Valid = time.Time{}, false
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	default:
		return fmt.Errorf("storage: cannot scan %T into NullTime", src)
	}
}

func (n *NullTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("storage: unrecognized timestamp %q", s)
}
