package repository

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

// add appends a condition; every "?" in cond is replaced by the next placeholder.
func (w *whereBuilder) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conditions = append(w.conditions, cond)
}

// addStreamSet restricts a JSON id-set column to rows without restriction or containing streamID.
func (w *whereBuilder) addStreamSet(column string, streamID int64) {
	w.add(fmt.Sprintf("(%[1]s IS NULL OR jsonb_array_length(%[1]s) = 0 OR %[1]s @> jsonb_build_array(?::bigint))", column), streamID)
}

// addStreamColumn restricts a nullable stream id column to shared rows or streamID.
func (w *whereBuilder) addStreamColumn(column string, streamID int64) {
	w.add(fmt.Sprintf("(%[1]s IS NULL OR %[1]s = ?)", column), streamID)
}

func (w *whereBuilder) sql() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func (w *whereBuilder) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func int64Array(ids []int64) interface{} {
	return pq.Array(ids)
}
