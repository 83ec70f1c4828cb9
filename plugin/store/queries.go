package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/saylorsolutions/logdissect/pkg/iterator"
)

const (
	rowIDColumn = "rec_id"
	createTable = `
create table if not exists %s (
	` + rowIDColumn + ` integer primary key
)`
)

var (
	ErrUnexpectedColumnType = errors.New("unexpected column type")
)

func newQueryIterator(log hclog.Logger, rows *sql.Rows) (iterator.Iterator, error) {
	cols, err := rows.Columns()
	if err != nil {
		log.Error("Failed to query columns", "error", err)
		_ = rows.Close()
		return nil, err
	}
	var rowNum int

	if len(cols) == 0 {
		_ = rows.Close()
		return iterator.Empty(), nil
	}

	return iterator.Func(func() (entries.LogEntry, int, error) {
		if !rows.Next() {
			err := rows.Err()
			_ = rows.Close()
			if err != nil {
				return iterator.Err(err)
			}
			return iterator.End()
		}
		vals := make([]any, len(cols))
		for i := range vals {
			vals[i] = new(any)
		}
		if err := rows.Scan(vals...); err != nil {
			_ = rows.Close()
			return iterator.Err(err)
		}

		entry := entries.LogEntry{}
		for i, v := range vals {
			switch val := (*v.(*any)).(type) {
			case nil:
			case int64, float64, string:
				entry[cols[i]] = val
			case []byte:
				entry[cols[i]] = string(val)
			default:
				_ = rows.Close()
				return iterator.Err(fmt.Errorf("%w: %T in column '%s'", ErrUnexpectedColumnType, val, cols[i]))
			}
		}
		cur := rowNum
		rowNum++
		return entry, cur, nil
	}), nil
}
