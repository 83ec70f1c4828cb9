package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/saylorsolutions/logdissect/pkg/iterator"
	_ "modernc.org/sqlite"
)

var (
	tablePattern = regexp.MustCompile(`^\w+(\.\w+)?$`)
	ErrBadTable  = errors.New("invalid table name")
)

// SqliteStore lands dissected records in SQLite tables, using one column per field path.
type SqliteStore struct {
	db  *sql.DB
	log hclog.Logger
}

func NewStore(log hclog.Logger, filename string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	log = log.Named("sqlite-record-store").With("file", filename)
	return &SqliteStore{
		db:  db,
		log: log,
	}, nil
}

func (s *SqliteStore) QueryRecords(table string) (iterator.Iterator, error) {
	return s.CtxQueryRecords(context.Background(), table)
}

// CtxQueryRecords returns each row of table as a record. NULL columns are left out.
func (s *SqliteStore) CtxQueryRecords(ctx context.Context, table string) (iterator.Iterator, error) {
	if !tablePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %s", ErrBadTable, table)
	}
	rows, err := s.db.QueryContext(ctx, "select * from "+table)
	if err != nil {
		return nil, err
	}
	return newQueryIterator(s.log, rows)
}

func (s *SqliteStore) Sink(iter iterator.Iterator, table string) error {
	return s.CtxSink(context.Background(), iter, table)
}

// CtxSink inserts every record of iter as a row of table.
// The table is created if needed, and a column is added for each field path not seen before.
func (s *SqliteStore) CtxSink(ctx context.Context, iter iterator.Iterator, table string) error {
	if !tablePattern.MatchString(table) {
		iterator.Drain(iter)
		return fmt.Errorf("%w: %s", ErrBadTable, table)
	}
	s.log.Debug("Establishing connection")
	conn, err := s.db.Conn(ctx)
	if err != nil {
		iterator.Drain(iter)
		return err
	}
	defer func() {
		_ = conn.Close()
		s.log.Debug("DB connection closed")
	}()
	s.log.Debug("Ensuring the specified table is present")
	if _, err := conn.ExecContext(ctx, fmt.Sprintf(createTable, table)); err != nil {
		iterator.Drain(iter)
		return err
	}
	s.log.Debug("Getting table columns")
	cols, err := s.getTableColumns(ctx, conn, table)
	if err != nil {
		iterator.Drain(iter)
		return err
	}
	colMap := map[string]bool{}
	for _, c := range cols {
		colMap[c] = true
	}

	s.log.Debug("Starting sink operation")
	if err := s.sink(ctx, conn, table, iter, colMap); err != nil {
		iterator.Drain(iter)
		return err
	}
	return nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) getTableColumns(ctx context.Context, conn *sql.Conn, table string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "select * from "+table+" limit 0")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	return rows.Columns()
}

func (s *SqliteStore) sink(ctx context.Context, conn *sql.Conn, table string, iter iterator.Iterator, colMap map[string]bool) error {
	log := s.log.With("table", table).Named("sink")
	var inserted int
	err := iter.Iterate(func(entry entries.LogEntry, i int) error {
		if err := ctx.Err(); err != nil {
			log.Debug("Context cancelled")
			return iterator.ErrStopIteration
		}
		if len(entry) == 0 {
			return nil
		}

		fields := entry.Paths()
		for _, f := range fields {
			if colMap[f] {
				continue
			}
			log.Debug("New field discovered, adding to table", "field", f)
			if err := s.addColumn(ctx, conn, table, f, entry[f]); err != nil {
				log.Error("Failed to add field to table", "field", f, "error", err)
				return err
			}
			colMap[f] = true
		}

		var (
			intoStr strings.Builder
			params  strings.Builder
			args    = make([]any, len(fields))
		)
		for i, f := range fields {
			if i > 0 {
				intoStr.WriteString(",")
				params.WriteString(",")
			}
			intoStr.WriteString(quoteIdent(f))
			params.WriteString("?")
			args[i] = columnValue(entry, f)
		}
		query := fmt.Sprintf("insert into %s (%s) values (%s)", table, intoStr.String(), params.String())
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			log.Error("Failed to insert into table", "offset", i, "error", err)
			return err
		}
		inserted++
		return nil
	})
	if err != nil {
		log.Error("Error sinking to DB", "error", err)
		return err
	}
	log.Debug("Sink complete", "inserted", inserted)
	return nil
}

func (s *SqliteStore) addColumn(ctx context.Context, conn *sql.Conn, table, colName string, sample any) error {
	_, err := conn.ExecContext(ctx, fmt.Sprintf("alter table %s add column %s %s null", table, quoteIdent(colName), columnType(sample)))
	return err
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnType picks the column affinity from the first value seen for a field.
func columnType(sample any) string {
	switch sample.(type) {
	case int64, int:
		return "integer"
	case float64:
		return "real"
	default:
		return "text"
	}
}

func columnValue(entry entries.LogEntry, field string) any {
	switch v := entry[field].(type) {
	case string, int64, int, float64:
		return v
	}
	str, _ := entry.AsString(field)
	return str
}
