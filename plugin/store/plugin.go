package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/saylorsolutions/logdissect/pkg/iterator"
	"github.com/saylorsolutions/logdissect/plugin"
)

const qualifier = "sqlite"

var _ plugin.Plugin = (*sqlitePlugin)(nil)

func Plugin(log hclog.Logger) plugin.Plugin {
	return &sqlitePlugin{
		log:        log,
		storeCache: map[string]*SqliteStore{},
	}
}

type sqlitePlugin struct {
	log        hclog.Logger
	mux        sync.Mutex
	storeCache map[string]*SqliteStore
}

func (p *sqlitePlugin) ID() string {
	return qualifier
}

func (p *sqlitePlugin) Stopping() error {
	p.mux.Lock()
	defer p.mux.Unlock()
	var errs []error
	for file, store := range p.storeCache {
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing SQLite file '%s': %w", file, err))
		}
		delete(p.storeCache, file)
	}
	return errors.Join(errs...)
}

func (p *sqlitePlugin) store(args []string) (*SqliteStore, string, error) {
	if len(args) < 2 {
		return nil, "", fmt.Errorf("%w: requires 2 arguments", plugin.ErrArgs)
	}
	file := args[0]
	if file == "" {
		return nil, "", fmt.Errorf("%w: file name string must be specified as first argument", plugin.ErrArgs)
	}
	table := args[1]
	if table == "" {
		return nil, "", fmt.Errorf("%w: table name string must be specified as second argument", plugin.ErrArgs)
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	store, ok := p.storeCache[file]
	if !ok {
		_store, err := NewStore(p.log, file)
		if err != nil {
			return nil, "", err
		}
		store = _store
		p.storeCache[file] = _store
	}
	return store, table, nil
}

func (p *sqlitePlugin) Register(reg *plugin.Registration) {
	reg.RegisterSource(qualifier, "Table", func(ctx context.Context, args ...string) (iterator.Iterator, error) {
		store, table, err := p.store(args)
		if err != nil {
			return nil, err
		}
		return store.CtxQueryRecords(ctx, table)
	})
	reg.DocumentSource(qualifier, "Table", `sqlite.Table FILE_NAME TABLE_NAME

This source will query all rows from a table and return each row as a record.
It may not return continuously added rows, so it should be used for tables that represent a static snapshot of records.`)
	reg.RegisterSink(qualifier, "Table", func(ctx context.Context, src iterator.Iterator, args ...string) error {
		store, table, err := p.store(args)
		if err != nil {
			iterator.Drain(src)
			return err
		}
		return store.CtxSink(ctx, src, table)
	})
	reg.DocumentSink(qualifier, "Table", `sqlite.Table FILE_NAME TABLE_NAME

This sink will land all records into the SQLite database table specified. The TABLE_NAME argument may be prefixed with a schema name like "main.access".
If the table does not exist, then it will be created with an integer primary key column called rec_id. Table columns will be created as needed, one for each field path.
A column's type follows the first value landed in it: integer for longs, real for doubles, and text otherwise.`)
}
