package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/saylorsolutions/logdissect/pkg/iterator"
	"github.com/saylorsolutions/logdissect/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteStore_Sink(t *testing.T) {
	iter := iterator.FromSlice([]entries.LogEntry{
		{
			"STRING:connection.client.host": "127.0.0.1",
			"BYTESCLF:response.body.bytes":  int64(2326),
		},
		{
			"STRING:connection.client.host":        "10.0.0.2",
			"STRING:request.firstline.uri.query.q": `say "hi"`,
		},
		{
			"DOUBLE:ratio": 1.5,
		},
		{},
	})
	log := hclog.Default()
	log.SetLevel(hclog.Debug)
	store := _tempStore(t, log)
	require.NoError(t, store.Sink(iter, "access"))

	rows, err := store.QueryRecords("access")
	require.NoError(t, err)
	records, err := iterator.Collect(rows)
	require.NoError(t, err)
	assert.Equal(t, []entries.LogEntry{
		{
			"rec_id":                        int64(1),
			"STRING:connection.client.host": "127.0.0.1",
			"BYTESCLF:response.body.bytes":  int64(2326),
		},
		{
			"rec_id":                               int64(2),
			"STRING:connection.client.host":        "10.0.0.2",
			"STRING:request.firstline.uri.query.q": `say "hi"`,
		},
		{
			"rec_id":       int64(3),
			"DOUBLE:ratio": 1.5,
		},
	}, records)

	// Landing more records reuses the existing columns.
	require.NoError(t, store.Sink(iterator.FromSlice([]entries.LogEntry{{"BYTESCLF:response.body.bytes": int64(0)}}), "access"))
	rows, err = store.QueryRecords("access")
	require.NoError(t, err)
	records, err = iterator.Collect(rows)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestSqliteStore_BadTable(t *testing.T) {
	store := _tempStore(t, hclog.NewNullLogger())
	err := store.Sink(iterator.Empty(), "access; drop table x")
	assert.ErrorIs(t, err, ErrBadTable)
	_, err = store.QueryRecords("")
	assert.ErrorIs(t, err, ErrBadTable)
}

func TestSqliteStore_Cancelled(t *testing.T) {
	store := _tempStore(t, hclog.NewNullLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.CtxSink(ctx, iterator.FromSlice([]entries.LogEntry{{"STRING:a": "a"}}), "access")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlugin(t *testing.T) {
	reg := plugin.NewRegistration()
	p := Plugin(hclog.NewNullLogger())
	p.Register(reg)
	file := filepath.Join(t.TempDir(), "store.db")

	sink, _, ok := reg.Sink("sqlite", "Table")
	require.True(t, ok)
	assert.ErrorIs(t, sink(context.Background(), iterator.Empty(), file), plugin.ErrArgs)
	require.NoError(t, sink(context.Background(), iterator.FromSlice([]entries.LogEntry{{"STRING:a": "a"}}), file, "records"))

	src, _, ok := reg.Source("sqlite", "Table")
	require.True(t, ok)
	iter, err := src(context.Background(), file, "records")
	require.NoError(t, err)
	records, err := iterator.Collect(iter)
	require.NoError(t, err)
	assert.Equal(t, []entries.LogEntry{{"rec_id": int64(1), "STRING:a": "a"}}, records)

	assert.NoError(t, p.Stopping())
}

func _tempStore(t *testing.T, log hclog.Logger) *SqliteStore {
	store, err := NewStore(log, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err, "Failed to create new store")
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Error("Failed to close DB")
		}
	})
	return store
}
