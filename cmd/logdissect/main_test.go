package main

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/saylorsolutions/logdissect/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDoFields(t *testing.T) {
	t.Setenv("LOGDISSECT_FORMAT", "common")
	var buf bytes.Buffer
	require.NoError(t, doFields(hclog.NewNullLogger(), &buf))

	var fields []runtime.Field
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fields))
	require.NotEmpty(t, fields)
	assert.Equal(t, runtime.Field{Path: "STRING:connection.client.host", Casts: "STRING"}, fields[0])
	assert.Contains(t, fields, runtime.Field{Path: "BYTESCLF:response.body.bytes", Casts: "STRING|LONG"})
	assert.Contains(t, buf.String(), "- path: STRING:connection.client.host\n  casts: STRING\n")
}

func TestDoFields_NoFormat(t *testing.T) {
	var buf bytes.Buffer
	err := doFields(hclog.NewNullLogger(), &buf)
	assert.ErrorIs(t, err, runtime.ErrInvalidJob)
	assert.Empty(t, buf.String())
}

func TestDoVet(t *testing.T) {
	t.Setenv("LOGDISSECT_FORMAT", "combined")
	t.Setenv("LOGDISSECT_FIELDS", "HTTP.USERAGENT:request.user-agent")
	assert.NoError(t, doVet(hclog.NewNullLogger()))

	t.Setenv("LOGDISSECT_OUTPUT_CLASS", "nowhere.Sink")
	assert.ErrorIs(t, doVet(hclog.NewNullLogger()), runtime.ErrUnknownSink)
}

func TestRoundDuration(t *testing.T) {
	assert.Equal(t, "1ms", roundDuration(1200000))
	assert.Equal(t, "2s", roundDuration(2200000000))
	assert.Equal(t, "12µs", roundDuration(12345))
}
