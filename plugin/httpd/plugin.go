package httpd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/saylorsolutions/logdissect/pkg/dissect"
	"github.com/saylorsolutions/logdissect/plugin"
)

const (
	qualifier     = "httpd"
	LogFormatName = qualifier + ".logformat"
)

var _ plugin.Plugin = (*httpdPlugin)(nil)

// Plugin registers the dissectors for the parts of an access log line.
// The tokenizer depends on the log format, so it's added per job with RegisterFormat.
func Plugin() plugin.Plugin {
	return new(httpdPlugin)
}

type httpdPlugin struct{}

func (*httpdPlugin) ID() string {
	return qualifier
}

func (*httpdPlugin) Stopping() error {
	return nil
}

func (*httpdPlugin) Register(reg *plugin.Registration) {
	reg.RegisterDissector(qualifier, "firstline", FirstLine{})
	reg.DocumentDissector(qualifier, "firstline", `httpd.firstline

HTTP.FIRSTLINE -> HTTP.METHOD:method, HTTP.URI:uri, HTTP.PROTOCOL_VERSION:protocol
Splits a request line like "GET /index.html HTTP/1.1".`)
	reg.RegisterDissector(qualifier, "uri", URI{})
	reg.DocumentDissector(qualifier, "uri", `httpd.uri

HTTP.URI -> HTTP.PROTOCOL:protocol, HTTP.USERINFO:userinfo, HTTP.HOST:host, HTTP.PORT:port, STRING:path, HTTP.QUERYSTRING:query, HTTP.REF:ref
Splits an absolute or relative URI. Only the path is always produced.`)
	reg.RegisterDissector(qualifier, "querystring", QueryString{})
	reg.DocumentDissector(qualifier, "querystring", `httpd.querystring

HTTP.QUERYSTRING -> STRING:*
Produces one field per parameter, named by the lower case parameter name. Names and values are URL decoded.
Only the first value of a repeated parameter is kept.`)
	reg.RegisterDissector(qualifier, "timestamp", Timestamp{})
	reg.DocumentDissector(qualifier, "timestamp", `httpd.timestamp

TIME.STAMP -> TIME.EPOCH:epoch, TIME.YEAR:year, TIME.MONTH:month, TIME.MONTHNAME:monthname, TIME.DAY:day,
  TIME.HOUR:hour, TIME.MINUTE:minute, TIME.SECOND:second, TIME.DATE:date, TIME.TIME:time, TIME.ZONE:timezone
Splits a request time like "[10/Oct/2000:13:55:36 -0700]". The epoch is in milliseconds.`)
}

// RegisterFormat compiles format and adds the resulting tokenizer to catalog, replacing any earlier format.
func RegisterFormat(catalog *dissect.Catalog, format string) error {
	lf, err := NewLogFormat(format)
	if err != nil {
		return err
	}
	catalog.Register(LogFormatName, lf)
	catalog.Document(LogFormatName, LogFormatName+"\n\n"+RootType+" -> fields of:\n"+format)
	return nil
}

// NewParser creates a dissect.Parser for access log lines in format, using only the dissectors of this package.
func NewParser(log hclog.Logger, format string, opts ...dissect.ParserOpt) (*dissect.Parser, error) {
	reg := plugin.NewRegistration()
	Plugin().Register(reg)
	catalog := reg.Catalog()
	if err := RegisterFormat(catalog, format); err != nil {
		return nil, err
	}
	return dissect.NewParser(log, catalog, RootType, opts...), nil
}
