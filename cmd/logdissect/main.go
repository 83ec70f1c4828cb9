package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/saylorsolutions/logdissect/plugin"
	"github.com/saylorsolutions/logdissect/plugin/cut"
	"github.com/saylorsolutions/logdissect/plugin/file"
	"github.com/saylorsolutions/logdissect/plugin/httpd"
	"github.com/saylorsolutions/logdissect/plugin/stdstream"
	"github.com/saylorsolutions/logdissect/plugin/store"
	"github.com/saylorsolutions/logdissect/runtime"
	"gopkg.in/yaml.v3"
)

func main() {
	log := hclog.New(&hclog.LoggerOptions{
		Name:   "logdissect",
		Output: os.Stderr,
		Level:  hclog.LevelFromString(os.Getenv("LOGDISSECT_LOG_LEVEL")),
	})
	if len(os.Args) <= 1 {
		usage()
		return
	}
	args := os.Args[1:]
	switch args[0] {
	case "parse":
		start := time.Now()
		if err := doParse(log, args[1:]...); err != nil {
			exitError("Failed to parse: %v", err)
		}
		log.Info("Parsed successfully", "duration", roundDuration(time.Since(start)))
	case "vet":
		if err := doVet(log, args[1:]...); err != nil {
			exitError("Dry run failed: %v", err)
		}
		fmt.Println("Dry run ran successfully")
	case "fields":
		if err := doFields(log, os.Stdout, args[1:]...); err != nil {
			exitError("Failed to list fields: %v", err)
		}
	case "plugins":
		doPrintPlugins(log)
	case "help":
		usage()
	default:
		exitError("Unrecognized command: '%s'", args[0])
	}
}

func roundDuration(dur time.Duration) string {
	switch {
	case dur < time.Millisecond:
		return dur.Round(time.Microsecond).String()
	case dur < time.Second:
		return dur.Round(time.Millisecond).String()
	default:
		return dur.Round(time.Second).String()
	}
}

func exitError(format string, args ...any) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
	usage()
	os.Exit(-1)
}

func usage() {
	text := `
logdissect extracts requested fields from Apache httpd access log lines.

  logdissect help
  logdissect plugins
  logdissect fields [JOB_FILE]
  logdissect vet [JOB_FILE]
  logdissect parse [JOB_FILE]

The 'help' subcommand will print this usage information.
The 'plugins' subcommand will print the documentation for all sources, sinks, and dissectors loaded into the runtime for this program.
The 'fields' subcommand will print every field path the job's format can produce, with the types each value can be cast to, as YAML.
The 'vet' subcommand will validate the job without reading any input.
The 'parse' subcommand will run the job, writing one record per good line to the job's output.

A job file is YAML like this:

  format: combined
  fields:
    - STRING:connection.client.host
    - STRING:request.firstline.uri.query.*
  remappings:
    - name: request.header.x-forwarded-for
      type: CUT.COMMA
  input:
    class: file.File
    args: [access.log]
  output:
    class: std.Out

Every setting may be given or overridden with an environment variable, like LOGDISSECT_FORMAT or LOGDISSECT_INPUT_CLASS.
Use the field list "fields" to produce one record per possible field path instead of parsing.
Set LOGDISSECT_LOG_LEVEL to change the log level, which defaults to info.
`
	fmt.Print(text)
}

func plugins(log hclog.Logger) []plugin.Plugin {
	return []plugin.Plugin{
		httpd.Plugin(),
		cut.Plugin(),
		file.Plugin(),
		stdstream.Plugin(),
		store.Plugin(log),
	}
}

func doPrintPlugins(log hclog.Logger) {
	reg := plugin.NewRegistration()
	for _, p := range plugins(log) {
		p.Register(reg)
	}
	fmt.Println("Plugins extend logdissect with sources of lines, sinks for records, and dissectors for field types")
	fmt.Println()
	fmt.Print(reg.AllDocs())
}

func jobFile(args []string) string {
	if len(args) >= 1 {
		return args[0]
	}
	return ""
}

func withRuntime(log hclog.Logger, fn func(r *runtime.Runtime) error) (rerr error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	r := runtime.NewRuntime(log, plugins(log)...)
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer func() {
		err := r.Stop()
		if err != nil {
			log.Error("Error while stopping runtime", "error", err)
			if rerr == nil {
				rerr = err
			}
		}
	}()
	return fn(r)
}

func doParse(log hclog.Logger, args ...string) error {
	job, err := runtime.LoadJob(jobFile(args))
	if err != nil {
		return err
	}
	return withRuntime(log, func(r *runtime.Runtime) error {
		_, err := r.Execute(job)
		return err
	})
}

func doVet(log hclog.Logger, args ...string) error {
	job, err := runtime.LoadJob(jobFile(args))
	if err != nil {
		return err
	}
	return withRuntime(log, func(r *runtime.Runtime) error {
		return r.DryRun(job)
	})
}

func doFields(log hclog.Logger, out io.Writer, args ...string) error {
	// Only the format matters here, so the job isn't fully validated.
	job, err := runtime.ReadJob(jobFile(args))
	if err != nil {
		return err
	}
	return withRuntime(log, func(r *runtime.Runtime) error {
		fields, err := r.Fields(job)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(fields); err != nil {
			return err
		}
		return enc.Close()
	})
}
