// Package runtime loads plugins and executes dissection jobs with them.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/saylorsolutions/logdissect/pkg/dissect"
	"github.com/saylorsolutions/logdissect/pkg/entries"
	"github.com/saylorsolutions/logdissect/pkg/iterator"
	"github.com/saylorsolutions/logdissect/pkg/reader"
	"github.com/saylorsolutions/logdissect/plugin"
	"github.com/saylorsolutions/logdissect/plugin/httpd"
)

var (
	ErrInvalidState  = errors.New("invalid state")
	ErrUnknownSource = errors.New("unknown source class")
	ErrUnknownSink   = errors.New("unknown sink class")
)

type runtimeState int

const (
	created runtimeState = iota
	started
	executing
	stopping
	done
)

var (
	stateStrings = map[runtimeState]string{
		created:   "Created",
		started:   "Started",
		executing: "Executing",
		stopping:  "Stopping",
		done:      "Done",
	}
)

type Runtime struct {
	log      hclog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	registry *plugin.Registration
	plugins  []plugin.Plugin
	state    runtimeState
}

func NewRuntime(log hclog.Logger, plugins ...plugin.Plugin) *Runtime {
	return &Runtime{
		log:      log.Named("runtime"),
		registry: plugin.NewRegistration(),
		plugins:  plugins,
	}
}

func (r *Runtime) Start(_ctx context.Context) error {
	start := time.Now()
	log := r.log
	log.Debug("Starting runtime")
	if r.state != created {
		err := fmt.Errorf("%w: invalid state for start operation: %s", ErrInvalidState, stateStrings[r.state])
		log.Error("Invalid state to start", "error", err)
		return err
	}
	log.Debug("Registering plugins")
	r.ctx, r.cancel = context.WithCancel(_ctx)
	for _, p := range r.plugins {
		start := time.Now()
		log := log.With("plugin-id", p.ID(), "started", start)
		log.Debug("Registering plugin")
		p.Register(r.registry)
		log.Debug("Done registering plugin", "duration", time.Since(start).String())
	}
	r.state = started
	completed := time.Now()
	log.Info("Runtime started", "start-duration", completed.Sub(start).String(), "started", completed)
	return nil
}

func (r *Runtime) Stop() (rerr error) {
	start := time.Now()
	log := r.log.With("stopping", start)
	log.Debug("Stopping runtime")
	if r.state != started {
		err := fmt.Errorf("%w: invalid state for stop operation: %s", ErrInvalidState, stateStrings[r.state])
		log.Error("Invalid state to stop runtime", "error", err)
		return err
	}
	r.state = stopping
	log.Debug("Cancelling runtime context")
	r.cancel()
	log.Debug("Shutting down plugins")
	for _, p := range r.plugins {
		log := log.With("plugin-id", p.ID())
		log.Debug("Stopping plugin")
		if err := p.Stopping(); err != nil {
			log.Error("Error stopping plugin", "error", err)
			if rerr == nil {
				rerr = err
			}
		}
		log.Debug("Plugin stopped")
	}
	r.state = done
	log.Info("Runtime stopped", "stop-duration", time.Since(start).String())
	return rerr
}

// Registry returns the registrations of all plugins. It's populated by Start.
func (r *Runtime) Registry() *plugin.Registration {
	return r.registry
}

// Parser creates a dissect.Parser for the job's format, using the dissectors of all plugins.
func (r *Runtime) Parser(job *Job) (*dissect.Parser, error) {
	if err := r.checkState("parser"); err != nil {
		return nil, err
	}
	if err := job.validateFormat(); err != nil {
		return nil, err
	}
	catalog := r.registry.Catalog().Clone()
	if err := httpd.RegisterFormat(catalog, job.Format); err != nil {
		return nil, err
	}
	return dissect.NewParser(r.log, catalog, httpd.RootType,
		dissect.WithRemappings(job.remappings()),
		dissect.WithMaxDepth(job.MaxDepth),
	), nil
}

// Field describes one path that can be requested from a format.
type Field struct {
	Path  string `yaml:"path"`
	Casts string `yaml:"casts"`
}

// Fields lists every path that the job's format can produce, in discovery order.
func (r *Runtime) Fields(job *Job) ([]Field, error) {
	parser, err := r.Parser(job)
	if err != nil {
		return nil, err
	}
	rdr, err := reader.New(r.log, parser, []string{reader.FieldsSentinel})
	if err != nil {
		return nil, err
	}
	records, err := iterator.Collect(rdr.Read(iterator.Empty()))
	if err != nil {
		return nil, err
	}
	fields := make([]Field, len(records))
	for i, rec := range records {
		path, _ := rec.AsString(reader.FieldsSentinel)
		casts, _ := rdr.Casts(path)
		fields[i] = Field{Path: path, Casts: casts.String()}
	}
	return fields, nil
}

type prepared struct {
	reader *reader.Reader
	source plugin.SourceFunc
	sink   plugin.SinkFunc
}

func (r *Runtime) prepare(job *Job) (*prepared, error) {
	if err := r.checkState("execute"); err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	parser, err := r.Parser(job)
	if err != nil {
		return nil, err
	}
	rdr, err := reader.New(r.log, parser, job.Fields,
		reader.MaxErrorLines(job.MaxErrorLines),
		reader.LineField(job.LineField),
		reader.KeepFields(job.KeepFields...),
	)
	if err != nil {
		return nil, err
	}

	qualifier, class, err := plugin.SplitClass(job.Input.Class)
	if err != nil {
		return nil, err
	}
	src, _, ok := r.registry.Source(qualifier, class)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, job.Input.Class)
	}
	qualifier, class, err = plugin.SplitClass(job.Output.Class)
	if err != nil {
		return nil, err
	}
	sink, _, ok := r.registry.Sink(qualifier, class)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, job.Output.Class)
	}
	return &prepared{reader: rdr, source: src, sink: sink}, nil
}

// DryRun validates everything about job that Execute would, without reading any input.
func (r *Runtime) DryRun(job *Job) error {
	log := r.log.With("input", job.Input.Class, "output", job.Output.Class)
	if _, err := r.prepare(job); err != nil {
		log.Error("Dry run failed", "error", err)
		return err
	}
	log.Info("Dry run succeeded")
	return nil
}

// Execute runs job to completion: lines from the input source are dissected and the records are written to the output sink.
// The line counters are logged and returned even when the job fails.
func (r *Runtime) Execute(job *Job) (reader.Counters, error) {
	start := time.Now()
	log := r.log.With("exec-start", start, "input", job.Input.Class, "output", job.Output.Class)
	log.Debug("Executing job")
	p, err := r.prepare(job)
	if err != nil {
		log.Error("Failed to prepare job", "error", err)
		return reader.Counters{}, err
	}
	r.state = executing
	defer func() {
		r.state = started
	}()

	// Cancelled when the sink returns, so a parallel reader never outlives the job.
	ctx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	iter, err := p.source(ctx, job.Input.Args...)
	if err != nil {
		log.Error("Failed to create iterator", "error", err)
		return reader.Counters{}, err
	}
	iter = iterator.Cancellable(ctx, iter)
	if job.SkipPattern != "" {
		skip := regexp.MustCompile(job.SkipPattern)
		iter = iterator.Filter(iter, func(entry entries.LogEntry, _ int) bool {
			line, ok := entry.AsString(job.LineField)
			return !ok || !skip.MatchString(line)
		})
	}
	if job.StartPattern != "" {
		iter = iterator.Joiner(iter, regexp.MustCompile(job.StartPattern))
	}
	var records iterator.Iterator
	if job.Workers > 1 {
		records = p.reader.ReadParallel(ctx, iter, job.Workers)
	} else {
		records = p.reader.Read(iter)
	}
	if spec := job.renames(); spec != nil {
		records = iterator.Renamer(records, spec)
	}
	err = p.sink(ctx, records, job.Output.Args...)
	p.reader.LogCounters()
	if err != nil {
		log.Error("Failed to execute sink", "error", err)
		return p.reader.Counters(), err
	}
	log.Info("Job complete", "exec-duration", time.Since(start).String())
	return p.reader.Counters(), nil
}

// Docs returns the documentation of every registered source, sink, and dissector.
func (r *Runtime) Docs() string {
	return r.registry.AllDocs()
}

// PluginIDs returns the IDs of the loaded plugins in sorted order.
func (r *Runtime) PluginIDs() []string {
	ids := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		ids[i] = p.ID()
	}
	sort.Strings(ids)
	return ids
}

func (r *Runtime) checkState(op string) error {
	if r.state != started {
		err := fmt.Errorf("%w: invalid state for %s operation: %s", ErrInvalidState, op, stateStrings[r.state])
		r.log.Error("Invalid runtime state", "error", err)
		return err
	}
	return nil
}
